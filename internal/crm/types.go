package crm

import (
	"strings"
	"time"
)

// Direction tells whether a message was received from or sent to a client.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Status is the delivery status reported by the SMS provider.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusReceived  Status = "received"
)

// Client is the subset of a CRM client record needed for messaging.
type Client struct {
	ID             ID     `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	PrimaryPhone   string `json:"primary_phone,omitempty"`
	PrimaryEmail   string `json:"primary_email,omitempty"`
	AlternateEmail string `json:"alternate_email,omitempty"`
}

// DisplayName returns "First Last", trimmed.
func (c Client) DisplayName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Email returns the primary address, falling back to the alternate one.
func (c Client) Email() string {
	if c.PrimaryEmail != "" {
		return c.PrimaryEmail
	}
	return c.AlternateEmail
}

// Operator is the signed-in staff member. PhoneNumber is the number
// assigned to the operator for outbound SMS.
type Operator struct {
	ID          string `json:"id" toml:"id"`
	Email       string `json:"email" toml:"email"`
	Name        string `json:"name,omitempty" toml:"name"`
	PhoneNumber string `json:"phone_number,omitempty" toml:"phone_number"`
}

// Message is one SMS exchanged with a client.
type Message struct {
	ID                string    `json:"id"`
	ClientID          ID        `json:"client_id"`
	PhoneNumber       string    `json:"phone_number,omitempty"`
	FromNumber        string    `json:"from_number,omitempty"`
	ToNumber          string    `json:"to_number,omitempty"`
	Content           string    `json:"content"`
	Direction         Direction `json:"direction"`
	Status            Status    `json:"status"`
	ProviderMessageID string    `json:"telnyx_message_id,omitempty"`
	UserID            string    `json:"user_id,omitempty"`
	CreatedAt         string    `json:"created_at"`
}

// Time returns the parsed creation timestamp, or the zero time if it is
// missing or malformed.
func (m Message) Time() time.Time {
	t, _ := ParseTime(m.CreatedAt)
	return t
}

// ClientMessages is the message history of one client.
type ClientMessages struct {
	ClientID    ID        `json:"client_id"`
	ClientPhone string    `json:"client_phone"`
	Messages    []Message `json:"messages"`
}

// Attachment is a named link to a stored file.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// MailMessage is one email belonging to a thread. A nil or empty InReplyTo
// marks the root of a thread.
type MailMessage struct {
	MessageID   string       `json:"message_id,omitempty"`
	InReplyTo   *string      `json:"in_reply_to"`
	ThreadID    string       `json:"thread_id"`
	ClientID    ID           `json:"client_id,omitempty"`
	Direction   string       `json:"direction"`
	FromAddress string       `json:"from_address,omitempty"`
	ToAddress   []string     `json:"to_address"`
	Subject     string       `json:"subject"`
	RawBody     string       `json:"raw_body"`
	ParsedBody  *string      `json:"parsed_body"`
	ReceivedAt  string       `json:"received_at,omitempty"`
	SentAt      string       `json:"sent_at,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// IsRoot reports whether the message starts a thread.
func (m MailMessage) IsRoot() bool {
	return m.InReplyTo == nil || *m.InReplyTo == ""
}

// ParentID returns the in-reply-to id, or "" for roots.
func (m MailMessage) ParentID() string {
	if m.InReplyTo == nil {
		return ""
	}
	return *m.InReplyTo
}

// Time returns sent_at, falling back to received_at. Missing or malformed
// values yield the zero time.
func (m MailMessage) Time() time.Time {
	raw := m.SentAt
	if raw == "" {
		raw = m.ReceivedAt
	}
	t, _ := ParseTime(raw)
	return t
}

// Notification prompts the operator about an unread inbound message.
// ClientName is copied at creation time.
type Notification struct {
	ID         string    `json:"id"`
	ClientID   ID        `json:"client_id"`
	ClientName string    `json:"client_name"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

// UnknownClientName labels notifications whose client cannot be resolved.
const UnknownClientName = "Unknown Client"

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
