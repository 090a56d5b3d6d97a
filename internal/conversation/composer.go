// Package conversation holds the per-client compose and send logic for
// SMS and mail.
package conversation

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/matheus3301/crmlive/internal/backend"
	"github.com/matheus3301/crmlive/internal/bus"
	"github.com/matheus3301/crmlive/internal/crm"
	"go.uber.org/zap"
)

// State is the compose state of one conversation.
type State string

const (
	Idle      State = "IDLE"
	Composing State = "COMPOSING"
	Sending   State = "SENDING"
)

var validTransitions = map[State][]State{
	Idle:      {Composing},
	Composing: {Idle, Sending},
	Sending:   {Idle, Composing},
}

// MessageSender sends an SMS through the backend.
type MessageSender interface {
	SendMessage(ctx context.Context, req backend.SendRequest) (crm.Message, error)
}

// StateChange is the payload of bus.ComposeChanged.
type StateChange struct {
	ClientID crm.ID
	From     State
	To       State
}

// Composer is the SMS compose buffer of one client conversation. Sent
// messages are not added locally; they arrive through the live feed.
type Composer struct {
	client crm.Client
	sender MessageSender
	bus    *bus.Bus
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	buffer  string
	lastErr error
}

// NewComposer creates an idle composer for client.
func NewComposer(client crm.Client, sender MessageSender, b *bus.Bus, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{
		client: client,
		sender: sender,
		bus:    b,
		logger: logger.With(zap.String("client_id", string(client.ID))),
		state:  Idle,
	}
}

// Client returns the conversation's client.
func (c *Composer) Client() crm.Client { return c.client }

// State returns the current compose state.
func (c *Composer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Text returns the compose buffer.
func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer
}

// Err returns the last send or validation error, nil after a success.
func (c *Composer) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SetText replaces the compose buffer. It is ignored while sending.
func (c *Composer) SetText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Sending {
		return
	}
	c.buffer = text
	if text == "" {
		c.transition(Idle)
	} else {
		c.transition(Composing)
	}
}

// Send validates text and asks the backend to send it from operatorPhone.
// Validation failures return one of the sentinel errors without any
// network call. A backend failure returns *SendError and keeps text in the
// buffer; success clears it.
func (c *Composer) Send(ctx context.Context, text, operatorPhone string) (crm.Message, error) {
	c.mu.Lock()
	if c.state == Sending {
		c.mu.Unlock()
		return crm.Message{}, ErrSendInProgress
	}
	c.buffer = text
	if text != "" {
		c.transition(Composing)
	}
	content := strings.TrimSpace(text)
	var reject error
	switch {
	case content == "":
		reject = ErrEmptyMessage
	case c.client.PrimaryPhone == "":
		reject = ErrClientPhoneMissing
	case operatorPhone == "":
		reject = ErrOperatorPhoneMissing
	}
	if reject != nil {
		c.lastErr = reject
		c.mu.Unlock()
		return crm.Message{}, reject
	}
	c.transition(Sending)
	c.mu.Unlock()

	sent, err := c.sender.SendMessage(ctx, backend.SendRequest{
		ClientID:   c.client.ID,
		Content:    content,
		FromNumber: operatorPhone,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = &SendError{Err: err}
		c.transition(Composing)
		c.logger.Warn("send failed", zap.Error(err))
		return crm.Message{}, c.lastErr
	}
	c.buffer = ""
	c.lastErr = nil
	c.transition(Idle)
	c.logger.Info("message sent", zap.String("message_id", sent.ID))
	return sent, nil
}

// transition moves to the given state if allowed. Callers hold mu.
func (c *Composer) transition(to State) {
	if c.state == to {
		return
	}
	if !slices.Contains(validTransitions[c.state], to) {
		c.logger.Debug("ignoring compose transition", zap.String("from", string(c.state)), zap.String("to", string(to)))
		return
	}
	from := c.state
	c.state = to
	c.bus.Emit(bus.ComposeChanged, StateChange{ClientID: c.client.ID, From: from, To: to})
}

// String implements fmt.Stringer for logging.
func (s StateChange) String() string {
	return fmt.Sprintf("%s: %s -> %s", s.ClientID, s.From, s.To)
}
