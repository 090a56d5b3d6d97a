package api

import (
	"time"

	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/mailthread"
)

// ConversationView is the open SMS conversation.
type ConversationView struct {
	ClientID     crm.ID        `json:"client_id"`
	ClientName   string        `json:"client_name"`
	ClientPhone  string        `json:"client_phone"`
	Active       bool          `json:"active"`
	Messages     []crm.Message `json:"messages"`
	ComposeState string        `json:"compose_state"`
	Draft        string        `json:"draft"`
	LoadError    string        `json:"load_error,omitempty"`
	FeedError    string        `json:"feed_error,omitempty"`
}

// MailView is a mail message with its display body resolved.
type MailView struct {
	crm.MailMessage
	Body string `json:"body"`
}

// ThreadView is one reconstructed mail thread.
type ThreadView struct {
	Subject      string     `json:"subject"`
	ThreadID     string     `json:"thread_id"`
	LastActivity time.Time  `json:"last_activity"`
	Chain        []MailView `json:"chain"`
}

// DaemonStatus is returned by Daemon.Status.
type DaemonStatus struct {
	Session       string       `json:"session"`
	Status        string       `json:"status"`
	Reason        string       `json:"reason,omitempty"`
	UptimeMs      int64        `json:"uptime_ms"`
	Operator      crm.Operator `json:"operator"`
	FeedDriver    string       `json:"feed_driver"`
	Scope         string       `json:"scope"`
	FeedError     string       `json:"feed_error,omitempty"`
	Notifications int          `json:"notifications"`
	Clients       int          `json:"clients"`
}

// WatchEvent is one bus event relayed to a watcher.
type WatchEvent struct {
	ID         string    `json:"event_id"`
	Session    string    `json:"session"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func mailViews(chain []crm.MailMessage) []MailView {
	out := make([]MailView, len(chain))
	for i, m := range chain {
		out[i] = MailView{MailMessage: m, Body: mailthread.DisplayBody(m)}
	}
	return out
}

func threadViews(threads []mailthread.Thread) []ThreadView {
	out := make([]ThreadView, len(threads))
	for i, t := range threads {
		out[i] = ThreadView{
			Subject:      t.Subject,
			ThreadID:     t.ThreadID,
			LastActivity: t.LastActivity,
			Chain:        mailViews(t.Chain),
		}
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
