package bus

import "time"

// Event kinds published inside the daemon. Subscribers filter by prefix,
// so "notification." receives every notification event.
const (
	NotificationAdded   = "notification.added"
	NotificationRemoved = "notification.removed"
	NotificationCleared = "notification.cleared"

	ConversationUpdated = "conversation.updated"
	ConversationClosed  = "conversation.closed"
	ComposeChanged      = "conversation.compose_changed"

	SyncActivated = "sync.activated"
	SyncFeedError = "sync.feed_error"

	MailThreadsChanged = "mail.threads_changed"

	StatusChanged = "daemon.status_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
