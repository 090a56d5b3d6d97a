package feed

import (
	"context"

	"github.com/matheus3301/crmlive/internal/crm"
)

// Filter narrows a subscription to one client, or to the messages sent
// from or to one phone number. Exactly one field is expected to be set.
type Filter struct {
	ClientID crm.ID
	Phone    string
}

// ClientFilter matches messages owned by a client.
func ClientFilter(id crm.ID) Filter { return Filter{ClientID: id} }

// PhoneFilter matches messages whose from_number or to_number is phone.
func PhoneFilter(phone string) Filter { return Filter{Phone: phone} }

// Match reports whether m falls inside the filter.
func (f Filter) Match(m crm.Message) bool {
	if f.ClientID != "" && m.ClientID != f.ClientID {
		return false
	}
	if f.Phone != "" && m.FromNumber != f.Phone && m.ToNumber != f.Phone {
		return false
	}
	return true
}

// Accepts reports whether e should be delivered under the filter. A delete
// whose old row carries only the key cannot be matched on client or phone,
// so it passes; subscribers drop ids they do not hold.
func (f Filter) Accepts(e Event) bool {
	m := e.Record()
	if e.Kind == Delete && keyOnly(f, m) {
		return true
	}
	return f.Match(m)
}

func keyOnly(f Filter, m crm.Message) bool {
	switch {
	case f.ClientID != "":
		return m.ClientID == ""
	case f.Phone != "":
		return m.FromNumber == "" && m.ToNumber == ""
	}
	return false
}

func (f Filter) String() string {
	switch {
	case f.ClientID != "":
		return "client_id=" + string(f.ClientID)
	case f.Phone != "":
		return "phone=" + f.Phone
	default:
		return "all"
	}
}

// Subscription is a live stream of events. Events is closed when the
// subscription ends; Err then reports why (nil after Close).
type Subscription interface {
	Events() <-chan Event
	Err() error
	// Close unsubscribes and waits for the stream to wind down or for ctx
	// to expire. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Feed opens subscriptions on the change stream of the messages table.
type Feed interface {
	Subscribe(ctx context.Context, f Filter) (Subscription, error)
}
