package livesync

import (
	"slices"

	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/feed"
)

// State is the local view maintained for the active scope. Messages is
// only populated for client scope, in ascending creation order.
type State struct {
	Scope       Scope
	ClientPhone string
	Messages    []crm.Message
}

// Effect reports what Apply did with an event.
type Effect int

const (
	Ignored Effect = iota
	Inserted
	Updated
	Deleted
	// Unmatched is an update for a message not held locally. It is dropped.
	Unmatched
	// Notify asks the caller to raise a notification for the event's
	// record. State is unchanged.
	Notify
)

func (e Effect) String() string {
	switch e {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	case Unmatched:
		return "unmatched"
	case Notify:
		return "notify"
	default:
		return "ignored"
	}
}

// Apply folds one feed event into st. The input state is never modified.
func Apply(st State, e feed.Event) (State, Effect) {
	switch st.Scope.Kind {
	case ScopeGlobal:
		// Only texts received on the operator's number notify; an inbound
		// row matched through from_number is some other line's traffic.
		if e.Kind == feed.Insert && e.New.Direction == crm.Inbound && e.New.ToNumber == st.Scope.Phone {
			return st, Notify
		}
		return st, Ignored
	case ScopeClient:
	default:
		return st, Ignored
	}

	switch e.Kind {
	case feed.Insert:
		if e.New.ClientID != st.Scope.ClientID {
			return st, Ignored
		}
		msgs := slices.Clone(st.Messages)
		if i := indexOf(msgs, e.New.ID); i >= 0 {
			msgs[i] = e.New
		} else {
			msgs = append(msgs, e.New)
		}
		SortMessages(msgs)
		st.Messages = msgs
		return st, Inserted

	case feed.Update:
		i := indexOf(st.Messages, e.New.ID)
		if i < 0 {
			return st, Unmatched
		}
		msgs := slices.Clone(st.Messages)
		msgs[i] = e.New
		st.Messages = msgs
		return st, Updated

	case feed.Delete:
		i := indexOf(st.Messages, e.Record().ID)
		if i < 0 {
			return st, Ignored
		}
		st.Messages = slices.Delete(slices.Clone(st.Messages), i, i+1)
		return st, Deleted
	}
	return st, Ignored
}

// SortMessages orders msgs by creation time, oldest first. Missing or
// malformed timestamps sort first; equal times keep their order.
func SortMessages(msgs []crm.Message) {
	slices.SortStableFunc(msgs, func(a, b crm.Message) int {
		return a.Time().Compare(b.Time())
	})
}

func indexOf(msgs []crm.Message, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(msgs, func(m crm.Message) bool { return m.ID == id })
}
