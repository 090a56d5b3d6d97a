package livesync

import (
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/feed"
)

// ScopeKind selects what a synchronizer follows.
type ScopeKind int

const (
	ScopeNone ScopeKind = iota
	// ScopeGlobal follows every message to or from the operator's number
	// and turns inbound ones into notifications.
	ScopeGlobal
	// ScopeClient follows one client's conversation.
	ScopeClient
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeGlobal:
		return "global"
	case ScopeClient:
		return "client"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ScopeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Scope is the context a synchronizer is active for.
type Scope struct {
	Kind     ScopeKind `json:"kind"`
	ClientID crm.ID    `json:"client_id,omitempty"`
	Phone    string    `json:"phone,omitempty"`
}

// Global returns the notification scope for an operator's number.
func Global(operatorPhone string) Scope {
	return Scope{Kind: ScopeGlobal, Phone: operatorPhone}
}

// Client returns the conversation scope of one client.
func Client(id crm.ID) Scope {
	return Scope{Kind: ScopeClient, ClientID: id}
}

// Filter returns the feed filter for the scope.
func (s Scope) Filter() feed.Filter {
	if s.Kind == ScopeClient {
		return feed.ClientFilter(s.ClientID)
	}
	return feed.PhoneFilter(s.Phone)
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeGlobal:
		return "global:" + s.Phone
	case ScopeClient:
		return "client:" + string(s.ClientID)
	default:
		return "none"
	}
}
