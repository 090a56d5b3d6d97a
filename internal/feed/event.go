// Package feed defines the real-time change feed for message records and
// the drivers that deliver it.
package feed

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matheus3301/crmlive/internal/crm"
)

// Kind is the type of change carried by an Event.
type Kind int

const (
	Insert Kind = iota + 1
	Update
	Delete
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses the change type used on the wire.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(s) {
	case "INSERT":
		return Insert, nil
	case "UPDATE":
		return Update, nil
	case "DELETE":
		return Delete, nil
	}
	return 0, fmt.Errorf("feed: unknown change type %q", s)
}

// Event is one change to a message row. New is set for inserts and
// updates; Old is set for deletes and, when the source provides it, for
// updates.
type Event struct {
	Kind Kind
	New  crm.Message
	Old  crm.Message
}

// Record returns the row the event is about: Old for deletes (falling
// back to New when the source only sends the key), New otherwise.
func (e Event) Record() crm.Message {
	if e.Kind == Delete && e.Old.ID != "" {
		return e.Old
	}
	return e.New
}

// change is the wire payload shared by every driver.
type change struct {
	Type      string          `json:"type"`
	EventType string          `json:"eventType"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
}

// DecodeChange parses {"type":..., "record":..., "old_record":...}.
func DecodeChange(data []byte) (Event, error) {
	var c change
	if err := json.Unmarshal(data, &c); err != nil {
		return Event{}, fmt.Errorf("feed: decode change: %w", err)
	}
	typ := c.Type
	if typ == "" {
		typ = c.EventType
	}
	kind, err := ParseKind(typ)
	if err != nil {
		return Event{}, err
	}
	evt := Event{Kind: kind}
	if err := decodeRecord(c.Record, &evt.New); err != nil {
		return Event{}, fmt.Errorf("feed: decode record: %w", err)
	}
	if err := decodeRecord(c.OldRecord, &evt.Old); err != nil {
		return Event{}, fmt.Errorf("feed: decode old_record: %w", err)
	}
	if evt.Record().ID == "" {
		return Event{}, fmt.Errorf("feed: %s change without message id", kind)
	}
	return evt, nil
}

// EncodeChange is the inverse of DecodeChange.
func EncodeChange(e Event) ([]byte, error) {
	out := struct {
		Type      string       `json:"type"`
		Record    *crm.Message `json:"record,omitempty"`
		OldRecord *crm.Message `json:"old_record,omitempty"`
	}{Type: e.Kind.String()}
	if e.New.ID != "" {
		out.Record = &e.New
	}
	if e.Old.ID != "" {
		out.OldRecord = &e.Old
	}
	return json.Marshal(out)
}

func decodeRecord(raw json.RawMessage, m *crm.Message) error {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return nil
	}
	return json.Unmarshal(raw, m)
}
