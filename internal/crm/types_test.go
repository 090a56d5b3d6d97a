package crm

import (
	"encoding/json"
	"testing"
	"time"
)

func TestIDUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{`{"id": 42}`, "42"},
		{`{"id": "42"}`, "42"},
		{`{"id": null}`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		var v struct {
			ID ID `json:"id"`
		}
		if err := json.Unmarshal([]byte(tt.in), &v); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
		}
		if v.ID != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, v.ID, tt.want)
		}
	}
}

func TestIDUnmarshalRejectsObjects(t *testing.T) {
	var v struct {
		ID ID `json:"id"`
	}
	if err := json.Unmarshal([]byte(`{"id": {"x": 1}}`), &v); err == nil {
		t.Error("expected error for object id")
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for _, s := range []string{
		"2024-01-01T10:00:00Z",
		"2024-01-01T10:00:00.000Z",
		"2024-01-01 10:00:00+00",
		"2024-01-01T10:00:00",
	} {
		got, ok := ParseTime(s)
		if !ok {
			t.Errorf("ParseTime(%q) not ok", s)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseTime(%q) = %v, want %v", s, got, want)
		}
	}

	for _, s := range []string{"", "yesterday", "2024-13-45"} {
		got, ok := ParseTime(s)
		if ok || !got.IsZero() {
			t.Errorf("ParseTime(%q) = %v, %v; want zero, false", s, got, ok)
		}
	}
}

func TestMailTimeFallsBackToReceived(t *testing.T) {
	m := MailMessage{ReceivedAt: "2024-01-01T09:00:00Z"}
	if got := m.Time(); got.Hour() != 9 {
		t.Errorf("Time() = %v, want received_at", got)
	}
	m.SentAt = "2024-01-01T11:00:00Z"
	if got := m.Time(); got.Hour() != 11 {
		t.Errorf("Time() = %v, want sent_at", got)
	}
}

func TestMailIsRoot(t *testing.T) {
	if !(MailMessage{}).IsRoot() {
		t.Error("nil in_reply_to should be a root")
	}
	if !(MailMessage{InReplyTo: StringPtr("")}).IsRoot() {
		t.Error("empty in_reply_to should be a root")
	}
	if (MailMessage{InReplyTo: StringPtr("m1")}).IsRoot() {
		t.Error("reply should not be a root")
	}
}

func TestClientDisplayName(t *testing.T) {
	c := Client{FirstName: "Ada", LastName: "Lovelace"}
	if got := c.DisplayName(); got != "Ada Lovelace" {
		t.Errorf("DisplayName() = %q", got)
	}
	if got := (Client{FirstName: "Ada"}).DisplayName(); got != "Ada" {
		t.Errorf("DisplayName() = %q, want trimmed", got)
	}
}
