package realtime

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/matheus3301/crmlive/internal/feed"
)

// Phoenix channel events used by the realtime service.
const (
	eventJoin            = "phx_join"
	eventLeave           = "phx_leave"
	eventReply           = "phx_reply"
	eventError           = "phx_error"
	eventClose           = "phx_close"
	eventHeartbeat       = "heartbeat"
	eventPostgresChanges = "postgres_changes"

	topicPhoenix = "phoenix"
)

type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
}

type binding struct {
	Event  string `json:"event"`
	Schema string `json:"schema"`
	Table  string `json:"table"`
	Filter string `json:"filter,omitempty"`
}

type joinPayload struct {
	Config struct {
		PostgresChanges []binding `json:"postgres_changes"`
	} `json:"config"`
	AccessToken string `json:"access_token,omitempty"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type changesPayload struct {
	Data json.RawMessage `json:"data"`
}

// bindings translates a filter into postgres_changes bindings. The
// service filters on a single column, so a phone filter needs one binding
// per direction.
func bindings(schema, table string, f feed.Filter) []binding {
	b := binding{Event: "*", Schema: schema, Table: table}
	switch {
	case f.ClientID != "":
		b.Filter = "client_id=eq." + string(f.ClientID)
	case f.Phone != "":
		from, to := b, b
		from.Filter = "from_number=eq." + f.Phone
		to.Filter = "to_number=eq." + f.Phone
		return []binding{from, to}
	}
	return []binding{b}
}

// endpoint builds the websocket URL from a project URL such as
// https://xyz.supabase.co.
func endpoint(base, apiKey string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("realtime: parse url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("realtime: unsupported scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/websocket") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/realtime/v1/websocket"
	}
	q := u.Query()
	if apiKey != "" {
		q.Set("apikey", apiKey)
	}
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
