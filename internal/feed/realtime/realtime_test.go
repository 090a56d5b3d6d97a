package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/crmlive/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer accepts one socket, acknowledges the join and then pushes
// the given change payloads on the joined topic.
func fakeServer(t *testing.T, status string, changes ...string) (*httptest.Server, chan frame) {
	t.Helper()
	received := make(chan frame, 16)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/realtime/v1/websocket" || r.URL.Query().Get("apikey") != "anon" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		var join frame
		if err := conn.ReadJSON(&join); err != nil {
			return
		}
		received <- join
		reply, _ := json.Marshal(replyPayload{Status: status, Response: json.RawMessage(`{}`)})
		_ = conn.WriteJSON(frame{Topic: join.Topic, Event: eventReply, Payload: reply, Ref: join.Ref})

		for _, c := range changes {
			payload, _ := json.Marshal(map[string]json.RawMessage{"data": json.RawMessage(c)})
			_ = conn.WriteJSON(frame{Topic: "realtime:other", Event: eventPostgresChanges, Payload: payload})
			_ = conn.WriteJSON(frame{Topic: join.Topic, Event: eventPostgresChanges, Payload: payload})
		}
		for {
			var msg frame
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg
		}
	}))
	t.Cleanup(srv.Close)
	return srv, received
}

func TestSubscribeJoinsWithClientBinding(t *testing.T) {
	srv, received := fakeServer(t, "ok",
		`{"type":"INSERT","record":{"id":"m1","client_id":"7","content":"hi","direction":"inbound","created_at":"2024-01-01T10:00:00Z"}}`,
		`{"type":"DELETE","old_record":{"id":"m0"}}`,
	)
	f := New(Config{URL: srv.URL, APIKey: "anon"}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub, err := f.Subscribe(ctx, feed.ClientFilter("7"))
	require.NoError(t, err)

	join := <-received
	assert.Equal(t, eventJoin, join.Event)
	var jp joinPayload
	require.NoError(t, json.Unmarshal(join.Payload, &jp))
	require.Len(t, jp.Config.PostgresChanges, 1)
	assert.Equal(t, "client_id=eq.7", jp.Config.PostgresChanges[0].Filter)
	assert.Equal(t, "messages", jp.Config.PostgresChanges[0].Table)

	first := <-sub.Events()
	assert.Equal(t, feed.Insert, first.Kind)
	assert.Equal(t, "m1", first.New.ID)
	second := <-sub.Events()
	assert.Equal(t, feed.Delete, second.Kind)
	assert.Equal(t, "m0", second.Record().ID)

	require.NoError(t, sub.Close(ctx))
	leave := <-received
	assert.Equal(t, eventLeave, leave.Event)
	assert.NoError(t, sub.Err())
}

func TestSubscribeJoinRejected(t *testing.T) {
	srv, _ := fakeServer(t, "error")
	f := New(Config{URL: srv.URL, APIKey: "anon"}, nil)

	_, err := f.Subscribe(context.Background(), feed.PhoneFilter("+1555"))
	assert.ErrorContains(t, err, "join rejected")
}

func TestServerDisconnectSurfacesError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		var join frame
		_ = conn.ReadJSON(&join)
		reply, _ := json.Marshal(replyPayload{Status: "ok"})
		_ = conn.WriteJSON(frame{Topic: join.Topic, Event: eventReply, Payload: reply, Ref: join.Ref})
		_ = conn.Close()
	}))
	defer srv.Close()

	sub, err := New(Config{URL: srv.URL}, nil).Subscribe(context.Background(), feed.Filter{})
	require.NoError(t, err)

	select {
	case _, ok := <-sub.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end")
	}
	assert.Error(t, sub.Err())
}

func TestBindingsForPhone(t *testing.T) {
	b := bindings("public", "messages", feed.PhoneFilter("+1555"))
	require.Len(t, b, 2)
	assert.Equal(t, "from_number=eq.+1555", b[0].Filter)
	assert.Equal(t, "to_number=eq.+1555", b[1].Filter)
}

func TestEndpoint(t *testing.T) {
	got, err := endpoint("https://abc.supabase.co", "key")
	require.NoError(t, err)
	assert.Equal(t, "wss://abc.supabase.co/realtime/v1/websocket?apikey=key&vsn=1.0.0", got)

	got, err = endpoint("ws://localhost:4000/socket/websocket", "")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:4000/socket/websocket?vsn=1.0.0", got)

	_, err = endpoint("ftp://x", "")
	assert.Error(t, err)
}
