package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", "op-1")
	require.NoError(t, err)
	return c
}

func TestListClients(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/clients", r.URL.Path)
		assert.Equal(t, "Bearer op-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":7,"first_name":"Ada","last_name":"Lovelace","primary_phone":"+15550001"}]`))
	})

	clients, err := c.ListClients(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, crm.ID("7"), clients[0].ID)
	assert.Equal(t, "Ada Lovelace", clients[0].DisplayName())
}

func TestListMail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mail/42", r.URL.Path)
		_, _ = w.Write([]byte(`[{"message_id":"m1","in_reply_to":null,"thread_id":"t1","subject":"Hi","to_address":["a@b.c"],"raw_body":"x","parsed_body":null}]`))
	})

	mails, err := c.ListMail(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, mails, 1)
	assert.True(t, mails[0].IsRoot())
	assert.Nil(t, mails[0].ParsedBody)
}

func TestSendMail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in crm.MailMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "m1", in.ParentID())
		in.MessageID = "m2"
		_ = json.NewEncoder(w).Encode(in)
	})

	got, err := c.SendMail(context.Background(), crm.MailMessage{InReplyTo: crm.StringPtr("m1"), ThreadID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, "m2", got.MessageID)
}

func TestGetClientMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/messages/5", r.URL.Path)
		_, _ = w.Write([]byte(`{"client_phone":"+1555","messages":[{"id":"a","client_id":5,"content":"hi","direction":"inbound","created_at":"2024-01-01T10:00:00Z"}]}`))
	})

	cm, err := c.GetClientMessages(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, crm.ID("5"), cm.ClientID)
	assert.Equal(t, "+1555", cm.ClientPhone)
	require.Len(t, cm.Messages, 1)
	assert.Equal(t, crm.Inbound, cm.Messages[0].Direction)
}

func TestSendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var in SendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, SendRequest{ClientID: "5", Content: "hello", FromNumber: "+1999"}, in)
		_, _ = w.Write([]byte(`{"id":"new","client_id":"5","content":"hello","direction":"outbound","status":"pending"}`))
	})

	msg, err := c.SendMessage(context.Background(), SendRequest{ClientID: "5", Content: "hello", FromNumber: "+1999"})
	require.NoError(t, err)
	assert.Equal(t, "new", msg.ID)
	assert.Equal(t, crm.StatusPending, msg.Status)
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})

	_, err := c.ListClients(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.Contains(t, err.Error(), "nope")
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New("", "op")
	assert.Error(t, err)
}
