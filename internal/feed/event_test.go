package feed

import (
	"testing"

	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChangeInsert(t *testing.T) {
	data := []byte(`{
		"type": "INSERT",
		"record": {"id": "m1", "client_id": 7, "content": "hello", "direction": "inbound",
			"status": "received", "from_number": "+1555", "to_number": "+1666",
			"created_at": "2024-01-01T10:00:00Z"},
		"old_record": {}
	}`)
	evt, err := DecodeChange(data)
	require.NoError(t, err)
	assert.Equal(t, Insert, evt.Kind)
	assert.Equal(t, "m1", evt.New.ID)
	assert.Equal(t, crm.ID("7"), evt.New.ClientID)
	assert.Equal(t, crm.Inbound, evt.New.Direction)
	assert.Equal(t, "m1", evt.Record().ID)
}

func TestDecodeChangeDeleteUsesOldRecord(t *testing.T) {
	evt, err := DecodeChange([]byte(`{"type":"DELETE","record":null,"old_record":{"id":"m9"}}`))
	require.NoError(t, err)
	assert.Equal(t, Delete, evt.Kind)
	assert.Equal(t, "m9", evt.Record().ID)
}

func TestDecodeChangeAcceptsEventType(t *testing.T) {
	evt, err := DecodeChange([]byte(`{"eventType":"update","record":{"id":"m1","status":"delivered"}}`))
	require.NoError(t, err)
	assert.Equal(t, Update, evt.Kind)
	assert.Equal(t, crm.StatusDelivered, evt.New.Status)
}

func TestDecodeChangeErrors(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`{"type":"TRUNCATE","record":{"id":"m1"}}`,
		`{"type":"INSERT","record":{}}`,
		`{"type":"INSERT","record":"oops"}`,
	} {
		_, err := DecodeChange([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestEncodeDecodeChange(t *testing.T) {
	in := Event{Kind: Update, New: crm.Message{ID: "m1", Status: crm.StatusSent}, Old: crm.Message{ID: "m1", Status: crm.StatusPending}}
	data, err := EncodeChange(in)
	require.NoError(t, err)
	out, err := DecodeChange(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFilterMatch(t *testing.T) {
	m := crm.Message{ID: "m", ClientID: "5", FromNumber: "+1", ToNumber: "+2"}

	assert.True(t, ClientFilter("5").Match(m))
	assert.False(t, ClientFilter("6").Match(m))
	assert.True(t, PhoneFilter("+1").Match(m))
	assert.True(t, PhoneFilter("+2").Match(m))
	assert.False(t, PhoneFilter("+3").Match(m))
	assert.True(t, Filter{}.Match(m))
}

func TestFilterAcceptsKeyOnlyDelete(t *testing.T) {
	keyOnly := Event{Kind: Delete, Old: crm.Message{ID: "b"}}
	assert.True(t, ClientFilter("1").Accepts(keyOnly))
	assert.True(t, PhoneFilter("+1").Accepts(keyOnly))

	full := Event{Kind: Delete, Old: crm.Message{ID: "b", ClientID: "2", FromNumber: "+2"}}
	assert.False(t, ClientFilter("1").Accepts(full))
	assert.False(t, PhoneFilter("+1").Accepts(full))

	insert := Event{Kind: Insert, New: crm.Message{ID: "c"}}
	assert.False(t, ClientFilter("1").Accepts(insert))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "INSERT", Insert.String())
	assert.Equal(t, "DELETE", Delete.String())
	assert.Equal(t, "Kind(0)", Kind(0).String())
}
