package livesync

import (
	"testing"

	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(id, clientID, createdAt string) crm.Message {
	return crm.Message{ID: id, ClientID: crm.ID(clientID), Content: "body " + id, Direction: crm.Inbound, CreatedAt: createdAt}
}

func msgIDs(msgs []crm.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func clientState(id string, msgs ...crm.Message) State {
	return State{Scope: Client(crm.ID(id)), Messages: msgs}
}

func TestApplyInsertResortsOutOfOrderDelivery(t *testing.T) {
	st := clientState("1")
	for _, m := range []crm.Message{
		msg("t3", "1", "2024-01-01T03:00:00Z"),
		msg("t1", "1", "2024-01-01T01:00:00Z"),
		msg("t2", "1", "2024-01-01T02:00:00Z"),
	} {
		var eff Effect
		st, eff = Apply(st, feed.Event{Kind: feed.Insert, New: m})
		require.Equal(t, Inserted, eff)
	}
	assert.Equal(t, []string{"t1", "t2", "t3"}, msgIDs(st.Messages))
}

func TestApplyInsertIgnoresOtherClient(t *testing.T) {
	st := clientState("1")
	next, eff := Apply(st, feed.Event{Kind: feed.Insert, New: msg("x", "2", "")})
	assert.Equal(t, Ignored, eff)
	assert.Empty(t, next.Messages)
}

func TestApplyInsertReplacesKnownID(t *testing.T) {
	st := clientState("1", msg("a", "1", "2024-01-01T01:00:00Z"))
	dup := msg("a", "1", "2024-01-01T01:00:00Z")
	dup.Status = crm.StatusDelivered
	next, eff := Apply(st, feed.Event{Kind: feed.Insert, New: dup})
	assert.Equal(t, Inserted, eff)
	require.Len(t, next.Messages, 1)
	assert.Equal(t, crm.StatusDelivered, next.Messages[0].Status)
}

func TestApplyInsertMalformedTimeSortsFirst(t *testing.T) {
	st := clientState("1", msg("a", "1", "2024-01-01T01:00:00Z"))
	next, _ := Apply(st, feed.Event{Kind: feed.Insert, New: msg("bad", "1", "not a time")})
	assert.Equal(t, []string{"bad", "a"}, msgIDs(next.Messages))
}

func TestApplyUpdate(t *testing.T) {
	st := clientState("1", msg("a", "1", "2024-01-01T01:00:00Z"))
	upd := st.Messages[0]
	upd.Status = crm.StatusFailed

	next, eff := Apply(st, feed.Event{Kind: feed.Update, New: upd})
	assert.Equal(t, Updated, eff)
	assert.Equal(t, crm.StatusFailed, next.Messages[0].Status)
	assert.Equal(t, crm.Status(""), st.Messages[0].Status, "input state must not change")
}

func TestApplyUpdateWithoutMatchIsDropped(t *testing.T) {
	st := clientState("1", msg("a", "1", ""))
	next, eff := Apply(st, feed.Event{Kind: feed.Update, New: msg("zzz", "1", "")})
	assert.Equal(t, Unmatched, eff)
	assert.Equal(t, []string{"a"}, msgIDs(next.Messages))
}

func TestApplyDelete(t *testing.T) {
	st := clientState("1", msg("a", "1", "2024-01-01T01:00:00Z"), msg("b", "1", "2024-01-01T02:00:00Z"))

	next, eff := Apply(st, feed.Event{Kind: feed.Delete, Old: crm.Message{ID: "a"}})
	assert.Equal(t, Deleted, eff)
	assert.Equal(t, []string{"b"}, msgIDs(next.Messages))
	assert.Len(t, st.Messages, 2)

	_, eff = Apply(next, feed.Event{Kind: feed.Delete, Old: crm.Message{ID: "a"}})
	assert.Equal(t, Ignored, eff)
}

func TestApplyGlobalScope(t *testing.T) {
	st := State{Scope: Global("+1999")}

	in := msg("a", "1", "")
	in.ToNumber = "+1999"
	_, eff := Apply(st, feed.Event{Kind: feed.Insert, New: in})
	assert.Equal(t, Notify, eff)

	foreign := msg("c", "1", "")
	foreign.FromNumber = "+1999"
	foreign.ToNumber = "+1000"
	_, eff = Apply(st, feed.Event{Kind: feed.Insert, New: foreign})
	assert.Equal(t, Ignored, eff, "inbound to another number")

	out := msg("b", "1", "")
	out.Direction = crm.Outbound
	_, eff = Apply(st, feed.Event{Kind: feed.Insert, New: out})
	assert.Equal(t, Ignored, eff)

	next, eff := Apply(st, feed.Event{Kind: feed.Update, New: msg("a", "1", "")})
	assert.Equal(t, Ignored, eff)
	assert.Empty(t, next.Messages)
}

func TestApplyInactive(t *testing.T) {
	_, eff := Apply(State{}, feed.Event{Kind: feed.Insert, New: msg("a", "1", "")})
	assert.Equal(t, Ignored, eff)
}

func TestScopeFilter(t *testing.T) {
	assert.Equal(t, feed.ClientFilter("7"), Client("7").Filter())
	assert.Equal(t, feed.PhoneFilter("+1999"), Global("+1999").Filter())
	assert.Equal(t, "client:7", Client("7").String())
}
