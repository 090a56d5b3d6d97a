package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/matheus3301/crmlive/internal/bus"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/feed"
	"github.com/matheus3301/crmlive/internal/livesync"
	"github.com/matheus3301/crmlive/internal/notify"
	"github.com/matheus3301/crmlive/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCRM struct{}

func (stubCRM) ListClients(context.Context) ([]crm.Client, error) {
	return []crm.Client{{ID: "X", FirstName: "Xena"}, {ID: "Y", FirstName: "Yuri"}}, nil
}

func (stubCRM) GetClientMessages(_ context.Context, id crm.ID) (crm.ClientMessages, error) {
	return crm.ClientMessages{ClientID: id}, nil
}

func inbound(id string, client crm.ID) feed.Event {
	return feed.Event{Kind: feed.Insert, New: crm.Message{
		ID:         id,
		ClientID:   client,
		FromNumber: "+1555000" + string(client),
		ToNumber:   operatorPhone,
		Direction:  crm.Inbound,
		Content:    "hi",
	}}
}

func TestOpenConversationSuppressesItsNotifications(t *testing.T) {
	ctx := context.Background()
	b := bus.New()
	hub := feed.NewHub()
	notes := notify.NewStore(b)
	dir := livesync.NewDirectory(stubCRM{}, nil, nil)
	sc := newScopes(
		livesync.New(hub, stubCRM{}, dir, notes, b, nil),
		livesync.New(hub, stubCRM{}, dir, notes, b, nil),
		operatorPhone,
		status.NewMachine(b),
		zap.NewNop(),
	)
	t.Cleanup(func() {
		_ = sc.Global.Deactivate(ctx)
		_ = sc.Conversation.Deactivate(ctx)
	})

	require.NoError(t, sc.ActivateGlobal(ctx))
	require.NoError(t, sc.Conversation.Activate(ctx, livesync.Client("X")))

	hub.Publish(inbound("m1", "X"))
	hub.Publish(inbound("m2", "Y"))

	require.Eventually(t, func() bool { return notes.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, crm.ID("Y"), notes.List()[0].ClientID)
	require.Eventually(t, func() bool { return len(sc.Conversation.Messages()) == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, sc.Conversation.Deactivate(ctx))
	hub.Publish(inbound("m3", "X"))
	require.Eventually(t, func() bool { return notes.Len() == 2 }, 2*time.Second, 5*time.Millisecond)
}
