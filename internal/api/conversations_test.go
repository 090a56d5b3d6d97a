package api

import (
	"context"
	"testing"

	"github.com/matheus3301/crmlive/internal/bus"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/feed"
	"github.com/matheus3301/crmlive/internal/livesync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

type emptyHistory struct{}

func (emptyHistory) GetClientMessages(_ context.Context, id crm.ID) (crm.ClientMessages, error) {
	return crm.ClientMessages{ClientID: id}, nil
}

func newConversationService(t *testing.T) *ConversationService {
	t.Helper()
	b := bus.New()
	s := livesync.New(feed.NewHub(), emptyHistory{}, nil, nil, b, nil)
	t.Cleanup(func() { _ = s.Deactivate(context.Background()) })
	dir := livesync.NewDirectory(nil, nil, nil)
	return NewConversationService("test", s, dir, nil, crm.Operator{PhoneNumber: "+1999"}, b, nil)
}

// An Open whose activation was overtaken must not install its composer
// over the newer conversation's.
func TestComposerFollowsActiveScope(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	require.NoError(t, svc.sync.Activate(ctx, livesync.Client("A")))
	require.NoError(t, svc.sync.Activate(ctx, livesync.Client("B")))
	require.True(t, svc.install(crm.Client{ID: "B"}))

	assert.False(t, svc.install(crm.Client{ID: "A"}), "late install for A")
	c, err := svc.current()
	require.NoError(t, err)
	assert.Equal(t, crm.ID("B"), c.Client().ID)
}

func TestStaleComposerIsRejected(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	require.NoError(t, svc.sync.Activate(ctx, livesync.Client("A")))
	require.True(t, svc.install(crm.Client{ID: "A"}))
	require.NoError(t, svc.sync.Activate(ctx, livesync.Client("B")))

	_, err := svc.current()
	assert.Equal(t, codes.FailedPrecondition, grpcstatus.Code(err))
}

// A Close that finishes after a newer Open keeps the new composer.
func TestCloseKeepsNewerComposer(t *testing.T) {
	svc := newConversationService(t)
	ctx := context.Background()

	require.NoError(t, svc.sync.Activate(ctx, livesync.Client("A")))
	require.True(t, svc.install(crm.Client{ID: "A"}))

	_, err := svc.Close(ctx, nil)
	require.NoError(t, err)
	_, err = svc.current()
	assert.Equal(t, codes.FailedPrecondition, grpcstatus.Code(err))

	require.NoError(t, svc.sync.Activate(ctx, livesync.Client("B")))
	require.True(t, svc.install(crm.Client{ID: "B"}))
	// Close's trailing cleanup running now must leave B alone.
	svc.dropStale()
	c, err := svc.current()
	require.NoError(t, err)
	assert.Equal(t, crm.ID("B"), c.Client().ID)
}
