package pgnotify

import (
	"context"
	"testing"
	"time"

	"github.com/matheus3301/crmlive/internal/feed"
	"github.com/stretchr/testify/assert"
)

func TestNewDefaultsChannel(t *testing.T) {
	f := New("postgres://localhost/crm", "", nil)
	assert.Equal(t, DefaultChannel, f.channel)
}

func TestSubscribeConnectFailure(t *testing.T) {
	f := New("postgres://nobody@127.0.0.1:1/crm?connect_timeout=1", "", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := f.Subscribe(ctx, feed.ClientFilter("1"))
	assert.ErrorContains(t, err, "pgnotify: connect")
}
