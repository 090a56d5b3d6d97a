package daemon

import (
	"context"

	"github.com/matheus3301/crmlive/internal/bus"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/livesync"
	"github.com/matheus3301/crmlive/internal/status"
	"go.uber.org/zap"
)

// Scopes holds the daemon's two synchronizers: the global one feeding
// notifications and the one following the open conversation.
type Scopes struct {
	Global       *livesync.Synchronizer
	Conversation *livesync.Synchronizer

	phone   string
	machine *status.Machine
	logger  *zap.Logger
}

func newScopes(global, conv *livesync.Synchronizer, phone string, machine *status.Machine, logger *zap.Logger) *Scopes {
	sc := &Scopes{
		Global:       global,
		Conversation: conv,
		phone:        phone,
		machine:      machine,
		logger:       logger,
	}
	global.SuppressWhen(sc.viewing)
	return sc
}

// viewing reports whether m belongs to the open conversation, which shows
// it directly.
func (s *Scopes) viewing(m crm.Message) bool {
	return m.ClientID != "" && s.Conversation.Scope() == livesync.Client(m.ClientID)
}

// ActivateGlobal (re)subscribes the notification scope and moves the
// daemon to READY, or DEGRADED when the feed could not be joined.
func (s *Scopes) ActivateGlobal(ctx context.Context) error {
	if err := s.machine.Transition(status.Loading); err != nil {
		s.logger.Debug("status not moved to loading", zap.Error(err))
	}
	err := s.Global.Activate(ctx, livesync.Global(s.phone))
	if err != nil {
		_ = s.machine.TransitionWithReason(status.Degraded, err.Error())
		return err
	}
	_ = s.machine.Transition(status.Ready)
	return nil
}

// watchFeedErrors degrades the daemon when the global subscription fails.
// Failures of the conversation scope are reported on the conversation
// itself.
func (s *Scopes) watchFeedErrors(ctx context.Context, b *bus.Bus) {
	ch, unsub := b.Subscribe(bus.SyncFeedError, 16)
	defer unsub()
	for {
		select {
		case <-ch:
			if err := s.Global.Status().FeedErr; err != nil {
				_ = s.machine.TransitionWithReason(status.Degraded, err.Error())
			}
		case <-ctx.Done():
			return
		}
	}
}
