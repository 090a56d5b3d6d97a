package api

import (
	"github.com/google/uuid"
	"github.com/matheus3301/crmlive/internal/bus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const watchBuffer = 256

// watch relays bus events under namespace to stream until the client goes
// away. Events a slow watcher cannot keep up with are dropped by the bus.
func watch(b *bus.Bus, session, namespace string, stream grpc.ServerStream, logger *zap.Logger) error {
	ch, unsub := b.Subscribe(namespace, watchBuffer)
	defer unsub()

	droppedAtStart := b.Dropped()
	defer func() {
		if n := b.Dropped() - droppedAtStart; n > 0 {
			logger.Debug("bus dropped events while watching", zap.String("namespace", namespace), zap.Uint64("dropped", n))
		}
	}()

	for {
		select {
		case evt := <-ch:
			payload, err := toValue(evt.Payload)
			if err != nil {
				logger.Warn("skipping unencodable event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			out, err := toStruct(WatchEvent{
				ID:         uuid.NewString(),
				Session:    session,
				Kind:       evt.Kind,
				OccurredAt: evt.Timestamp,
			})
			if err != nil {
				return err
			}
			out.Fields["payload"] = payload
			if err := stream.SendMsg(out); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}
