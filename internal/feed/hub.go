package feed

import (
	"context"

	"github.com/matheus3301/crmlive/internal/bus"
)

const hubKind = "feed.messages"

// hubBuffer bounds each subscriber's backlog. The bus drops events for
// subscribers that fall this far behind.
const hubBuffer = 256

// Hub is an in-process Feed. Changes handed to Publish are fanned out
// to every subscription whose filter matches. It backs the "memory"
// driver and tests.
type Hub struct {
	bus *bus.Bus
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{bus: bus.New()}
}

type hubFailure struct{ err error }

// Publish delivers e to matching subscribers.
func (h *Hub) Publish(e Event) {
	h.bus.Emit(hubKind, e)
}

// Disconnect ends every open subscription with err, as a dropped
// connection would.
func (h *Hub) Disconnect(err error) {
	h.bus.Emit(hubKind, hubFailure{err: err})
}

// Subscribe implements Feed.
func (h *Hub) Subscribe(_ context.Context, f Filter) (Subscription, error) {
	ch, unsub := h.bus.Subscribe(hubKind, hubBuffer)
	s := &hubSub{Pipe: NewPipe(0)}
	go func() {
		var failure error
		defer func() {
			unsub()
			s.Finish(failure)
		}()
		for {
			select {
			case evt := <-ch:
				switch p := evt.Payload.(type) {
				case hubFailure:
					failure = p.err
					return
				case Event:
					if !f.Accepts(p) {
						continue
					}
					if !s.Send(p) {
						return
					}
				}
			case <-s.Stopping():
				return
			}
		}
	}()
	return s, nil
}

type hubSub struct {
	*Pipe
}

func (s *hubSub) Close(ctx context.Context) error {
	s.Stop()
	return s.Wait(ctx)
}
