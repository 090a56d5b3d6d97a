package feed

import (
	"context"
	"sync"
)

// Pipe carries events from a driver goroutine to a subscriber. Drivers
// embed it to implement Subscription: the producer calls Send for each
// event and Finish exactly once when it exits; Close calls Stop and Wait.
type Pipe struct {
	events   chan Event
	stop     chan struct{}
	finished chan struct{}

	stopOnce sync.Once
	mu       sync.Mutex
	err      error
}

// NewPipe creates a pipe with the given event buffer.
func NewPipe(buf int) *Pipe {
	return &Pipe{
		events:   make(chan Event, buf),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Events implements Subscription.
func (p *Pipe) Events() <-chan Event { return p.events }

// Err implements Subscription.
func (p *Pipe) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stopping is closed once Stop has been called.
func (p *Pipe) Stopping() <-chan struct{} { return p.stop }

// Send delivers e, blocking until the subscriber takes it. It returns
// false if the pipe was stopped first.
func (p *Pipe) Send(e Event) bool {
	select {
	case <-p.stop:
		return false
	default:
	}
	select {
	case p.events <- e:
		return true
	case <-p.stop:
		return false
	}
}

// Finish records the terminal error and closes the event stream. Errors
// reported after Stop are dropped: they are the consequence of closing.
func (p *Pipe) Finish(err error) {
	p.mu.Lock()
	select {
	case <-p.stop:
	default:
		p.err = err
	}
	p.mu.Unlock()
	close(p.events)
	close(p.finished)
}

// Stop asks the producer to exit.
func (p *Pipe) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Wait blocks until Finish was called or ctx is done.
func (p *Pipe) Wait(ctx context.Context) error {
	select {
	case <-p.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
