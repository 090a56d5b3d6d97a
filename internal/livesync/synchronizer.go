// Package livesync bridges the message change feed into local state for
// one active scope at a time.
package livesync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/crmlive/internal/bus"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/feed"
	"github.com/matheus3301/crmlive/internal/notify"
	"go.uber.org/zap"
)

var (
	// ErrSuperseded is returned by Activate when another Activate or a
	// Deactivate ran while it was fetching; its result was discarded.
	ErrSuperseded = errors.New("livesync: activation superseded")
	// ErrNoOperatorPhone is returned when global scope has no phone to
	// filter on.
	ErrNoOperatorPhone = errors.New("livesync: global scope requires the operator phone number")
	// ErrNoClient is returned when client scope has no client id.
	ErrNoClient = errors.New("livesync: client scope requires a client id")
)

// MessageFetcher loads a client's message history.
type MessageFetcher interface {
	GetClientMessages(ctx context.Context, clientID crm.ID) (crm.ClientMessages, error)
}

// Status describes the active scope.
type Status struct {
	Scope      Scope
	Active     bool
	Loading    bool
	Generation uint64
	// LoadErr is set when the initial fetch failed. It is distinct from an
	// empty history.
	LoadErr error
	// FeedErr is the last subscription failure. State is kept; the caller
	// decides whether to re-activate.
	FeedErr error
}

// Synchronizer owns at most one feed subscription.
type Synchronizer struct {
	feed    feed.Feed
	fetcher MessageFetcher
	dir     *Directory
	notes   *notify.Store
	bus     *bus.Bus
	logger  *zap.Logger

	// opMu serialises scope transitions; mu guards the fields below it.
	opMu sync.Mutex
	sub  feed.Subscription
	stop context.CancelFunc
	done chan struct{}

	mu       sync.RWMutex
	gen      uint64
	state    State
	status   Status
	suppress func(crm.Message) bool
}

// New creates an inactive synchronizer. dir and notes are only used in
// global scope.
func New(f feed.Feed, fetcher MessageFetcher, dir *Directory, notes *notify.Store, b *bus.Bus, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		feed:    f,
		fetcher: fetcher,
		dir:     dir,
		notes:   notes,
		bus:     b,
		logger:  logger,
	}
}

// SuppressWhen registers a predicate checked before a global-scope
// notification is raised; messages it accepts raise nothing.
func (s *Synchronizer) SuppressWhen(fn func(crm.Message) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suppress = fn
}

// Activate switches to scope. The previous subscription is closed and
// awaited first. Client scope then loads the history, and global scope
// refreshes the client directory, before subscribing. Load and subscribe
// failures are returned and recorded in Status, but the scope stays active
// with whatever state was obtained.
func (s *Synchronizer) Activate(ctx context.Context, scope Scope) error {
	switch {
	case scope.Kind == ScopeGlobal && scope.Phone == "":
		return ErrNoOperatorPhone
	case scope.Kind == ScopeClient && scope.ClientID == "":
		return ErrNoClient
	case scope.Kind == ScopeNone:
		return s.Deactivate(ctx)
	}

	logger := s.logger.With(zap.Stringer("scope", scope))

	s.opMu.Lock()
	gen := s.reset(scope, true)
	s.teardown(ctx)
	s.opMu.Unlock()

	// Fetch outside opMu so a newer activation is not held up by a slow
	// backend; its result is discarded below if the generation moved on.
	var (
		loaded  crm.ClientMessages
		loadErr error
	)
	switch scope.Kind {
	case ScopeClient:
		loaded, loadErr = s.fetcher.GetClientMessages(ctx, scope.ClientID)
		if loadErr != nil {
			loadErr = fmt.Errorf("load messages: %w", loadErr)
		}
	case ScopeGlobal:
		if s.dir != nil {
			if err := s.dir.Refresh(ctx); err != nil {
				logger.Warn("client directory refresh failed, using cached names", zap.Error(err))
			}
		}
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		logger.Debug("discarding superseded activation")
		return ErrSuperseded
	}
	s.status.Loading = false
	s.status.LoadErr = loadErr
	if scope.Kind == ScopeClient && loadErr == nil {
		msgs := slices.Clone(loaded.Messages)
		SortMessages(msgs)
		s.state.Messages = msgs
		s.state.ClientPhone = loaded.ClientPhone
	}
	s.mu.Unlock()

	if loadErr != nil {
		logger.Error("initial load failed", zap.Error(loadErr))
	}
	if scope.Kind == ScopeClient {
		s.bus.Emit(bus.ConversationUpdated, scope.ClientID)
	}

	sub, err := s.feed.Subscribe(ctx, scope.Filter())
	if err != nil {
		err = fmt.Errorf("subscribe: %w", err)
		s.recordFeedErr(gen, err)
		return errors.Join(loadErr, err)
	}

	consumeCtx, stop := context.WithCancel(context.Background())
	s.sub, s.stop, s.done = sub, stop, make(chan struct{})
	go s.consume(consumeCtx, gen, sub, s.done)

	logger.Info("scope activated", zap.Int("messages", len(s.Messages())))
	s.bus.Emit(bus.SyncActivated, scope)
	return loadErr
}

// Deactivate closes the subscription and clears state. It is safe to call
// repeatedly and on an inactive synchronizer.
func (s *Synchronizer) Deactivate(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	prev := s.Scope()
	s.reset(Scope{}, false)
	s.teardown(ctx)

	if prev.Kind == ScopeClient {
		s.bus.Emit(bus.ConversationClosed, prev.ClientID)
	}
	if prev.Kind != ScopeNone {
		s.logger.Info("scope deactivated", zap.Stringer("scope", prev))
	}
	return nil
}

// Messages returns a copy of the active conversation, oldest first.
func (s *Synchronizer) Messages() []crm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Messages)
}

// State returns a copy of the local state.
func (s *Synchronizer) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Messages = slices.Clone(st.Messages)
	return st
}

// Scope returns the active scope.
func (s *Synchronizer) Scope() Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Scope
}

// Status returns the activation status.
func (s *Synchronizer) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// reset starts a new generation. Events and fetches of older generations
// are discarded from here on.
func (s *Synchronizer) reset(scope Scope, active bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = State{Scope: scope}
	s.status = Status{
		Scope:      scope,
		Active:     active,
		Loading:    active,
		Generation: s.gen,
	}
	return s.gen
}

// teardown closes the current subscription and waits for its consumer.
// Callers hold opMu.
func (s *Synchronizer) teardown(ctx context.Context) {
	if s.sub == nil {
		return
	}
	sub, stop, done := s.sub, s.stop, s.done
	s.sub, s.stop, s.done = nil, nil, nil

	stop()
	if err := sub.Close(ctx); err != nil {
		s.logger.Warn("closing subscription", zap.Error(err))
	}
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("gave up waiting for event consumer", zap.Error(ctx.Err()))
	}
}

func (s *Synchronizer) consume(ctx context.Context, gen uint64, sub feed.Subscription, done chan struct{}) {
	defer close(done)
	for evt := range sub.Events() {
		s.handle(ctx, gen, evt)
	}
	if err := sub.Err(); err != nil {
		s.recordFeedErr(gen, err)
	}
}

func (s *Synchronizer) handle(ctx context.Context, gen uint64, evt feed.Event) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	next, effect := Apply(s.state, evt)
	s.state = next
	scope := next.Scope
	s.mu.Unlock()

	rec := evt.Record()
	switch effect {
	case Inserted, Updated, Deleted:
		s.bus.Emit(bus.ConversationUpdated, scope.ClientID)
	case Unmatched:
		s.logger.Warn("dropping update for unknown message",
			zap.Stringer("scope", scope), zap.String("message_id", rec.ID))
	case Notify:
		s.raise(ctx, gen, rec)
	}
}

func (s *Synchronizer) raise(ctx context.Context, gen uint64, m crm.Message) {
	if s.notes == nil {
		return
	}
	s.mu.RLock()
	suppress := s.suppress
	s.mu.RUnlock()
	if suppress != nil && suppress(m) {
		s.logger.Debug("notification suppressed", zap.String("client_id", string(m.ClientID)))
		return
	}
	name := crm.UnknownClientName
	if s.dir != nil {
		name = s.dir.Name(ctx, m.ClientID)
	}

	s.mu.RLock()
	stale := s.gen != gen
	s.mu.RUnlock()
	if stale {
		return
	}

	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := m.Time()
	if ts.IsZero() {
		ts = time.Now()
	}
	s.notes.Add(crm.Notification{
		ID:         id,
		ClientID:   m.ClientID,
		ClientName: name,
		Message:    m.Content,
		Timestamp:  ts,
	})
}

func (s *Synchronizer) recordFeedErr(gen uint64, err error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.status.FeedErr = err
	scope := s.state.Scope
	s.mu.Unlock()

	s.logger.Error("message feed failed", zap.Stringer("scope", scope), zap.Error(err))
	s.bus.Emit(bus.SyncFeedError, err)
}
