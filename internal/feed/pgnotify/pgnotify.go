// Package pgnotify reads message changes from a Postgres NOTIFY channel.
// A trigger on the messages table is expected to pg_notify the change as
// {"type":..., "record":..., "old_record":...}.
package pgnotify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/matheus3301/crmlive/internal/feed"
	"go.uber.org/zap"
)

// DefaultChannel is the NOTIFY channel used when none is configured.
const DefaultChannel = "messages_changes"

// Feed implements feed.Feed on LISTEN/NOTIFY. Each subscription holds its
// own connection, since a listening connection cannot be pooled.
type Feed struct {
	connString string
	channel    string
	logger     *zap.Logger
}

// New creates a feed listening on channel.
func New(connString, channel string, logger *zap.Logger) *Feed {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{connString: connString, channel: channel, logger: logger}
}

// Subscribe connects and issues LISTEN. Filtering happens client side.
func (f *Feed) Subscribe(ctx context.Context, filter feed.Filter) (feed.Subscription, error) {
	conn, err := pgx.Connect(ctx, f.connString)
	if err != nil {
		return nil, fmt.Errorf("pgnotify: connect: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("pgnotify: listen: %w", err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	s := &subscription{
		Pipe:   feed.NewPipe(0),
		conn:   conn,
		cancel: cancel,
		logger: f.logger.With(zap.String("channel", f.channel), zap.String("filter", filter.String())),
	}
	go s.listen(listenCtx, filter)
	s.logger.Info("listening for message changes")
	return s, nil
}

type subscription struct {
	*feed.Pipe
	conn   *pgx.Conn
	cancel context.CancelFunc
	logger *zap.Logger
}

func (s *subscription) listen(ctx context.Context, filter feed.Filter) {
	var failure error
	defer func() { s.Finish(failure) }()

	for {
		n, err := s.conn.WaitForNotification(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				failure = fmt.Errorf("pgnotify: wait: %w", err)
			}
			return
		}
		evt, err := feed.DecodeChange([]byte(n.Payload))
		if err != nil {
			s.logger.Warn("dropping undecodable notification", zap.Error(err))
			continue
		}
		if !filter.Accepts(evt) {
			continue
		}
		if !s.Send(evt) {
			return
		}
	}
}

// Close stops listening and closes the connection.
func (s *subscription) Close(ctx context.Context) error {
	s.Stop()
	s.cancel()
	err := s.Wait(ctx)
	if cerr := s.conn.Close(ctx); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
