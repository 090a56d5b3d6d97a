// Package realtime subscribes to message changes on a hosted realtime
// service speaking the Phoenix channel protocol over WebSocket.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/matheus3301/crmlive/internal/feed"
	"go.uber.org/zap"
)

const (
	defaultHeartbeat   = 25 * time.Second
	defaultJoinTimeout = 10 * time.Second
	writeTimeout       = 5 * time.Second
)

// Config configures the realtime driver.
type Config struct {
	URL       string
	APIKey    string
	Schema    string
	Table     string
	Heartbeat time.Duration
}

// Feed implements feed.Feed against the realtime service.
type Feed struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *zap.Logger
}

// New creates a realtime feed.
func New(cfg Config, logger *zap.Logger) *Feed {
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.Table == "" {
		cfg.Table = "messages"
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: defaultJoinTimeout},
		logger: logger,
	}
}

// Subscribe opens a socket, joins a channel bound to the filter and waits
// for the join to be acknowledged.
func (f *Feed) Subscribe(ctx context.Context, filter feed.Filter) (feed.Subscription, error) {
	u, err := endpoint(f.cfg.URL, f.cfg.APIKey)
	if err != nil {
		return nil, err
	}
	conn, _, err := f.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime: dial: %w", err)
	}

	s := &subscription{
		Pipe:   feed.NewPipe(0),
		conn:   conn,
		topic:  "realtime:crmlive-" + uuid.NewString(),
		logger: f.logger.With(zap.String("filter", filter.String())),
	}

	var join joinPayload
	join.Config.PostgresChanges = bindings(f.cfg.Schema, f.cfg.Table, filter)
	join.AccessToken = f.cfg.APIKey
	joinRef, err := s.push(s.topic, eventJoin, join)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("realtime: join: %w", err)
	}
	if err := s.awaitJoin(ctx, joinRef); err != nil {
		_ = conn.Close()
		return nil, err
	}

	go s.readLoop()
	go s.heartbeatLoop(f.cfg.Heartbeat)
	s.logger.Info("realtime channel joined", zap.String("topic", s.topic))
	return s, nil
}

type subscription struct {
	*feed.Pipe

	conn    *websocket.Conn
	writeMu sync.Mutex
	ref     atomic.Int64
	topic   string
	logger  *zap.Logger

	closeOnce sync.Once
}

func (s *subscription) push(topic, event string, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	ref := strconv.FormatInt(s.ref.Add(1), 10)
	msg := frame{Topic: topic, Event: event, Payload: raw, Ref: &ref}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ref, s.conn.WriteJSON(msg)
}

func (s *subscription) awaitJoin(ctx context.Context, ref string) error {
	deadline := time.Now().Add(defaultJoinTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = s.conn.SetReadDeadline(deadline)
	defer func() { _ = s.conn.SetReadDeadline(time.Time{}) }()

	for {
		var msg frame
		if err := s.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("realtime: await join: %w", err)
		}
		if msg.Event != eventReply || msg.Topic != s.topic || msg.Ref == nil || *msg.Ref != ref {
			continue
		}
		var reply replyPayload
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			return fmt.Errorf("realtime: decode join reply: %w", err)
		}
		if reply.Status != "ok" {
			return fmt.Errorf("realtime: join rejected: %s %s", reply.Status, string(reply.Response))
		}
		return nil
	}
}

func (s *subscription) readLoop() {
	var failure error
	defer func() { s.Finish(failure) }()

	for {
		var msg frame
		if err := s.conn.ReadJSON(&msg); err != nil {
			failure = fmt.Errorf("realtime: read: %w", err)
			return
		}
		if msg.Topic != s.topic {
			continue
		}
		switch msg.Event {
		case eventPostgresChanges:
			var p changesPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				s.logger.Warn("malformed postgres_changes payload", zap.Error(err))
				continue
			}
			evt, err := feed.DecodeChange(p.Data)
			if err != nil {
				s.logger.Warn("dropping undecodable change", zap.Error(err))
				continue
			}
			if !s.Send(evt) {
				return
			}
		case eventError:
			failure = errors.New("realtime: channel error")
			return
		case eventClose:
			failure = errors.New("realtime: channel closed by server")
			return
		}
	}
}

func (s *subscription) heartbeatLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := s.push(topicPhoenix, eventHeartbeat, struct{}{}); err != nil {
				s.logger.Warn("heartbeat failed", zap.Error(err))
				return
			}
		case <-s.Stopping():
			return
		}
	}
}

// Close leaves the channel and closes the socket.
func (s *subscription) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.Stop()
		if _, err := s.push(s.topic, eventLeave, struct{}{}); err != nil {
			s.logger.Debug("leave failed", zap.Error(err))
		}
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(writeTimeout))
		s.writeMu.Unlock()
		_ = s.conn.Close()
		s.logger.Info("realtime channel left", zap.String("topic", s.topic))
	})
	return s.Wait(ctx)
}
