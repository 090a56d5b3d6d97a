// Package amqpfeed consumes message changes published to a RabbitMQ topic
// exchange with routing keys of the form messages.<type>.
package amqpfeed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/matheus3301/crmlive/internal/feed"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultExchange is used when Config.Exchange is empty.
const DefaultExchange = "crm.messages"

// Config configures the AMQP driver.
type Config struct {
	URL      string
	Exchange string
}

// Feed implements feed.Feed on a topic exchange. Each subscription binds
// its own exclusive, auto-deleted queue.
type Feed struct {
	cfg    Config
	logger *zap.Logger
}

// New creates an AMQP feed.
func New(cfg Config, logger *zap.Logger) *Feed {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{cfg: cfg, logger: logger}
}

// RoutingKey returns the key a change of the given kind is published with.
func RoutingKey(k feed.Kind) string {
	return "messages." + strings.ToLower(k.String())
}

// Subscribe declares a private queue bound to every message change.
func (f *Feed) Subscribe(_ context.Context, filter feed.Filter) (feed.Subscription, error) {
	conn, err := amqp.Dial(f.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqpfeed: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqpfeed: channel: %w", err)
	}
	fail := func(step string, err error) (feed.Subscription, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqpfeed: %s: %w", step, err)
	}

	if err := ch.ExchangeDeclare(f.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}
	if err := ch.QueueBind(q.Name, "messages.*", f.cfg.Exchange, false, nil); err != nil {
		return fail("bind queue", err)
	}
	tag := "crmlive-" + uuid.NewString()
	deliveries, err := ch.Consume(q.Name, tag, true, true, false, false, nil)
	if err != nil {
		return fail("consume", err)
	}

	s := &subscription{
		Pipe:   feed.NewPipe(0),
		conn:   conn,
		ch:     ch,
		tag:    tag,
		closed: conn.NotifyClose(make(chan *amqp.Error, 1)),
		logger: f.logger.With(zap.String("queue", q.Name), zap.String("filter", filter.String())),
	}
	go s.consume(deliveries, filter)
	s.logger.Info("consuming message changes", zap.String("exchange", f.cfg.Exchange))
	return s, nil
}

type subscription struct {
	*feed.Pipe
	conn   *amqp.Connection
	ch     *amqp.Channel
	tag    string
	closed chan *amqp.Error
	logger *zap.Logger

	closeOnce sync.Once
}

func (s *subscription) consume(deliveries <-chan amqp.Delivery, filter feed.Filter) {
	var failure error
	defer func() { s.Finish(failure) }()

	for {
		select {
		case d, ok := <-deliveries:
			if !ok {
				failure = errors.New("amqpfeed: delivery channel closed")
				select {
				case aerr := <-s.closed:
					if aerr != nil {
						failure = fmt.Errorf("amqpfeed: connection closed: %w", aerr)
					}
				default:
				}
				return
			}
			evt, err := feed.DecodeChange(d.Body)
			if err != nil {
				s.logger.Warn("dropping undecodable delivery", zap.Error(err), zap.String("routing_key", d.RoutingKey))
				continue
			}
			if !filter.Accepts(evt) {
				continue
			}
			if !s.Send(evt) {
				return
			}
		case <-s.Stopping():
			return
		}
	}
}

// Close cancels the consumer and closes the channel and connection.
func (s *subscription) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.Stop()
		_ = s.ch.Cancel(s.tag, false)
		_ = s.ch.Close()
		_ = s.conn.Close()
	})
	return s.Wait(ctx)
}

// Publish sends a change to the exchange. The backend normally does this;
// crmctl uses it to inject test events.
func Publish(ctx context.Context, url, exchange string, evt feed.Event) error {
	if exchange == "" {
		exchange = DefaultExchange
	}
	body, err := feed.EncodeChange(evt)
	if err != nil {
		return err
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("amqpfeed: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqpfeed: channel: %w", err)
	}
	defer func() { _ = ch.Close() }()
	return ch.PublishWithContext(ctx, exchange, RoutingKey(evt.Kind), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}
