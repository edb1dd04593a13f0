package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"backend-petsancheck/internal/walk"
)

const (
	ExchangeName         = "walk_topic"
	RoutingWalkCompleted = "walk.completed"
)

// WalkCompleted is published once a finished walk has been stored.
type WalkCompleted struct {
	WalkID    string     `json:"walk_id"`
	WalkerID  string     `json:"walker_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   time.Time  `json:"ended_at"`
	Stats     walk.Stats `json:"stats"`
}

// channel is the subset of *amqp091.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type Publisher struct {
	ch     channel
	conn   io.Closer
	logger *slog.Logger
}

func Dial(url string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open amqp channel: %w", err), conn.Close())
	}
	p, err := newPublisher(ch, conn, logger)
	if err != nil {
		return nil, errors.Join(err, conn.Close())
	}
	return p, nil
}

func newPublisher(ch channel, conn io.Closer, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	err := ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{ch: ch, conn: conn, logger: logger}, nil
}

func (p *Publisher) WalkCompleted(ctx context.Context, session walk.Session) error {
	if session.EndedAt == nil {
		return fmt.Errorf("walk %s has not ended", session.ID)
	}
	body, err := json.Marshal(WalkCompleted{
		WalkID:    session.ID,
		WalkerID:  session.WalkerID,
		StartedAt: session.StartedAt,
		EndedAt:   *session.EndedAt,
		Stats:     session.Stats,
	})
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, ExchangeName, RoutingWalkCompleted, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    session.ID,
		Timestamp:    *session.EndedAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", RoutingWalkCompleted, err)
	}
	p.logger.Debug("walk completion published", "walk_id", session.ID)
	return nil
}

func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
