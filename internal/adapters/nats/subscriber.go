package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/core/ports"
)

// Subscriber implements ports.LocationSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

func (s *Subscriber) SubscribeLocations(ctx context.Context, handler func(ctx context.Context, report *ports.LocationReport) error) error {
	sub, err := s.js.Subscribe(locationSubjectPrefix+">", func(msg *nats.Msg) {
		var report ports.LocationReport
		var err error
		if uerr := json.Unmarshal(msg.Data, &report); uerr != nil {
			err = &domain.ValidationError{Field: "body", Reason: uerr.Error()}
		} else {
			err = handler(ctx, &report)
		}

		switch settle(err) {
		case ack:
			_ = msg.Ack()
		case term:
			slog.Warn("dropping location report", "subject", msg.Subject, "error", err)
			_ = msg.Term()
		default:
			_ = msg.Nak()
		}
	},
		nats.Durable("location-tracker"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}

type settlement int

const (
	ack settlement = iota
	nak
	term
)

// settle maps a handler result to a JetStream acknowledgement. Errors that a
// retry cannot fix are terminated instead of redelivered.
func settle(err error) settlement {
	switch {
	case err == nil:
		return ack
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidTransition):
		return term
	}
	return nak
}
