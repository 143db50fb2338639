package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/walkies/internal/core/domain"
	"github.com/samirrijal/walkies/internal/core/ports"
)

const (
	sessionSubjectPrefix  = "walk.session."
	locationSubjectPrefix = "walk.location."
)

// Publisher publishes session changes and location reports to NATS JetStream.
// It implements the publishing half of ports.SessionFeed and ports.LocationPublisher.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:              "WALK_SESSIONS",
			Subjects:          []string{sessionSubjectPrefix + ">"},
			Retention:         nats.LimitsPolicy,
			MaxAge:            24 * time.Hour,
			MaxMsgsPerSubject: 16,
			Storage:           nats.FileStorage,
		},
		{
			Name:      "WALK_LOCATIONS",
			Subjects:  []string{locationSubjectPrefix + ">"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// Publish announces a new session state on the owner's subject.
func (p *Publisher) Publish(ctx context.Context, session *domain.WalkSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SessionSubject(session.OwnerID), data, nats.Context(ctx))
	return err
}

// PublishLocation queues a sitter location report.
func (p *Publisher) PublishLocation(ctx context.Context, report *ports.LocationReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(locationSubjectPrefix+subjectToken(report.SessionID), data, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection for readiness checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("walkies"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// SessionSubject returns the subject carrying changes for an owner's sessions.
func SessionSubject(ownerID string) string {
	return sessionSubjectPrefix + subjectToken(ownerID)
}

// subjectToken makes an id safe to use as a single subject token.
func subjectToken(id string) string {
	if id == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}
