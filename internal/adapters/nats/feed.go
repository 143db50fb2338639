package natsadapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/walkies/internal/core/domain"
)

// SessionFeed implements ports.SessionFeed over NATS. Changes are published
// through JetStream and observed with plain core subscriptions, so every API
// replica sees every change.
type SessionFeed struct {
	pub *Publisher
}

// NewSessionFeed creates a feed on top of a Publisher's connection.
func NewSessionFeed(pub *Publisher) *SessionFeed {
	return &SessionFeed{pub: pub}
}

func (f *SessionFeed) Publish(ctx context.Context, session *domain.WalkSession) error {
	return f.pub.Publish(ctx, session)
}

// Subscribe calls onChange for every change to ownerID's sessions until the
// returned func is called.
func (f *SessionFeed) Subscribe(ownerID string, onChange func()) (func(), error) {
	g := &gate{open: true}
	sub, err := f.pub.conn.Subscribe(SessionSubject(ownerID), func(*nats.Msg) {
		g.run(onChange)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", ownerID, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			g.close()
		})
	}, nil
}

// gate stops callbacks that are already queued inside the nats client from
// running once the subscriber has gone away.
type gate struct {
	mu   sync.Mutex
	open bool
}

func (g *gate) run(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		fn()
	}
}

func (g *gate) close() {
	g.mu.Lock()
	g.open = false
	g.mu.Unlock()
}
