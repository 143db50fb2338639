package memory

import (
	"context"
	"sync"

	"github.com/samirrijal/walkies/internal/core/domain"
)

// Feed is an in-process SessionFeed keyed by owner.
type Feed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func()
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{subs: map[string]map[int]func(){}}
}

// Publish notifies every subscriber of the session's owner. Callbacks run
// under the read lock, so they must not block or call back into the feed.
func (f *Feed) Publish(_ context.Context, session *domain.WalkSession) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, fn := range f.subs[session.OwnerID] {
		fn()
	}
	return nil
}

// Subscribe registers onChange for ownerID.
func (f *Feed) Subscribe(ownerID string, onChange func()) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	if f.subs[ownerID] == nil {
		f.subs[ownerID] = map[int]func(){}
	}
	f.subs[ownerID][id] = onChange

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs[ownerID], id)
			if len(f.subs[ownerID]) == 0 {
				delete(f.subs, ownerID)
			}
		})
	}, nil
}

// Subscribers returns the number of live subscriptions for ownerID.
func (f *Feed) Subscribers(ownerID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[ownerID])
}
