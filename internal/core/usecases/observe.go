package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samirrijal/walkies/internal/core/ports"
	"github.com/samirrijal/walkies/internal/pkg/metrics"
)

// observe turns feed notifications for ownerID into a stream of freshly loaded
// values. Notifications are coalesced: a burst of changes causes at most one
// extra reload. Nothing is sent once ctx is done.
func observe[T any](ctx context.Context, feed ports.SessionFeed, ownerID, view string, load func(context.Context) (T, error)) (<-chan T, error) {
	changed := make(chan struct{}, 1)
	unsubscribe, err := feed.Subscribe(ownerID, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s view: %w", view, err)
	}

	first, err := load(ctx)
	if err != nil {
		unsubscribe()
		return nil, fmt.Errorf("load %s view: %w", view, err)
	}

	out := make(chan T)
	gauge := metrics.ActiveObservers.WithLabelValues(view)
	gauge.Inc()

	go func() {
		defer close(out)
		defer gauge.Dec()
		defer unsubscribe()

		next := first
		for {
			if ctx.Err() != nil {
				return
			}
			select {
			case out <- next:
			case <-ctx.Done():
				return
			}

			select {
			case <-changed:
			case <-ctx.Done():
				return
			}

			v, err := load(ctx)
			for err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("reload live view", "view", view, "owner_id", ownerID, "error", err)
				select {
				case <-changed:
				case <-ctx.Done():
					return
				}
				v, err = load(ctx)
			}
			next = v
		}
	}()

	return out, nil
}
