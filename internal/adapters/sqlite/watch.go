package sqlite

import (
	"context"

	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/stream"
)

// changeFeed invalidates live queries after every committed write.
type changeFeed struct {
	changes *stream.Broadcaster[struct{}]
}

func newChangeFeed() changeFeed {
	return changeFeed{changes: stream.NewBroadcaster[struct{}]()}
}

func (f changeFeed) notify() {
	f.changes.Publish(struct{}{})
}

// watch emits list's current rows, then re-runs it on every change until the
// returned subscription is closed or ctx is done.
func watch[T any](ctx context.Context, f changeFeed, list func(context.Context) ([]T, error)) *stream.Subscription[result.Result[[]T]] {
	changes := f.changes.Subscribe()
	out := stream.NewSubscription[result.Result[[]T]](changes.Close)

	emit := func() bool {
		rows, err := list(ctx)
		if err != nil {
			return out.Offer(result.Fail[[]T](err))
		}
		return out.Offer(result.Ok(rows))
	}

	go func() {
		defer out.Close()
		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes.C():
				if !ok || !emit() {
					return
				}
			}
		}
	}()

	return out
}
