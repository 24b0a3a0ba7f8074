package surreal

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/example/hikelog/internal/core/result"
	"github.com/example/hikelog/internal/logging"
	"github.com/example/hikelog/internal/stream"
)

const killTimeout = 5 * time.Second

// watchTable opens a live query on table and re-runs list on every
// notification. Closing the subscription kills the live query.
func watchTable[T any](ctx context.Context, c *Client, table string, list func(context.Context) ([]T, error)) (*stream.Subscription[result.Result[[]T]], error) {
	db, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}

	liveID, err := surrealdb.Live(ctx, db, models.Table(table), false)
	if err != nil {
		return nil, fmt.Errorf("failed to start live query on %s: %w", table, err)
	}
	id := liveID.String()

	notifications, err := db.LiveNotifications(id)
	if err != nil {
		kill(db, id)
		return nil, fmt.Errorf("failed to subscribe to live query %s: %w", id, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	out := stream.NewSubscription[result.Result[[]T]](func() {
		cancel()
		kill(db, id)
	})

	emit := func() bool {
		rows, err := list(watchCtx)
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
			case <-watchCtx.Done():
				return
			case _, ok := <-notifications:
				if !ok || !emit() {
					return
				}
			}
		}
	}()

	return out, nil
}

func kill(db *surrealdb.DB, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), killTimeout)
	defer cancel()
	if err := surrealdb.Kill(ctx, db, id); err != nil {
		logging.Debug().Err(err).Str("live_id", id).Msg("failed to kill live query")
	}
}
