package surreal

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
)

// queryAll runs a single-statement query and returns its rows.
func queryAll[T any](ctx context.Context, db *surrealdb.DB, query string, vars map[string]any) ([]T, error) {
	res, err := surrealdb.Query[[]T](ctx, db, query, vars)
	if err != nil {
		return nil, err
	}
	if res == nil || len(*res) == 0 {
		return nil, nil
	}
	return (*res)[0].Result, nil
}

// NewID asks the server for a fresh time-ordered document ID.
func (c *Client) NewID(ctx context.Context) (string, error) {
	return run(ctx, c, "surreal.new_id", func(db *surrealdb.DB) (string, error) {
		res, err := surrealdb.Query[string](ctx, db, "RETURN rand::uuid::v7()", nil)
		if err != nil {
			return "", err
		}
		if res == nil || len(*res) == 0 || (*res)[0].Result == "" {
			return "", fmt.Errorf("server returned no id")
		}
		return (*res)[0].Result, nil
	})
}
