// Package surreal contains the SurrealDB implementations of the remote
// repositories and the account authenticator.
package surreal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"

	"github.com/example/hikelog/internal/apperr"
	"github.com/example/hikelog/internal/logging"
	"github.com/example/hikelog/internal/metrics"
)

// Config holds the connection settings for the remote document store.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string

	// FailureThreshold consecutive failures open the breaker for BreakerTimeout.
	FailureThreshold uint32
	BreakerTimeout   time.Duration
}

// schema is applied once per connection. Tables stay schemaless; only the
// indexes queries rely on are declared.
var schema = []string{
	"DEFINE TABLE IF NOT EXISTS hikes SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS hikes_owner ON hikes FIELDS owner_id",
	"DEFINE TABLE IF NOT EXISTS observations SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS observations_hike ON observations FIELDS hike_id",
	"DEFINE TABLE IF NOT EXISTS users SCHEMALESS",
	"DEFINE INDEX IF NOT EXISTS users_email ON users FIELDS email UNIQUE",
}

// Client is a lazily connected SurrealDB session shared by the remote
// repositories. Every call goes through one circuit breaker.
type Client struct {
	cfg     Config
	name    string
	breaker *gobreaker.CircuitBreaker[any]

	mu sync.Mutex
	db *surrealdb.DB
}

// NewClient creates a client. No connection is made until the first call.
func NewClient(cfg Config) *Client {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	c := &Client{cfg: cfg, name: "surreal"}
	c.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        c.name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("remote circuit breaker changed state")
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(c.name).Set(float64(gobreaker.StateClosed))
	return c
}

// countsAsSuccess keeps caller mistakes from tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound:
		return true
	}
	return errors.Is(err, context.Canceled)
}

// Close ends the session if one is open.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close(ctx)
	c.db = nil
	return err
}

func (c *Client) conn(ctx context.Context) (*surrealdb.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db, nil
	}

	if c.cfg.URL == "" {
		return nil, apperr.New(apperr.KindPermanent, "surreal.connect", "remote store is not configured")
	}
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPermanent, "surreal.connect", err, "invalid remote URL")
	}

	db, err := surrealdb.FromConnection(ctx, gorillaws.New(connection.NewConfig(u)))
	if err != nil {
		return nil, apperr.Transient("surreal.connect", err)
	}

	if c.cfg.Username != "" && c.cfg.Password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": c.cfg.Username,
			"pass": c.cfg.Password,
		}); err != nil {
			db.Close(ctx)
			return nil, apperr.Wrap(apperr.KindPermanent, "surreal.signin", err, "remote store rejected credentials")
		}
	}

	if err := db.Use(ctx, c.cfg.Namespace, c.cfg.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to use namespace/database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := surrealdb.Query[any](ctx, db, stmt, nil); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("failed to apply remote schema %q: %w", stmt, err)
		}
	}

	logging.Debug().Str("url", c.cfg.URL).Str("ns", c.cfg.Namespace).Str("db", c.cfg.Database).
		Msg("connected to remote store")
	c.db = db
	return db, nil
}

// drop forgets a session that failed at the transport level so the next
// call reconnects.
func (c *Client) drop(ctx context.Context, db *surrealdb.DB) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == db {
		c.db = nil
		db.Close(ctx)
	}
}

// run executes fn against the session through the circuit breaker.
func run[T any](ctx context.Context, c *Client, op string, fn func(db *surrealdb.DB) (T, error)) (T, error) {
	var zero T
	out, err := c.breaker.Execute(func() (any, error) {
		db, err := c.conn(ctx)
		if err != nil {
			return nil, err
		}
		v, err := fn(db)
		if err != nil && isTransportError(err) {
			c.drop(context.Background(), db)
		}
		return v, err
	})

	outcome := "success"
	if err != nil {
		outcome = "failure"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
	}
	metrics.CircuitBreakerRequests.WithLabelValues(c.name, outcome).Inc()

	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return zero, err
		}
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	v, _ := out.(T)
	return v, nil
}

func isTransportError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection closed") || strings.Contains(msg, "broken pipe")
}

// isNoRecord matches the errors the SDK returns for an empty single-record result.
func isNoRecord(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Expected a single or multiple results but got 0") ||
		strings.Contains(msg, "cannot unmarshal array into Go value")
}
