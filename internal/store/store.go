// Package store is the typed facade over the remote tables.
//
// Reads never surface transport failures: they are logged and degrade to an
// empty result. Writes return a *WriteError so callers can abort dependent
// writes.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"gorm.io/gorm"
)

// ErrTransport is wrapped by every WriteError.
var ErrTransport = errors.New("store transport failure")

// WriteError reports a failed insert, upsert, update or delete.
type WriteError struct {
	Op    string
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *WriteError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// Client is stateless apart from its configuration and is safe for
// concurrent use.
type Client struct {
	db       *gorm.DB
	logger   *slog.Logger
	timeout  time.Duration
	attempts uint
	delay    time.Duration
}

// Option configures a Client.
type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithAttempts(n uint) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithRetryDelay sets the base delay between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// New creates a store client.
func New(db *gorm.DB, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		db:       db,
		logger:   logger,
		timeout:  5 * time.Second,
		attempts: 3,
		delay:    200 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// run executes fn with a per-attempt timeout and retries.
// gorm.ErrRecordNotFound is never retried.
func (c *Client) run(ctx context.Context, op, table string, fn func(tx *gorm.DB) error) error {
	jitter := c.delay
	if jitter <= 0 {
		jitter = time.Millisecond
	}
	return retry.Do(
		func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			err := fn(c.db.WithContext(attemptCtx))
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(5*time.Second),
		retry.MaxJitter(jitter),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("Retrying store operation after error", "op", op, "table", table, "attempt", n, "error", err)
		}),
	)
}
