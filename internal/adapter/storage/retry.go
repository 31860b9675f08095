package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	maxAttempts = 3
	baseBackoff = 50 * time.Millisecond
)

// withRetry re-runs fn on transient connection errors, doubling the delay
// between attempts. driver.ErrBadConn is only returned when the request never
// reached the server, so retrying a write here stays safe.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	delay := baseBackoff
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil || !isTransient(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
