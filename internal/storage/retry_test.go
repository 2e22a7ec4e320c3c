package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type flakyDB struct {
	failures int
	calls    int
}

func (f *flakyDB) PingContext(ctx context.Context) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection refused")
	}
	return nil
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second}
	assert.Equal(t, 100*time.Millisecond, calculateBackoff(0, cfg))
	assert.Equal(t, 400*time.Millisecond, calculateBackoff(2, cfg))
	assert.Equal(t, time.Second, calculateBackoff(5, cfg))
}

func TestPingWithRetry(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

	db := &flakyDB{failures: 2}
	assert.NoError(t, pingWithRetry(context.Background(), db, cfg))
	assert.Equal(t, 3, db.calls)

	db = &flakyDB{failures: 10}
	assert.EqualError(t, pingWithRetry(context.Background(), db, cfg), "connection refused")
	assert.Equal(t, 4, db.calls)

	db = &flakyDB{failures: 10}
	assert.Error(t, pingWithRetry(context.Background(), db, RetryConfig{}))
	assert.Equal(t, 1, db.calls, "zero config makes a single attempt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	db = &flakyDB{}
	assert.ErrorIs(t, pingWithRetry(ctx, db, cfg), context.Canceled)
	assert.Zero(t, db.calls)
}
