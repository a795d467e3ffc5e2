// Package lock provides the distributed mutual exclusion used by the
// reconciliation poller and the expiry scanners. The lock protects task
// execution, never individual key rows; those are serialized by the key
// store's conditional writes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var lockLost = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chaveiro_lock_leases_lost_total",
	Help: "Lease refreshes that found the lock gone mid-run",
})

const lockKeyPrefix = "lock:task:"

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// refreshScript extends the lease only if this holder still owns it.
var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// RedisManager implements ports.LockManager on a shared Redis.
type RedisManager struct {
	client redis.Cmdable
	logger *slog.Logger
}

// NewRedis constructs a Redis-backed lock manager.
func NewRedis(client redis.Cmdable, logger *slog.Logger) (*RedisManager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisManager{client: client, logger: logger}, nil
}

// RunExclusive acquires the named lock and runs fn under it. While fn runs,
// a background goroutine refreshes the lease every refresh interval; if the
// refresh finds the lock gone (crash elsewhere, network partition), fn's
// context is canceled and fn must stop committing side effects. Returns
// acquired=false without error when another instance holds the lock.
func (m *RedisManager) RunExclusive(ctx context.Context, name string, lease, refresh time.Duration, fn func(ctx context.Context) error) (bool, error) {
	if refresh >= lease {
		return false, fmt.Errorf("refresh interval %s must be shorter than lease %s", refresh, lease)
	}
	key := lockKeyPrefix + name
	token := uuid.NewString()

	ok, err := m.client.SetNX(ctx, key, token, lease).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return false, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	refreshDone := make(chan struct{})
	go func() {
		defer close(refreshDone)
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				extended, err := refreshScript.Run(runCtx, m.client, []string{key}, token, lease.Milliseconds()).Int()
				if err != nil && !errors.Is(err, context.Canceled) {
					if m.logger != nil {
						m.logger.WarnContext(runCtx, "lock refresh failed", "lock", name, "error", err)
					}
					lockLost.Inc()
					cancel()
					return
				}
				if err == nil && extended == 0 {
					if m.logger != nil {
						m.logger.WarnContext(runCtx, "lock lease lost", "lock", name)
					}
					lockLost.Inc()
					cancel()
					return
				}
			}
		}
	}()

	fnErr := fn(runCtx)
	cancel()
	<-refreshDone

	// Release with a detached context so a canceled run still cleans up.
	releaseCtx, releaseCancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer releaseCancel()
	if _, err := releaseScript.Run(releaseCtx, m.client, []string{key}, token).Result(); err != nil {
		if m.logger != nil {
			m.logger.WarnContext(releaseCtx, "lock release failed, lease will expire", "lock", name, "error", err)
		}
	}
	return true, fnErr
}
