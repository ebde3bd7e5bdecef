package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ravindran79-arch/smartbid-compliance/domain/ratelimit"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// rateLimitShard is a single shard of the limiter's window table.
type rateLimitShard struct {
	mu    sync.Mutex
	state map[string]ratelimit.WindowState
}

// RateLimiter is a sharded in-memory implementation of ports.RateLimiter.
// Windows are per process; replicas each enforce their own budget.
type RateLimiter struct {
	policy    ratelimit.Policy
	shards    []*rateLimitShard
	numShards int
	cleanup   *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
}

// RateLimiterConfig configures the limiter.
type RateLimiterConfig struct {
	Policy          ratelimit.Policy
	NumShards       int           // Number of shards (default: 32)
	CleanupInterval time.Duration // How often to drop closed windows (default: 5m)
}

// NewRateLimiter creates a sharded in-memory rate limiter and starts its
// cleanup loop. Call Close to stop it.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.NumShards <= 0 {
		cfg.NumShards = 32
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	l := &RateLimiter{
		policy:    cfg.Policy,
		shards:    make([]*rateLimitShard, cfg.NumShards),
		numShards: cfg.NumShards,
		cleanup:   time.NewTicker(cfg.CleanupInterval),
		done:      make(chan struct{}),
	}
	for i := range l.shards {
		l.shards[i] = &rateLimitShard{state: make(map[string]ratelimit.WindowState)}
	}

	go l.cleanupLoop()
	return l
}

func (l *RateLimiter) getShard(key string) *rateLimitShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return l.shards[h.Sum32()%uint32(l.numShards)]
}

// Allow checks and records one request for key under the shard lock.
func (l *RateLimiter) Allow(ctx context.Context, key string, now time.Time) (ratelimit.Result, error) {
	shard := l.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	res, next := ratelimit.Check(shard.state[key], l.policy, now)
	shard.state[key] = next
	return res, nil
}

func (l *RateLimiter) cleanupLoop() {
	for {
		select {
		case <-l.cleanup.C:
			l.sweep(time.Now())
		case <-l.done:
			return
		}
	}
}

// sweep drops windows that closed before now.
func (l *RateLimiter) sweep(now time.Time) {
	for _, shard := range l.shards {
		shard.mu.Lock()
		for key, state := range shard.state {
			if state.Expired(now) {
				delete(shard.state, key)
			}
		}
		shard.mu.Unlock()
	}
}

// Close stops the cleanup goroutine. Safe to call twice.
func (l *RateLimiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		l.cleanup.Stop()
	})
	return nil
}

// Len returns the number of tracked clients across all shards.
func (l *RateLimiter) Len() int {
	total := 0
	for _, shard := range l.shards {
		shard.mu.Lock()
		total += len(shard.state)
		shard.mu.Unlock()
	}
	return total
}

// Ensure interface compliance.
var _ ports.RateLimiter = (*RateLimiter)(nil)
