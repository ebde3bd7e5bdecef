// Package redis provides a Redis implementation of the usage store.
//
// Each user record is a hash at "{namespace}:usage:{userID}" and the
// billing customer index is a hash at "{namespace}:customers". Mutations run
// as WATCH/MULTI/EXEC optimistic transactions.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// DefaultMaxRetries bounds optimistic transaction retries before ErrConflict.
const DefaultMaxRetries = 10

// Hash fields of a usage record.
const (
	fieldInitiator  = "initiatorChecks"
	fieldBidder     = "bidderChecks"
	fieldSubscribed = "isSubscribed"
	fieldCustomer   = "billingCustomerId"
	fieldUpdatedAt  = "updatedAt"
	fieldVersion    = "version"
)

// Dial parses redisURL, tunes the pool and verifies the connection.
func Dial(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

// UsageStore implements ports.UsageStore on Redis hashes.
type UsageStore struct {
	client     goredis.UniversalClient
	namespace  string
	maxRetries int
	now        func() time.Time
}

// Option configures a UsageStore.
type Option func(*UsageStore)

// WithMaxRetries sets the optimistic retry bound.
func WithMaxRetries(n int) Option {
	return func(s *UsageStore) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithClock sets the clock used for UpdatedAt.
func WithClock(c ports.Clock) Option {
	return func(s *UsageStore) { s.now = c.Now }
}

// NewUsageStore creates a Redis usage store scoped to namespace.
func NewUsageStore(client goredis.UniversalClient, namespace string, opts ...Option) *UsageStore {
	if namespace == "" {
		namespace = "smartbid"
	}
	s := &UsageStore{
		client:     client,
		namespace:  namespace,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UsageStore) userKey(userID string) string {
	return s.namespace + ":usage:" + userID
}

func (s *UsageStore) customersKey() string {
	return s.namespace + ":customers"
}

// Get retrieves the user's record, or the zero record if absent.
func (s *UsageStore) Get(ctx context.Context, userID string) (usage.Record, error) {
	fields, err := s.client.HGetAll(ctx, s.userKey(userID)).Result()
	if err != nil {
		return usage.Record{}, fmt.Errorf("get usage: %w", err)
	}
	return decodeRecord(userID, fields), nil
}

// Increment atomically adds one to the counter and returns the new record.
func (s *UsageStore) Increment(ctx context.Context, userID string, counter usage.Counter) (usage.Record, error) {
	return s.IncrementIf(ctx, userID, counter, nil)
}

// IncrementIf increments only if allow accepts the watched record.
// allow may run once per optimistic retry.
func (s *UsageStore) IncrementIf(ctx context.Context, userID string, counter usage.Counter, allow func(usage.Record) error) (usage.Record, error) {
	if !counter.Valid() {
		return usage.Record{}, usage.ErrUnknownCounter
	}

	var next usage.Record
	err := s.update(ctx, userID, func(current usage.Record) (bool, error) {
		if allow != nil {
			if err := allow(current); err != nil {
				return false, err
			}
		}
		var err error
		next, err = usage.Apply(current, counter, s.now().UTC())
		return err == nil, err
	}, func(pipe goredis.Pipeliner) {
		pipe.HSet(ctx, s.userKey(userID), encodeRecord(next))
	})
	if err != nil {
		return usage.Record{}, fmt.Errorf("increment %s: %w", counter, err)
	}
	return next, nil
}

// Subscribe merges an active subscription into the user's record.
// A replaced billing customer is dropped from the customer index.
func (s *UsageStore) Subscribe(ctx context.Context, userID, customerID string) (usage.Record, error) {
	var next usage.Record
	var previous string
	err := s.update(ctx, userID, func(current usage.Record) (bool, error) {
		previous = current.BillingCustomerID
		next = usage.Subscribe(current, customerID)
		if usage.SameState(current, next) {
			return false, nil
		}
		next.UpdatedAt = s.now().UTC()
		return true, nil
	}, func(pipe goredis.Pipeliner) {
		pipe.HSet(ctx, s.userKey(userID), encodeRecord(next))
		if previous != "" && previous != next.BillingCustomerID {
			pipe.HDel(ctx, s.customersKey(), previous)
		}
		if customerID != "" {
			pipe.HSet(ctx, s.customersKey(), customerID, userID)
		}
	})
	if err != nil {
		return usage.Record{}, fmt.Errorf("subscribe: %w", err)
	}
	return next, nil
}

// UnsubscribeCustomer clears the subscription of the user linked to customerID.
func (s *UsageStore) UnsubscribeCustomer(ctx context.Context, customerID string) (usage.Record, error) {
	userID, err := s.client.HGet(ctx, s.customersKey(), customerID).Result()
	if errors.Is(err, goredis.Nil) {
		return usage.Record{}, fmt.Errorf("unsubscribe customer: %w", ports.ErrNotFound)
	}
	if err != nil {
		return usage.Record{}, fmt.Errorf("unsubscribe customer: %w", err)
	}

	var next usage.Record
	err = s.update(ctx, userID, func(current usage.Record) (bool, error) {
		if current.BillingCustomerID != customerID {
			// The user has moved to another customer since the index was written.
			return false, ports.ErrNotFound
		}
		next = usage.Unsubscribe(current)
		if usage.SameState(current, next) {
			return false, nil
		}
		next.UpdatedAt = s.now().UTC()
		return true, nil
	}, func(pipe goredis.Pipeliner) {
		pipe.HSet(ctx, s.userKey(userID), encodeRecord(next))
	})
	if err != nil {
		return usage.Record{}, fmt.Errorf("unsubscribe customer: %w", err)
	}
	return next, nil
}

// Ping checks Redis connectivity.
func (s *UsageStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// update runs an optimistic read-modify-write on one user hash.
// compute sees the committed record and reports whether a write is needed;
// write queues the commands for MULTI/EXEC. A concurrent writer aborts EXEC
// with TxFailedErr and the whole cycle is retried up to maxRetries.
func (s *UsageStore) update(
	ctx context.Context,
	userID string,
	compute func(current usage.Record) (bool, error),
	write func(pipe goredis.Pipeliner),
) error {
	key := s.userKey(userID)

	txf := func(tx *goredis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		changed, err := compute(decodeRecord(userID, fields))
		if err != nil || !changed {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			write(pipe)
			return nil
		})
		return err
	}

	for i := 0; i < s.maxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return ports.ErrConflict
}

func encodeRecord(r usage.Record) map[string]any {
	subscribed := "0"
	if r.IsSubscribed {
		subscribed = "1"
	}
	return map[string]any{
		fieldInitiator:  r.InitiatorChecks,
		fieldBidder:     r.BidderChecks,
		fieldSubscribed: subscribed,
		fieldCustomer:   r.BillingCustomerID,
		fieldUpdatedAt:  r.UpdatedAt.UTC().Format(time.RFC3339Nano),
		fieldVersion:    r.Version,
	}
}

func decodeRecord(userID string, fields map[string]string) usage.Record {
	rec := usage.Record{UserID: userID}
	if len(fields) == 0 {
		return rec
	}
	rec.InitiatorChecks, _ = strconv.ParseInt(fields[fieldInitiator], 10, 64)
	rec.BidderChecks, _ = strconv.ParseInt(fields[fieldBidder], 10, 64)
	rec.IsSubscribed = fields[fieldSubscribed] == "1"
	rec.BillingCustomerID = fields[fieldCustomer]
	rec.Version, _ = strconv.ParseInt(fields[fieldVersion], 10, 64)
	if ts, err := time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt]); err == nil {
		rec.UpdatedAt = ts
	}
	return rec
}

// Ensure interface compliance.
var _ ports.UsageStore = (*UsageStore)(nil)
