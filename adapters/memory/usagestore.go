package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// usageShard is a single shard of the usage store.
type usageShard struct {
	mu      sync.Mutex
	records map[string]usage.Record
}

// UsageStore is a sharded in-memory implementation of ports.UsageStore.
// Each shard lock makes a read-modify-write on a record one transaction.
type UsageStore struct {
	shards    []*usageShard
	numShards int
	now       func() time.Time

	idxMu      sync.RWMutex
	byCustomer map[string]string // billing customer id -> user id
}

// UsageStoreConfig configures the usage store.
type UsageStoreConfig struct {
	NumShards int         // Number of shards (default: 32)
	Clock     ports.Clock // Optional: defaults to time.Now
}

// NewUsageStore creates a new sharded in-memory usage store.
func NewUsageStore(cfg UsageStoreConfig) *UsageStore {
	if cfg.NumShards <= 0 {
		cfg.NumShards = 32
	}
	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock.Now
	}

	s := &UsageStore{
		shards:     make([]*usageShard, cfg.NumShards),
		numShards:  cfg.NumShards,
		now:        now,
		byCustomer: make(map[string]string),
	}
	for i := range s.shards {
		s.shards[i] = &usageShard{records: make(map[string]usage.Record)}
	}
	return s
}

// getShard returns the shard for a user id.
func (s *UsageStore) getShard(userID string) *usageShard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return s.shards[h.Sum32()%uint32(s.numShards)]
}

// Get retrieves the user's record, or the zero record if absent.
func (s *UsageStore) Get(ctx context.Context, userID string) (usage.Record, error) {
	shard := s.getShard(userID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	return s.load(shard, userID), nil
}

// Increment atomically adds one to the counter and returns the new record.
func (s *UsageStore) Increment(ctx context.Context, userID string, counter usage.Counter) (usage.Record, error) {
	return s.IncrementIf(ctx, userID, counter, nil)
}

// IncrementIf increments only if allow accepts the current record.
func (s *UsageStore) IncrementIf(ctx context.Context, userID string, counter usage.Counter, allow func(usage.Record) error) (usage.Record, error) {
	if err := ctx.Err(); err != nil {
		return usage.Record{}, err
	}

	shard := s.getShard(userID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	current := s.load(shard, userID)
	if allow != nil {
		if err := allow(current); err != nil {
			return usage.Record{}, err
		}
	}
	next, err := usage.Apply(current, counter, s.now().UTC())
	if err != nil {
		return usage.Record{}, err
	}
	shard.records[userID] = next
	return next, nil
}

// Subscribe merges an active subscription into the user's record.
// A replaced billing customer is dropped from the customer index.
func (s *UsageStore) Subscribe(ctx context.Context, userID, customerID string) (usage.Record, error) {
	shard := s.getShard(userID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	current := s.load(shard, userID)
	next := usage.Subscribe(current, customerID)
	if !usage.SameState(current, next) {
		next.UpdatedAt = s.now().UTC()
	}
	shard.records[userID] = next

	if customerID != "" {
		s.idxMu.Lock()
		if old := current.BillingCustomerID; old != "" && old != customerID && s.byCustomer[old] == userID {
			delete(s.byCustomer, old)
		}
		s.byCustomer[customerID] = userID
		s.idxMu.Unlock()
	}
	return next, nil
}

// UnsubscribeCustomer clears the subscription of the user linked to customerID.
func (s *UsageStore) UnsubscribeCustomer(ctx context.Context, customerID string) (usage.Record, error) {
	s.idxMu.RLock()
	userID, ok := s.byCustomer[customerID]
	s.idxMu.RUnlock()
	if !ok {
		return usage.Record{}, ports.ErrNotFound
	}

	shard := s.getShard(userID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	current := s.load(shard, userID)
	if current.BillingCustomerID != customerID {
		return usage.Record{}, ports.ErrNotFound
	}
	next := usage.Unsubscribe(current)
	if !usage.SameState(current, next) {
		next.UpdatedAt = s.now().UTC()
	}
	shard.records[userID] = next
	return next, nil
}

// Ping always succeeds.
func (s *UsageStore) Ping(ctx context.Context) error {
	return nil
}

// load returns the stored record or a zero record; caller holds shard.mu.
func (s *UsageStore) load(shard *usageShard, userID string) usage.Record {
	rec, ok := shard.records[userID]
	if !ok {
		return usage.Record{UserID: userID}
	}
	return rec
}

// Len returns the total number of records across all shards (for testing).
func (s *UsageStore) Len() int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		total += len(shard.records)
		shard.mu.Unlock()
	}
	return total
}

// Ensure interface compliance.
var _ ports.UsageStore = (*UsageStore)(nil)
