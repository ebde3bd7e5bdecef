package app

import (
	"sync"

	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// UsageFeed fans committed usage records out to live subscribers, keyed by user.
// Each subscription holds only the newest record by Version: a slow reader
// skips intermediate states, and a record older than one already queued or
// delivered is dropped, so the reader converges on the last committed one.
type UsageFeed struct {
	mu      sync.Mutex
	subs    map[string]map[*feedSub]struct{}
	count   int
	closed  bool
	metrics ports.Metrics
}

type feedSub struct {
	ch   chan usage.Record
	seen int64 // highest Version queued on ch
}

// NewUsageFeed creates an empty feed. m may be nil.
func NewUsageFeed(m ports.Metrics) *UsageFeed {
	return &UsageFeed{
		subs:    make(map[string]map[*feedSub]struct{}),
		metrics: m,
	}
}

// Subscribe registers a subscriber for userID. The returned cancel func
// unregisters it and closes the channel; it is safe to call more than once.
func (f *UsageFeed) Subscribe(userID string) (<-chan usage.Record, func()) {
	sub := &feedSub{ch: make(chan usage.Record, 1)}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	if f.subs[userID] == nil {
		f.subs[userID] = make(map[*feedSub]struct{})
	}
	f.subs[userID][sub] = struct{}{}
	f.count++
	f.report()
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[userID][sub]; !ok {
				return // already closed by Close
			}
			delete(f.subs[userID], sub)
			if len(f.subs[userID]) == 0 {
				delete(f.subs, userID)
			}
			f.count--
			f.report()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish delivers rec to every subscriber of rec.UserID without blocking.
// Records not newer than the subscriber's last one are ignored.
func (f *UsageFeed) Publish(rec usage.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for sub := range f.subs[rec.UserID] {
		if rec.Version <= sub.seen {
			continue
		}
		sub.seen = rec.Version
		// Replace any undelivered record with the newer one.
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- rec:
		default:
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (f *UsageFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Close closes every subscription. Later subscriptions are closed immediately.
func (f *UsageFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for userID, subs := range f.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(f.subs, userID)
	}
	f.count = 0
	f.closed = true
	f.report()
}

// report publishes the subscriber gauge; caller holds f.mu.
func (f *UsageFeed) report() {
	if f.metrics != nil {
		f.metrics.LiveSubscribers(f.count)
	}
}

// Ensure interface compliance.
var _ ports.UsagePublisher = (*UsageFeed)(nil)
