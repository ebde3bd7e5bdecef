package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ravindran79-arch/smartbid-compliance/domain/billing"
	"github.com/ravindran79-arch/smartbid-compliance/domain/report"
	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// Mock implementations for testing

type mockUsageStore struct {
	mu           sync.Mutex
	records      map[string]usage.Record
	incrementErr error
	subscribeErr error
	writes       int
}

func newMockUsageStore(recs ...usage.Record) *mockUsageStore {
	m := &mockUsageStore{records: make(map[string]usage.Record)}
	for _, r := range recs {
		m.records[r.UserID] = r
	}
	return m
}

func (m *mockUsageStore) Get(ctx context.Context, userID string) (usage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok {
		return usage.Record{UserID: userID}, nil
	}
	return rec, nil
}

func (m *mockUsageStore) Increment(ctx context.Context, userID string, counter usage.Counter) (usage.Record, error) {
	return m.IncrementIf(ctx, userID, counter, nil)
}

func (m *mockUsageStore) IncrementIf(ctx context.Context, userID string, counter usage.Counter, allow func(usage.Record) error) (usage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrementErr != nil {
		return usage.Record{}, m.incrementErr
	}
	rec, ok := m.records[userID]
	if !ok {
		rec = usage.Record{UserID: userID}
	}
	if allow != nil {
		if err := allow(rec); err != nil {
			return usage.Record{}, err
		}
	}
	rec, err := usage.Apply(rec, counter, time.Time{})
	if err != nil {
		return usage.Record{}, err
	}
	m.records[userID] = rec
	m.writes++
	return rec, nil
}

func (m *mockUsageStore) Subscribe(ctx context.Context, userID, customerID string) (usage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return usage.Record{}, m.subscribeErr
	}
	rec, ok := m.records[userID]
	if !ok {
		rec = usage.Record{UserID: userID}
	}
	rec = usage.Subscribe(rec, customerID)
	m.records[userID] = rec
	m.writes++
	return rec, nil
}

func (m *mockUsageStore) UnsubscribeCustomer(ctx context.Context, customerID string) (usage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.records {
		if rec.BillingCustomerID == customerID {
			rec = usage.Unsubscribe(rec)
			m.records[id] = rec
			m.writes++
			return rec, nil
		}
	}
	return usage.Record{}, ports.ErrNotFound
}

func (m *mockUsageStore) Ping(ctx context.Context) error { return nil }

func (m *mockUsageStore) record(userID string) usage.Record {
	rec, _ := m.Get(context.Background(), userID)
	return rec
}

type mockReportStore struct {
	mu        sync.Mutex
	reports   map[string]report.Report
	createErr error
	deleted   []string
}

func newMockReportStore(reps ...report.Report) *mockReportStore {
	m := &mockReportStore{reports: make(map[string]report.Report)}
	for _, r := range reps {
		m.reports[r.ID] = r
	}
	return m
}

func (m *mockReportStore) Create(ctx context.Context, r report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.reports[r.ID]; ok {
		return fmt.Errorf("duplicate report %s", r.ID)
	}
	m.reports[r.ID] = r
	return nil
}

func (m *mockReportStore) Get(ctx context.Context, id string) (report.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return report.Report{}, ports.ErrNotFound
	}
	return r, nil
}

func (m *mockReportStore) ListByOwner(ctx context.Context, owner string, limit int) ([]report.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []report.Report
	for _, r := range m.reports {
		if r.OwnerLogin == owner {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockReportStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return ports.ErrNotFound
	}
	delete(m.reports, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockReportStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

type mockGenerator struct {
	text    string
	raw     []byte
	err     error
	prompts []string
	bodies  [][]byte
	calls   int
	during  func() // runs while the model call is in flight
}

func (m *mockGenerator) Generate(ctx context.Context, body []byte) ([]byte, error) {
	m.calls++
	m.bodies = append(m.bodies, body)
	if m.err != nil {
		return nil, m.err
	}
	return m.raw, nil
}

func (m *mockGenerator) GenerateText(ctx context.Context, body []byte) (string, error) {
	m.calls++
	m.bodies = append(m.bodies, body)
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func (m *mockGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if m.during != nil {
		m.during()
	}
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

type mockPaymentProvider struct {
	event       billing.Event
	parseErr    error
	portalURL   string
	portalErr   error
	portalCalls int
	customers   []string
}

func (m *mockPaymentProvider) Name() string { return "mock" }

func (m *mockPaymentProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	m.portalCalls++
	m.customers = append(m.customers, customerID)
	if m.portalErr != nil {
		return "", m.portalErr
	}
	return m.portalURL, nil
}

func (m *mockPaymentProvider) ParseWebhook(payload []byte, signature string) (billing.Event, error) {
	if m.parseErr != nil {
		return nil, m.parseErr
	}
	return m.event, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	records []usage.Record
}

func (p *recordingPublisher) Publish(rec usage.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.records)
}

type recordingMetrics struct {
	noopMetrics
	mu       sync.Mutex
	gates    []string
	audits   []string
	webhooks []string
}

func (m *recordingMetrics) GateDecision(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gates = append(m.gates, reason)
}

func (m *recordingMetrics) Audit(role, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, role+":"+outcome)
}

func (m *recordingMetrics) WebhookEvent(eventType, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webhooks = append(m.webhooks, eventType+":"+outcome)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type seqIDs struct{ n int }

func (s *seqIDs) New() string {
	s.n++
	return fmt.Sprintf("rep-%d", s.n)
}
