package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// UsageStore implements ports.UsageStore using SQLite.
// Mutations run in IMMEDIATE transactions (see Open), so concurrent
// read-modify-writes on one record serialize on the database write lock.
type UsageStore struct {
	db        *DB
	namespace string
	now       func() time.Time
}

// NewUsageStore creates a new SQLite usage store scoped to namespace.
func NewUsageStore(db *DB, namespace string) *UsageStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &UsageStore{db: db, namespace: namespace, now: time.Now}
}

// WithClock sets the clock used for UpdatedAt (for testing).
func (s *UsageStore) WithClock(c ports.Clock) *UsageStore {
	s.now = c.Now
	return s
}

const selectUsage = `
	SELECT user_id, initiator_checks, bidder_checks, is_subscribed, billing_customer_id, updated_at, version
	FROM usage_records
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUsage(row rowScanner) (usage.Record, error) {
	var (
		rec        usage.Record
		subscribed int
		updatedAt  sql.NullTime
	)
	err := row.Scan(&rec.UserID, &rec.InitiatorChecks, &rec.BidderChecks, &subscribed, &rec.BillingCustomerID, &updatedAt, &rec.Version)
	if err != nil {
		return usage.Record{}, err
	}
	rec.IsSubscribed = subscribed != 0
	if updatedAt.Valid {
		rec.UpdatedAt = updatedAt.Time.UTC()
	}
	return rec, nil
}

// Get retrieves the user's record, or the zero record if absent.
func (s *UsageStore) Get(ctx context.Context, userID string) (usage.Record, error) {
	row := s.db.QueryRowContext(ctx, selectUsage+`WHERE namespace = ? AND user_id = ?`, s.namespace, userID)
	rec, err := scanUsage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return usage.Record{UserID: userID}, nil
	}
	if err != nil {
		return usage.Record{}, fmt.Errorf("get usage: %w", err)
	}
	return rec, nil
}

// Increment atomically adds one to the counter and returns the new record.
func (s *UsageStore) Increment(ctx context.Context, userID string, counter usage.Counter) (usage.Record, error) {
	return s.IncrementIf(ctx, userID, counter, nil)
}

// IncrementIf increments only if allow accepts the record read in the transaction.
func (s *UsageStore) IncrementIf(ctx context.Context, userID string, counter usage.Counter, allow func(usage.Record) error) (usage.Record, error) {
	if !counter.Valid() {
		return usage.Record{}, usage.ErrUnknownCounter
	}

	var next usage.Record
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		if allow != nil {
			if err := allow(current); err != nil {
				return err
			}
		}
		next, err = usage.Apply(current, counter, s.now().UTC())
		if err != nil {
			return err
		}
		return s.put(ctx, tx, next)
	})
	if err != nil {
		return usage.Record{}, fmt.Errorf("increment %s: %w", counter, err)
	}
	return next, nil
}

// Subscribe merges an active subscription into the user's record.
func (s *UsageStore) Subscribe(ctx context.Context, userID, customerID string) (usage.Record, error) {
	var next usage.Record
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		next = usage.Subscribe(current, customerID)
		if usage.SameState(current, next) {
			return nil
		}
		next.UpdatedAt = s.now().UTC()
		return s.put(ctx, tx, next)
	})
	if err != nil {
		return usage.Record{}, fmt.Errorf("subscribe: %w", err)
	}
	return next, nil
}

// UnsubscribeCustomer clears the subscription of the user linked to customerID.
func (s *UsageStore) UnsubscribeCustomer(ctx context.Context, customerID string) (usage.Record, error) {
	var next usage.Record
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, selectUsage+`WHERE namespace = ? AND billing_customer_id = ? LIMIT 1`,
			s.namespace, customerID)
		current, err := scanUsage(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ports.ErrNotFound
		}
		if err != nil {
			return err
		}
		next = usage.Unsubscribe(current)
		if usage.SameState(current, next) {
			return nil
		}
		next.UpdatedAt = s.now().UTC()
		return s.put(ctx, tx, next)
	})
	if err != nil {
		return usage.Record{}, fmt.Errorf("unsubscribe customer: %w", err)
	}
	return next, nil
}

// Ping verifies the database is reachable.
func (s *UsageStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *UsageStore) getTx(ctx context.Context, tx *sql.Tx, userID string) (usage.Record, error) {
	row := tx.QueryRowContext(ctx, selectUsage+`WHERE namespace = ? AND user_id = ?`, s.namespace, userID)
	rec, err := scanUsage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return usage.Record{UserID: userID}, nil
	}
	return rec, err
}

func (s *UsageStore) put(ctx context.Context, tx *sql.Tx, rec usage.Record) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO usage_records (namespace, user_id, initiator_checks, bidder_checks, is_subscribed, billing_customer_id, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(namespace, user_id) DO UPDATE SET
			initiator_checks = excluded.initiator_checks,
			bidder_checks = excluded.bidder_checks,
			is_subscribed = excluded.is_subscribed,
			billing_customer_id = excluded.billing_customer_id,
			updated_at = excluded.updated_at,
			version = excluded.version
	`, s.namespace, rec.UserID, rec.InitiatorChecks, rec.BidderChecks, boolToInt(rec.IsSubscribed), rec.BillingCustomerID, rec.UpdatedAt, rec.Version)
	return err
}

// inTx runs fn inside one transaction, committing only if fn succeeds.
func (s *UsageStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return conflictOr(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return conflictOr(err)
	}
	return conflictOr(tx.Commit())
}

// conflictOr maps SQLite lock contention to ports.ErrConflict.
func conflictOr(err error) error {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && (sqlErr.Code == sqlite3.ErrBusy || sqlErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%w: %v", ports.ErrConflict, err)
	}
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure interface compliance.
var _ ports.UsageStore = (*UsageStore)(nil)
