package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ravindran79-arch/smartbid-compliance/domain/report"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// ReportStore implements ports.ReportStore using SQLite.
type ReportStore struct {
	db        *DB
	namespace string
}

// NewReportStore creates a new SQLite report store scoped to namespace.
func NewReportStore(db *DB, namespace string) *ReportStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &ReportStore{db: db, namespace: namespace}
}

// Create stores a new report.
func (s *ReportStore) Create(ctx context.Context, r report.Report) error {
	findings, err := json.Marshal(r.Findings)
	if err != nil {
		return fmt.Errorf("encode findings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, namespace, owner_login, timestamp_ms, role, executive_summary, findings)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, s.namespace, r.OwnerLogin, r.Timestamp, r.Role, r.ExecutiveSummary, string(findings))
	return err
}

// Get retrieves a report by ID.
func (s *ReportStore) Get(ctx context.Context, id string) (report.Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_login, timestamp_ms, role, executive_summary, findings
		FROM reports WHERE namespace = ? AND id = ?
	`, s.namespace, id)

	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return report.Report{}, ports.ErrNotFound
	}
	return r, err
}

// ListByOwner returns an owner's reports, newest first.
func (s *ReportStore) ListByOwner(ctx context.Context, owner string, limit int) ([]report.Report, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_login, timestamp_ms, role, executive_summary, findings
		FROM reports WHERE namespace = ? AND owner_login = ?
		ORDER BY timestamp_ms DESC
		LIMIT ?
	`, s.namespace, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []report.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Delete removes a report.
func (s *ReportStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE namespace = ? AND id = ?`, s.namespace, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func scanReport(row rowScanner) (report.Report, error) {
	var (
		r        report.Report
		findings string
	)
	if err := row.Scan(&r.ID, &r.OwnerLogin, &r.Timestamp, &r.Role, &r.ExecutiveSummary, &findings); err != nil {
		return report.Report{}, err
	}
	if err := json.Unmarshal([]byte(findings), &r.Findings); err != nil {
		return report.Report{}, fmt.Errorf("decode findings: %w", err)
	}
	return r, nil
}

// Ensure interface compliance.
var _ ports.ReportStore = (*ReportStore)(nil)
