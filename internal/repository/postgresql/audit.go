package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const auditColumns = `id, company_id, user_id, affected_event_id, field, old_value, new_value, comment, editor_id, created_at`

type auditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) audit.AuditRepository {
	return &auditRepository{db: db}
}

// Append implements audit.AuditRepository.
func (r *auditRepository) Append(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO audit_entries (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := q.Exec(ctx, query,
		entry.ID, entry.CompanyID, entry.EmployeeID, entry.AffectedEventID, entry.Field,
		entry.OldValue, entry.NewValue, entry.Comment, entry.EditorID, entry.CreatedAt,
	)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("failed to append audit entry: %w", err)
	}

	return entry, nil
}

// ListByEvent implements audit.AuditRepository.
func (r *auditRepository) ListByEvent(ctx context.Context, companyID, eventID string) ([]audit.Entry, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_entries
		WHERE company_id = $1 AND affected_event_id = $2
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, companyID, eventID)
}

// ListByEmployee implements audit.AuditRepository.
func (r *auditRepository) ListByEmployee(ctx context.Context, companyID, employeeID string, from, to time.Time) ([]audit.Entry, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_entries
		WHERE company_id = $1
		  AND user_id = $2
		  AND created_at >= $3
		  AND created_at < $4
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, companyID, employeeID, from, to)
}

func (r *auditRepository) list(ctx context.Context, query string, args ...interface{}) ([]audit.Entry, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Entry, error) {
		var e audit.Entry
		err := row.Scan(
			&e.ID, &e.CompanyID, &e.EmployeeID, &e.AffectedEventID, &e.Field,
			&e.OldValue, &e.NewValue, &e.Comment, &e.EditorID, &e.CreatedAt,
		)
		e.CreatedAt = e.CreatedAt.UTC()
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit entries: %w", err)
	}

	return entries, nil
}
