package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const correctionColumns = `
	id, company_id, user_id, target_date,
	proposed_entry_time, proposed_exit_time, proposed_pauses, note, proposed_by,
	state, admin_note, approver_id, resolved_at, created_at, updated_at`

type correctionRepository struct {
	db *database.DB
}

func NewCorrectionRepository(db *database.DB) correction.CorrectionRepository {
	return &correctionRepository{db: db}
}

func scanCorrection(row pgx.Row) (correction.CorrectionRequest, error) {
	var cr correction.CorrectionRequest
	var pauses []byte
	err := row.Scan(
		&cr.ID, &cr.CompanyID, &cr.EmployeeID, &cr.TargetDate,
		&cr.ProposedEntryTime, &cr.ProposedExitTime, &pauses, &cr.Note, &cr.ProposedBy,
		&cr.State, &cr.AdminNote, &cr.ApproverID, &cr.ResolvedAt, &cr.CreatedAt, &cr.UpdatedAt,
	)
	if err != nil {
		return correction.CorrectionRequest{}, err
	}
	if pauses != nil {
		var decoded []correction.ProposedPause
		if err := json.Unmarshal(pauses, &decoded); err != nil {
			return correction.CorrectionRequest{}, fmt.Errorf("failed to decode proposed pauses: %w", err)
		}
		if decoded == nil {
			decoded = []correction.ProposedPause{}
		}
		cr.ProposedPauses = &decoded
	}
	return cr, nil
}

// Create implements correction.CorrectionRepository.
func (r *correctionRepository) Create(ctx context.Context, req correction.CorrectionRequest) (correction.CorrectionRequest, error) {
	q := GetQuerier(ctx, r.db)

	var pauses []byte
	if req.ProposedPauses != nil {
		encoded, err := json.Marshal(*req.ProposedPauses)
		if err != nil {
			return correction.CorrectionRequest{}, fmt.Errorf("failed to encode proposed pauses: %w", err)
		}
		pauses = encoded
	}

	query := `
		INSERT INTO correction_requests (
			id, company_id, user_id, target_date,
			proposed_entry_time, proposed_exit_time, proposed_pauses, note, proposed_by,
			state, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		) RETURNING ` + correctionColumns

	created, err := scanCorrection(q.QueryRow(ctx, query,
		req.ID, req.CompanyID, req.EmployeeID, req.TargetDate.Format(time.DateOnly),
		req.ProposedEntryTime, req.ProposedExitTime, pauses, req.Note, req.ProposedBy,
		correction.StatePending, req.CreatedAt, req.UpdatedAt,
	))
	if err != nil {
		return correction.CorrectionRequest{}, fmt.Errorf("failed to create correction request: %w", err)
	}

	return created, nil
}

// GetByID implements correction.CorrectionRepository.
func (r *correctionRepository) GetByID(ctx context.Context, id string, companyID string) (correction.CorrectionRequest, error) {
	return r.get(ctx, id, companyID, "")
}

// GetByIDForUpdate implements correction.CorrectionRepository.
func (r *correctionRepository) GetByIDForUpdate(ctx context.Context, id string, companyID string) (correction.CorrectionRequest, error) {
	return r.get(ctx, id, companyID, " FOR UPDATE")
}

func (r *correctionRepository) get(ctx context.Context, id, companyID, lockClause string) (correction.CorrectionRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + correctionColumns + ` FROM correction_requests WHERE id = $1 AND company_id = $2` + lockClause

	cr, err := scanCorrection(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return correction.CorrectionRequest{}, correction.ErrCorrectionNotFound
		}
		return correction.CorrectionRequest{}, fmt.Errorf("failed to get correction request: %w", err)
	}

	return cr, nil
}

// List implements correction.CorrectionRepository.
func (r *correctionRepository) List(ctx context.Context, filter correction.ListFilter) ([]correction.CorrectionRequest, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "company_id = $1"
	args := []interface{}{filter.CompanyID}
	argIdx := 2

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}

	if filter.State != nil && *filter.State != "" {
		baseWhere += fmt.Sprintf(" AND state = $%d", argIdx)
		args = append(args, *filter.State)
		argIdx++
	}

	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND target_date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND target_date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM correction_requests WHERE " + baseWhere
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count correction requests: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	listQuery := fmt.Sprintf(`
		SELECT %s
		FROM correction_requests
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, correctionColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list correction requests: %w", err)
	}
	defer rows.Close()

	items := []correction.CorrectionRequest{}
	for rows.Next() {
		cr, err := scanCorrection(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan correction request: %w", err)
		}
		items = append(items, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate correction requests: %w", err)
	}

	return items, total, nil
}

// Resolve implements correction.CorrectionRepository.
func (r *correctionRepository) Resolve(ctx context.Context, id, companyID string, state correction.State, approverID string, adminNote *string, resolvedAt time.Time) (correction.CorrectionRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE correction_requests SET
			state = $3,
			approver_id = $4,
			admin_note = $5,
			resolved_at = $6,
			updated_at = $6
		WHERE id = $1 AND company_id = $2 AND state = 'PENDING'
		RETURNING ` + correctionColumns

	cr, err := scanCorrection(q.QueryRow(ctx, query, id, companyID, state, approverID, adminNote, resolvedAt))
	if err == nil {
		return cr, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return correction.CorrectionRequest{}, fmt.Errorf("failed to resolve correction request: %w", err)
	}

	// Nothing updated: either the request is gone or it is no longer pending
	if _, getErr := r.GetByID(ctx, id, companyID); getErr != nil {
		return correction.CorrectionRequest{}, getErr
	}
	return correction.CorrectionRequest{}, correction.ErrAlreadyResolved
}
