package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const eventColumns = `
	id, company_id, user_id, kind, created_at,
	latitude, longitude, observation, acceptance_state,
	location_warning, early_entry_warning, justification,
	original_created_at, updated_at`

type ledgerRepository struct {
	db *database.DB
}

func NewLedgerRepository(db *database.DB) attendance.LedgerRepository {
	return &ledgerRepository{db: db}
}

func scanEvent(row pgx.Row) (attendance.Event, error) {
	var ev attendance.Event
	err := row.Scan(
		&ev.ID, &ev.CompanyID, &ev.EmployeeID, &ev.Kind, &ev.CreatedAt,
		&ev.Latitude, &ev.Longitude, &ev.Observation, &ev.AcceptanceState,
		&ev.LocationWarning, &ev.EarlyEntryWarning, &ev.Justification,
		&ev.OriginalCreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return attendance.Event{}, err
	}
	ev.CreatedAt = ev.CreatedAt.UTC()
	ev.UpdatedAt = ev.UpdatedAt.UTC()
	if ev.OriginalCreatedAt != nil {
		t := ev.OriginalCreatedAt.UTC()
		ev.OriginalCreatedAt = &t
	}
	return ev, nil
}

// Append implements attendance.LedgerRepository.
func (r *ledgerRepository) Append(ctx context.Context, event attendance.Event) (attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_events (
			id, company_id, user_id, kind, created_at,
			latitude, longitude, observation, acceptance_state,
			location_warning, early_entry_warning, justification,
			original_created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		) RETURNING ` + eventColumns

	updatedAt := event.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = event.CreatedAt
	}

	created, err := scanEvent(q.QueryRow(ctx, query,
		event.ID, event.CompanyID, event.EmployeeID, event.Kind, event.CreatedAt,
		event.Latitude, event.Longitude, event.Observation, event.AcceptanceState,
		event.LocationWarning, event.EarlyEntryWarning, event.Justification,
		event.OriginalCreatedAt, updatedAt,
	))
	if err != nil {
		return attendance.Event{}, fmt.Errorf("failed to append attendance event: %w", err)
	}

	return created, nil
}

// GetByID implements attendance.LedgerRepository.
func (r *ledgerRepository) GetByID(ctx context.Context, id string, companyID string) (attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + eventColumns + ` FROM attendance_events WHERE id = $1 AND company_id = $2`

	ev, err := scanEvent(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Event{}, attendance.ErrEventNotFound
		}
		return attendance.Event{}, fmt.Errorf("failed to get attendance event by ID: %w", err)
	}

	return ev, nil
}

// ListByEmployee implements attendance.LedgerRepository.
func (r *ledgerRepository) ListByEmployee(ctx context.Context, companyID, employeeID string, from, to time.Time) ([]attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + eventColumns + `
		FROM attendance_events
		WHERE company_id = $1
		  AND user_id = $2
		  AND created_at >= $3
		  AND created_at < $4
		ORDER BY created_at ASC, id ASC
	`

	rows, err := q.Query(ctx, query, companyID, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance events: %w", err)
	}
	defer rows.Close()

	events := []attendance.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance events: %w", err)
	}

	return events, nil
}

// LatestBefore implements attendance.LedgerRepository.
func (r *ledgerRepository) LatestBefore(ctx context.Context, companyID, employeeID string, before time.Time) (*attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + eventColumns + `
		FROM attendance_events
		WHERE company_id = $1
		  AND user_id = $2
		  AND created_at < $3
		  AND acceptance_state <> 'REJECTED'
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	ev, err := scanEvent(q.QueryRow(ctx, query, companyID, employeeID, before))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest attendance event: %w", err)
	}

	return &ev, nil
}

// ListOpenTails implements attendance.LedgerRepository.
func (r *ledgerRepository) ListOpenTails(ctx context.Context, before time.Time) ([]attendance.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + eventColumns + `
		FROM (
			SELECT DISTINCT ON (company_id, user_id) *
			FROM attendance_events
			WHERE acceptance_state <> 'REJECTED'
			ORDER BY company_id, user_id, created_at DESC, id DESC
		) tails
		WHERE kind <> 'CLOCK_OUT' AND created_at < $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := q.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list open tails: %w", err)
	}
	defer rows.Close()

	events := []attendance.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate open tails: %w", err)
	}

	return events, nil
}

// Update implements attendance.LedgerRepository.
func (r *ledgerRepository) Update(ctx context.Context, event attendance.Event) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_events SET
			kind = $3,
			created_at = $4,
			latitude = $5,
			longitude = $6,
			observation = $7,
			acceptance_state = $8,
			location_warning = $9,
			early_entry_warning = $10,
			justification = $11,
			original_created_at = $12,
			updated_at = $13
		WHERE id = $1 AND company_id = $2
	`

	tag, err := q.Exec(ctx, query,
		event.ID, event.CompanyID,
		event.Kind, event.CreatedAt,
		event.Latitude, event.Longitude, event.Observation, event.AcceptanceState,
		event.LocationWarning, event.EarlyEntryWarning, event.Justification,
		event.OriginalCreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrEventNotFound
	}

	return nil
}

// Delete implements attendance.LedgerRepository.
func (r *ledgerRepository) Delete(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM attendance_events WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete attendance event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrEventNotFound
	}

	return nil
}

// LockEmployee implements attendance.LedgerRepository.
func (r *ledgerRepository) LockEmployee(ctx context.Context, companyID, employeeID string) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); !ok {
		return errors.New("lock employee: no active transaction")
	}
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`, companyID, employeeID); err != nil {
		return fmt.Errorf("failed to lock employee ledger: %w", err)
	}

	return nil
}
