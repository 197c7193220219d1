package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendEvent(t *testing.T, repo attendance.LedgerRepository, companyID, employeeID string, kind attendance.Kind, at time.Time) attendance.Event {
	t.Helper()
	ev, err := repo.Append(context.Background(), attendance.Event{
		ID:              newID(t),
		CompanyID:       companyID,
		EmployeeID:      employeeID,
		Kind:            kind,
		CreatedAt:       at,
		AcceptanceState: attendance.AcceptanceAccepted,
		UpdatedAt:       at,
	})
	require.NoError(t, err)
	return ev
}

func TestLedgerRepository_ListByEmployeeInLedgerOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewLedgerRepository(db)
	companyID, employeeID, otherCompany := newID(t), newID(t), newID(t)
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	out := appendEvent(t, repo, companyID, employeeID, attendance.KindClockOut, base.Add(8*time.Hour))
	in := appendEvent(t, repo, companyID, employeeID, attendance.KindClockIn, base)
	appendEvent(t, repo, otherCompany, employeeID, attendance.KindClockIn, base.Add(time.Hour))
	appendEvent(t, repo, companyID, employeeID, attendance.KindClockIn, base.Add(48*time.Hour))

	events, err := repo.ListByEmployee(context.Background(), companyID, employeeID, base, base.Add(24*time.Hour))
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, in.ID, events[0].ID)
	assert.Equal(t, out.ID, events[1].ID)
	assert.Equal(t, time.UTC, events[0].CreatedAt.Location())
}

func TestLedgerRepository_LatestBeforeSkipsRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewLedgerRepository(db)
	ctx := context.Background()
	companyID, employeeID := newID(t), newID(t)
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	none, err := repo.LatestBefore(ctx, companyID, employeeID, base)
	require.NoError(t, err)
	assert.Nil(t, none)

	in := appendEvent(t, repo, companyID, employeeID, attendance.KindClockIn, base)
	out := appendEvent(t, repo, companyID, employeeID, attendance.KindClockOut, base.Add(time.Hour))
	out.AcceptanceState = attendance.AcceptanceRejected
	require.NoError(t, repo.Update(ctx, out))

	latest, err := repo.LatestBefore(ctx, companyID, employeeID, base.Add(2*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, in.ID, latest.ID)
}

func TestLedgerRepository_UpdateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewLedgerRepository(db)
	ctx := context.Background()
	companyID, employeeID := newID(t), newID(t)
	at := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	ev := appendEvent(t, repo, companyID, employeeID, attendance.KindClockIn, at)
	original := ev.CreatedAt
	note := "bus was late"
	ev.CreatedAt = at.Add(-15 * time.Minute)
	ev.OriginalCreatedAt = &original
	ev.Observation = &note
	require.NoError(t, repo.Update(ctx, ev))

	got, err := repo.GetByID(ctx, ev.ID, companyID)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(at.Add(-15*time.Minute)))
	require.NotNil(t, got.OriginalCreatedAt)
	assert.True(t, got.OriginalCreatedAt.Equal(at))
	assert.Equal(t, note, *got.Observation)

	_, err = repo.GetByID(ctx, ev.ID, newID(t))
	assert.ErrorIs(t, err, attendance.ErrEventNotFound)

	require.NoError(t, repo.Delete(ctx, ev.ID, companyID))
	assert.ErrorIs(t, repo.Delete(ctx, ev.ID, companyID), attendance.ErrEventNotFound)
	assert.ErrorIs(t, repo.Update(ctx, ev), attendance.ErrEventNotFound)
}

func TestLedgerRepository_LockEmployeeNeedsTransaction(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewLedgerRepository(db)
	tx := postgresql.NewTransactor(db)
	companyID, employeeID := newID(t), newID(t)

	assert.Error(t, repo.LockEmployee(context.Background(), companyID, employeeID))

	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return repo.LockEmployee(ctx, companyID, employeeID)
	})
	assert.NoError(t, err)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewLedgerRepository(db)
	tx := postgresql.NewTransactor(db)
	companyID, employeeID := newID(t), newID(t)
	at := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	boom := errors.New("boom")

	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		if _, err := repo.Append(ctx, attendance.Event{
			ID: newID(t), CompanyID: companyID, EmployeeID: employeeID, Kind: attendance.KindClockIn,
			CreatedAt: at, AcceptanceState: attendance.AcceptanceAccepted, UpdatedAt: at,
		}); err != nil {
			return err
		}
		// Nested calls join the outer transaction
		return tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	events, err := repo.ListByEmployee(context.Background(), companyID, employeeID, at.Add(-time.Hour), at.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLedgerRepository_LockSerializesWriters(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewLedgerRepository(db)
	tx := postgresql.NewTransactor(db)
	companyID, employeeID := newID(t), newID(t)

	locked := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan time.Time, 1)

	go func() {
		_ = tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
			if err := repo.LockEmployee(ctx, companyID, employeeID); err != nil {
				return err
			}
			close(locked)
			<-release
			firstDone <- time.Now()
			return nil
		})
	}()

	<-locked
	go func() {
		time.Sleep(100 * time.Millisecond)
		close(release)
	}()

	var acquired time.Time
	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		if err := repo.LockEmployee(ctx, companyID, employeeID); err != nil {
			return err
		}
		acquired = time.Now()
		return nil
	})
	require.NoError(t, err)
	assert.False(t, acquired.Before(<-firstDone))
}

func TestLedgerRepository_ListOpenTails(t *testing.T) {
	db := setupTestDB(t)
	repo := postgresql.NewLedgerRepository(db)
	ctx := context.Background()
	companyID := newID(t)
	forgot, done, fresh := newID(t), newID(t), newID(t)
	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	cutoff := base.Add(12 * time.Hour)

	appendEvent(t, repo, companyID, forgot, attendance.KindClockIn, base)
	pause := appendEvent(t, repo, companyID, forgot, attendance.KindPauseStart, base.Add(3*time.Hour))
	rejected := appendEvent(t, repo, companyID, forgot, attendance.KindClockOut, base.Add(8*time.Hour))
	rejected.AcceptanceState = attendance.AcceptanceRejected
	require.NoError(t, repo.Update(ctx, rejected))

	appendEvent(t, repo, companyID, done, attendance.KindClockIn, base)
	appendEvent(t, repo, companyID, done, attendance.KindClockOut, base.Add(8*time.Hour))

	appendEvent(t, repo, companyID, fresh, attendance.KindClockIn, cutoff.Add(time.Minute))

	tails, err := repo.ListOpenTails(ctx, cutoff)
	require.NoError(t, err)

	require.Len(t, tails, 1)
	assert.Equal(t, pause.ID, tails[0].ID)
	assert.Equal(t, forgot, tails[0].EmployeeID)
}
