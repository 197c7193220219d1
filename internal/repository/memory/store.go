// Package memory holds in-memory repositories for tests and local runs.
// They honour the same contracts as the postgresql package, including
// rollback of every write made inside a failed transaction.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/audit"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/correction"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-ledger/internal/domain/schedule"
)

type txKey struct{}

type shiftAssignment struct {
	shift         schedule.Shift
	effectiveDate time.Time
	endDate       *time.Time
}

// Store is the shared state behind every in-memory repository
type Store struct {
	// txMu serializes transactions; it stands in for row and advisory locks.
	txMu sync.Mutex

	mu          sync.RWMutex
	events      map[string]attendance.Event
	corrections map[string]correction.CorrectionRequest
	audit       []audit.Entry
	employees   map[string]employee.Employee
	centers     map[string][]schedule.WorkCenter
	shifts      map[string][]shiftAssignment
}

func NewStore() *Store {
	return &Store{
		events:      make(map[string]attendance.Event),
		corrections: make(map[string]correction.CorrectionRequest),
		employees:   make(map[string]employee.Employee),
		centers:     make(map[string][]schedule.WorkCenter),
		shifts:      make(map[string][]shiftAssignment),
	}
}

type snapshot struct {
	events      map[string]attendance.Event
	corrections map[string]correction.CorrectionRequest
	audit       []audit.Entry
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		events:      maps.Clone(s.events),
		corrections: maps.Clone(s.corrections),
		audit:       slices.Clone(s.audit),
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = snap.events
	s.corrections = snap.corrections
	s.audit = snap.audit
}

// WithinTransaction implements database.Transactor.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTransaction(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func inTransaction(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

var errNoTransaction = errors.New("lock employee: no active transaction")

// AddEmployee seeds the directory
func (s *Store) AddEmployee(emp employee.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[emp.ID] = emp
}

// AssignWorkCenter attaches a work center to an employee
func (s *Store) AssignWorkCenter(employeeID string, wc schedule.WorkCenter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.centers[employeeID] = append(s.centers[employeeID], wc)
}

// AssignShift puts a shift in force from effectiveDate until endDate (inclusive, nil for open-ended)
func (s *Store) AssignShift(employeeID string, shift schedule.Shift, effectiveDate time.Time, endDate *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts[employeeID] = append(s.shifts[employeeID], shiftAssignment{
		shift:         shift,
		effectiveDate: effectiveDate,
		endDate:       endDate,
	})
}

func (s *Store) Ledger() attendance.LedgerRepository          { return &ledgerRepository{s} }
func (s *Store) Corrections() correction.CorrectionRepository { return &correctionRepository{s} }
func (s *Store) Audit() audit.AuditRepository                 { return &auditRepository{s} }
func (s *Store) Employees() employee.EmployeeRepository       { return &employeeRepository{s} }
func (s *Store) Assignments() schedule.AssignmentRepository   { return &assignmentRepository{s} }
