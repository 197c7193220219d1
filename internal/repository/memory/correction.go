package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/correction"
)

type correctionRepository struct {
	s *Store
}

func (r *correctionRepository) Create(_ context.Context, req correction.CorrectionRequest) (correction.CorrectionRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req.State = correction.StatePending
	r.s.corrections[req.ID] = req
	return req, nil
}

func (r *correctionRepository) GetByID(_ context.Context, id string, companyID string) (correction.CorrectionRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cr, ok := r.s.corrections[id]
	if !ok || cr.CompanyID != companyID {
		return correction.CorrectionRequest{}, correction.ErrCorrectionNotFound
	}
	return cr, nil
}

// GetByIDForUpdate relies on the store-wide transaction lock for exclusion
func (r *correctionRepository) GetByIDForUpdate(ctx context.Context, id string, companyID string) (correction.CorrectionRequest, error) {
	return r.GetByID(ctx, id, companyID)
}

func (r *correctionRepository) List(_ context.Context, filter correction.ListFilter) ([]correction.CorrectionRequest, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := []correction.CorrectionRequest{}
	for _, cr := range r.s.corrections {
		if cr.CompanyID != filter.CompanyID {
			continue
		}
		if filter.EmployeeID != nil && *filter.EmployeeID != "" && cr.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.State != nil && *filter.State != "" && string(cr.State) != *filter.State {
			continue
		}
		date := cr.TargetDate.Format(time.DateOnly)
		if filter.StartDate != nil && *filter.StartDate != "" && date < *filter.StartDate {
			continue
		}
		if filter.EndDate != nil && *filter.EndDate != "" && date > *filter.EndDate {
			continue
		}
		matched = append(matched, cr)
	}

	slices.SortFunc(matched, func(a, b correction.CorrectionRequest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})

	total := int64(len(matched))
	start := min((filter.Page-1)*filter.Limit, len(matched))
	end := min(start+filter.Limit, len(matched))
	return matched[start:end], total, nil
}

func (r *correctionRepository) Resolve(_ context.Context, id, companyID string, state correction.State, approverID string, adminNote *string, resolvedAt time.Time) (correction.CorrectionRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cr, ok := r.s.corrections[id]
	if !ok || cr.CompanyID != companyID {
		return correction.CorrectionRequest{}, correction.ErrCorrectionNotFound
	}
	if cr.IsResolved() {
		return correction.CorrectionRequest{}, correction.ErrAlreadyResolved
	}
	cr.State = state
	cr.ApproverID = &approverID
	cr.AdminNote = adminNote
	cr.ResolvedAt = &resolvedAt
	cr.UpdatedAt = resolvedAt
	r.s.corrections[id] = cr
	return cr, nil
}
