package correction

import (
	"context"
)

// CorrectionService is the PENDING -> APPROVED | REJECTED workflow
type CorrectionService interface {
	// FileCorrection creates a PENDING request; the ledger is untouched
	FileCorrection(ctx context.Context, req FileCorrectionRequest) (CorrectionResponse, error)

	// Approve applies the proposal to the ledger with audit entries, atomically
	Approve(ctx context.Context, req ResolveRequest) (ResolveResponse, error)

	// Reject closes the request without touching the ledger
	Reject(ctx context.Context, req ResolveRequest) (ResolveResponse, error)

	// Resolve dispatches on req.Decision
	Resolve(ctx context.Context, req ResolveRequest) (ResolveResponse, error)

	// Get retrieves a single request
	Get(ctx context.Context, companyID, id string) (CorrectionResponse, error)

	// List retrieves requests with filters and pagination
	List(ctx context.Context, filter ListFilter) (ListCorrectionResponse, error)
}
