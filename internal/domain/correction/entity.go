package correction

import "time"

// State of a correction request. APPROVED and REJECTED are terminal.
type State string

const (
	StatePending  State = "PENDING"
	StateApproved State = "APPROVED"
	StateRejected State = "REJECTED"
)

var StateValues = []string{string(StatePending), string(StateApproved), string(StateRejected)}

// Decision is the admin's resolution of a pending request
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ProposedPause is a replacement break inside the corrected cycle
type ProposedPause struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CorrectionRequest proposes replacement times for one employee's day.
// ProposedPauses nil means pauses are left alone; an empty slice removes them.
type CorrectionRequest struct {
	ID                string
	CompanyID         string
	EmployeeID        string
	TargetDate        time.Time
	ProposedEntryTime *time.Time
	ProposedExitTime  *time.Time
	ProposedPauses    *[]ProposedPause
	Note              *string
	ProposedBy        string
	State             State
	AdminNote         *string
	ApproverID        *string
	ResolvedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsResolved reports whether the request reached a terminal state
func (c CorrectionRequest) IsResolved() bool {
	return c.State != StatePending
}
