package employee

import "time"

// Employee is the directory record the ledger is keyed by
type Employee struct {
	ID        string
	CompanyID string
	UserID    *string
	FullName  string
	Role      string
	Timezone  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location loads the employee's timezone, falling back to def when it is empty or unknown
func (e Employee) Location(def *time.Location) *time.Location {
	if e.Timezone == "" {
		return def
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return def
	}
	return loc
}
