package user

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Reviews corrections and edits the ledger
	RoleEmployee Role = "employee" // Regular employee
	RolePending  Role = "pending"  // Still in onboarding
)

// Actor is the authenticated caller, taken from access token claims.
// The role decision is made upstream; services trust it.
type Actor struct {
	UserID     string
	EmployeeID string
	CompanyID  string
	Role       Role
}

// IsAdmin checks if the actor may act on other employees' ledgers
func (a Actor) IsAdmin() bool {
	return a.Role == RoleManager || a.Role == RoleOwner
}

// Can checks the actor's role against a permission
func (a Actor) Can(permission Permission) bool {
	return HasPermission(a.Role, permission)
}
