package user

type Permission string

const (
	// Attendance ledger
	PermissionAttendanceViewOwn Permission = "attendance.view_own"
	PermissionAttendanceCreate  Permission = "attendance.create"
	PermissionAttendanceViewAll Permission = "attendance.view_all"
	PermissionAttendanceEdit    Permission = "attendance.edit"

	// Corrections
	PermissionCorrectionCreate  Permission = "attendance.correction"
	PermissionAttendanceApprove Permission = "attendance.approve"

	// Audit trail
	PermissionAuditViewOwn Permission = "audit.view_own"
	PermissionAuditViewAll Permission = "audit.view_all"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		// Owner has all permissions
		PermissionAttendanceViewOwn,
		PermissionAttendanceCreate,
		PermissionAttendanceViewAll,
		PermissionAttendanceEdit,
		PermissionCorrectionCreate,
		PermissionAttendanceApprove,
		PermissionAuditViewOwn,
		PermissionAuditViewAll,
	},
	RoleManager: {
		PermissionAttendanceViewOwn,
		PermissionAttendanceCreate,
		PermissionAttendanceViewAll,
		PermissionAttendanceEdit,
		PermissionCorrectionCreate,
		PermissionAttendanceApprove,
		PermissionAuditViewOwn,
		PermissionAuditViewAll,
	},
	RoleEmployee: {
		// Employee has basic access
		PermissionAttendanceViewOwn,
		PermissionAttendanceCreate,
		PermissionCorrectionCreate,
		PermissionAuditViewOwn,
	},
	RolePending: {
		// Pending role has no permissions
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}

	return false
}
