package notification

import (
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	TypeClockWarning       NotificationType = "attendance_clock_warning"
	TypeCorrectionFiled    NotificationType = "correction_filed"
	TypeCorrectionApproved NotificationType = "correction_approved"
	TypeCorrectionRejected NotificationType = "correction_rejected"
	TypeOpenCycleReminder  NotificationType = "attendance_open_cycle"
)

// Notification is a best-effort message pushed to one topic
type Notification struct {
	ID        string           `json:"id"`
	CompanyID string           `json:"company_id"`
	Topic     string           `json:"-"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      map[string]any   `json:"data,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// EmployeeTopic addresses one employee
func EmployeeTopic(companyID, employeeID string) string {
	return "company:" + companyID + ":employee:" + employeeID
}

// AdminTopic addresses every admin of a company
func AdminTopic(companyID string) string {
	return "company:" + companyID + ":admins"
}
