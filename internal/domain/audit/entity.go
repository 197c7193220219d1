package audit

import "time"

// Field names recorded by the correction workflow
const (
	FieldEntryTime  = "entry_time"
	FieldExitTime   = "exit_time"
	FieldPauseStart = "pause_start"
	FieldPauseEnd   = "pause_end"

	FieldCorrectionState = "correction_state"
)

// Field names recorded by the admin edit path
const (
	FieldCreatedAt       = "created_at"
	FieldKind            = "kind"
	FieldLatitude        = "latitude"
	FieldLongitude       = "longitude"
	FieldObservation     = "observation"
	FieldAcceptanceState = "acceptance_state"
	FieldJustification   = "justification"
	FieldEvent           = "event"
)

// Entry is one field-level mutation of a ledger event. Entries are never
// updated or deleted. An empty OldValue marks a creation, an empty NewValue a deletion.
type Entry struct {
	ID              string
	CompanyID       string
	EmployeeID      string
	AffectedEventID string
	Field           string
	OldValue        string
	NewValue        string
	Comment         string
	EditorID        string
	CreatedAt       time.Time
}

// Action classifies an entry by its values
func (e Entry) Action() string {
	switch {
	case e.OldValue == "" && e.NewValue != "":
		return "create"
	case e.OldValue != "" && e.NewValue == "":
		return "delete"
	default:
		return "update"
	}
}
