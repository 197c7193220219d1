package attendance

import (
	"errors"
	"fmt"
)

// Attendance domain errors
var (
	// Clock action errors
	ErrInvalidTransition = errors.New("invalid clock transition")

	// General errors
	ErrEventNotFound    = errors.New("attendance event not found")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrNoChanges        = errors.New("no changes to apply")
)

// TransitionError reports an illegal clock action together with the status
// the employee is actually in.
type TransitionError struct {
	Current   Status
	Attempted Kind
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot record %s while %s", e.Attempted, e.Current)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
