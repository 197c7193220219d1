package correction

import "errors"

// Correction domain errors
var (
	ErrCorrectionNotFound = errors.New("correction request not found")
	ErrAlreadyResolved    = errors.New("correction request has already been resolved")
	ErrEntryTimeRequired  = errors.New("entry_time is required to create a missing day")
	ErrInvalidDecision    = errors.New("decision must be approve or reject")
)
