package attendance

import (
	"sort"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
)

// statusAfter maps the kind of the last ledger event to the employee's status
var statusAfter = map[attendance.Kind]attendance.Status{
	attendance.KindClockIn:    attendance.StatusWorking,
	attendance.KindPauseStart: attendance.StatusOnBreak,
	attendance.KindPauseEnd:   attendance.StatusWorking,
	attendance.KindClockOut:   attendance.StatusFinished,
}

// legalFrom lists, per kind, the statuses it may be recorded from
var legalFrom = map[attendance.Kind][]attendance.Status{
	attendance.KindClockIn:    {attendance.StatusNotStarted, attendance.StatusFinished},
	attendance.KindPauseStart: {attendance.StatusWorking},
	attendance.KindPauseEnd:   {attendance.StatusOnBreak},
	attendance.KindClockOut:   {attendance.StatusWorking, attendance.StatusOnBreak},
}

// SortEvents orders events by (created_at, id) in place
func SortEvents(events []attendance.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Before(events[j])
	})
}

// LastEvent returns the chronologically last event that counts, or nil
func LastEvent(events []attendance.Event) *attendance.Event {
	var last *attendance.Event
	for i := range events {
		if !events[i].Counts() {
			continue
		}
		if last == nil || last.Before(events[i]) {
			last = &events[i]
		}
	}
	return last
}

// ResolveStatus derives the current status from the tail of the ledger.
// The input does not need to be sorted.
func ResolveStatus(events []attendance.Event) attendance.Status {
	last := LastEvent(events)
	if last == nil {
		return attendance.StatusNotStarted
	}
	return StatusAfter(last.Kind)
}

// StatusAfter returns the status an event of the given kind leaves the employee in
func StatusAfter(kind attendance.Kind) attendance.Status {
	if s, ok := statusAfter[kind]; ok {
		return s
	}
	return attendance.StatusNotStarted
}

// CanTransition reports whether kind may be recorded while in status
func CanTransition(status attendance.Status, kind attendance.Kind) bool {
	for _, s := range legalFrom[kind] {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedKinds lists the kinds that may be recorded next
func AllowedKinds(status attendance.Status) []attendance.Kind {
	kinds := make([]attendance.Kind, 0, 2)
	for _, k := range attendance.Kinds {
		if CanTransition(status, k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// CheckTransition returns a *attendance.TransitionError when kind is illegal from status
func CheckTransition(status attendance.Status, kind attendance.Kind) error {
	if CanTransition(status, kind) {
		return nil
	}
	return &attendance.TransitionError{Current: status, Attempted: kind}
}
