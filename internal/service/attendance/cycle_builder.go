package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
)

// BuildCycles groups ledger events into work cycles. It is pure and
// deterministic: the input slice is not modified.
func BuildCycles(events []attendance.Event) []attendance.WorkCycle {
	return Reconcile(events).Cycles
}

// Reconcile scans the events in ledger order and returns the cycles plus
// the events that could not be placed in any cycle. REJECTED events are skipped.
func Reconcile(events []attendance.Event) attendance.Reconciliation {
	sorted := make([]attendance.Event, 0, len(events))
	for _, e := range events {
		if e.Counts() {
			sorted = append(sorted, e)
		}
	}
	SortEvents(sorted)

	result := attendance.Reconciliation{
		Cycles:  []attendance.WorkCycle{},
		Orphans: []attendance.Event{},
	}
	var open *attendance.WorkCycle

	closeCycle := func() {
		if open == nil {
			return
		}
		computeDurations(open)
		result.Cycles = append(result.Cycles, *open)
		open = nil
	}

	for _, e := range sorted {
		switch e.Kind {
		case attendance.KindClockIn:
			if open != nil {
				open.MissingExit = true
				closeCycle()
			}
			open = &attendance.WorkCycle{Entry: e, Pauses: []attendance.Pause{}}

		case attendance.KindPauseStart:
			if open == nil || open.OpenPause() >= 0 {
				result.Orphans = append(result.Orphans, e)
				continue
			}
			open.Pauses = append(open.Pauses, attendance.Pause{Start: e})

		case attendance.KindPauseEnd:
			if open == nil {
				result.Orphans = append(result.Orphans, e)
				continue
			}
			idx := open.OpenPause()
			if idx < 0 {
				result.Orphans = append(result.Orphans, e)
				continue
			}
			end := e
			open.Pauses[idx].End = &end

		case attendance.KindClockOut:
			if open == nil {
				result.Orphans = append(result.Orphans, e)
				continue
			}
			exit := e
			if idx := open.OpenPause(); idx >= 0 {
				open.Pauses[idx].End = &exit
				open.Pauses[idx].ClosedByExit = true
			}
			open.Exit = &exit
			closeCycle()

		default:
			result.Orphans = append(result.Orphans, e)
		}
	}

	// An unterminated cycle is the in-progress one.
	if open != nil {
		result.Cycles = append(result.Cycles, *open)
	}

	return result
}

// computeDurations fills the minute counters of a cycle that has an exit.
// Cycles without an exit keep zero durations.
func computeDurations(c *attendance.WorkCycle) {
	if c.Exit == nil {
		return
	}
	elapsed := c.Exit.CreatedAt.Sub(c.Entry.CreatedAt)
	var paused time.Duration
	for _, p := range c.Pauses {
		if p.End != nil {
			paused += p.End.CreatedAt.Sub(p.Start.CreatedAt)
		}
	}
	c.ElapsedMinutes, c.PauseMinutes, c.EffectiveMinutes = splitMinutes(elapsed, paused)
}

// LiveDurations measures an open cycle up to now. An open pause is frozen at now.
func LiveDurations(c attendance.WorkCycle, now time.Time) (effectiveMinutes, pauseMinutes int) {
	end := now
	if c.Exit != nil {
		end = c.Exit.CreatedAt
	}
	var paused time.Duration
	for _, p := range c.Pauses {
		if p.End != nil {
			paused += p.End.CreatedAt.Sub(p.Start.CreatedAt)
		} else {
			paused += end.Sub(p.Start.CreatedAt)
		}
	}
	_, pauseMinutes, effectiveMinutes = splitMinutes(end.Sub(c.Entry.CreatedAt), paused)
	return effectiveMinutes, pauseMinutes
}

// splitMinutes converts millisecond spans to whole minutes, rounding down.
// Effective time is floored at zero.
func splitMinutes(elapsed, paused time.Duration) (elapsedMin, pauseMin, effectiveMin int) {
	elapsedMs := elapsed.Milliseconds()
	pausedMs := paused.Milliseconds()
	if pausedMs < 0 {
		pausedMs = 0
	}
	effectiveMs := elapsedMs - pausedMs
	if effectiveMs < 0 {
		effectiveMs = 0
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	const msPerMinute = int64(time.Minute / time.Millisecond)
	return int(elapsedMs / msPerMinute), int(pausedMs / msPerMinute), int(effectiveMs / msPerMinute)
}
