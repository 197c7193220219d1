package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/domain/attendance"
)

func toEventResponse(e attendance.Event) attendance.EventResponse {
	return attendance.EventResponse{
		ID:                e.ID,
		EmployeeID:        e.EmployeeID,
		Kind:              e.Kind,
		CreatedAt:         e.CreatedAt,
		Latitude:          e.Latitude,
		Longitude:         e.Longitude,
		Observation:       e.Observation,
		AcceptanceState:   e.AcceptanceState,
		LocationWarning:   e.LocationWarning,
		EarlyEntryWarning: e.EarlyEntryWarning,
		Justification:     e.Justification,
		OriginalCreatedAt: e.OriginalCreatedAt,
	}
}

func toEventResponsePtr(e *attendance.Event) *attendance.EventResponse {
	if e == nil {
		return nil
	}
	resp := toEventResponse(*e)
	return &resp
}

// toCycleResponse maps a cycle; open cycles also get live durations measured at now
func toCycleResponse(c attendance.WorkCycle, now time.Time) attendance.CycleResponse {
	resp := attendance.CycleResponse{
		Entry:            toEventResponse(c.Entry),
		Pauses:           make([]attendance.PauseResponse, 0, len(c.Pauses)),
		Exit:             toEventResponsePtr(c.Exit),
		ElapsedMinutes:   c.ElapsedMinutes,
		PauseMinutes:     c.PauseMinutes,
		EffectiveMinutes: c.EffectiveMinutes,
		Open:             c.Open(),
		MissingExit:      c.MissingExit,
	}
	for _, p := range c.Pauses {
		resp.Pauses = append(resp.Pauses, attendance.PauseResponse{
			Start:        toEventResponse(p.Start),
			End:          toEventResponsePtr(p.End),
			ClosedByExit: p.ClosedByExit,
		})
	}
	if c.Open() {
		effective, paused := LiveDurations(c, now)
		resp.LiveEffectiveMinutes = &effective
		resp.LivePauseMinutes = &paused
	}
	return resp
}
