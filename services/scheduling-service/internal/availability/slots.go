package availability

import (
	"context"

	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/timegrid"
)

// SlotConfig bounds slot generation when no professional schedule applies.
type SlotConfig struct {
	DayStart    timegrid.ClockTime
	DayEnd      timegrid.ClockTime
	SlotMinutes int
}

// DefaultSlotConfig is the clinic-wide fallback window, 08:00 to 18:00 in
// 30-minute steps.
func DefaultSlotConfig() SlotConfig {
	return SlotConfig{DayStart: 8 * 60, DayEnd: 18 * 60, SlotMinutes: 30}
}

// DaySlots partitions a day's candidate start times into bookable and
// occupied. Times are "HH:MM" strings in grid order.
type DaySlots struct {
	Available []string `json:"available"`
	Busy      []string `json:"busy"`
}

// Generator enumerates candidate slots for a date.
type Generator struct {
	checker   *Checker
	schedules ScheduleSource
	cfg       SlotConfig
}

func NewGenerator(checker *Checker, schedules ScheduleSource, cfg SlotConfig) *Generator {
	if cfg.SlotMinutes <= 0 {
		cfg.SlotMinutes = DefaultSlotConfig().SlotMinutes
	}
	return &Generator{checker: checker, schedules: schedules, cfg: cfg}
}

// Slots walks the day in SlotMinutes steps and classifies each candidate
// start. The window comes from the professional's schedule when a
// professional is named; without one the configured fallback window is
// used. A candidate occupies [start, start+duration); durationMinutes of
// zero or less means one slot width. A professional who does not work the
// date yields no slots at all.
func (g *Generator) Slots(ctx context.Context, date, professionalID string, durationMinutes int) (DaySlots, error) {
	window := Window{Start: g.cfg.DayStart, End: g.cfg.DayEnd}
	if professionalID != "" {
		weekday, err := timegrid.Weekday(date)
		if err != nil {
			return DaySlots{}, err
		}
		w, works, err := g.schedules.ActiveWindow(ctx, professionalID, weekday)
		if err != nil {
			return DaySlots{}, err
		}
		if !works {
			return DaySlots{Available: []string{}, Busy: []string{}}, nil
		}
		window = w
	}

	duration := durationMinutes
	if duration <= 0 {
		duration = g.cfg.SlotMinutes
	}

	out := DaySlots{Available: []string{}, Busy: []string{}}
	for start := window.Start; start+timegrid.ClockTime(duration) <= window.End; start += timegrid.ClockTime(g.cfg.SlotMinutes) {
		ok, err := g.checker.IsAvailable(ctx, Query{
			Date:           date,
			Start:          start,
			End:            start + timegrid.ClockTime(duration),
			ProfessionalID: professionalID,
		})
		if err != nil {
			return DaySlots{}, err
		}
		if ok {
			out.Available = append(out.Available, start.String())
		} else {
			out.Busy = append(out.Busy, start.String())
		}
	}
	return out, nil
}
