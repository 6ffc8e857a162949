package availability

import (
	"fmt"
	"time"

	"github.com/lumera/salonbook/internal/model"
)

// ForWeekday picks the active working-hours template for the given weekday.
// Rows are unique per (staff, weekday) at the storage layer; if legacy data
// still carries duplicates the first active row wins.
func ForWeekday(rows []model.WorkingHours, weekday time.Weekday) (model.WorkingHours, bool) {
	for _, row := range rows {
		if row.IsActive && row.Weekday == int(weekday) {
			return row, true
		}
	}
	return model.WorkingHours{}, false
}

// DayWindow anchors a working-hours template onto a concrete date in the
// given location, producing the [start, end) window slots are computed over.
// Windows never cross midnight.
func DayWindow(date time.Time, wh model.WorkingHours, loc *time.Location) (Interval, error) {
	startH, startM, err := parseClock(wh.Start)
	if err != nil {
		return Interval{}, fmt.Errorf("working hours start: %w", err)
	}
	endH, endM, err := parseClock(wh.End)
	if err != nil {
		return Interval{}, fmt.Errorf("working hours end: %w", err)
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), startH, startM, 0, 0, loc)
	end := time.Date(date.Year(), date.Month(), date.Day(), endH, endM, 0, 0, loc)
	if !end.After(start) {
		return Interval{}, fmt.Errorf("working hours window %s-%s is empty", wh.Start, wh.End)
	}
	return Interval{Start: start, End: end}, nil
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q", s)
	}
	return t.Hour(), t.Minute(), nil
}
