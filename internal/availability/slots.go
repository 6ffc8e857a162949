package availability

import "time"

// SlotStep is the spacing between candidate start times. It is deliberately
// fixed and independent of service duration, so bookable times always land on
// the half hour regardless of how long the service runs.
const SlotStep = 30 * time.Minute

type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [start, end) intersects the interval, treating
// both as half-open.
func (iv Interval) Overlaps(start, end time.Time) bool {
	return start.Before(iv.End) && iv.Start.Before(end)
}

// AvailableSlots returns the ordered slot start times within
// [windowStart, windowEnd) where a booking of length duration would fit
// without overlapping any busy interval. A slot is emitted when its end does
// not pass windowEnd (landing exactly on windowEnd is allowed) and its start
// is strictly after now.
//
// All times are expected to share one location; the function itself is pure.
func AvailableSlots(windowStart, windowEnd time.Time, duration, step time.Duration, busy []Interval, now time.Time) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !windowEnd.After(windowStart) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; t.Before(windowEnd); t = t.Add(step) {
		end := t.Add(duration)
		if end.After(windowEnd) {
			continue
		}
		if !t.After(now) {
			continue
		}
		if overlapsAny(t, end, busy) {
			continue
		}
		slots = append(slots, t)
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if b.Overlaps(start, end) {
			return true
		}
	}
	return false
}
