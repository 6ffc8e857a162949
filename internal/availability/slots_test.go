package availability

import (
	"testing"
	"time"

	"github.com/lumera/salonbook/internal/model"
)

func day(hour, min int) time.Time {
	return time.Date(2026, 9, 14, hour, min, 0, 0, time.UTC) // a Monday
}

func TestAvailableSlotsSkipsBookedIntervals(t *testing.T) {
	// Working 09:00-12:00, one confirmed booking 10:00-10:30, 30-minute
	// service: 10:00 and 10:30 fall away, everything else stays.
	busy := []Interval{{Start: day(10, 0), End: day(10, 30)}}
	slots := AvailableSlots(day(9, 0), day(12, 0), 30*time.Minute, SlotStep, busy, day(8, 0))

	want := []time.Time{day(9, 0), day(9, 30), day(11, 0), day(11, 30)}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %v", len(want), len(slots), slots)
	}
	for i := range want {
		if !slots[i].Equal(want[i]) {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i], slots[i])
		}
	}
}

func TestAvailableSlotsBoundaryInclusive(t *testing.T) {
	// A 480-minute service in a 09:00-17:00 window fits exactly once; its end
	// lands exactly on the window end.
	slots := AvailableSlots(day(9, 0), day(17, 0), 480*time.Minute, SlotStep, nil, day(8, 0))
	if len(slots) != 1 {
		t.Fatalf("expected exactly one slot, got %d: %v", len(slots), slots)
	}
	if !slots[0].Equal(day(9, 0)) {
		t.Fatalf("expected 09:00, got %s", slots[0])
	}
}

func TestAvailableSlotsNoOverrun(t *testing.T) {
	windowEnd := day(12, 0)
	for _, dur := range []time.Duration{15 * time.Minute, 45 * time.Minute, 90 * time.Minute, 170 * time.Minute} {
		for _, s := range AvailableSlots(day(9, 0), windowEnd, dur, SlotStep, nil, day(0, 0)) {
			if s.Add(dur).After(windowEnd) {
				t.Fatalf("slot %s with duration %s overruns window end %s", s, dur, windowEnd)
			}
		}
	}
}

func TestAvailableSlotsRejectsNowAndPast(t *testing.T) {
	now := day(10, 0)
	slots := AvailableSlots(day(9, 0), day(11, 0), 30*time.Minute, SlotStep, nil, now)
	// 09:00 and 09:30 are past, 10:00 equals now and is also rejected.
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d: %v", len(slots), slots)
	}
	if !slots[0].Equal(day(10, 30)) {
		t.Fatalf("expected 10:30, got %s", slots[0])
	}
}

func TestAvailableSlotsDeterministic(t *testing.T) {
	busy := []Interval{
		{Start: day(9, 30), End: day(10, 15)},
		{Start: day(11, 0), End: day(11, 30)},
	}
	first := AvailableSlots(day(9, 0), day(13, 0), 45*time.Minute, SlotStep, busy, day(8, 0))
	second := AvailableSlots(day(9, 0), day(13, 0), 45*time.Minute, SlotStep, busy, day(8, 0))
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("expected identical non-empty results, got %v and %v", first, second)
	}
	for i := range first {
		if !first[i].Equal(second[i]) {
			t.Fatalf("results diverge at %d: %s vs %s", i, first[i], second[i])
		}
		if i > 0 && !first[i].After(first[i-1]) {
			t.Fatalf("slots out of order at %d: %v", i, first)
		}
	}
	for _, s := range first {
		for _, b := range busy {
			if b.Overlaps(s, s.Add(45*time.Minute)) {
				t.Fatalf("slot %s overlaps busy interval %v", s, b)
			}
		}
	}
}

func TestAvailableSlotsDegenerateInputs(t *testing.T) {
	if got := AvailableSlots(day(9, 0), day(9, 0), 30*time.Minute, SlotStep, nil, day(0, 0)); got != nil {
		t.Fatalf("empty window should yield nil, got %v", got)
	}
	if got := AvailableSlots(day(9, 0), day(17, 0), 0, SlotStep, nil, day(0, 0)); got != nil {
		t.Fatalf("zero duration should yield nil, got %v", got)
	}
	if got := AvailableSlots(day(9, 0), day(10, 0), 2*time.Hour, SlotStep, nil, day(0, 0)); got != nil {
		t.Fatalf("duration longer than window should yield nil, got %v", got)
	}
}

func TestForWeekday(t *testing.T) {
	rows := []model.WorkingHours{
		{Weekday: 1, Start: "09:00", End: "17:00", IsActive: true},
		{Weekday: 2, Start: "10:00", End: "18:00", IsActive: false},
	}
	if wh, ok := ForWeekday(rows, time.Monday); !ok || wh.Start != "09:00" {
		t.Fatalf("expected Monday template, got %+v ok=%v", wh, ok)
	}
	if _, ok := ForWeekday(rows, time.Tuesday); ok {
		t.Fatal("inactive Tuesday template should not resolve")
	}
	if _, ok := ForWeekday(rows, time.Sunday); ok {
		t.Fatal("missing weekday should not resolve")
	}
}

func TestDayWindow(t *testing.T) {
	loc := time.UTC
	date := time.Date(2026, 9, 14, 0, 0, 0, 0, loc)
	win, err := DayWindow(date, model.WorkingHours{Weekday: 1, Start: "09:00", End: "17:00", IsActive: true}, loc)
	if err != nil {
		t.Fatalf("DayWindow failed: %v", err)
	}
	if !win.Start.Equal(day(9, 0)) || !win.End.Equal(day(17, 0)) {
		t.Fatalf("unexpected window %v", win)
	}

	if _, err := DayWindow(date, model.WorkingHours{Start: "17:00", End: "09:00"}, loc); err == nil {
		t.Fatal("inverted window should error")
	}
	if _, err := DayWindow(date, model.WorkingHours{Start: "9am", End: "17:00"}, loc); err == nil {
		t.Fatal("malformed clock time should error")
	}
}
