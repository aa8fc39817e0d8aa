package queue

import (
	"fmt"
	"time"
)

// Valid reports whether k is a known schedule kind.
func (k ScheduleKind) Valid() bool {
	switch k {
	case ScheduleOnce, ScheduleMinutes, ScheduleHourly, ScheduleDaily,
		ScheduleWeekly, ScheduleMonthly, ScheduleQuarterly, ScheduleYearly:
		return true
	}
	return false
}

// Validate checks the entry's kind, interval and repeats.
func (e *ScheduleEntry) Validate() error {
	if e.Func == "" {
		return ErrEmptyFunc
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSchedule, e.Kind)
	}
	if e.Kind == ScheduleMinutes && e.Minutes <= 0 {
		return fmt.Errorf("%w: minutes schedule needs a positive interval", ErrInvalidSchedule)
	}
	if e.Repeats < RepeatForever {
		return fmt.Errorf("%w: repeats must be -1 or greater", ErrInvalidSchedule)
	}
	return nil
}

// Next returns the run time that follows from for the entry's kind.
// One-shot entries have no next run and return the zero time.
func (e *ScheduleEntry) Next(from time.Time) time.Time {
	switch e.Kind {
	case ScheduleMinutes:
		return from.Add(time.Duration(e.Minutes) * time.Minute)
	case ScheduleHourly:
		return from.Add(time.Hour)
	case ScheduleDaily:
		return from.AddDate(0, 0, 1)
	case ScheduleWeekly:
		return from.AddDate(0, 0, 7)
	case ScheduleMonthly:
		return addMonths(from, 1)
	case ScheduleQuarterly:
		return addMonths(from, 3)
	case ScheduleYearly:
		return addMonths(from, 12)
	}
	return time.Time{}
}

// Advance moves NextRun forward until it lies after now.
func (e *ScheduleEntry) Advance(now time.Time) {
	if e.Kind == ScheduleOnce {
		return
	}
	next := e.NextRun
	for !next.After(now) {
		next = e.Next(next)
	}
	e.NextRun = next
}

// addMonths keeps the day of month, clamped to the length of the target month.
func addMonths(from time.Time, n int) time.Time {
	year, month, day := from.Date()
	total := int(month) - 1 + n
	year += total / 12
	month = time.Month(total%12 + 1)

	// Handle month-end overflow (e.g., the 31st in February becomes the 28th/29th)
	day = min(day, daysInMonth(year, month))
	return time.Date(year, month, day, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
}

// Helper function to get days in month
func daysInMonth(year int, month time.Month) int {
	// Get first day of next month, then subtract one day
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	lastOfMonth := firstOfNext.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}
