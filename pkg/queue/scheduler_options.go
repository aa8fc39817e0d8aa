package queue

import "time"

// ScheduleOption is a functional option for Cluster.Schedule
type ScheduleOption func(*ScheduleEntry)

// WithScheduleName sets a human readable schedule name
func WithScheduleName(name string) ScheduleOption {
	return func(e *ScheduleEntry) {
		if name != "" {
			e.Name = name
		}
	}
}

// WithScheduleHook names a registered hook called with each run's result
func WithScheduleHook(hook string) ScheduleOption {
	return func(e *ScheduleEntry) {
		e.Hook = hook
	}
}

// WithScheduleKind sets how the entry advances after each run
func WithScheduleKind(kind ScheduleKind) ScheduleOption {
	return func(e *ScheduleEntry) {
		e.Kind = kind
	}
}

// EveryMinutes runs the entry every n minutes
func EveryMinutes(n int) ScheduleOption {
	return func(e *ScheduleEntry) {
		e.Kind = ScheduleMinutes
		e.Minutes = n
	}
}

// WithRepeats limits the number of runs. RepeatForever never runs out.
func WithRepeats(n int) ScheduleOption {
	return func(e *ScheduleEntry) {
		e.Repeats = n
	}
}

// WithNextRun sets the first run time
func WithNextRun(t time.Time) ScheduleOption {
	return func(e *ScheduleEntry) {
		if !t.IsZero() {
			e.NextRun = t
		}
	}
}
