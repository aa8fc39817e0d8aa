package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantq/pkg/queue"
	"github.com/dmitrymomot/tenantq/pkg/tenant"
)

func TestScheduleEntryNext(t *testing.T) {
	t.Parallel()

	from := time.Date(2024, time.January, 31, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		e    queue.ScheduleEntry
		want time.Time
	}{
		{"once", queue.ScheduleEntry{Kind: queue.ScheduleOnce}, time.Time{}},
		{"minutes", queue.ScheduleEntry{Kind: queue.ScheduleMinutes, Minutes: 15}, from.Add(15 * time.Minute)},
		{"hourly", queue.ScheduleEntry{Kind: queue.ScheduleHourly}, from.Add(time.Hour)},
		{"daily", queue.ScheduleEntry{Kind: queue.ScheduleDaily}, time.Date(2024, time.February, 1, 10, 30, 0, 0, time.UTC)},
		{"weekly", queue.ScheduleEntry{Kind: queue.ScheduleWeekly}, time.Date(2024, time.February, 7, 10, 30, 0, 0, time.UTC)},
		{"monthly clamps to month end", queue.ScheduleEntry{Kind: queue.ScheduleMonthly}, time.Date(2024, time.February, 29, 10, 30, 0, 0, time.UTC)},
		{"quarterly clamps", queue.ScheduleEntry{Kind: queue.ScheduleQuarterly}, time.Date(2024, time.April, 30, 10, 30, 0, 0, time.UTC)},
		{"yearly", queue.ScheduleEntry{Kind: queue.ScheduleYearly}, time.Date(2025, time.January, 31, 10, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.e.Next(from))
		})
	}
}

func TestScheduleEntryNextYearWrap(t *testing.T) {
	t.Parallel()

	e := queue.ScheduleEntry{Kind: queue.ScheduleQuarterly}
	from := time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC), e.Next(from))
}

func TestScheduleEntryAdvance(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	e := queue.ScheduleEntry{Kind: queue.ScheduleHourly, NextRun: start}

	now := start.Add(3*time.Hour + 10*time.Minute)
	e.Advance(now)
	assert.Equal(t, start.Add(4*time.Hour), e.NextRun)

	once := queue.ScheduleEntry{Kind: queue.ScheduleOnce, NextRun: start}
	once.Advance(now)
	assert.Equal(t, start, once.NextRun)
}

func TestScheduleEntryValidate(t *testing.T) {
	t.Parallel()

	valid := queue.ScheduleEntry{Func: "f", Kind: queue.ScheduleDaily, Repeats: queue.RepeatForever}
	assert.NoError(t, valid.Validate())

	noFunc := valid
	noFunc.Func = ""
	assert.ErrorIs(t, noFunc.Validate(), queue.ErrEmptyFunc)

	badKind := valid
	badKind.Kind = "fortnightly"
	assert.ErrorIs(t, badKind.Validate(), queue.ErrInvalidSchedule)

	noMinutes := valid
	noMinutes.Kind = queue.ScheduleMinutes
	assert.ErrorIs(t, noMinutes.Validate(), queue.ErrInvalidSchedule)

	badRepeats := valid
	badRepeats.Repeats = -2
	assert.ErrorIs(t, badRepeats.Validate(), queue.ErrInvalidSchedule)
}

func TestMemoryScheduleStore(t *testing.T) {
	t.Parallel()

	s := queue.NewMemoryScheduleStore()
	one := tenant.WithSchema(context.Background(), "testone")
	two := tenant.WithSchema(context.Background(), "testtwo")
	now := time.Now()

	require.NoError(t, s.CreateSchedule(one, &queue.ScheduleEntry{ID: "late", Repeats: 1, NextRun: now.Add(-time.Minute)}))
	require.NoError(t, s.CreateSchedule(one, &queue.ScheduleEntry{ID: "early", Repeats: -1, NextRun: now.Add(-time.Hour)}))
	require.NoError(t, s.CreateSchedule(one, &queue.ScheduleEntry{ID: "future", Repeats: -1, NextRun: now.Add(time.Hour)}))
	require.NoError(t, s.CreateSchedule(one, &queue.ScheduleEntry{ID: "spent", Repeats: 0, NextRun: now.Add(-time.Hour)}))

	due, err := s.DueSchedules(one, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "early", due[0].ID)
	assert.Equal(t, "late", due[1].ID)

	due, err = s.DueSchedules(two, now)
	require.NoError(t, err)
	assert.Empty(t, due)

	require.NoError(t, s.DeleteSchedule(one, "early"))
	due, err = s.DueSchedules(one, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "late", due[0].ID)
}
