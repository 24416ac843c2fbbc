/*
memory_test.go - In-memory store invariants

The memory store is mostly exercised through the engine and ledger tests;
what lives here are the constraint checks that must stay in lockstep with
the SQLite schema.
*/
package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/school-engine/core"
	"github.com/campusworks/school-engine/store/memory"
	"github.com/campusworks/school-engine/timetable"
)

const school = core.SchoolID("SCH001")

func testSchedule(id string, day timetable.Day) timetable.Schedule {
	return timetable.Schedule{
		ID:     core.ScheduleID(id),
		School: school,
		Class:  "class-a",
		Day:    day,
		Periods: []timetable.Period{
			{PeriodNumber: 1, Subject: "Mathematics", Teacher: "teacher-x", StartTime: "09:00", EndTime: "09:45"},
		},
		AcademicYear: "2026",
		Active:       true,
		CreatedBy:    "admin-1",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func TestSchedules_UpdateOntoOccupiedDayConflicts(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.Schedules().Insert(ctx, testSchedule("sched-1", timetable.Monday)))
	require.NoError(t, store.Schedules().Insert(ctx, testSchedule("sched-2", timetable.Tuesday)))

	// WHEN: Moving Tuesday's schedule onto the already-occupied Monday slot
	err := store.Schedules().Update(ctx, testSchedule("sched-2", timetable.Monday))

	// THEN: The uniqueness invariant holds on update, not just insert
	assert.ErrorIs(t, err, core.ErrDuplicateSchedule)
	got, err := store.Schedules().Get(ctx, school, "sched-2")
	require.NoError(t, err)
	assert.Equal(t, timetable.Tuesday, got.Day)

	// An update that keeps its own slot is not a self-collision
	assert.NoError(t, store.Schedules().Update(ctx, testSchedule("sched-2", timetable.Tuesday)))
}
