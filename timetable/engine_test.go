package timetable_test

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

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	testSchool = core.SchoolID("SCH001")
	classA     = core.ClassID("class-a")
	classB     = core.ClassID("class-b")
	teacherX   = core.TeacherID("teacher-x")
	teacherY   = core.TeacherID("teacher-y")
	testYear   = "2026"
)

func newTestEngine(t *testing.T) (*timetable.Engine, timetable.Store) {
	store := memory.New().Schedules()
	return timetable.NewEngine(store), store
}

func seedSchedule(t *testing.T, store timetable.Store, id string, class core.ClassID, day timetable.Day, periods []timetable.Period) {
	t.Helper()
	s := timetable.Schedule{
		ID:           core.ScheduleID(id),
		School:       testSchool,
		Class:        class,
		Day:          day,
		Periods:      periods,
		AcademicYear: testYear,
		Active:       true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, timetable.PrepareForSave(&s))
	require.NoError(t, store.Insert(context.Background(), s))
}

func p(n int, subject string, teacher core.TeacherID, start, end, room string) timetable.Period {
	return timetable.Period{
		PeriodNumber: n,
		Subject:      subject,
		Teacher:      teacher,
		StartTime:    start,
		EndTime:      end,
		Room:         room,
	}
}

// =============================================================================
// DAILY VIEWS
// =============================================================================

func TestDailyForClass_ReturnsOrderedPeriods(t *testing.T) {
	// GIVEN: A Monday schedule for class A
	engine, store := newTestEngine(t)
	seedSchedule(t, store, "s1", classA, timetable.Monday, []timetable.Period{
		p(2, "Science", teacherY, "09:45", "10:30", "Lab 1"),
		p(1, "Mathematics", teacherX, "09:00", "09:45", "201"),
	})

	// WHEN: Building the daily view
	view, err := engine.DailyForClass(context.Background(), testSchool, classA, timetable.Monday, testYear)

	// THEN: Periods come back ordered by start time
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalPeriods)
	assert.Equal(t, "Mathematics", view.Periods[0].Subject)
	assert.Equal(t, "Science", view.Periods[1].Subject)
}

func TestDailyForClass_NoScheduleIsEmptyView(t *testing.T) {
	// GIVEN: No schedule at all
	engine, _ := newTestEngine(t)

	// WHEN / THEN: Empty view, not an error
	view, err := engine.DailyForClass(context.Background(), testSchool, classA, timetable.Friday, testYear)
	require.NoError(t, err)
	assert.Equal(t, 0, view.TotalPeriods)
	assert.Empty(t, view.Periods)
}

func TestDailyForTeacher_MergesAcrossClasses(t *testing.T) {
	// GIVEN: Teacher X teaches class A early and class B late on Monday;
	// teacher Y's periods sit in the same schedules
	engine, store := newTestEngine(t)
	seedSchedule(t, store, "s1", classA, timetable.Monday, []timetable.Period{
		p(1, "Mathematics", teacherX, "09:00", "09:45", "201"),
		p(2, "Science", teacherY, "09:45", "10:30", "Lab 1"),
	})
	seedSchedule(t, store, "s2", classB, timetable.Monday, []timetable.Period{
		p(1, "Mathematics", teacherX, "10:30", "11:15", "202"),
	})

	// WHEN: Building teacher X's day
	view, err := engine.DailyForTeacher(context.Background(), testSchool, teacherX, timetable.Monday, testYear)

	// THEN: Only X's periods, globally time-ordered, with class annotations
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalPeriods)
	assert.Equal(t, 2, view.TotalClasses)
	assert.Equal(t, classA, view.Periods[0].Class)
	assert.Equal(t, "09:00", view.Periods[0].StartTime)
	assert.Equal(t, classB, view.Periods[1].Class)
	for _, tp := range view.Periods {
		assert.Equal(t, teacherX, tp.Teacher, "other teachers' periods filtered out")
	}
}

// =============================================================================
// WEEKLY VIEWS
// =============================================================================

func TestWeeklyForClass_AllSixDaysPresent(t *testing.T) {
	// GIVEN: Schedules on Monday and Wednesday only
	engine, store := newTestEngine(t)
	seedSchedule(t, store, "s1", classA, timetable.Monday, []timetable.Period{
		p(1, "Mathematics", teacherX, "09:00", "09:45", ""),
	})
	seedSchedule(t, store, "s2", classA, timetable.Wednesday, []timetable.Period{
		p(1, "Science", teacherY, "09:00", "09:45", ""),
		p(2, "English", teacherY, "09:45", "10:30", ""),
	})

	// WHEN: Building the weekly view
	view, err := engine.WeeklyForClass(context.Background(), testSchool, classA, testYear)

	// THEN: All six day keys exist; scheduled days filled, others nil
	require.NoError(t, err)
	require.Len(t, view.Days, 6)
	require.NotNil(t, view.Days[timetable.Monday])
	assert.Equal(t, 1, view.Days[timetable.Monday].TotalPeriods)
	require.NotNil(t, view.Days[timetable.Wednesday])
	assert.Equal(t, 2, view.Days[timetable.Wednesday].TotalPeriods)
	assert.Nil(t, view.Days[timetable.Tuesday])
	assert.Nil(t, view.Days[timetable.Saturday])
}

func TestWeeklyForTeacher_WorkloadStats(t *testing.T) {
	// GIVEN: Teacher X has 3 periods over 2 classes this week
	engine, store := newTestEngine(t)
	seedSchedule(t, store, "s1", classA, timetable.Monday, []timetable.Period{
		p(1, "Mathematics", teacherX, "09:00", "09:45", ""),
		p(2, "Mathematics", teacherX, "09:45", "10:30", ""),
	})
	seedSchedule(t, store, "s2", classB, timetable.Tuesday, []timetable.Period{
		p(1, "Mathematics", teacherX, "09:00", "09:45", ""),
		p(2, "Science", teacherY, "09:45", "10:30", ""),
	})

	// WHEN: Building the weekly view
	view, err := engine.WeeklyForTeacher(context.Background(), testSchool, teacherX, testYear)

	// THEN: Workload counts X's periods only; average is over six days
	require.NoError(t, err)
	assert.Equal(t, 3, view.Workload.TotalPeriods)
	assert.Equal(t, 2, view.Workload.TotalClasses)
	assert.InDelta(t, 0.5, view.Workload.AveragePerDay, 1e-9) // 3/6 = 0.5

	require.Len(t, view.Days, 6)
	assert.Empty(t, view.Days[timetable.Friday], "days off hold empty slices")
	require.Len(t, view.Days[timetable.Tuesday], 1)
	assert.Len(t, view.Days[timetable.Tuesday][0].Periods, 1, "teacher Y's period excluded")
}

func TestWeeklyForTeacher_AverageRoundsToOneDecimal(t *testing.T) {
	// GIVEN: 4 periods in a week: 4/6 = 0.666... -> 0.7
	engine, store := newTestEngine(t)
	seedSchedule(t, store, "s1", classA, timetable.Monday, []timetable.Period{
		p(1, "Mathematics", teacherX, "09:00", "09:45", ""),
		p(2, "Mathematics", teacherX, "09:45", "10:30", ""),
		p(3, "Mathematics", teacherX, "10:30", "11:15", ""),
		p(4, "Mathematics", teacherX, "11:15", "12:00", ""),
	})

	view, err := engine.WeeklyForTeacher(context.Background(), testSchool, teacherX, testYear)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, view.Workload.AveragePerDay, 1e-9)
}

// =============================================================================
// ROOM UTILIZATION
// =============================================================================

func TestRoomUtilization_GroupsAndSortsByRoom(t *testing.T) {
	// GIVEN: Two classes share room 201 at different times; one period has
	// no room assigned
	engine, store := newTestEngine(t)
	seedSchedule(t, store, "s1", classA, timetable.Monday, []timetable.Period{
		p(1, "Mathematics", teacherX, "09:00", "09:45", "201"),
		p(2, "PE", teacherY, "09:45", "10:30", ""),
	})
	seedSchedule(t, store, "s2", classB, timetable.Monday, []timetable.Period{
		p(1, "Science", teacherY, "08:00", "08:45", "201"),
	})

	// WHEN: Building room utilization for Monday
	view, err := engine.RoomUtilization(context.Background(), testSchool, timetable.Monday, testYear)

	// THEN: Room 201 has both slots sorted by start; roomless periods skipped
	require.NoError(t, err)
	require.Len(t, view.Rooms, 1)
	slots := view.Rooms["201"]
	require.Len(t, slots, 2)
	assert.Equal(t, "08:00", slots[0].StartTime)
	assert.Equal(t, classB, slots[0].Class)
	assert.Equal(t, "09:00", slots[1].StartTime)
	assert.Equal(t, classA, slots[1].Class)
}

// =============================================================================
// TENANCY
// =============================================================================

func TestEngine_DoesNotSeeOtherSchools(t *testing.T) {
	// GIVEN: A schedule under a different school id
	engine, store := newTestEngine(t)
	other := timetable.Schedule{
		ID:           "s-other",
		School:       "SCH002",
		Class:        classA,
		Day:          timetable.Monday,
		Periods:      []timetable.Period{p(1, "Mathematics", teacherX, "09:00", "09:45", "")},
		AcademicYear: testYear,
		Active:       true,
	}
	require.NoError(t, timetable.PrepareForSave(&other))
	require.NoError(t, store.Insert(context.Background(), other))

	// WHEN / THEN: SCH001 queries see nothing
	view, err := engine.DailyForClass(context.Background(), testSchool, classA, timetable.Monday, testYear)
	require.NoError(t, err)
	assert.Equal(t, 0, view.TotalPeriods)
}
