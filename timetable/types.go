package timetable

import (
	"context"
	"time"

	"github.com/campusworks/school-engine/core"
)

// =============================================================================
// PERIOD - One timetabled slot within a day's schedule
// =============================================================================

// Period is one subject/teacher/time slot. Periods are exclusively owned by
// their parent Schedule and are never referenced independently.
type Period struct {
	PeriodNumber int
	Subject      string
	Teacher      core.TeacherID
	StartTime    string // "HH:MM"
	EndTime      string // "HH:MM"
	Room         string // optional; empty means unassigned
}

const (
	minPeriodNumber = 1
	maxPeriodNumber = 10
)

// =============================================================================
// SCHEDULE - One class's periods for one day of the week
// =============================================================================

// Schedule holds the period list for one (class, day, academic year).
// Exactly one schedule may exist per (school, class, day, year); the store
// enforces that with a uniqueness constraint, not in-process locking.
//
// Periods are supplied atomically on create and replaced wholesale on
// update. Both paths must run PrepareForSave first.
type Schedule struct {
	ID           core.ScheduleID
	School       core.SchoolID
	Class        core.ClassID
	Day          Day
	Periods      []Period
	AcademicYear string
	Active       bool
	CreatedBy    core.AdminID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// =============================================================================
// STORE - Persistence interface for schedules
// =============================================================================

// Filter narrows schedule queries. Nil/zero fields are ignored.
type Filter struct {
	Class        *core.ClassID
	Teacher      *core.TeacherID // matches schedules where any period references the teacher
	Day          *Day
	AcademicYear string
	ActiveOnly   bool
}

// Store persists schedules. Implementations must enforce the
// (school, class, day, academic year) uniqueness constraint on Insert and
// report violations as core.ErrDuplicateSchedule.
type Store interface {
	Insert(ctx context.Context, s Schedule) error

	// Update replaces the stored schedule wholesale.
	Update(ctx context.Context, s Schedule) error

	Get(ctx context.Context, school core.SchoolID, id core.ScheduleID) (Schedule, error)
	Find(ctx context.Context, school core.SchoolID, f Filter) ([]Schedule, error)
	Delete(ctx context.Context, school core.SchoolID, id core.ScheduleID) error
}
