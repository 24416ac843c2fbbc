/*
engine.go - Read-side schedule projections

PURPOSE:
  Builds the views the dashboards consume from already-validated schedule
  records: a class's day, a teacher's merged agenda, weekly maps, room
  utilization, and teacher workload statistics.

DERIVATION ONLY:
  Everything here is a pure projection over records the write path
  validated. No invariant is re-checked; a period that fails to parse at
  this point would indicate corrupted storage, and such periods sort to
  the start of the day rather than failing the whole view.
*/
package timetable

import (
	"context"
	"math"
	"sort"

	"github.com/campusworks/school-engine/core"
)

// Engine exposes the schedule projections. It is stateless; all data comes
// from the Store per call.
type Engine struct {
	Store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{Store: store}
}

// =============================================================================
// VIEW TYPES
// =============================================================================

// DailyClassView is one class's schedule for one day. A day with no
// schedule yields a view with zero periods, not an error.
type DailyClassView struct {
	Class        core.ClassID
	Day          Day
	AcademicYear string
	Periods      []Period
	TotalPeriods int
}

// TeacherPeriod is a period annotated with the class it belongs to, for
// merged cross-class teacher agendas.
type TeacherPeriod struct {
	Period
	Class core.ClassID
}

// DailyTeacherView is a teacher's merged, time-ordered agenda for one day.
type DailyTeacherView struct {
	Teacher      core.TeacherID
	Day          Day
	AcademicYear string
	Periods      []TeacherPeriod
	TotalPeriods int
	TotalClasses int
}

// DaySchedule is one day's slot inside a weekly view; nil means no schedule
// exists for that day.
type DaySchedule struct {
	Periods      []Period
	TotalPeriods int
}

// WeeklyClassView maps every school day to the class's schedule for it.
// All six keys are always present.
type WeeklyClassView struct {
	Class        core.ClassID
	AcademicYear string
	Days         map[Day]*DaySchedule
}

// TeacherDay groups a teacher's periods for one day by class.
type TeacherDay struct {
	Class   core.ClassID
	Periods []Period
}

// WorkloadStats summarizes a teacher's week.
type WorkloadStats struct {
	TotalPeriods  int
	TotalClasses  int
	AveragePerDay float64 // TotalPeriods / 6, rounded to one decimal
}

// WeeklyTeacherView maps every school day to the teacher's assignments.
// All six keys are always present; days off hold empty slices.
type WeeklyTeacherView struct {
	Teacher      core.TeacherID
	AcademicYear string
	Days         map[Day][]TeacherDay
	Workload     WorkloadStats
}

// RoomSlot is one occupied slot in a room's day.
type RoomSlot struct {
	PeriodNumber int
	Subject      string
	Teacher      core.TeacherID
	Class        core.ClassID
	StartTime    string
	EndTime      string
}

// RoomUtilizationView maps room names to their occupied slots for one day,
// each room's slots sorted by start time. Rooms with no periods that day
// are absent from the map.
type RoomUtilizationView struct {
	Day          Day
	AcademicYear string
	Rooms        map[string][]RoomSlot
}

// =============================================================================
// PROJECTIONS
// =============================================================================

// DailyForClass returns the class's schedule for one day. Missing schedules
// are an empty view, not an error.
func (e *Engine) DailyForClass(ctx context.Context, school core.SchoolID, class core.ClassID, day Day, year string) (DailyClassView, error) {
	view := DailyClassView{Class: class, Day: day, AcademicYear: year}
	schedules, err := e.Store.Find(ctx, school, Filter{
		Class:        &class,
		Day:          &day,
		AcademicYear: year,
		ActiveOnly:   true,
	})
	if err != nil {
		return DailyClassView{}, err
	}
	if len(schedules) == 0 {
		return view, nil
	}
	view.Periods = schedules[0].Periods
	view.TotalPeriods = len(view.Periods)
	return view, nil
}

// DailyForTeacher returns the teacher's own periods across every class that
// day, merged into one agenda sorted globally by start time. Periods taught
// by other teachers in the same schedules are filtered out.
func (e *Engine) DailyForTeacher(ctx context.Context, school core.SchoolID, teacher core.TeacherID, day Day, year string) (DailyTeacherView, error) {
	view := DailyTeacherView{Teacher: teacher, Day: day, AcademicYear: year}
	schedules, err := e.Store.Find(ctx, school, Filter{
		Teacher:      &teacher,
		Day:          &day,
		AcademicYear: year,
		ActiveOnly:   true,
	})
	if err != nil {
		return DailyTeacherView{}, err
	}

	classes := make(map[core.ClassID]bool)
	for _, s := range schedules {
		for _, p := range s.Periods {
			if p.Teacher != teacher {
				continue
			}
			view.Periods = append(view.Periods, TeacherPeriod{Period: p, Class: s.Class})
			classes[s.Class] = true
		}
	}
	sort.SliceStable(view.Periods, func(i, j int) bool {
		return startMinutes(view.Periods[i].Period) < startMinutes(view.Periods[j].Period)
	})
	view.TotalPeriods = len(view.Periods)
	view.TotalClasses = len(classes)
	return view, nil
}

// WeeklyForClass returns the class's full week as a fixed six-day map.
func (e *Engine) WeeklyForClass(ctx context.Context, school core.SchoolID, class core.ClassID, year string) (WeeklyClassView, error) {
	view := WeeklyClassView{Class: class, AcademicYear: year, Days: make(map[Day]*DaySchedule, len(WeekDays))}
	for _, d := range WeekDays {
		view.Days[d] = nil
	}

	schedules, err := e.Store.Find(ctx, school, Filter{
		Class:        &class,
		AcademicYear: year,
		ActiveOnly:   true,
	})
	if err != nil {
		return WeeklyClassView{}, err
	}
	for _, s := range schedules {
		view.Days[s.Day] = &DaySchedule{Periods: s.Periods, TotalPeriods: len(s.Periods)}
	}
	return view, nil
}

// WeeklyForTeacher returns the teacher's week grouped by day and class,
// plus workload statistics across the week.
func (e *Engine) WeeklyForTeacher(ctx context.Context, school core.SchoolID, teacher core.TeacherID, year string) (WeeklyTeacherView, error) {
	view := WeeklyTeacherView{Teacher: teacher, AcademicYear: year, Days: make(map[Day][]TeacherDay, len(WeekDays))}
	for _, d := range WeekDays {
		view.Days[d] = []TeacherDay{}
	}

	schedules, err := e.Store.Find(ctx, school, Filter{
		Teacher:      &teacher,
		AcademicYear: year,
		ActiveOnly:   true,
	})
	if err != nil {
		return WeeklyTeacherView{}, err
	}

	classes := make(map[core.ClassID]bool)
	total := 0
	for _, s := range schedules {
		var own []Period
		for _, p := range s.Periods {
			if p.Teacher == teacher {
				own = append(own, p)
			}
		}
		if len(own) == 0 {
			continue
		}
		view.Days[s.Day] = append(view.Days[s.Day], TeacherDay{Class: s.Class, Periods: own})
		classes[s.Class] = true
		total += len(own)
	}

	view.Workload = WorkloadStats{
		TotalPeriods:  total,
		TotalClasses:  len(classes),
		AveragePerDay: roundToOneDecimal(float64(total) / float64(len(WeekDays))),
	}
	return view, nil
}

// RoomUtilization collects every period with an assigned room for one day,
// grouped by room and sorted by start time within each room.
func (e *Engine) RoomUtilization(ctx context.Context, school core.SchoolID, day Day, year string) (RoomUtilizationView, error) {
	view := RoomUtilizationView{Day: day, AcademicYear: year, Rooms: make(map[string][]RoomSlot)}
	schedules, err := e.Store.Find(ctx, school, Filter{
		Day:          &day,
		AcademicYear: year,
		ActiveOnly:   true,
	})
	if err != nil {
		return RoomUtilizationView{}, err
	}
	for _, s := range schedules {
		for _, p := range s.Periods {
			if p.Room == "" {
				continue
			}
			view.Rooms[p.Room] = append(view.Rooms[p.Room], RoomSlot{
				PeriodNumber: p.PeriodNumber,
				Subject:      p.Subject,
				Teacher:      p.Teacher,
				Class:        s.Class,
				StartTime:    p.StartTime,
				EndTime:      p.EndTime,
			})
		}
	}
	for room := range view.Rooms {
		slots := view.Rooms[room]
		sort.SliceStable(slots, func(i, j int) bool {
			return slotMinutes(slots[i]) < slotMinutes(slots[j])
		})
	}
	return view, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func startMinutes(p Period) int {
	m, err := ToMinutes(p.StartTime)
	if err != nil {
		return 0
	}
	return m
}

func slotMinutes(s RoomSlot) int {
	m, err := ToMinutes(s.StartTime)
	if err != nil {
		return 0
	}
	return m
}

func roundToOneDecimal(x float64) float64 {
	return math.Round(x*10) / 10
}
