/*
validate.go - Period sorting and overlap rejection

PURPOSE:
  The one write-side invariant of the timetable: within a day's schedule,
  periods sorted by start time must not overlap. Extracted as a pure
  function so create and update share it and it is testable in isolation.

INVARIANT:
  After ValidateAndSortPeriods, for every adjacent pair i, i+1:
    end[i] <= start[i+1]
  Equal boundaries are allowed: periods may run back to back.

CALL SITE CONTRACT:
  Run immediately before persistence. Callers must never persist a period
  list that has not been through this pass.
*/
package timetable

import (
	"fmt"
	"sort"

	"github.com/campusworks/school-engine/core"
)

// OverlapError reports two periods whose time ranges collide. Indices refer
// to the sorted order returned alongside the error's cause.
type OverlapError struct {
	FirstIndex  int
	SecondIndex int
	FirstEnd    string
	SecondStart string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("period %d (ends %s) overlaps period %d (starts %s)",
		e.FirstIndex, e.FirstEnd, e.SecondIndex, e.SecondStart)
}

func (e *OverlapError) Unwrap() error { return core.ErrOverlappingPeriods }

// ValidateAndSortPeriods returns the periods sorted ascending by start time
// (stable, so equal starts keep their original order) and rejects any
// adjacent overlap. The input slice is not modified.
//
// Each period is also checked on its own: times must parse as HH:MM and
// start must come strictly before end.
func ValidateAndSortPeriods(periods []Period) ([]Period, error) {
	type timed struct {
		Period
		start, end int
	}

	sorted := make([]timed, 0, len(periods))
	for i, p := range periods {
		start, err := ToMinutes(p.StartTime)
		if err != nil {
			return nil, fmt.Errorf("period %d start: %w", i, err)
		}
		end, err := ToMinutes(p.EndTime)
		if err != nil {
			return nil, fmt.Errorf("period %d end: %w", i, err)
		}
		if start >= end {
			return nil, fmt.Errorf("period %d: start %s is not before end %s: %w",
				i, p.StartTime, p.EndTime, core.ErrValidation)
		}
		sorted = append(sorted, timed{Period: p, start: start, end: end})
	}

	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	out := make([]Period, len(sorted))
	for i, p := range sorted {
		out[i] = p.Period
	}
	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i].end > sorted[i+1].start {
			return nil, &OverlapError{
				FirstIndex:  i,
				SecondIndex: i + 1,
				FirstEnd:    sorted[i].EndTime,
				SecondStart: sorted[i+1].StartTime,
			}
		}
	}
	return out, nil
}

// PrepareForSave validates a schedule and normalizes its period list in
// place. This is the single write-path entry point shared by create and
// update.
func PrepareForSave(s *Schedule) error {
	if s.School == "" || s.Class == "" {
		return fmt.Errorf("schedule requires school and class: %w", core.ErrValidation)
	}
	if _, err := ParseDay(string(s.Day)); err != nil {
		return err
	}
	if s.AcademicYear == "" {
		return fmt.Errorf("academic year is required: %w", core.ErrValidation)
	}
	if len(s.Periods) == 0 {
		return fmt.Errorf("at least one period is required: %w", core.ErrValidation)
	}
	for i, p := range s.Periods {
		if p.PeriodNumber < minPeriodNumber || p.PeriodNumber > maxPeriodNumber {
			return fmt.Errorf("period %d: period number %d out of range [%d,%d]: %w",
				i, p.PeriodNumber, minPeriodNumber, maxPeriodNumber, core.ErrValidation)
		}
		if p.Subject == "" {
			return fmt.Errorf("period %d: subject is required: %w", i, core.ErrValidation)
		}
		if p.Teacher == "" {
			return fmt.Errorf("period %d: teacher is required: %w", i, core.ErrValidation)
		}
	}
	sorted, err := ValidateAndSortPeriods(s.Periods)
	if err != nil {
		return err
	}
	s.Periods = sorted
	return nil
}
