/*
attendance.go - Per-student attendance records

PURPOSE:
  Daily per-subject attendance marks for a student, plus the read-side
  summary derived from them. The percentage is never stored; it is
  computed from the records on every query.
*/
package core

import (
	"context"
	"math"
	"time"
)

type AttendanceID string

// AttendanceStatus is the outcome of one roll call.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// AttendanceRecord is one roll-call mark for one student on one date.
type AttendanceRecord struct {
	ID         AttendanceID
	School     SchoolID
	Student    StudentID
	Date       time.Time
	Status     AttendanceStatus
	Subject    string
	Remarks    string
	RecordedBy AdminID
	CreatedAt  time.Time
}

// AttendanceFilter narrows an attendance query. Zero From/To mean
// unbounded; empty Subject matches all subjects.
type AttendanceFilter struct {
	From    time.Time
	To      time.Time
	Subject string
}

// AttendanceStore persists attendance records.
type AttendanceStore interface {
	Insert(ctx context.Context, rec AttendanceRecord) error

	// FindByStudent returns the student's records matching the filter,
	// ordered by date ascending.
	FindByStudent(ctx context.Context, school SchoolID, student StudentID, f AttendanceFilter) ([]AttendanceRecord, error)
}

// AttendanceSummary aggregates a set of records. Percentage counts
// present and late marks as attended, rounded to one decimal place.
type AttendanceSummary struct {
	Total      int
	Present    int
	Absent     int
	Late       int
	Excused    int
	Percentage float64
}

// SummarizeAttendance computes the summary for a record set. Empty input
// yields all zeroes.
func SummarizeAttendance(records []AttendanceRecord) AttendanceSummary {
	var s AttendanceSummary
	for _, r := range records {
		s.Total++
		switch r.Status {
		case AttendancePresent:
			s.Present++
		case AttendanceAbsent:
			s.Absent++
		case AttendanceLate:
			s.Late++
		case AttendanceExcused:
			s.Excused++
		}
	}
	if s.Total > 0 {
		s.Percentage = math.Round(float64(s.Present+s.Late)/float64(s.Total)*1000) / 10
	}
	return s
}
