/*
attendance_test.go - Attendance summary derivation
*/
package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/campusworks/school-engine/core"
)

func mark(status core.AttendanceStatus) core.AttendanceRecord {
	return core.AttendanceRecord{
		ID:      "att-1",
		School:  "SCH001",
		Student: "student-1",
		Date:    time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		Status:  status,
		Subject: "Mathematics",
	}
}

func TestSummarizeAttendance_CountsPerStatus(t *testing.T) {
	// GIVEN: One mark of each status
	records := []core.AttendanceRecord{
		mark(core.AttendancePresent),
		mark(core.AttendanceAbsent),
		mark(core.AttendanceLate),
		mark(core.AttendanceExcused),
	}

	// WHEN: Summarizing
	s := core.SummarizeAttendance(records)

	// THEN: Each status counted once; present and late count as attended
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Present)
	assert.Equal(t, 1, s.Absent)
	assert.Equal(t, 1, s.Late)
	assert.Equal(t, 1, s.Excused)
	assert.Equal(t, 50.0, s.Percentage)
}

func TestSummarizeAttendance_PercentageRoundsToOneDecimal(t *testing.T) {
	// GIVEN: 2 attended out of 3
	records := []core.AttendanceRecord{
		mark(core.AttendancePresent),
		mark(core.AttendanceLate),
		mark(core.AttendanceAbsent),
	}

	s := core.SummarizeAttendance(records)

	// THEN: 66.666... rounds to 66.7
	assert.Equal(t, 66.7, s.Percentage)
}

func TestSummarizeAttendance_EmptyInputIsAllZeroes(t *testing.T) {
	s := core.SummarizeAttendance(nil)
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.Percentage)
}
