/*
Package timetable provides the weekly schedule engine.

PURPOSE:
  Validates and aggregates per-day class schedules. A Schedule is one
  class's periods for one day of the week; the engine enforces that
  periods never overlap and exposes the read-side projections the
  dashboards consume (daily views, weekly maps, room utilization,
  teacher workload).

KEY CONCEPTS:
  - Times are "HH:MM" strings compared as minutes since midnight
  - Overlap validation happens once, on the write path; projections
    trust already-validated records
  - All queries are school-scoped

SEE ALSO:
  - validate.go: period sort + overlap scan
  - engine.go: read-side projections
*/
package timetable

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/campusworks/school-engine/core"
)

// timePattern matches 24h wall-clock times: "9:00", "09:00", "23:59".
var timePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ToMinutes parses an "HH:MM" string into minutes since midnight (0..1439).
// The hour may be one or two digits; the minute is always two.
func ToMinutes(hhmm string) (int, error) {
	if !timePattern.MatchString(hhmm) {
		return 0, fmt.Errorf("%q: %w", hhmm, core.ErrInvalidTimeFormat)
	}
	colon := 1
	if hhmm[1] != ':' {
		colon = 2
	}
	hours := 0
	for _, c := range hhmm[:colon] {
		hours = hours*10 + int(c-'0')
	}
	minutes := int(hhmm[colon+1]-'0')*10 + int(hhmm[colon+2]-'0')
	return hours*60 + minutes, nil
}

// =============================================================================
// DAY OF WEEK - School weeks run Monday through Saturday
// =============================================================================

type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
)

// WeekDays lists the school days in order. Sunday is not a school day.
var WeekDays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// ParseDay normalizes and validates a day-of-week string.
func ParseDay(s string) (Day, error) {
	d := Day(strings.ToLower(s))
	for _, wd := range WeekDays {
		if d == wd {
			return d, nil
		}
	}
	return "", fmt.Errorf("invalid day of week %q: %w", s, core.ErrValidation)
}
