/*
schedule_handlers.go - Timetable endpoints

PURPOSE:
  CRUD over weekly schedules plus the read-side projections: daily and
  weekly views per class and per teacher, and room utilization.

ENDPOINTS:
  GET    /api/schedules                         List (filter by class/teacher/day)
  POST   /api/schedules                         Create day schedule
  PUT    /api/schedules/{id}                    Replace day schedule
  DELETE /api/schedules/{id}                    Delete day schedule
  GET    /api/schedules/class/{classID}/daily/{day}
  GET    /api/schedules/class/{classID}/weekly
  GET    /api/schedules/teacher/{teacherID}/daily/{day}
  GET    /api/schedules/teacher/{teacherID}/weekly
  GET    /api/schedules/rooms/{day}

VALIDATION:
  Period shape is validated here; time format, ordering, and overlap are
  owned by timetable.PrepareForSave, which also sorts the periods.

SEE ALSO:
  - timetable/validate.go: Overlap detection
  - timetable/engine.go: Projections
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campusworks/school-engine/core"
	"github.com/campusworks/school-engine/timetable"
)

// currentAcademicYear is the fallback when a request omits the year.
func currentAcademicYear(now time.Time) string {
	return now.Format("2006")
}

func (h *Handler) scheduleFromRequest(scope core.Scope, req SaveScheduleRequest) (timetable.Schedule, error) {
	day, err := timetable.ParseDay(req.DayOfWeek)
	if err != nil {
		return timetable.Schedule{}, err
	}
	periods := make([]timetable.Period, len(req.Periods))
	for i, p := range req.Periods {
		periods[i] = timetable.Period{
			PeriodNumber: p.PeriodNumber,
			Subject:      p.Subject,
			Teacher:      core.TeacherID(p.TeacherID),
			StartTime:    p.StartTime,
			EndTime:      p.EndTime,
			Room:         p.Room,
		}
	}
	year := req.AcademicYear
	if year == "" {
		year = currentAcademicYear(time.Now())
	}
	return timetable.Schedule{
		School:       scope.School,
		Class:        core.ClassID(req.ClassID),
		Day:          day,
		Periods:      periods,
		AcademicYear: year,
		Active:       true,
		CreatedBy:    scope.Actor,
	}, nil
}

// ListSchedules returns schedules matching the query filters.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}

	var f timetable.Filter
	q := r.URL.Query()
	if v := q.Get("class_id"); v != "" {
		class := core.ClassID(v)
		f.Class = &class
	}
	if v := q.Get("teacher_id"); v != "" {
		teacher := core.TeacherID(v)
		f.Teacher = &teacher
	}
	if v := q.Get("day"); v != "" {
		day, err := timetable.ParseDay(v)
		if err != nil {
			writeDomainError(w, "Invalid day", err)
			return
		}
		f.Day = &day
	}
	f.AcademicYear = q.Get("academic_year")
	f.ActiveOnly = q.Get("active") != "false"

	schedules, err := h.Schedules.Find(r.Context(), scope.School, f)
	if err != nil {
		writeDomainError(w, "Failed to list schedules", err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTOs(schedules))
}

// CreateSchedule validates, sorts, and stores one class's day schedule.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	var req SaveScheduleRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	s, err := h.scheduleFromRequest(scope, req)
	if err != nil {
		writeDomainError(w, "Invalid schedule", err)
		return
	}
	s.ID = core.ScheduleID(uuid.NewString())
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	if err := timetable.PrepareForSave(&s); err != nil {
		writeDomainError(w, "Invalid schedule", err)
		return
	}
	if err := h.Schedules.Insert(r.Context(), s); err != nil {
		writeDomainError(w, "Failed to create schedule", err)
		return
	}
	writeJSON(w, http.StatusCreated, toScheduleDTO(s))
}

// UpdateSchedule replaces the periods of an existing schedule.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	id := core.ScheduleID(chi.URLParam(r, "id"))

	existing, err := h.Schedules.Get(r.Context(), scope.School, id)
	if err != nil {
		writeDomainError(w, "Schedule not found", err)
		return
	}

	var req SaveScheduleRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	s, err := h.scheduleFromRequest(scope, req)
	if err != nil {
		writeDomainError(w, "Invalid schedule", err)
		return
	}
	s.ID = existing.ID
	s.CreatedBy = existing.CreatedBy
	s.CreatedAt = existing.CreatedAt
	s.UpdatedAt = time.Now()

	if err := timetable.PrepareForSave(&s); err != nil {
		writeDomainError(w, "Invalid schedule", err)
		return
	}
	if err := h.Schedules.Update(r.Context(), s); err != nil {
		writeDomainError(w, "Failed to update schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(s))
}

// DeleteSchedule removes a schedule.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	id := core.ScheduleID(chi.URLParam(r, "id"))
	if err := h.Schedules.Delete(r.Context(), scope.School, id); err != nil {
		writeDomainError(w, "Failed to delete schedule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PROJECTIONS
// =============================================================================

func (h *Handler) yearParam(r *http.Request) string {
	if y := r.URL.Query().Get("academic_year"); y != "" {
		return y
	}
	return currentAcademicYear(time.Now())
}

// ClassDaily returns one class's ordered periods for a day.
func (h *Handler) ClassDaily(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	day, err := timetable.ParseDay(chi.URLParam(r, "day"))
	if err != nil {
		writeDomainError(w, "Invalid day", err)
		return
	}
	class := core.ClassID(chi.URLParam(r, "classID"))

	view, err := h.Timetable.DailyForClass(r.Context(), scope.School, class, day, h.yearParam(r))
	if err != nil {
		writeDomainError(w, "Failed to build daily view", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ClassWeekly returns one class's full week, keyed by day.
func (h *Handler) ClassWeekly(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	class := core.ClassID(chi.URLParam(r, "classID"))

	view, err := h.Timetable.WeeklyForClass(r.Context(), scope.School, class, h.yearParam(r))
	if err != nil {
		writeDomainError(w, "Failed to build weekly view", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// TeacherDaily returns a teacher's merged periods across classes for a day.
func (h *Handler) TeacherDaily(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	day, err := timetable.ParseDay(chi.URLParam(r, "day"))
	if err != nil {
		writeDomainError(w, "Invalid day", err)
		return
	}
	teacher := core.TeacherID(chi.URLParam(r, "teacherID"))

	view, err := h.Timetable.DailyForTeacher(r.Context(), scope.School, teacher, day, h.yearParam(r))
	if err != nil {
		writeDomainError(w, "Failed to build daily view", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// TeacherWeekly returns a teacher's week plus workload statistics.
func (h *Handler) TeacherWeekly(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	teacher := core.TeacherID(chi.URLParam(r, "teacherID"))

	view, err := h.Timetable.WeeklyForTeacher(r.Context(), scope.School, teacher, h.yearParam(r))
	if err != nil {
		writeDomainError(w, "Failed to build weekly view", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RoomUtilization returns which rooms are occupied when on a day.
func (h *Handler) RoomUtilization(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	day, err := timetable.ParseDay(chi.URLParam(r, "day"))
	if err != nil {
		writeDomainError(w, "Invalid day", err)
		return
	}

	view, err := h.Timetable.RoomUtilization(r.Context(), scope.School, day, h.yearParam(r))
	if err != nil {
		writeDomainError(w, "Failed to build room view", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
