/*
handlers.go - HTTP API handlers for the school administration engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  Auth:
    POST   /api/auth/register          Register school + first admin
    POST   /api/auth/login             Admin login

  Registry:
    GET    /api/classes                List classes
    POST   /api/classes                Create class
    GET    /api/students               List students of a class
    POST   /api/students               Enroll student
    POST   /api/students/{id}/attendance  Mark attendance
    GET    /api/students/{id}/attendance  Attendance records + summary
    GET    /api/teachers               List teachers
    POST   /api/teachers               Register teacher
    GET    /api/events                 List events
    POST   /api/events                 Create event
    DELETE /api/events/{id}            Delete event

  Schedules: see schedule_handlers.go
  Fees and payments: see billing_handlers.go

ARCHITECTURE:
  Handler struct holds all dependencies: the entity stores, the timetable
  engine, and the billing ledger/reconciler. Handlers never touch a store
  another school owns; the scope from auth.go bounds every call.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate shape (validator/v10 tags on the request struct)
  3. Call domain logic
  4. Serialize response
  5. Map domain errors to HTTP status

ERROR HANDLING:
  Domain errors map to HTTP status by kind:
  - 400: core.IsClientError (validation, overlap, balance, bad time format)
  - 404: core.IsNotFound
  - 409: core.IsConflict (duplicates, concurrent modification)
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Token verification and tenant scoping
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/campusworks/school-engine/billing"
	"github.com/campusworks/school-engine/core"
	"github.com/campusworks/school-engine/timetable"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store bundles everything the API needs from a persistence backend.
// Both store/memory and store/sqlite satisfy it.
type Store interface {
	Students() core.StudentStore
	Teachers() core.TeacherStore
	Classes() core.ClassStore
	Admins() core.AdminStore
	Events() core.EventStore
	Attendance() core.AttendanceStore
	Schedules() timetable.Store
	FeeStructures() billing.FeeStructureStore
	Payments() billing.PaymentStore
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Students      core.StudentStore
	Teachers      core.TeacherStore
	Classes       core.ClassStore
	Admins        core.AdminStore
	Events        core.EventStore
	Attendance    core.AttendanceStore
	Schedules     timetable.Store
	FeeStructures billing.FeeStructureStore

	Timetable  *timetable.Engine
	Ledger     *billing.Ledger
	Reconciler *billing.Reconciler

	JWTSecret []byte

	// registerMu serializes school registration; school-id allocation is
	// check-then-act over the admin store.
	registerMu sync.Mutex

	validate *validator.Validate
}

// NewHandler wires a handler over the given store.
func NewHandler(store Store, jwtSecret []byte) *Handler {
	payments := store.Payments()
	return &Handler{
		Students:      store.Students(),
		Teachers:      store.Teachers(),
		Classes:       store.Classes(),
		Admins:        store.Admins(),
		Events:        store.Events(),
		Attendance:    store.Attendance(),
		Schedules:     store.Schedules(),
		FeeStructures: store.FeeStructures(),
		Timetable:     timetable.NewEngine(store.Schedules()),
		Ledger:        billing.NewLedger(payments),
		Reconciler:    billing.NewReconciler(payments),
		JWTSecret:     jwtSecret,
		validate:      validator.New(),
	}
}

// decodeAndValidate parses the body into req and runs the struct tags.
// Writes the error response itself and reports whether to continue.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// =============================================================================
// CLASS HANDLERS
// =============================================================================

// ListClasses returns the school's classes.
func (h *Handler) ListClasses(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	classes, err := h.Classes.List(r.Context(), scope.School)
	if err != nil {
		writeDomainError(w, "Failed to list classes", err)
		return
	}
	writeJSON(w, http.StatusOK, classes)
}

// CreateClass creates a class.
func (h *Handler) CreateClass(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	var req CreateClassRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	c := core.Class{
		ID:        core.ClassID(uuid.NewString()),
		School:    scope.School,
		Name:      req.Name,
		Grade:     req.Grade,
		Section:   req.Section,
		Capacity:  req.Capacity,
		CreatedAt: time.Now(),
	}
	if err := h.Classes.Insert(r.Context(), c); err != nil {
		writeDomainError(w, "Failed to create class", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns students, filtered by ?class_id= and ?active=.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	classID := r.URL.Query().Get("class_id")
	if classID == "" {
		writeError(w, http.StatusBadRequest, "class_id query parameter is required", nil)
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	students, err := h.Students.FindByClass(r.Context(), scope.School, core.ClassID(classID), activeOnly)
	if err != nil {
		writeDomainError(w, "Failed to list students", err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

// CreateStudent enrolls a student.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	var req CreateStudentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	st := core.Student{
		ID:         core.StudentID(uuid.NewString()),
		School:     scope.School,
		Name:       req.Name,
		Email:      req.Email,
		RollNumber: req.RollNumber,
		Class:      core.ClassID(req.ClassID),
		Active:     true,
		CreatedAt:  time.Now(),
	}
	if err := h.Students.Insert(r.Context(), st); err != nil {
		writeDomainError(w, "Failed to create student", err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// RecordAttendance marks one roll-call outcome for a student. The student
// must exist under the caller's school before any mark is stored.
func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	var req RecordAttendanceRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	studentID := core.StudentID(chi.URLParam(r, "id"))
	if _, err := h.Students.Get(r.Context(), scope.School, studentID); err != nil {
		writeDomainError(w, "Student not found", err)
		return
	}
	date, err := parseDateParam(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD or RFC3339)", err)
		return
	}

	rec := core.AttendanceRecord{
		ID:         core.AttendanceID(uuid.NewString()),
		School:     scope.School,
		Student:    studentID,
		Date:       date,
		Status:     core.AttendanceStatus(req.Status),
		Subject:    req.Subject,
		Remarks:    req.Remarks,
		RecordedBy: scope.Actor,
		CreatedAt:  time.Now(),
	}
	if err := h.Attendance.Insert(r.Context(), rec); err != nil {
		writeDomainError(w, "Failed to record attendance", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAttendanceDTO(rec))
}

// ListAttendance returns a student's attendance marks with the derived
// summary. Supports start_date/end_date and subject query filters.
func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	studentID := core.StudentID(chi.URLParam(r, "id"))
	student, err := h.Students.Get(r.Context(), scope.School, studentID)
	if err != nil {
		writeDomainError(w, "Student not found", err)
		return
	}

	var filter core.AttendanceFilter
	if from := r.URL.Query().Get("start_date"); from != "" {
		if filter.From, err = parseDateParam(from); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_date", err)
			return
		}
	}
	if to := r.URL.Query().Get("end_date"); to != "" {
		if filter.To, err = parseDateParam(to); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date", err)
			return
		}
	}
	filter.Subject = r.URL.Query().Get("subject")

	records, err := h.Attendance.FindByStudent(r.Context(), scope.School, studentID, filter)
	if err != nil {
		writeDomainError(w, "Failed to query attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		StudentID   string                `json:"student_id"`
		StudentName string                `json:"student_name"`
		Records     []AttendanceRecordDTO `json:"attendance"`
		Summary     AttendanceSummaryDTO  `json:"summary"`
	}{
		StudentID:   string(student.ID),
		StudentName: student.Name,
		Records:     toAttendanceDTOs(records),
		Summary:     toAttendanceSummaryDTO(core.SummarizeAttendance(records)),
	})
}

// =============================================================================
// TEACHER HANDLERS
// =============================================================================

// ListTeachers returns the school's teachers.
func (h *Handler) ListTeachers(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	teachers, err := h.Teachers.List(r.Context(), scope.School)
	if err != nil {
		writeDomainError(w, "Failed to list teachers", err)
		return
	}
	writeJSON(w, http.StatusOK, teachers)
}

// CreateTeacher registers a teacher.
func (h *Handler) CreateTeacher(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	var req CreateTeacherRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	t := core.Teacher{
		ID:        core.TeacherID(uuid.NewString()),
		School:    scope.School,
		Name:      req.Name,
		Email:     req.Email,
		Role:      core.TeacherRole(req.Role),
		CreatedAt: time.Now(),
	}
	if err := h.Teachers.Insert(r.Context(), t); err != nil {
		writeDomainError(w, "Failed to create teacher", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// =============================================================================
// EVENT HANDLERS
// =============================================================================

// ListEvents returns the school's events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	events, err := h.Events.List(r.Context(), scope.School)
	if err != nil {
		writeDomainError(w, "Failed to list events", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// CreateEvent publishes a school event.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	var req CreateEventRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	date, err := parseDateParam(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD or RFC3339)", err)
		return
	}

	e := core.Event{
		ID:          core.EventID(uuid.NewString()),
		School:      scope.School,
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Audience:    core.EventAudience(req.Audience),
		CreatedBy:   scope.Actor,
		CreatedAt:   time.Now(),
	}
	if err := h.Events.Insert(r.Context(), e); err != nil {
		writeDomainError(w, "Failed to create event", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// DeleteEvent removes an event.
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing scope", nil)
		return
	}
	id := core.EventID(chi.URLParam(r, "id"))
	if err := h.Events.Delete(r.Context(), scope.School, id); err != nil {
		writeDomainError(w, "Failed to delete event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// parseDateParam accepts a date-only or full RFC3339 timestamp.
func parseDateParam(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error kind to an HTTP status.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case core.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case core.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
