/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. RequireAuth on everything under /api except /api/auth/*

ROUTE GROUPS:
  /api/auth/*        Registration and login (public)
  /api/classes/*     Class registry
  /api/students/*    Student registry
  /api/teachers/*    Teacher registry
  /api/events/*      School events
  /api/schedules/*   Timetables and projections
  /api/fees/*        Fee structures
  /api/payments/*    Payment ledger
  /api/salaries/*    Salary obligations

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Public auth routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
		})

		// Everything else requires a valid admin token
		r.Group(func(r chi.Router) {
			r.Use(h.RequireAuth)

			r.Route("/classes", func(r chi.Router) {
				r.Get("/", h.ListClasses)
				r.Post("/", h.CreateClass)
			})

			r.Route("/students", func(r chi.Router) {
				r.Get("/", h.ListStudents)
				r.Post("/", h.CreateStudent)
				r.Post("/{id}/attendance", h.RecordAttendance)
				r.Get("/{id}/attendance", h.ListAttendance)
			})

			r.Route("/teachers", func(r chi.Router) {
				r.Get("/", h.ListTeachers)
				r.Post("/", h.CreateTeacher)
			})

			r.Route("/events", func(r chi.Router) {
				r.Get("/", h.ListEvents)
				r.Post("/", h.CreateEvent)
				r.Delete("/{id}", h.DeleteEvent)
			})

			r.Route("/schedules", func(r chi.Router) {
				r.Get("/", h.ListSchedules)
				r.Post("/", h.CreateSchedule)
				r.Put("/{id}", h.UpdateSchedule)
				r.Delete("/{id}", h.DeleteSchedule)

				r.Get("/class/{classID}/daily/{day}", h.ClassDaily)
				r.Get("/class/{classID}/weekly", h.ClassWeekly)
				r.Get("/teacher/{teacherID}/daily/{day}", h.TeacherDaily)
				r.Get("/teacher/{teacherID}/weekly", h.TeacherWeekly)
				r.Get("/rooms/{day}", h.RoomUtilization)
			})

			r.Route("/fees", func(r chi.Router) {
				r.Route("/structures", func(r chi.Router) {
					r.Get("/", h.ListFeeStructures)
					r.Post("/", h.CreateFeeStructure)
					r.Get("/{id}", h.GetFeeStructure)
					r.Get("/{id}/payments", h.FeeStructurePayments)
				})
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", h.ListPayments)
				r.Get("/{id}", h.GetPayment)
				r.Post("/{id}/record", h.RecordPayment)
			})

			r.Route("/salaries", func(r chi.Router) {
				r.Post("/", h.CreateSalary)
			})
		})
	})

	return r
}
