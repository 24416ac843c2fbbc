/*
seed.go - Demo data loader for development and demos

PURPOSE:
  Populates an empty store with one realistic school: an admin account,
  classes, teachers, students, a weekly timetable, a fee structure with
  its fanned-out payments, and a salary obligation. Used by the server's
  -seed flag so the API is explorable immediately after startup.

DEMO CREDENTIALS:
  email:    admin@demo.school
  password: admin123

NOTE:
  Seeding is idempotent-ish by accident only: running it against a
  non-empty store fails on the duplicate admin email. Only use against a
  fresh database.

SEE ALSO:
  - cmd/server/main.go: The -seed flag
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusworks/school-engine/billing"
	"github.com/campusworks/school-engine/core"
	"github.com/campusworks/school-engine/timetable"
)

// Seed loads the demo school into the store.
func Seed(ctx context.Context, store Store) error {
	admins := store.Admins()

	schoolID, err := core.GenerateSchoolID(ctx, admins)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	admin := core.Admin{
		ID:           core.AdminID(uuid.NewString()),
		School:       schoolID,
		SchoolName:   "Greenfield Public School",
		Name:         "Demo Admin",
		Email:        "admin@demo.school",
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if err := admins.Insert(ctx, admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	scope := core.Scope{School: schoolID, Actor: admin.ID}

	class := core.Class{
		ID:        core.ClassID(uuid.NewString()),
		School:    schoolID,
		Name:      "Grade 8 - B",
		Grade:     "8",
		Section:   "B",
		Capacity:  40,
		CreatedAt: time.Now(),
	}
	if err := store.Classes().Insert(ctx, class); err != nil {
		return fmt.Errorf("seed class: %w", err)
	}

	teacherNames := []string{"Meera Nair", "Arjun Rao", "Sofia Almeida"}
	teachers := make([]core.Teacher, len(teacherNames))
	for i, name := range teacherNames {
		teachers[i] = core.Teacher{
			ID:        core.TeacherID(uuid.NewString()),
			School:    schoolID,
			Name:      name,
			Email:     fmt.Sprintf("teacher%d@demo.school", i+1),
			Role:      core.RoleSubjectTeacher,
			CreatedAt: time.Now(),
		}
		if err := store.Teachers().Insert(ctx, teachers[i]); err != nil {
			return fmt.Errorf("seed teacher: %w", err)
		}
	}

	studentNames := []string{"Aarav Shetty", "Diya Kulkarni", "Rohan Menon", "Isha Pillai"}
	for i, name := range studentNames {
		st := core.Student{
			ID:         core.StudentID(uuid.NewString()),
			School:     schoolID,
			Name:       name,
			Email:      fmt.Sprintf("student%d@demo.school", i+1),
			RollNumber: fmt.Sprintf("8B-%02d", i+1),
			Class:      class.ID,
			Active:     true,
			CreatedAt:  time.Now(),
		}
		if err := store.Students().Insert(ctx, st); err != nil {
			return fmt.Errorf("seed student: %w", err)
		}
	}

	year := time.Now().Format("2006")
	for _, day := range []timetable.Day{timetable.Monday, timetable.Tuesday, timetable.Wednesday} {
		s := timetable.Schedule{
			ID:     core.ScheduleID(uuid.NewString()),
			School: schoolID,
			Class:  class.ID,
			Day:    day,
			Periods: []timetable.Period{
				{PeriodNumber: 1, Subject: "Mathematics", Teacher: teachers[0].ID, StartTime: "09:00", EndTime: "09:45", Room: "201"},
				{PeriodNumber: 2, Subject: "Science", Teacher: teachers[1].ID, StartTime: "09:45", EndTime: "10:30", Room: "Lab 1"},
				{PeriodNumber: 3, Subject: "English", Teacher: teachers[2].ID, StartTime: "10:45", EndTime: "11:30", Room: "201"},
			},
			AcademicYear: year,
			Active:       true,
			CreatedBy:    admin.ID,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		if err := timetable.PrepareForSave(&s); err != nil {
			return fmt.Errorf("seed schedule: %w", err)
		}
		if err := store.Schedules().Insert(ctx, s); err != nil {
			return fmt.Errorf("seed schedule: %w", err)
		}
	}

	fs := billing.FeeStructure{
		ID:           core.FeeStructureID(uuid.NewString()),
		School:       schoolID,
		Name:         "Annual Fees " + year,
		Class:        class.ID,
		AcademicYear: year,
		Components: []billing.FeeComponent{
			{Name: "Tuition", Amount: decimal.NewFromInt(5000), Type: billing.FeeTuition},
			{Name: "Library", Amount: decimal.NewFromInt(200), Type: billing.FeeLibrary},
			{Name: "Sports", Amount: decimal.NewFromInt(300), Type: billing.FeeSports},
			{Name: "Examination", Amount: decimal.NewFromInt(150), Type: billing.FeeExamination},
		},
		DueDate:   time.Now().AddDate(0, 2, 0),
		Active:    true,
		CreatedBy: admin.ID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := billing.PrepareFeeStructure(&fs); err != nil {
		return fmt.Errorf("seed fee structure: %w", err)
	}
	if err := store.FeeStructures().Insert(ctx, fs); err != nil {
		return fmt.Errorf("seed fee structure: %w", err)
	}

	students, err := store.Students().FindByClass(ctx, schoolID, class.ID, true)
	if err != nil {
		return fmt.Errorf("seed reconcile: %w", err)
	}
	reconciler := billing.NewReconciler(store.Payments())
	for _, res := range reconciler.OnFeeStructureCreated(ctx, scope, fs, students) {
		if res.Err != nil {
			return fmt.Errorf("seed reconcile student %s: %w", res.Student, res.Err)
		}
	}

	ledger := billing.NewLedger(store.Payments())
	month := time.Now().Format("2006-01")
	for _, t := range teachers {
		if _, err := ledger.CreateSalaryObligation(ctx, scope, billing.SalaryInput{
			Teacher:     t.ID,
			Amount:      decimal.NewFromInt(35000),
			SalaryMonth: month,
			DueDate:     time.Now().AddDate(0, 1, 0),
		}); err != nil {
			return fmt.Errorf("seed salary: %w", err)
		}
	}

	return nil
}
