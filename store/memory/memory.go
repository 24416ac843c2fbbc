/*
Package memory provides an in-memory implementation of every store
interface, for tests and dev mode.

SEMANTICS:
  Matches the SQLite store: school-scoped lookups, uniqueness constraints
  on schedules / fee structures / payment obligations, and a versioned
  conditional update for payments. All methods are safe for concurrent
  use; the payment conditional update is atomic under the store mutex,
  which is what makes the ledger's CAS loop race-free in tests.
*/
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/campusworks/school-engine/billing"
	"github.com/campusworks/school-engine/core"
	"github.com/campusworks/school-engine/timetable"
)

// Store holds every collection in memory.
type Store struct {
	mu sync.RWMutex

	students      map[core.StudentID]core.Student
	teachers      map[core.TeacherID]core.Teacher
	classes       map[core.ClassID]core.Class
	admins        map[core.AdminID]core.Admin
	events        map[core.EventID]core.Event
	schedules     map[core.ScheduleID]timetable.Schedule
	feeStructures map[core.FeeStructureID]billing.FeeStructure
	payments      map[core.PaymentID]billing.Payment
	attendance    map[core.AttendanceID]core.AttendanceRecord
}

func New() *Store {
	return &Store{
		students:      make(map[core.StudentID]core.Student),
		teachers:      make(map[core.TeacherID]core.Teacher),
		classes:       make(map[core.ClassID]core.Class),
		admins:        make(map[core.AdminID]core.Admin),
		events:        make(map[core.EventID]core.Event),
		schedules:     make(map[core.ScheduleID]timetable.Schedule),
		feeStructures: make(map[core.FeeStructureID]billing.FeeStructure),
		payments:      make(map[core.PaymentID]billing.Payment),
		attendance:    make(map[core.AttendanceID]core.AttendanceRecord),
	}
}

// =============================================================================
// ENTITY VIEWS
// =============================================================================
// Each collection is exposed through a typed view so one Store satisfies
// every interface without method-name collisions.

func (s *Store) Students() core.StudentStore { return (*studentStore)(s) }
func (s *Store) Teachers() core.TeacherStore { return (*teacherStore)(s) }
func (s *Store) Classes() core.ClassStore { return (*classStore)(s) }
func (s *Store) Admins() core.AdminStore { return (*adminStore)(s) }
func (s *Store) Events() core.EventStore { return (*eventStore)(s) }
func (s *Store) Attendance() core.AttendanceStore { return (*attendanceStore)(s) }

type studentStore Store

func (s *studentStore) Insert(ctx context.Context, st core.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
	return nil
}

func (s *studentStore) Get(ctx context.Context, school core.SchoolID, id core.StudentID) (core.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok || st.School != school {
		return core.Student{}, core.ErrNotFound
	}
	return st, nil
}

func (s *studentStore) FindByClass(ctx context.Context, school core.SchoolID, class core.ClassID, activeOnly bool) ([]core.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Student
	for _, st := range s.students {
		if st.School != school || st.Class != class {
			continue
		}
		if activeOnly && !st.Active {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

type teacherStore Store

func (s *teacherStore) Insert(ctx context.Context, t core.Teacher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teachers[t.ID] = t
	return nil
}

func (s *teacherStore) Get(ctx context.Context, school core.SchoolID, id core.TeacherID) (core.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teachers[id]
	if !ok || t.School != school {
		return core.Teacher{}, core.ErrNotFound
	}
	return t, nil
}

func (s *teacherStore) List(ctx context.Context, school core.SchoolID) ([]core.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Teacher
	for _, t := range s.teachers {
		if t.School == school {
			out = append(out, t)
		}
	}
	return out, nil
}

type classStore Store

func (s *classStore) Insert(ctx context.Context, c core.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes[c.ID] = c
	return nil
}

func (s *classStore) Get(ctx context.Context, school core.SchoolID, id core.ClassID) (core.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.classes[id]
	if !ok || c.School != school {
		return core.Class{}, core.ErrNotFound
	}
	return c, nil
}

func (s *classStore) List(ctx context.Context, school core.SchoolID) ([]core.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Class
	for _, c := range s.classes {
		if c.School == school {
			out = append(out, c)
		}
	}
	return out, nil
}

type adminStore Store

func (s *adminStore) Insert(ctx context.Context, a core.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[a.ID] = a
	return nil
}

func (s *adminStore) Get(ctx context.Context, school core.SchoolID, id core.AdminID) (core.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.admins[id]
	if !ok || a.School != school {
		return core.Admin{}, core.ErrNotFound
	}
	return a, nil
}

func (s *adminStore) GetByEmail(ctx context.Context, email string) (core.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return core.Admin{}, core.ErrNotFound
}

func (s *adminStore) SchoolExists(ctx context.Context, school core.SchoolID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.admins {
		if a.School == school {
			return true, nil
		}
	}
	return false, nil
}

type eventStore Store

func (s *eventStore) Insert(ctx context.Context, e core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return nil
}

func (s *eventStore) List(ctx context.Context, school core.SchoolID) ([]core.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Event
	for _, e := range s.events {
		if e.School == school {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *eventStore) Delete(ctx context.Context, school core.SchoolID, id core.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok || e.School != school {
		return core.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type attendanceStore Store

func (s *attendanceStore) Insert(ctx context.Context, rec core.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendance[rec.ID] = rec
	return nil
}

func (s *attendanceStore) FindByStudent(ctx context.Context, school core.SchoolID, student core.StudentID, f core.AttendanceFilter) ([]core.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.AttendanceRecord
	for _, rec := range s.attendance {
		if rec.School != school || rec.Student != student {
			continue
		}
		if !f.From.IsZero() && rec.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && rec.Date.After(f.To) {
			continue
		}
		if f.Subject != "" && rec.Subject != f.Subject {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// =============================================================================
// SCHEDULES
// =============================================================================

// Schedules returns a view implementing timetable.Store.
func (s *Store) Schedules() timetable.Store { return (*scheduleStore)(s) }

type scheduleStore Store

func (s *scheduleStore) Insert(ctx context.Context, sched timetable.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.schedules {
		if existing.School == sched.School && existing.Class == sched.Class &&
			existing.Day == sched.Day && existing.AcademicYear == sched.AcademicYear {
			return core.ErrDuplicateSchedule
		}
	}
	s.schedules[sched.ID] = cloneSchedule(sched)
	return nil
}

func (s *scheduleStore) Update(ctx context.Context, sched timetable.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.schedules[sched.ID]
	if !ok || existing.School != sched.School {
		return core.ErrNotFound
	}
	for _, other := range s.schedules {
		if other.ID != sched.ID && other.School == sched.School && other.Class == sched.Class &&
			other.Day == sched.Day && other.AcademicYear == sched.AcademicYear {
			return core.ErrDuplicateSchedule
		}
	}
	s.schedules[sched.ID] = cloneSchedule(sched)
	return nil
}

func (s *scheduleStore) Get(ctx context.Context, school core.SchoolID, id core.ScheduleID) (timetable.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sched, ok := s.schedules[id]
	if !ok || sched.School != school {
		return timetable.Schedule{}, core.ErrNotFound
	}
	return cloneSchedule(sched), nil
}

func (s *scheduleStore) Find(ctx context.Context, school core.SchoolID, f timetable.Filter) ([]timetable.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []timetable.Schedule
	for _, sched := range s.schedules {
		if sched.School != school {
			continue
		}
		if f.Class != nil && sched.Class != *f.Class {
			continue
		}
		if f.Day != nil && sched.Day != *f.Day {
			continue
		}
		if f.AcademicYear != "" && sched.AcademicYear != f.AcademicYear {
			continue
		}
		if f.ActiveOnly && !sched.Active {
			continue
		}
		if f.Teacher != nil && !teachesIn(sched, *f.Teacher) {
			continue
		}
		out = append(out, cloneSchedule(sched))
	}
	return out, nil
}

func (s *scheduleStore) Delete(ctx context.Context, school core.SchoolID, id core.ScheduleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sched, ok := s.schedules[id]
	if !ok || sched.School != school {
		return core.ErrNotFound
	}
	delete(s.schedules, id)
	return nil
}

func teachesIn(s timetable.Schedule, t core.TeacherID) bool {
	for _, p := range s.Periods {
		if p.Teacher == t {
			return true
		}
	}
	return false
}

func cloneSchedule(s timetable.Schedule) timetable.Schedule {
	out := s
	out.Periods = append([]timetable.Period(nil), s.Periods...)
	return out
}

// =============================================================================
// FEE STRUCTURES
// =============================================================================

// FeeStructures returns a view implementing billing.FeeStructureStore.
func (s *Store) FeeStructures() billing.FeeStructureStore { return (*feeStructureStore)(s) }

type feeStructureStore Store

func (s *feeStructureStore) Insert(ctx context.Context, fs billing.FeeStructure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.feeStructures {
		if existing.School == fs.School && existing.Class == fs.Class &&
			existing.AcademicYear == fs.AcademicYear && existing.Name == fs.Name {
			return core.ErrDuplicateFeeStructure
		}
	}
	s.feeStructures[fs.ID] = cloneFeeStructure(fs)
	return nil
}

func (s *feeStructureStore) Update(ctx context.Context, fs billing.FeeStructure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.feeStructures[fs.ID]
	if !ok || existing.School != fs.School {
		return core.ErrNotFound
	}
	s.feeStructures[fs.ID] = cloneFeeStructure(fs)
	return nil
}

func (s *feeStructureStore) Get(ctx context.Context, school core.SchoolID, id core.FeeStructureID) (billing.FeeStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fs, ok := s.feeStructures[id]
	if !ok || fs.School != school {
		return billing.FeeStructure{}, core.ErrNotFound
	}
	return cloneFeeStructure(fs), nil
}

func (s *feeStructureStore) Find(ctx context.Context, school core.SchoolID, class *core.ClassID, academicYear string) ([]billing.FeeStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []billing.FeeStructure
	for _, fs := range s.feeStructures {
		if fs.School != school {
			continue
		}
		if class != nil && fs.Class != *class {
			continue
		}
		if academicYear != "" && fs.AcademicYear != academicYear {
			continue
		}
		out = append(out, cloneFeeStructure(fs))
	}
	return out, nil
}

func cloneFeeStructure(fs billing.FeeStructure) billing.FeeStructure {
	out := fs
	out.Components = append([]billing.FeeComponent(nil), fs.Components...)
	out.Installments = append([]billing.Installment(nil), fs.Installments...)
	return out
}

// =============================================================================
// PAYMENTS
// =============================================================================

// Payments returns a view implementing billing.PaymentStore.
func (s *Store) Payments() billing.PaymentStore { return (*paymentStore)(s) }

type paymentStore Store

func (s *paymentStore) Insert(ctx context.Context, p billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payments {
		if existing.School != p.School || existing.Type != p.Type {
			continue
		}
		switch p.Type {
		case billing.PaymentFee:
			if existing.Student == p.Student && existing.FeeStructure == p.FeeStructure {
				return core.ErrDuplicatePayment
			}
		case billing.PaymentSalary:
			if existing.Teacher == p.Teacher && existing.SalaryMonth == p.SalaryMonth {
				return core.ErrDuplicatePayment
			}
		}
	}
	s.payments[p.ID] = clonePayment(p)
	return nil
}

func (s *paymentStore) Get(ctx context.Context, school core.SchoolID, id core.PaymentID) (billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok || p.School != school {
		return billing.Payment{}, core.ErrNotFound
	}
	return clonePayment(p), nil
}

func (s *paymentStore) Find(ctx context.Context, school core.SchoolID, f billing.PaymentFilter) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []billing.Payment
	for _, p := range s.payments {
		if p.School != school {
			continue
		}
		if f.Type != "" && p.Type != f.Type {
			continue
		}
		if f.Student != nil && p.Student != *f.Student {
			continue
		}
		if f.Teacher != nil && p.Teacher != *f.Teacher {
			continue
		}
		if f.FeeStructure != nil && p.FeeStructure != *f.FeeStructure {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.SalaryMonth != "" && p.SalaryMonth != f.SalaryMonth {
			continue
		}
		out = append(out, clonePayment(p))
	}
	return out, nil
}

// UpdateIfUnchanged persists p only if the stored version still equals
// expectedVersion. The check and the write are one critical section, which
// gives the ledger its per-payment linearizability.
func (s *paymentStore) UpdateIfUnchanged(ctx context.Context, p billing.Payment, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.payments[p.ID]
	if !ok || existing.School != p.School {
		return core.ErrNotFound
	}
	if existing.Version != expectedVersion {
		return core.ErrConcurrentModification
	}
	s.payments[p.ID] = clonePayment(p)
	return nil
}

func clonePayment(p billing.Payment) billing.Payment {
	out := p
	out.History = append([]billing.HistoryEntry(nil), p.History...)
	return out
}
