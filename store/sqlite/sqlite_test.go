package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/school-engine/billing"
	"github.com/campusworks/school-engine/core"
	"github.com/campusworks/school-engine/store/sqlite"
	"github.com/campusworks/school-engine/timetable"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const school = core.SchoolID("SCH001")

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func testSchedule(id string, day timetable.Day) timetable.Schedule {
	return timetable.Schedule{
		ID:     core.ScheduleID(id),
		School: school,
		Class:  "class-a",
		Day:    day,
		Periods: []timetable.Period{
			{PeriodNumber: 1, Subject: "Mathematics", Teacher: "teacher-x", StartTime: "09:00", EndTime: "09:45", Room: "201"},
			{PeriodNumber: 2, Subject: "Science", Teacher: "teacher-y", StartTime: "09:45", EndTime: "10:30"},
		},
		AcademicYear: "2026",
		Active:       true,
		CreatedBy:    "admin-1",
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func testFeePayment(id, studentID string) billing.Payment {
	p := billing.Payment{
		ID:           core.PaymentID(id),
		School:       school,
		Type:         billing.PaymentFee,
		Student:      core.StudentID(studentID),
		FeeStructure: "fs-1",
		Amount:       d(5650),
		PaidAmount:   decimal.Zero,
		PaymentDate:  time.Now().UTC(),
		DueDate:      time.Now().UTC().AddDate(0, 2, 0),
		Method:       billing.MethodPending,
		CreatedBy:    "admin-1",
		CreatedAt:    time.Now().UTC(),
	}
	billing.Recompute(&p, time.Now().UTC())
	return p
}

// =============================================================================
// ENTITY ROUNDTRIPS AND TENANCY
// =============================================================================

func TestStudents_RoundtripAndClassFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	students := store.Students()

	require.NoError(t, students.Insert(ctx, core.Student{
		ID: "s1", School: school, Name: "Aarav", Email: "a@x.test",
		RollNumber: "8B-01", Class: "class-a", Active: true, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, students.Insert(ctx, core.Student{
		ID: "s2", School: school, Name: "Diya", Email: "d@x.test",
		RollNumber: "8B-02", Class: "class-a", Active: false, CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, students.Insert(ctx, core.Student{
		ID: "s3", School: school, Name: "Rohan", Email: "r@x.test",
		RollNumber: "7A-01", Class: "class-b", Active: true, CreatedAt: time.Now().UTC(),
	}))

	got, err := students.Get(ctx, school, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Aarav", got.Name)
	assert.Equal(t, core.ClassID("class-a"), got.Class)

	all, err := students.FindByClass(ctx, school, "class-a", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := students.FindByClass(ctx, school, "class-a", true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, core.StudentID("s1"), active[0].ID)
}

func TestStudents_CrossSchoolLookupIsNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Students().Insert(ctx, core.Student{
		ID: "s1", School: school, Name: "Aarav", Active: true, CreatedAt: time.Now().UTC(),
	}))

	_, err := store.Students().Get(ctx, "SCH002", "s1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAdmins_EmailLookupAndSchoolExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	admins := store.Admins()

	require.NoError(t, admins.Insert(ctx, core.Admin{
		ID: "a1", School: school, SchoolName: "Greenfield", Name: "Admin",
		Email: "admin@x.test", PasswordHash: "hash", Active: true, CreatedAt: time.Now().UTC(),
	}))

	got, err := admins.GetByEmail(ctx, "admin@x.test")
	require.NoError(t, err)
	assert.Equal(t, school, got.School)
	assert.Equal(t, "Greenfield", got.SchoolName)

	exists, err := admins.SchoolExists(ctx, school)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = admins.SchoolExists(ctx, "SCH099")
	require.NoError(t, err)
	assert.False(t, exists)

	// Duplicate email rejected
	err = admins.Insert(ctx, core.Admin{
		ID: "a2", School: "SCH002", Name: "Other",
		Email: "admin@x.test", PasswordHash: "hash", Active: true, CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, core.ErrValidation)
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func attendanceMark(id string, date time.Time, status core.AttendanceStatus, subject string) core.AttendanceRecord {
	return core.AttendanceRecord{
		ID:         core.AttendanceID(id),
		School:     school,
		Student:    "s1",
		Date:       date,
		Status:     status,
		Subject:    subject,
		RecordedBy: "admin-1",
		CreatedAt:  time.Now().UTC(),
	}
}

func TestAttendance_RoundtripAndFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	att := store.Attendance()
	day := func(d int) time.Time { return time.Date(2026, time.September, d, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, att.Insert(ctx, attendanceMark("att-1", day(1), core.AttendancePresent, "Mathematics")))
	require.NoError(t, att.Insert(ctx, attendanceMark("att-2", day(2), core.AttendanceAbsent, "Science")))
	require.NoError(t, att.Insert(ctx, attendanceMark("att-3", day(3), core.AttendanceLate, "Mathematics")))

	// All records, date ascending
	all, err := att.FindByStudent(ctx, school, "s1", core.AttendanceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, core.AttendanceID("att-1"), all[0].ID)
	assert.Equal(t, core.AttendancePresent, all[0].Status)

	// Date range
	ranged, err := att.FindByStudent(ctx, school, "s1", core.AttendanceFilter{From: day(2), To: day(3)})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	// Subject filter
	math, err := att.FindByStudent(ctx, school, "s1", core.AttendanceFilter{Subject: "Mathematics"})
	require.NoError(t, err)
	assert.Len(t, math, 2)

	// Other student and other school see nothing
	other, err := att.FindByStudent(ctx, school, "s2", core.AttendanceFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
	other, err = att.FindByStudent(ctx, "SCH002", "s1", core.AttendanceFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

// =============================================================================
// SCHEDULES
// =============================================================================

func TestSchedules_RoundtripPreservesPeriods(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	s := testSchedule("sched-1", timetable.Monday)
	require.NoError(t, store.Schedules().Insert(ctx, s))

	got, err := store.Schedules().Get(ctx, school, "sched-1")
	require.NoError(t, err)
	require.Len(t, got.Periods, 2)
	assert.Equal(t, "Mathematics", got.Periods[0].Subject)
	assert.Equal(t, "09:45", got.Periods[1].StartTime)
	assert.Equal(t, timetable.Monday, got.Day)
	assert.Equal(t, "2026", got.AcademicYear)
}

func TestSchedules_UniquePerClassDayYear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Schedules().Insert(ctx, testSchedule("sched-1", timetable.Monday)))

	// Same class, day, and year under a different id
	err := store.Schedules().Insert(ctx, testSchedule("sched-2", timetable.Monday))
	assert.ErrorIs(t, err, core.ErrDuplicateSchedule)

	// A different day is fine
	assert.NoError(t, store.Schedules().Insert(ctx, testSchedule("sched-3", timetable.Tuesday)))
}

func TestSchedules_UpdateOntoOccupiedDayConflicts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Schedules().Insert(ctx, testSchedule("sched-1", timetable.Monday)))
	require.NoError(t, store.Schedules().Insert(ctx, testSchedule("sched-2", timetable.Tuesday)))

	// WHEN: Moving Tuesday's schedule onto the already-occupied Monday slot
	moved := testSchedule("sched-2", timetable.Monday)
	err := store.Schedules().Update(ctx, moved)

	// THEN: The uniqueness invariant holds on update, not just insert
	assert.ErrorIs(t, err, core.ErrDuplicateSchedule)
	got, err := store.Schedules().Get(ctx, school, "sched-2")
	require.NoError(t, err)
	assert.Equal(t, timetable.Tuesday, got.Day)

	// An update that keeps its own slot is not a self-collision
	assert.NoError(t, store.Schedules().Update(ctx, testSchedule("sched-2", timetable.Tuesday)))
}

func TestSchedules_FindByTeacher(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Schedules().Insert(ctx, testSchedule("sched-1", timetable.Monday)))

	teacher := core.TeacherID("teacher-x")
	found, err := store.Schedules().Find(ctx, school, timetable.Filter{Teacher: &teacher})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	missing := core.TeacherID("teacher-z")
	found, err = store.Schedules().Find(ctx, school, timetable.Filter{Teacher: &missing})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSchedules_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Schedules().Insert(ctx, testSchedule("sched-1", timetable.Monday)))

	require.NoError(t, store.Schedules().Delete(ctx, school, "sched-1"))
	_, err := store.Schedules().Get(ctx, school, "sched-1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, store.Schedules().Delete(ctx, school, "sched-1"), core.ErrNotFound)
}

// =============================================================================
// FEE STRUCTURES
// =============================================================================

func testFeeStructure(id, name string) billing.FeeStructure {
	fs := billing.FeeStructure{
		ID:           core.FeeStructureID(id),
		School:       school,
		Name:         name,
		Class:        "class-a",
		AcademicYear: "2026",
		Components: []billing.FeeComponent{
			{Name: "Tuition", Amount: d(5000), Type: billing.FeeTuition},
			{Name: "Library", Amount: d(650), Type: billing.FeeLibrary},
		},
		DueDate:   time.Now().UTC().AddDate(0, 2, 0),
		Active:    true,
		CreatedBy: "admin-1",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	fs.TotalAmount = billing.ComputeFeeTotal(fs.Components)
	return fs
}

func TestFeeStructures_RoundtripPreservesMoney(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	fs := testFeeStructure("fs-1", "Annual Fees")
	require.NoError(t, store.FeeStructures().Insert(ctx, fs))

	got, err := store.FeeStructures().Get(ctx, school, "fs-1")
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(d(5650)), "total %s", got.TotalAmount)
	require.Len(t, got.Components, 2)
	assert.True(t, got.Components[0].Amount.Equal(d(5000)))
}

func TestFeeStructures_UniqueNamePerClassYear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.FeeStructures().Insert(ctx, testFeeStructure("fs-1", "Annual Fees")))

	err := store.FeeStructures().Insert(ctx, testFeeStructure("fs-2", "Annual Fees"))
	assert.ErrorIs(t, err, core.ErrDuplicateFeeStructure)

	assert.NoError(t, store.FeeStructures().Insert(ctx, testFeeStructure("fs-3", "Transport Fees")))
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestPayments_RoundtripPreservesHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p := testFeePayment("pay-1", "s1")
	p.History = []billing.HistoryEntry{{
		Amount:         d(1000),
		PaymentDate:    time.Now().UTC(),
		Method:         billing.MethodCash,
		TransactionRef: "TXN-01",
		RecordedBy:     "admin-1",
	}}
	require.NoError(t, store.Payments().Insert(ctx, p))

	got, err := store.Payments().Get(ctx, school, "pay-1")
	require.NoError(t, err)
	require.Len(t, got.History, 1)
	assert.True(t, got.History[0].Amount.Equal(d(1000)))
	assert.Equal(t, billing.MethodCash, got.History[0].Method)
	assert.Equal(t, "TXN-01", got.History[0].TransactionRef)
}

func TestPayments_FeeObligationUniquePerStudentStructure(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Payments().Insert(ctx, testFeePayment("pay-1", "s1")))

	// Same student and structure, new id
	err := store.Payments().Insert(ctx, testFeePayment("pay-2", "s1"))
	assert.ErrorIs(t, err, core.ErrDuplicatePayment)

	// Different student is fine
	assert.NoError(t, store.Payments().Insert(ctx, testFeePayment("pay-3", "s2")))
}

func TestPayments_SalaryObligationUniquePerTeacherMonth(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	salary := func(id string, month string) billing.Payment {
		p := billing.Payment{
			ID: core.PaymentID(id), School: school, Type: billing.PaymentSalary,
			Teacher: "teacher-x", SalaryMonth: month,
			Amount: d(35000), PaidAmount: decimal.Zero,
			PaymentDate: time.Now().UTC(), DueDate: time.Now().UTC().AddDate(0, 1, 0),
			Method: billing.MethodPending, CreatedBy: "admin-1", CreatedAt: time.Now().UTC(),
		}
		billing.Recompute(&p, time.Now().UTC())
		return p
	}
	require.NoError(t, store.Payments().Insert(ctx, salary("pay-1", "2026-09")))

	err := store.Payments().Insert(ctx, salary("pay-2", "2026-09"))
	assert.ErrorIs(t, err, core.ErrDuplicatePayment)

	assert.NoError(t, store.Payments().Insert(ctx, salary("pay-3", "2026-10")))
}

func TestPayments_FindFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Payments().Insert(ctx, testFeePayment("pay-1", "s1")))
	require.NoError(t, store.Payments().Insert(ctx, testFeePayment("pay-2", "s2")))

	studentID := core.StudentID("s1")
	found, err := store.Payments().Find(ctx, school, billing.PaymentFilter{Student: &studentID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, core.PaymentID("pay-1"), found[0].ID)

	found, err = store.Payments().Find(ctx, school, billing.PaymentFilter{Status: billing.StatusPending})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = store.Payments().Find(ctx, school, billing.PaymentFilter{Type: billing.PaymentSalary})
	require.NoError(t, err)
	assert.Empty(t, found)
}

// =============================================================================
// OPTIMISTIC CONCURRENCY
// =============================================================================

func TestPayments_UpdateIfUnchanged(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Payments().Insert(ctx, testFeePayment("pay-1", "s1")))

	// GIVEN: The stored row at version 0
	p, err := store.Payments().Get(ctx, school, "pay-1")
	require.NoError(t, err)
	require.EqualValues(t, 0, p.Version)

	// WHEN: Writing with the matching expected version
	p.PaidAmount = d(1000)
	billing.Recompute(&p, time.Now().UTC())
	p.Version = 1
	require.NoError(t, store.Payments().UpdateIfUnchanged(ctx, p, 0))

	// THEN: The write landed and the version advanced
	got, err := store.Payments().Get(ctx, school, "pay-1")
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.Equal(d(1000)))
	assert.EqualValues(t, 1, got.Version)

	// WHEN: Writing again with the stale expected version
	p.Version = 1
	err = store.Payments().UpdateIfUnchanged(ctx, p, 0)

	// THEN: Conflict, not silent overwrite
	assert.ErrorIs(t, err, core.ErrConcurrentModification)
}

func TestPayments_UpdateIfUnchanged_MissingRowIsNotFound(t *testing.T) {
	store := newTestStore(t)
	p := testFeePayment("ghost", "s1")
	err := store.Payments().UpdateIfUnchanged(context.Background(), p, 0)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
