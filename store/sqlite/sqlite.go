/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements every persistence interface (entity registries, schedules,
  fee structures, payments) over database/sql + SQLite. The same schema
  and patterns carry to PostgreSQL with only dialect changes.

UNIQUENESS CONSTRAINTS:
  Duplicate prevention is the database's job, not in-process locking,
  because multiple service instances may run concurrently:
  - idx_schedules_unique:        (school, class, day, academic year)
  - idx_fee_structures_unique:   (school, class, academic year, name)
  - idx_payments_fee_unique:     (school, student, fee structure)
  - idx_payments_salary_unique:  (school, teacher, salary month)
  Violations are mapped back to the core sentinel errors by index name.

OPTIMISTIC CONCURRENCY:
  payments carries a version column. UpdateIfUnchanged issues
  UPDATE ... WHERE id = ? AND version = ?; zero rows affected means the
  row changed under the caller (or vanished), which the ledger's CAS loop
  handles.

WAL MODE:
  SQLite is opened with WAL so readers don't block the single writer.

SERIALIZATION:
  Money is stored as decimal strings, timestamps as RFC3339, and the
  owned collections (periods, fee components, installments, history) as
  JSON columns - they are only ever read and written with their parent.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/campusworks/school-engine/billing"
	"github.com/campusworks/school-engine/core"
	"github.com/campusworks/school-engine/timetable"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) a SQLite store. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS admins (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		school_name TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_admins_school ON admins(school_id);

	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		roll_number TEXT,
		class_id TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_students_school_class ON students(school_id, class_id, active);

	CREATE TABLE IF NOT EXISTS teachers (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_teachers_school ON teachers(school_id);

	CREATE TABLE IF NOT EXISTS classes (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		name TEXT NOT NULL,
		grade TEXT,
		section TEXT,
		capacity INTEGER NOT NULL DEFAULT 40,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_classes_school ON classes(school_id);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		date TEXT NOT NULL,
		audience TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_school_date ON events(school_id, date);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		subject TEXT NOT NULL,
		remarks TEXT,
		recorded_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attendance_student_date
		ON attendance(school_id, student_id, date);

	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		class_id TEXT NOT NULL,
		day_of_week TEXT NOT NULL,
		periods_json TEXT NOT NULL,
		academic_year TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	-- One schedule per class per day per year. Enforced here, not by
	-- in-process locking: multiple instances may write concurrently.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_schedules_unique
		ON schedules(school_id, class_id, day_of_week, academic_year);
	CREATE INDEX IF NOT EXISTS idx_schedules_school_day
		ON schedules(school_id, day_of_week, academic_year, active);

	CREATE TABLE IF NOT EXISTS fee_structures (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		name TEXT NOT NULL,
		class_id TEXT NOT NULL,
		academic_year TEXT NOT NULL,
		components_json TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		due_date TEXT NOT NULL,
		installments_json TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_fee_structures_unique
		ON fee_structures(school_id, class_id, academic_year, name);
	CREATE INDEX IF NOT EXISTS idx_fee_structures_school
		ON fee_structures(school_id, class_id, academic_year);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		payment_type TEXT NOT NULL,
		student_id TEXT,
		fee_structure_id TEXT,
		teacher_id TEXT,
		salary_month TEXT,
		amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		remaining_amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		status TEXT NOT NULL,
		method TEXT NOT NULL,
		transaction_ref TEXT,
		remarks TEXT,
		history_json TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0
	);
	-- One obligation per student per fee structure...
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_fee_unique
		ON payments(school_id, student_id, fee_structure_id)
		WHERE payment_type = 'fee';
	-- ...and one salary per teacher per month.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_salary_unique
		ON payments(school_id, teacher_id, salary_month)
		WHERE payment_type = 'salary';
	CREATE INDEX IF NOT EXISTS idx_payments_school_type_status
		ON payments(school_id, payment_type, status);
	CREATE INDEX IF NOT EXISTS idx_payments_school_due
		ON payments(school_id, due_date, status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENTITY VIEWS
// =============================================================================

func (s *Store) Students() core.StudentStore { return (*studentStore)(s) }
func (s *Store) Teachers() core.TeacherStore { return (*teacherStore)(s) }
func (s *Store) Classes() core.ClassStore { return (*classStore)(s) }
func (s *Store) Admins() core.AdminStore { return (*adminStore)(s) }
func (s *Store) Events() core.EventStore { return (*eventStore)(s) }
func (s *Store) Attendance() core.AttendanceStore { return (*attendanceStore)(s) }
func (s *Store) Schedules() timetable.Store { return (*scheduleStore)(s) }
func (s *Store) FeeStructures() billing.FeeStructureStore { return (*feeStructureStore)(s) }
func (s *Store) Payments() billing.PaymentStore { return (*paymentStore)(s) }

// =============================================================================
// STUDENTS
// =============================================================================

type studentStore Store

func (s *studentStore) Insert(ctx context.Context, st core.Student) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, school_id, name, email, roll_number, class_id, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.School, st.Name, st.Email, st.RollNumber, string(st.Class), st.Active,
		formatTime(st.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert student: %w", err)
	}
	return nil
}

func (s *studentStore) Get(ctx context.Context, school core.SchoolID, id core.StudentID) (core.Student, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, school_id, name, email, roll_number, class_id, active, created_at
		FROM students WHERE id = ? AND school_id = ?`, id, school)
	return scanStudent(row)
}

func (s *studentStore) FindByClass(ctx context.Context, school core.SchoolID, class core.ClassID, activeOnly bool) ([]core.Student, error) {
	query := `
		SELECT id, school_id, name, email, roll_number, class_id, active, created_at
		FROM students WHERE school_id = ? AND class_id = ?`
	args := []any{school, string(class)}
	if activeOnly {
		query += ` AND active = TRUE`
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var out []core.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (core.Student, error) {
	var st core.Student
	var class, createdAt string
	err := row.Scan(&st.ID, &st.School, &st.Name, &st.Email, &st.RollNumber, &class, &st.Active, &createdAt)
	if err == sql.ErrNoRows {
		return core.Student{}, core.ErrNotFound
	}
	if err != nil {
		return core.Student{}, fmt.Errorf("failed to scan student: %w", err)
	}
	st.Class = core.ClassID(class)
	st.CreatedAt = parseTime(createdAt)
	return st, nil
}

// =============================================================================
// TEACHERS
// =============================================================================

type teacherStore Store

func (s *teacherStore) Insert(ctx context.Context, t core.Teacher) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teachers (id, school_id, name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.School, t.Name, t.Email, t.Role, formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert teacher: %w", err)
	}
	return nil
}

func (s *teacherStore) Get(ctx context.Context, school core.SchoolID, id core.TeacherID) (core.Teacher, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, school_id, name, email, role, created_at
		FROM teachers WHERE id = ? AND school_id = ?`, id, school)
	return scanTeacher(row)
}

func (s *teacherStore) List(ctx context.Context, school core.SchoolID) ([]core.Teacher, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, school_id, name, email, role, created_at
		FROM teachers WHERE school_id = ? ORDER BY name`, school)
	if err != nil {
		return nil, fmt.Errorf("failed to query teachers: %w", err)
	}
	defer rows.Close()

	var out []core.Teacher
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTeacher(row rowScanner) (core.Teacher, error) {
	var t core.Teacher
	var createdAt string
	err := row.Scan(&t.ID, &t.School, &t.Name, &t.Email, &t.Role, &createdAt)
	if err == sql.ErrNoRows {
		return core.Teacher{}, core.ErrNotFound
	}
	if err != nil {
		return core.Teacher{}, fmt.Errorf("failed to scan teacher: %w", err)
	}
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

// =============================================================================
// CLASSES
// =============================================================================

type classStore Store

func (s *classStore) Insert(ctx context.Context, c core.Class) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO classes (id, school_id, name, grade, section, capacity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.School, c.Name, c.Grade, c.Section, c.Capacity, formatTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert class: %w", err)
	}
	return nil
}

func (s *classStore) Get(ctx context.Context, school core.SchoolID, id core.ClassID) (core.Class, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, school_id, name, grade, section, capacity, created_at
		FROM classes WHERE id = ? AND school_id = ?`, id, school)
	return scanClass(row)
}

func (s *classStore) List(ctx context.Context, school core.SchoolID) ([]core.Class, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, school_id, name, grade, section, capacity, created_at
		FROM classes WHERE school_id = ? ORDER BY grade, section`, school)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	var out []core.Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanClass(row rowScanner) (core.Class, error) {
	var c core.Class
	var createdAt string
	err := row.Scan(&c.ID, &c.School, &c.Name, &c.Grade, &c.Section, &c.Capacity, &createdAt)
	if err == sql.ErrNoRows {
		return core.Class{}, core.ErrNotFound
	}
	if err != nil {
		return core.Class{}, fmt.Errorf("failed to scan class: %w", err)
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

// =============================================================================
// ADMINS
// =============================================================================

type adminStore Store

func (s *adminStore) Insert(ctx context.Context, a core.Admin) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, school_id, school_name, name, email, password_hash, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.School, a.SchoolName, a.Name, a.Email, a.PasswordHash, a.Active, formatTime(a.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("admin email already registered: %w", core.ErrValidation)
		}
		return fmt.Errorf("failed to insert admin: %w", err)
	}
	return nil
}

func (s *adminStore) Get(ctx context.Context, school core.SchoolID, id core.AdminID) (core.Admin, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, school_id, school_name, name, email, password_hash, active, created_at
		FROM admins WHERE id = ? AND school_id = ?`, id, school)
	return scanAdmin(row)
}

func (s *adminStore) GetByEmail(ctx context.Context, email string) (core.Admin, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, school_id, school_name, name, email, password_hash, active, created_at
		FROM admins WHERE email = ?`, email)
	return scanAdmin(row)
}

func (s *adminStore) SchoolExists(ctx context.Context, school core.SchoolID) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM admins WHERE school_id = ?`, school).Scan(&count)
	return count > 0, err
}

func scanAdmin(row rowScanner) (core.Admin, error) {
	var a core.Admin
	var createdAt string
	err := row.Scan(&a.ID, &a.School, &a.SchoolName, &a.Name, &a.Email, &a.PasswordHash, &a.Active, &createdAt)
	if err == sql.ErrNoRows {
		return core.Admin{}, core.ErrNotFound
	}
	if err != nil {
		return core.Admin{}, fmt.Errorf("failed to scan admin: %w", err)
	}
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

// =============================================================================
// EVENTS
// =============================================================================

type eventStore Store

func (s *eventStore) Insert(ctx context.Context, e core.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, school_id, title, description, date, audience, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.School, e.Title, e.Description, formatTime(e.Date), e.Audience, e.CreatedBy,
		formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *eventStore) List(ctx context.Context, school core.SchoolID) ([]core.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, school_id, title, description, date, audience, created_by, created_at
		FROM events WHERE school_id = ? ORDER BY date`, school)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []core.Event
	for rows.Next() {
		var e core.Event
		var date, createdAt string
		if err := rows.Scan(&e.ID, &e.School, &e.Title, &e.Description, &date, &e.Audience, &e.CreatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Date = parseTime(date)
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *eventStore) Delete(ctx context.Context, school core.SchoolID, id core.EventID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = ? AND school_id = ?`, id, school)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type attendanceStore Store

func (s *attendanceStore) Insert(ctx context.Context, rec core.AttendanceRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance (id, school_id, student_id, date, status, subject, remarks, recorded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.School, rec.Student, formatTime(rec.Date), rec.Status, rec.Subject,
		rec.Remarks, rec.RecordedBy, formatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert attendance record: %w", err)
	}
	return nil
}

func (s *attendanceStore) FindByStudent(ctx context.Context, school core.SchoolID, student core.StudentID, f core.AttendanceFilter) ([]core.AttendanceRecord, error) {
	query := `
		SELECT id, school_id, student_id, date, status, subject, remarks, recorded_by, created_at
		FROM attendance WHERE school_id = ? AND student_id = ?`
	args := []any{school, student}
	if !f.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, formatTime(f.To))
	}
	if f.Subject != "" {
		query += ` AND subject = ?`
		args = append(args, f.Subject)
	}
	query += ` ORDER BY date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var out []core.AttendanceRecord
	for rows.Next() {
		var rec core.AttendanceRecord
		var date, createdAt string
		if err := rows.Scan(&rec.ID, &rec.School, &rec.Student, &date, &rec.Status, &rec.Subject,
			&rec.Remarks, &rec.RecordedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		rec.Date = parseTime(date)
		rec.CreatedAt = parseTime(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// =============================================================================
// SCHEDULES
// =============================================================================

type scheduleStore Store

func (s *scheduleStore) Insert(ctx context.Context, sched timetable.Schedule) error {
	periodsJSON, err := json.Marshal(sched.Periods)
	if err != nil {
		return fmt.Errorf("failed to encode periods: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, school_id, class_id, day_of_week, periods_json,
			academic_year, active, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sched.ID, sched.School, sched.Class, sched.Day, string(periodsJSON),
		sched.AcademicYear, sched.Active, sched.CreatedBy,
		formatTime(sched.CreatedAt), formatTime(sched.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return core.ErrDuplicateSchedule
		}
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

func (s *scheduleStore) Update(ctx context.Context, sched timetable.Schedule) error {
	periodsJSON, err := json.Marshal(sched.Periods)
	if err != nil {
		return fmt.Errorf("failed to encode periods: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE schedules
		SET class_id = ?, day_of_week = ?, periods_json = ?, academic_year = ?,
			active = ?, updated_at = ?
		WHERE id = ? AND school_id = ?`,
		sched.Class, sched.Day, string(periodsJSON), sched.AcademicYear,
		sched.Active, formatTime(sched.UpdatedAt), sched.ID, sched.School)
	if err != nil {
		if isUniqueConstraintError(err) {
			return core.ErrDuplicateSchedule
		}
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *scheduleStore) Get(ctx context.Context, school core.SchoolID, id core.ScheduleID) (timetable.Schedule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, school_id, class_id, day_of_week, periods_json, academic_year,
			active, created_by, created_at, updated_at
		FROM schedules WHERE id = ? AND school_id = ?`, id, school)
	return scanSchedule(row)
}

func (s *scheduleStore) Find(ctx context.Context, school core.SchoolID, f timetable.Filter) ([]timetable.Schedule, error) {
	query := `
		SELECT id, school_id, class_id, day_of_week, periods_json, academic_year,
			active, created_by, created_at, updated_at
		FROM schedules WHERE school_id = ?`
	args := []any{school}
	if f.Class != nil {
		query += ` AND class_id = ?`
		args = append(args, *f.Class)
	}
	if f.Day != nil {
		query += ` AND day_of_week = ?`
		args = append(args, *f.Day)
	}
	if f.AcademicYear != "" {
		query += ` AND academic_year = ?`
		args = append(args, f.AcademicYear)
	}
	if f.ActiveOnly {
		query += ` AND active = TRUE`
	}
	query += ` ORDER BY day_of_week, class_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var out []timetable.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		// Period-level teacher filtering happens here: the periods live in a
		// JSON column, so the match cannot be pushed into the WHERE clause.
		if f.Teacher != nil && !scheduleHasTeacher(sched, *f.Teacher) {
			continue
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

func (s *scheduleStore) Delete(ctx context.Context, school core.SchoolID, id core.ScheduleID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM schedules WHERE id = ? AND school_id = ?`, id, school)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scheduleHasTeacher(s timetable.Schedule, t core.TeacherID) bool {
	for _, p := range s.Periods {
		if p.Teacher == t {
			return true
		}
	}
	return false
}

func scanSchedule(row rowScanner) (timetable.Schedule, error) {
	var sched timetable.Schedule
	var periodsJSON, createdAt, updatedAt string
	err := row.Scan(&sched.ID, &sched.School, &sched.Class, &sched.Day, &periodsJSON,
		&sched.AcademicYear, &sched.Active, &sched.CreatedBy, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return timetable.Schedule{}, core.ErrNotFound
	}
	if err != nil {
		return timetable.Schedule{}, fmt.Errorf("failed to scan schedule: %w", err)
	}
	if err := json.Unmarshal([]byte(periodsJSON), &sched.Periods); err != nil {
		return timetable.Schedule{}, fmt.Errorf("failed to decode periods: %w", err)
	}
	sched.CreatedAt = parseTime(createdAt)
	sched.UpdatedAt = parseTime(updatedAt)
	return sched, nil
}

// =============================================================================
// FEE STRUCTURES
// =============================================================================

type feeStructureStore Store

func (s *feeStructureStore) Insert(ctx context.Context, fs billing.FeeStructure) error {
	componentsJSON, installmentsJSON, err := encodeFeeStructure(fs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fee_structures (id, school_id, name, class_id, academic_year,
			components_json, total_amount, due_date, installments_json, active,
			created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fs.ID, fs.School, fs.Name, fs.Class, fs.AcademicYear,
		componentsJSON, fs.TotalAmount.String(), formatTime(fs.DueDate), installmentsJSON,
		fs.Active, fs.CreatedBy, formatTime(fs.CreatedAt), formatTime(fs.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return core.ErrDuplicateFeeStructure
		}
		return fmt.Errorf("failed to insert fee structure: %w", err)
	}
	return nil
}

func (s *feeStructureStore) Update(ctx context.Context, fs billing.FeeStructure) error {
	componentsJSON, installmentsJSON, err := encodeFeeStructure(fs)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE fee_structures
		SET name = ?, components_json = ?, total_amount = ?, due_date = ?,
			installments_json = ?, active = ?, updated_at = ?
		WHERE id = ? AND school_id = ?`,
		fs.Name, componentsJSON, fs.TotalAmount.String(), formatTime(fs.DueDate),
		installmentsJSON, fs.Active, formatTime(fs.UpdatedAt), fs.ID, fs.School)
	if err != nil {
		if isUniqueConstraintError(err) {
			return core.ErrDuplicateFeeStructure
		}
		return fmt.Errorf("failed to update fee structure: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *feeStructureStore) Get(ctx context.Context, school core.SchoolID, id core.FeeStructureID) (billing.FeeStructure, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, school_id, name, class_id, academic_year, components_json,
			total_amount, due_date, installments_json, active, created_by,
			created_at, updated_at
		FROM fee_structures WHERE id = ? AND school_id = ?`, id, school)
	return scanFeeStructure(row)
}

func (s *feeStructureStore) Find(ctx context.Context, school core.SchoolID, class *core.ClassID, academicYear string) ([]billing.FeeStructure, error) {
	query := `
		SELECT id, school_id, name, class_id, academic_year, components_json,
			total_amount, due_date, installments_json, active, created_by,
			created_at, updated_at
		FROM fee_structures WHERE school_id = ?`
	args := []any{school}
	if class != nil {
		query += ` AND class_id = ?`
		args = append(args, *class)
	}
	if academicYear != "" {
		query += ` AND academic_year = ?`
		args = append(args, academicYear)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fee structures: %w", err)
	}
	defer rows.Close()

	var out []billing.FeeStructure
	for rows.Next() {
		fs, err := scanFeeStructure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}

func encodeFeeStructure(fs billing.FeeStructure) (components, installments string, err error) {
	componentsJSON, err := json.Marshal(fs.Components)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode fee components: %w", err)
	}
	installmentsJSON, err := json.Marshal(fs.Installments)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode installments: %w", err)
	}
	return string(componentsJSON), string(installmentsJSON), nil
}

func scanFeeStructure(row rowScanner) (billing.FeeStructure, error) {
	var fs billing.FeeStructure
	var componentsJSON, installmentsJSON, total, dueDate, createdAt, updatedAt string
	err := row.Scan(&fs.ID, &fs.School, &fs.Name, &fs.Class, &fs.AcademicYear,
		&componentsJSON, &total, &dueDate, &installmentsJSON, &fs.Active,
		&fs.CreatedBy, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return billing.FeeStructure{}, core.ErrNotFound
	}
	if err != nil {
		return billing.FeeStructure{}, fmt.Errorf("failed to scan fee structure: %w", err)
	}
	if err := json.Unmarshal([]byte(componentsJSON), &fs.Components); err != nil {
		return billing.FeeStructure{}, fmt.Errorf("failed to decode fee components: %w", err)
	}
	if err := json.Unmarshal([]byte(installmentsJSON), &fs.Installments); err != nil {
		return billing.FeeStructure{}, fmt.Errorf("failed to decode installments: %w", err)
	}
	fs.TotalAmount, err = decimal.NewFromString(total)
	if err != nil {
		return billing.FeeStructure{}, fmt.Errorf("failed to parse total amount: %w", err)
	}
	fs.DueDate = parseTime(dueDate)
	fs.CreatedAt = parseTime(createdAt)
	fs.UpdatedAt = parseTime(updatedAt)
	return fs, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

type paymentStore Store

func (s *paymentStore) Insert(ctx context.Context, p billing.Payment) error {
	historyJSON, err := json.Marshal(p.History)
	if err != nil {
		return fmt.Errorf("failed to encode payment history: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payments (id, school_id, payment_type, student_id, fee_structure_id,
			teacher_id, salary_month, amount, paid_amount, remaining_amount,
			payment_date, due_date, status, method, transaction_ref, remarks,
			history_json, created_by, created_at, updated_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.School, p.Type,
		nullString(string(p.Student)), nullString(string(p.FeeStructure)),
		nullString(string(p.Teacher)), nullString(p.SalaryMonth),
		p.Amount.String(), p.PaidAmount.String(), p.RemainingAmount.String(),
		formatTime(p.PaymentDate), formatTime(p.DueDate), p.Status, p.Method,
		p.TransactionRef, p.Remarks, string(historyJSON),
		p.CreatedBy, formatTime(p.CreatedAt), formatTime(p.UpdatedAt), p.Version)
	if err != nil {
		if isUniqueConstraintError(err) {
			return core.ErrDuplicatePayment
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (s *paymentStore) Get(ctx context.Context, school core.SchoolID, id core.PaymentID) (billing.Payment, error) {
	row := s.db.QueryRowContext(ctx, paymentSelect+` WHERE id = ? AND school_id = ?`, id, school)
	return scanPayment(row)
}

func (s *paymentStore) Find(ctx context.Context, school core.SchoolID, f billing.PaymentFilter) ([]billing.Payment, error) {
	query := paymentSelect + ` WHERE school_id = ?`
	args := []any{school}
	if f.Type != "" {
		query += ` AND payment_type = ?`
		args = append(args, f.Type)
	}
	if f.Student != nil {
		query += ` AND student_id = ?`
		args = append(args, *f.Student)
	}
	if f.Teacher != nil {
		query += ` AND teacher_id = ?`
		args = append(args, *f.Teacher)
	}
	if f.FeeStructure != nil {
		query += ` AND fee_structure_id = ?`
		args = append(args, *f.FeeStructure)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.SalaryMonth != "" {
		query += ` AND salary_month = ?`
		args = append(args, f.SalaryMonth)
	}
	query += ` ORDER BY due_date, created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []billing.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateIfUnchanged is the ledger's atomic conditional write. The version
// predicate makes the UPDATE a compare-and-swap: if another writer got in
// first, zero rows match and the caller sees ErrConcurrentModification.
func (s *paymentStore) UpdateIfUnchanged(ctx context.Context, p billing.Payment, expectedVersion int64) error {
	historyJSON, err := json.Marshal(p.History)
	if err != nil {
		return fmt.Errorf("failed to encode payment history: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET paid_amount = ?, remaining_amount = ?, payment_date = ?, status = ?,
			method = ?, transaction_ref = ?, remarks = ?, history_json = ?,
			updated_at = ?, version = ?
		WHERE id = ? AND school_id = ? AND version = ?`,
		p.PaidAmount.String(), p.RemainingAmount.String(), formatTime(p.PaymentDate),
		p.Status, p.Method, p.TransactionRef, p.Remarks, string(historyJSON),
		formatTime(p.UpdatedAt), p.Version,
		p.ID, p.School, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either the row vanished or its version moved. Tell them apart so
		// the ledger can retry conflicts but not chase ghosts.
		var count int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM payments WHERE id = ? AND school_id = ?`,
			p.ID, p.School).Scan(&count); err != nil {
			return fmt.Errorf("failed to check payment existence: %w", err)
		}
		if count == 0 {
			return core.ErrNotFound
		}
		return core.ErrConcurrentModification
	}
	return nil
}

const paymentSelect = `
	SELECT id, school_id, payment_type, student_id, fee_structure_id, teacher_id,
		salary_month, amount, paid_amount, remaining_amount, payment_date, due_date,
		status, method, transaction_ref, remarks, history_json, created_by,
		created_at, updated_at, version
	FROM payments`

func scanPayment(row rowScanner) (billing.Payment, error) {
	var p billing.Payment
	var student, feeStructure, teacher, salaryMonth sql.NullString
	var amount, paid, remaining, paymentDate, dueDate, historyJSON, createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.School, &p.Type, &student, &feeStructure, &teacher,
		&salaryMonth, &amount, &paid, &remaining, &paymentDate, &dueDate,
		&p.Status, &p.Method, &p.TransactionRef, &p.Remarks, &historyJSON,
		&p.CreatedBy, &createdAt, &updatedAt, &p.Version)
	if err == sql.ErrNoRows {
		return billing.Payment{}, core.ErrNotFound
	}
	if err != nil {
		return billing.Payment{}, fmt.Errorf("failed to scan payment: %w", err)
	}
	p.Student = core.StudentID(student.String)
	p.FeeStructure = core.FeeStructureID(feeStructure.String)
	p.Teacher = core.TeacherID(teacher.String)
	p.SalaryMonth = salaryMonth.String
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return billing.Payment{}, fmt.Errorf("failed to parse amount: %w", err)
	}
	if p.PaidAmount, err = decimal.NewFromString(paid); err != nil {
		return billing.Payment{}, fmt.Errorf("failed to parse paid amount: %w", err)
	}
	if p.RemainingAmount, err = decimal.NewFromString(remaining); err != nil {
		return billing.Payment{}, fmt.Errorf("failed to parse remaining amount: %w", err)
	}
	if err := json.Unmarshal([]byte(historyJSON), &p.History); err != nil {
		return billing.Payment{}, fmt.Errorf("failed to decode payment history: %w", err)
	}
	p.PaymentDate = parseTime(paymentDate)
	p.DueDate = parseTime(dueDate)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
