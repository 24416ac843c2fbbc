/*
Package core provides the shared kernel of the school engine.

PURPOSE:
  Types and contracts shared by every domain package: typed identifiers,
  the tenant scope, entity records (students, teachers, classes, admins,
  events) and their persistence interfaces, and the error taxonomy.

KEY CONCEPTS IN THIS FILE (types.go):
  - SchoolID and friends: type-safe identifiers
  - Scope: the tenant-partitioning context threaded through every call
  - Entity records: Student, Teacher, Class, Admin, Event

DESIGN PRINCIPLES:
  1. Explicit tenancy: every query and write takes a SchoolID; there is
     no ambient "current school" anywhere in the engine.
  2. Type safety: strong ID types prevent mixing student/teacher/class ids.
  3. Precision: money is decimal.Decimal, never float.

SEE ALSO:
  - errors.go: Sentinel errors and classification helpers
  - store.go: Entity persistence interfaces
*/
package core

import (
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	SchoolID       string
	StudentID      string
	TeacherID      string
	ClassID        string
	AdminID        string
	ScheduleID     string
	FeeStructureID string
	PaymentID      string
	EventID        string
)

// Scope is the identity context for a call into the engine: which school the
// caller is operating on and which admin is performing the action. Every
// mutating operation records Actor; every query filters by School.
//
// Scope is always an explicit parameter. The engine has no global state.
type Scope struct {
	School SchoolID
	Actor  AdminID
}

// =============================================================================
// ENTITY RECORDS
// =============================================================================

// Student is an enrolled student. Class is the assigned class, empty if the
// student has not been placed yet. Inactive students are excluded from fee
// reconciliation.
type Student struct {
	ID         StudentID
	School     SchoolID
	Name       string
	Email      string
	RollNumber string
	Class      ClassID
	Active     bool
	CreatedAt  time.Time
}

type TeacherRole string

const (
	RoleClassTeacher   TeacherRole = "class_teacher"
	RoleSubjectTeacher TeacherRole = "subject_teacher"
)

type Teacher struct {
	ID        TeacherID
	School    SchoolID
	Name      string
	Email     string
	Role      TeacherRole
	CreatedAt time.Time
}

// Class is a named group of students (e.g., "Grade 8 / B").
type Class struct {
	ID        ClassID
	School    SchoolID
	Name      string
	Grade     string
	Section   string
	Capacity  int
	CreatedAt time.Time
}

// Admin is a school administrator account. PasswordHash is a bcrypt hash;
// the engine never stores or returns plaintext passwords.
type Admin struct {
	ID           AdminID
	School       SchoolID
	SchoolName   string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// EventAudience identifies who a school event targets.
type EventAudience string

const (
	AudienceStudents EventAudience = "students"
	AudienceTeachers EventAudience = "teachers"
	AudienceParents  EventAudience = "parents"
	AudienceAll      EventAudience = "all"
)

// Event is a school-scoped calendar entry (exam day, parents meeting, ...).
type Event struct {
	ID          EventID
	School      SchoolID
	Title       string
	Description string
	Date        time.Time
	Audience    EventAudience
	CreatedBy   AdminID
	CreatedAt   time.Time
}
