/*
store.go - Persistence interfaces for shared entities

PURPOSE:
  Defines the document-lookup/persist capability the engine consumes for
  the registry entities (students, teachers, classes, admins, events).
  Domain-specific stores (schedules, fee structures, payments) live next
  to their types in the timetable and billing packages.

TENANCY CONTRACT:
  Every method takes the SchoolID explicitly. Implementations must filter
  by it on every read and write; an id that exists under another school
  is reported as ErrNotFound.

IMPLEMENTATIONS:
  - store/memory:  In-memory, for tests and dev mode
  - store/sqlite:  Production SQLite
*/
package core

import "context"

// StudentStore persists student records.
type StudentStore interface {
	Insert(ctx context.Context, s Student) error
	Get(ctx context.Context, school SchoolID, id StudentID) (Student, error)

	// FindByClass returns the students assigned to a class, optionally only
	// the active ones. Used by fee reconciliation.
	FindByClass(ctx context.Context, school SchoolID, class ClassID, activeOnly bool) ([]Student, error)
}

// TeacherStore persists teacher records.
type TeacherStore interface {
	Insert(ctx context.Context, t Teacher) error
	Get(ctx context.Context, school SchoolID, id TeacherID) (Teacher, error)
	List(ctx context.Context, school SchoolID) ([]Teacher, error)
}

// ClassStore persists class records.
type ClassStore interface {
	Insert(ctx context.Context, c Class) error
	Get(ctx context.Context, school SchoolID, id ClassID) (Class, error)
	List(ctx context.Context, school SchoolID) ([]Class, error)
}

// AdminStore persists administrator accounts.
type AdminStore interface {
	Insert(ctx context.Context, a Admin) error
	Get(ctx context.Context, school SchoolID, id AdminID) (Admin, error)

	// GetByEmail looks up an admin for login. Not school-scoped: the school
	// is derived from the account, not supplied by the caller.
	GetByEmail(ctx context.Context, email string) (Admin, error)

	// SchoolExists reports whether any admin is registered under the school
	// id. Used by school-id generation.
	SchoolExists(ctx context.Context, school SchoolID) (bool, error)
}

// EventStore persists school events.
type EventStore interface {
	Insert(ctx context.Context, e Event) error
	List(ctx context.Context, school SchoolID) ([]Event, error)
	Delete(ctx context.Context, school SchoolID, id EventID) error
}
