/*
Package billing provides the fee and payment engine.

PURPOSE:
  Tracks money owed and money paid, per school. Two kinds of obligation
  share one ledger: a student's fee for a class/year fee structure, and a
  teacher's salary for a month. Both carry an append-only history of the
  transactions recorded against them and a deterministically derived
  status.

KEY CONCEPTS IN THIS FILE (types.go):
  - FeeStructure: components + derived total + installments
  - Payment: the tagged union (fee vs. salary) with derived state
  - HistoryEntry: one immutable recorded transaction

DESIGN PRINCIPLES:
  1. Derived fields (totalAmount, remainingAmount, status) are never set
     by callers; the recompute pipeline owns them.
  2. History is append-only; paidAmount only moves through RecordPayment.
  3. Money is decimal.Decimal throughout.

SEE ALSO:
  - fees.go:   fee total computation
  - derive.go: the derived-state transition
  - ledger.go: RecordPayment and the concurrency contract
*/
package billing

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campusworks/school-engine/core"
)

// =============================================================================
// FEE STRUCTURE
// =============================================================================

type FeeComponentType string

const (
	FeeTuition     FeeComponentType = "tuition"
	FeeAdmission   FeeComponentType = "admission"
	FeeExamination FeeComponentType = "examination"
	FeeLibrary     FeeComponentType = "library"
	FeeSports      FeeComponentType = "sports"
	FeeTransport   FeeComponentType = "transport"
	FeeOther       FeeComponentType = "other"
)

// FeeComponent is one line item of a fee structure.
type FeeComponent struct {
	Name     string
	Amount   decimal.Decimal
	Type     FeeComponentType
	Optional bool
}

// Installment is a suggested partial-payment slice. Installment amounts are
// stored as provided and are not validated against the total.
type Installment struct {
	Name    string
	Amount  decimal.Decimal
	DueDate time.Time
}

// FeeStructure defines the fees for one class in one academic year.
// TotalAmount is derived from the components; caller-supplied totals are
// always discarded by PrepareForSave.
type FeeStructure struct {
	ID           core.FeeStructureID
	School       core.SchoolID
	Name         string
	Class        core.ClassID
	AcademicYear string
	Components   []FeeComponent
	TotalAmount  decimal.Decimal
	DueDate      time.Time
	Installments []Installment
	Active       bool
	CreatedBy    core.AdminID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// =============================================================================
// PAYMENT - Tagged union of fee and salary obligations
// =============================================================================

type PaymentType string

const (
	PaymentFee    PaymentType = "fee"
	PaymentSalary PaymentType = "salary"
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusPartial   PaymentStatus = "partial"
	StatusCompleted PaymentStatus = "completed"
	StatusOverdue   PaymentStatus = "overdue"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodOnline       PaymentMethod = "online"
	MethodCheque       PaymentMethod = "cheque"
	MethodCard         PaymentMethod = "card"

	// MethodPending marks an obligation nothing has been recorded against
	// yet. Never valid on a history entry.
	MethodPending PaymentMethod = "pending"
)

// recordableMethods are the methods allowed when recording a transaction.
var recordableMethods = map[PaymentMethod]bool{
	MethodCash:         true,
	MethodBankTransfer: true,
	MethodOnline:       true,
	MethodCheque:       true,
	MethodCard:         true,
}

// salaryMonthPattern matches "YYYY-MM" with a real month.
var salaryMonthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// HistoryEntry is one recorded transaction against a payment. Entries are
// immutable once appended.
type HistoryEntry struct {
	Amount         decimal.Decimal
	PaymentDate    time.Time
	Method         PaymentMethod
	TransactionRef string
	Remarks        string
	RecordedBy     core.AdminID
}

// Payment is one obligation: a student's fee (Type == PaymentFee, with
// Student and FeeStructure set) or a teacher's salary for a month
// (Type == PaymentSalary, with Teacher and SalaryMonth set).
//
// PaidAmount, RemainingAmount, and Status are derived; they change only
// through the recompute pipeline in derive.go. Version supports the
// update-if-unchanged write used by the ledger.
type Payment struct {
	ID     core.PaymentID
	School core.SchoolID
	Type   PaymentType

	// Fee variant
	Student      core.StudentID
	FeeStructure core.FeeStructureID

	// Salary variant
	Teacher     core.TeacherID
	SalaryMonth string // "YYYY-MM"

	Amount          decimal.Decimal
	PaidAmount      decimal.Decimal
	RemainingAmount decimal.Decimal
	PaymentDate     time.Time
	DueDate         time.Time
	Status          PaymentStatus
	Method          PaymentMethod
	TransactionRef  string
	Remarks         string
	History         []HistoryEntry

	CreatedBy core.AdminID
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}

// Validate enforces the per-variant required fields and amount bounds.
func (p Payment) Validate() error {
	if p.School == "" {
		return fmt.Errorf("payment requires a school: %w", core.ErrValidation)
	}
	if p.Amount.IsNegative() || p.PaidAmount.IsNegative() {
		return fmt.Errorf("payment amounts must be non-negative: %w", core.ErrValidation)
	}
	if p.DueDate.IsZero() {
		return fmt.Errorf("payment requires a due date: %w", core.ErrValidation)
	}
	switch p.Type {
	case PaymentFee:
		if p.Student == "" || p.FeeStructure == "" {
			return fmt.Errorf("fee payment requires student and fee structure: %w", core.ErrValidation)
		}
		if p.Teacher != "" || p.SalaryMonth != "" {
			return fmt.Errorf("fee payment must not carry salary fields: %w", core.ErrValidation)
		}
	case PaymentSalary:
		if p.Teacher == "" {
			return fmt.Errorf("salary payment requires a teacher: %w", core.ErrValidation)
		}
		if !salaryMonthPattern.MatchString(p.SalaryMonth) {
			return fmt.Errorf("salary month %q must be YYYY-MM: %w", p.SalaryMonth, core.ErrValidation)
		}
		if p.Student != "" || p.FeeStructure != "" {
			return fmt.Errorf("salary payment must not carry fee fields: %w", core.ErrValidation)
		}
	default:
		return fmt.Errorf("unknown payment type %q: %w", p.Type, core.ErrValidation)
	}
	return nil
}

// =============================================================================
// STORES
// =============================================================================

// PaymentFilter narrows payment queries. Nil/zero fields are ignored.
type PaymentFilter struct {
	Type         PaymentType
	Student      *core.StudentID
	Teacher      *core.TeacherID
	FeeStructure *core.FeeStructureID
	Status       PaymentStatus
	SalaryMonth  string
}

// PaymentStore persists payments.
//
// Insert must enforce obligation uniqueness - (school, student, fee
// structure) for fees, (school, teacher, salary month) for salaries - and
// report violations as core.ErrDuplicatePayment.
//
// UpdateIfUnchanged is the atomic conditional write the ledger's
// read-modify-write relies on: it persists p (with p.Version incremented)
// only if the stored version still equals expectedVersion, and returns
// core.ErrConcurrentModification otherwise.
type PaymentStore interface {
	Insert(ctx context.Context, p Payment) error
	Get(ctx context.Context, school core.SchoolID, id core.PaymentID) (Payment, error)
	Find(ctx context.Context, school core.SchoolID, f PaymentFilter) ([]Payment, error)
	UpdateIfUnchanged(ctx context.Context, p Payment, expectedVersion int64) error
}

// FeeStructureStore persists fee structures. Insert must enforce name
// uniqueness per (school, class, academic year) and report violations as
// core.ErrDuplicateFeeStructure.
type FeeStructureStore interface {
	Insert(ctx context.Context, fs FeeStructure) error
	Update(ctx context.Context, fs FeeStructure) error
	Get(ctx context.Context, school core.SchoolID, id core.FeeStructureID) (FeeStructure, error)
	Find(ctx context.Context, school core.SchoolID, class *core.ClassID, academicYear string) ([]FeeStructure, error)
}
