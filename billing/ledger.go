/*
ledger.go - Recording transactions against payment obligations

PURPOSE:
  RecordPayment is the ONLY path that moves PaidAmount. It appends one
  immutable history entry, bumps the paid total, and runs the derived-
  state transition, as a single logical read-modify-write.

CONCURRENCY CONTRACT:
  Two concurrent RecordPayment calls against the same obligation must not
  both pass the ExceedsBalance check against a stale PaidAmount and
  together overpay. The ledger therefore persists through the store's
  update-if-unchanged primitive and retries on conflict, re-reading and
  re-checking the precondition each attempt. The loser of a race that
  would jointly overpay gets ErrExceedsBalance, not a silent clamp.

WHY CHECK BEFORE RECOMPUTE?
  The derived-state transition clamps an overshooting PaidAmount down to
  Amount. If the balance check ran after it, an overpayment would be
  silently absorbed instead of rejected. The precondition must run against
  the freshly-read payment, before any mutation.
*/
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/campusworks/school-engine/core"
)

// casAttempts bounds the optimistic-concurrency retry loop. Conflicts are
// rare (two admins recording against the same obligation at once), so a
// small bound suffices; exhaustion surfaces ErrConcurrentModification.
const casAttempts = 5

// ExceedsBalanceError reports an overpayment attempt with the amounts
// involved.
type ExceedsBalanceError struct {
	Payment   core.PaymentID
	Remaining decimal.Decimal
	Requested decimal.Decimal
}

func (e *ExceedsBalanceError) Error() string {
	return fmt.Sprintf("payment %s: requested %s exceeds remaining balance %s",
		e.Payment, e.Requested, e.Remaining)
}

func (e *ExceedsBalanceError) Unwrap() error { return core.ErrExceedsBalance }

// RecordPaymentInput describes one transaction to record.
type RecordPaymentInput struct {
	Amount         decimal.Decimal
	Method         PaymentMethod
	Date           time.Time
	TransactionRef string // optional
	Remarks        string // optional
}

// SalaryInput describes a new monthly salary obligation for a teacher.
type SalaryInput struct {
	Teacher     core.TeacherID
	Amount      decimal.Decimal
	SalaryMonth string // "YYYY-MM"
	DueDate     time.Time
	Remarks     string
}

// Ledger owns all writes to payment obligations.
type Ledger struct {
	Payments PaymentStore

	// Now is the clock used for overdue derivation and timestamps.
	// Overridable in tests; defaults to time.Now.
	Now func() time.Time
}

func NewLedger(payments PaymentStore) *Ledger {
	return &Ledger{Payments: payments, Now: time.Now}
}

// RecordPayment records one transaction against the obligation, scoped to
// the caller's school.
//
// Fails with core.ErrNotFound when the obligation does not exist in the
// school scope, core.ErrValidation for a non-positive amount or a
// non-recordable method, and ExceedsBalanceError when the increment would
// push PaidAmount past Amount. On success the updated payment carries
// exactly one new history entry.
func (l *Ledger) RecordPayment(ctx context.Context, scope core.Scope, id core.PaymentID, in RecordPaymentInput) (Payment, error) {
	if !in.Amount.IsPositive() {
		return Payment{}, fmt.Errorf("recorded amount must be positive: %w", core.ErrValidation)
	}
	if !recordableMethods[in.Method] {
		return Payment{}, fmt.Errorf("invalid payment method %q: %w", in.Method, core.ErrValidation)
	}
	if in.Date.IsZero() {
		return Payment{}, fmt.Errorf("payment date is required: %w", core.ErrValidation)
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		p, err := l.Payments.Get(ctx, scope.School, id)
		if err != nil {
			return Payment{}, err
		}

		// Business precondition, against the freshly-read state. Must run
		// before the recompute clamp can mask it.
		if p.PaidAmount.Add(in.Amount).GreaterThan(p.Amount) {
			return Payment{}, &ExceedsBalanceError{
				Payment:   p.ID,
				Remaining: p.Amount.Sub(p.PaidAmount),
				Requested: in.Amount,
			}
		}

		expected := p.Version
		p.History = append(p.History, HistoryEntry{
			Amount:         in.Amount,
			PaymentDate:    in.Date,
			Method:         in.Method,
			TransactionRef: in.TransactionRef,
			Remarks:        in.Remarks,
			RecordedBy:     scope.Actor,
		})
		p.PaidAmount = p.PaidAmount.Add(in.Amount)
		p.PaymentDate = in.Date
		p.Method = in.Method
		if in.TransactionRef != "" {
			p.TransactionRef = in.TransactionRef
		}
		if in.Remarks != "" {
			p.Remarks = in.Remarks
		}
		Recompute(&p, l.Now())
		p.Version = expected + 1

		err = l.Payments.UpdateIfUnchanged(ctx, p, expected)
		if err == nil {
			return p, nil
		}
		if errors.Is(err, core.ErrConcurrentModification) {
			continue // lost the race; re-read and re-check
		}
		return Payment{}, err
	}
	return Payment{}, fmt.Errorf("payment %s: %w", id, core.ErrConcurrentModification)
}

// CreateSalaryObligation opens a pending salary payment for a teacher and
// month. At most one obligation may exist per (school, teacher, month); the
// store's uniqueness constraint surfaces duplicates as
// core.ErrDuplicatePayment.
func (l *Ledger) CreateSalaryObligation(ctx context.Context, scope core.Scope, in SalaryInput) (Payment, error) {
	now := l.Now()
	p := Payment{
		ID:          core.PaymentID(uuid.NewString()),
		School:      scope.School,
		Type:        PaymentSalary,
		Teacher:     in.Teacher,
		SalaryMonth: in.SalaryMonth,
		Amount:      in.Amount,
		PaidAmount:  decimal.Zero,
		PaymentDate: now,
		DueDate:     in.DueDate,
		Method:      MethodPending,
		Remarks:     in.Remarks,
		CreatedBy:   scope.Actor,
		CreatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return Payment{}, err
	}
	Recompute(&p, now)
	if err := l.Payments.Insert(ctx, p); err != nil {
		return Payment{}, err
	}
	return p, nil
}
