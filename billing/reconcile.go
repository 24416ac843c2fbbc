/*
reconcile.go - Fee structure fan-out

PURPOSE:
  When a fee structure is created, every active student assigned to its
  class gets one pending fee obligation for the full total. The fan-out
  is per-student and independent: one student's failure never rolls back
  the fee structure or the other students' obligations. The caller gets
  the full per-student result list and decides what partial failure
  means.

AT-LEAST-ONCE:
  Re-running reconciliation for the same fee structure is safe: the
  (school, student, fee structure) uniqueness constraint turns repeats
  into ErrDuplicatePayment for the students already covered, which
  callers treat as success on retry.
*/
package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/campusworks/school-engine/core"
)

// ReconcileResult is the outcome of one student's obligation creation.
// Exactly one of Payment and Err is set.
type ReconcileResult struct {
	Student core.StudentID
	Payment *Payment
	Err     error
}

// Reconciler fans fee structures out into per-student obligations.
type Reconciler struct {
	Payments PaymentStore
	Now      func() time.Time
}

func NewReconciler(payments PaymentStore) *Reconciler {
	return &Reconciler{Payments: payments, Now: time.Now}
}

// OnFeeStructureCreated creates one pending fee payment per eligible
// student: assigned to the structure's class, in the same school, and
// active. Ineligible students are skipped silently (they are simply not
// billed). Returns one result per attempted student, in input order.
func (r *Reconciler) OnFeeStructureCreated(ctx context.Context, scope core.Scope, fs FeeStructure, students []core.Student) []ReconcileResult {
	now := r.Now()
	var results []ReconcileResult
	for _, s := range students {
		if !s.Active || s.School != scope.School || s.Class != fs.Class {
			continue
		}
		p := Payment{
			ID:           core.PaymentID(uuid.NewString()),
			School:       scope.School,
			Type:         PaymentFee,
			Student:      s.ID,
			FeeStructure: fs.ID,
			Amount:       fs.TotalAmount,
			PaidAmount:   decimal.Zero,
			PaymentDate:  now,
			DueDate:      fs.DueDate,
			Method:       MethodPending,
			CreatedBy:    scope.Actor,
			CreatedAt:    now,
		}
		Recompute(&p, now)

		res := ReconcileResult{Student: s.ID}
		if err := r.Payments.Insert(ctx, p); err != nil {
			res.Err = err
		} else {
			res.Payment = &p
		}
		results = append(results, res)
	}
	return results
}
