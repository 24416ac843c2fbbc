/*
derive.go - The payment derived-state transition

PURPOSE:
  PaidAmount, RemainingAmount, and Status are computed state. In the
  system this replaces, a document hook recomputed them invisibly before
  every save; here the transition is one explicit pure function the write
  path calls, so the invariant is visible at every call site.

TRANSITION (in order):
  1. Clamp: paid > amount  ->  paid = amount (clamp down, never up)
  2. remaining = amount - paid
  3. Status:
       paid == 0          -> overdue if now > due date, else pending
       0 < paid < amount  -> partial
       paid == amount     -> completed
*/
package billing

import "time"

// Recompute runs the derived-state transition on p. It must be called
// before every persist of a payment, with the caller's notion of now (the
// overdue check compares against it).
//
// Note the clamp: Recompute silently caps an overshooting PaidAmount. The
// ExceedsBalance business check belongs to RecordPayment, which runs it
// BEFORE this transition; calling Recompute directly on overpaid input
// masks the error by design of the clamp.
func Recompute(p *Payment, now time.Time) {
	if p.PaidAmount.GreaterThan(p.Amount) {
		p.PaidAmount = p.Amount
	}
	p.RemainingAmount = p.Amount.Sub(p.PaidAmount)

	switch {
	case p.PaidAmount.IsZero():
		if now.After(p.DueDate) {
			p.Status = StatusOverdue
		} else {
			p.Status = StatusPending
		}
	case p.PaidAmount.LessThan(p.Amount):
		p.Status = StatusPartial
	default:
		p.Status = StatusCompleted
	}
	p.UpdatedAt = now
}
