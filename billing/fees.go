/*
fees.go - Fee structure totals

PURPOSE:
  The fee calculator: a fee structure's total is always the sum of its
  component amounts, recomputed on every write. What used to be an
  implicit pre-save hook in the document model is an explicit function
  the write path must call.
*/
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/campusworks/school-engine/core"
)

// ComputeFeeTotal sums the component amounts. An empty component list
// totals zero. Optional components count toward the total; opting out is
// a per-student concern handled when the obligation is created, not here.
func ComputeFeeTotal(components []FeeComponent) decimal.Decimal {
	total := decimal.Zero
	for _, c := range components {
		total = total.Add(c.Amount)
	}
	return total
}

// PrepareFeeStructure validates a fee structure and recomputes its total in
// place. Any caller-supplied TotalAmount is discarded. Shared by create and
// update; runs immediately before persistence.
//
// Installment amounts are deliberately NOT reconciled against the total:
// partially-billed and discounted plans are accepted as supplied.
func PrepareFeeStructure(fs *FeeStructure) error {
	if fs.School == "" || fs.Class == "" {
		return fmt.Errorf("fee structure requires school and class: %w", core.ErrValidation)
	}
	if fs.Name == "" {
		return fmt.Errorf("fee structure requires a name: %w", core.ErrValidation)
	}
	if fs.AcademicYear == "" {
		return fmt.Errorf("academic year is required: %w", core.ErrValidation)
	}
	if len(fs.Components) == 0 {
		return fmt.Errorf("at least one fee component is required: %w", core.ErrValidation)
	}
	if fs.DueDate.IsZero() {
		return fmt.Errorf("due date is required: %w", core.ErrValidation)
	}
	for i, c := range fs.Components {
		if c.Name == "" {
			return fmt.Errorf("fee component %d: name is required: %w", i, core.ErrValidation)
		}
		if c.Amount.IsNegative() {
			return fmt.Errorf("fee component %d: amount must be non-negative: %w", i, core.ErrValidation)
		}
	}
	for i, inst := range fs.Installments {
		if inst.Name == "" {
			return fmt.Errorf("installment %d: name is required: %w", i, core.ErrValidation)
		}
		if inst.Amount.IsNegative() {
			return fmt.Errorf("installment %d: amount must be non-negative: %w", i, core.ErrValidation)
		}
		if inst.DueDate.IsZero() {
			return fmt.Errorf("installment %d: due date is required: %w", i, core.ErrValidation)
		}
	}
	fs.TotalAmount = ComputeFeeTotal(fs.Components)
	return nil
}
