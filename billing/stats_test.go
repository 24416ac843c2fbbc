package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusworks/school-engine/billing"
)

func statusPayment(amount, paid int64, status billing.PaymentStatus) billing.Payment {
	p := feePayment(amount, paid)
	p.Status = status
	p.RemainingAmount = d(amount - paid)
	return p
}

func TestComputeStats_CountsAndSums(t *testing.T) {
	// GIVEN: One payment in each state
	payments := []billing.Payment{
		statusPayment(5650, 5650, billing.StatusCompleted),
		statusPayment(5650, 2000, billing.StatusPartial),
		statusPayment(5650, 0, billing.StatusPending),
		statusPayment(5650, 0, billing.StatusOverdue),
	}

	// WHEN: Aggregating
	stats := billing.ComputeStats(payments)

	// THEN: Counts per status, money summed across all
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Partial)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Overdue)
	assert.True(t, stats.TotalAmount.Equal(d(22600)), "total %s", stats.TotalAmount)
	assert.True(t, stats.PaidAmount.Equal(d(7650)), "paid %s", stats.PaidAmount)
	assert.True(t, stats.RemainingAmount.Equal(d(14950)), "remaining %s", stats.RemainingAmount)
}

func TestComputeStats_EmptyInput(t *testing.T) {
	stats := billing.ComputeStats(nil)
	assert.Equal(t, 0, stats.Total)
	assert.True(t, stats.TotalAmount.IsZero())
	assert.True(t, stats.PaidAmount.IsZero())
	assert.True(t, stats.RemainingAmount.IsZero())
}
