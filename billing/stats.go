package billing

import "github.com/shopspring/decimal"

// PaymentStats aggregates a set of obligations for dashboard summaries:
// per-fee-structure collection status, or a month's salary run.
type PaymentStats struct {
	Total     int
	Completed int
	Partial   int
	Pending   int
	Overdue   int

	TotalAmount     decimal.Decimal
	PaidAmount      decimal.Decimal
	RemainingAmount decimal.Decimal
}

// ComputeStats folds payments into aggregate counts and sums. Pure
// derivation over already-recomputed records.
func ComputeStats(payments []Payment) PaymentStats {
	stats := PaymentStats{
		Total:           len(payments),
		TotalAmount:     decimal.Zero,
		PaidAmount:      decimal.Zero,
		RemainingAmount: decimal.Zero,
	}
	for _, p := range payments {
		switch p.Status {
		case StatusCompleted:
			stats.Completed++
		case StatusPartial:
			stats.Partial++
		case StatusPending:
			stats.Pending++
		case StatusOverdue:
			stats.Overdue++
		}
		stats.TotalAmount = stats.TotalAmount.Add(p.Amount)
		stats.PaidAmount = stats.PaidAmount.Add(p.PaidAmount)
		stats.RemainingAmount = stats.RemainingAmount.Add(p.RemainingAmount)
	}
	return stats
}
