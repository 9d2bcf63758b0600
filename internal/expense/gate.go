package expense

import (
	"math"
	"strings"
)

// Blocker names one unmet export condition so the UI can surface a precise
// reason instead of a bare disabled button.
type Blocker string

const (
	BlockerNoExpenses   Blocker = "no_expenses"
	BlockerUnreviewed   Blocker = "unreviewed_expenses"
	BlockerNoSupervisor Blocker = "no_supervisor"
)

// ExportBlockers returns every unmet export condition. Export is permitted
// iff the list is empty: every expense reviewed, at least one expense, and a
// non-blank supervisor.
func ExportBlockers(expenses []Expense, user User) []Blocker {
	var blockers []Blocker

	if len(expenses) == 0 {
		blockers = append(blockers, BlockerNoExpenses)
	}
	for _, e := range expenses {
		if !e.IsReviewed {
			blockers = append(blockers, BlockerUnreviewed)
			break
		}
	}
	if strings.TrimSpace(user.Supervisor) == "" {
		blockers = append(blockers, BlockerNoSupervisor)
	}
	return blockers
}

// CanExport reports whether report export is currently permitted.
func CanExport(expenses []Expense, user User) bool {
	return len(ExportBlockers(expenses, user)) == 0
}

// ComputeTotal sums expense amounts, treating non-finite values as 0. It is
// recomputed on every read; nothing caches a stale total.
func ComputeTotal(expenses []Expense) float64 {
	var total float64
	for _, e := range expenses {
		if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
			continue
		}
		total += e.Amount
	}
	return total
}
