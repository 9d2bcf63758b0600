package expense

import (
	"sort"
	"time"

	"github.com/Matthew-Berthoud/Cape-Cash/internal/extraction"
)

// The functions in this file are the pure reconciliation engine: they take
// the current collections and return new ones, with no hidden state. Callers
// (the session store) are responsible for publishing the results atomically.

// parseDay parses a YYYY-MM-DD date. Unparseable dates collapse to the zero
// time so they sort after every real date in descending order.
func parseDay(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// sortByDateDesc stable-sorts expenses by date descending. Stability keeps
// the original relative order of same-day rows.
func sortByDateDesc(expenses []Expense) []Expense {
	sort.SliceStable(expenses, func(i, j int) bool {
		return parseDay(expenses[i].Date).After(parseDay(expenses[j].Date))
	})
	return expenses
}

// linkedReceiptSet flattens every expense's linked receipt IDs into a set.
func linkedReceiptSet(expenses []Expense) map[string]bool {
	used := make(map[string]bool)
	for _, e := range expenses {
		for _, id := range e.LinkedReceiptIDs {
			used[id] = true
		}
	}
	return used
}

// PromoteCompletedReceipts converts each completed receipt that no expense
// references yet into exactly one new expense, appends the batch, and
// re-sorts the full collection by date descending. A receipt already linked
// anywhere is skipped, which makes repeated promotion a no-op.
func PromoteCompletedReceipts(expenses []Expense, receipts []Receipt, newID func() string, now time.Time) []Expense {
	used := linkedReceiptSet(expenses)

	out := make([]Expense, len(expenses))
	copy(out, expenses)

	for _, r := range receipts {
		if r.Status != StatusCompleted || used[r.ID] {
			continue
		}
		out = append(out, expenseFromExtraction(r, newID(), now))
	}

	return sortByDateDesc(out)
}

// expenseFromExtraction synthesizes an expense row from a completed
// receipt, substituting defaults for any field extraction left blank.
func expenseFromExtraction(r Receipt, id string, now time.Time) Expense {
	data := r.Extracted
	if data == nil {
		data = &extraction.ExpenseData{}
	}

	date := data.Date
	if parseDay(date).IsZero() {
		date = now.Format("2006-01-02")
	}
	category := data.Category
	if !ValidCategory(category) {
		category = Categories[0]
	}

	return Expense{
		ID:               id,
		Date:             date,
		Amount:           data.Amount,
		Category:         category,
		Project:          DefaultProject,
		Description:      data.Description,
		LinkedReceiptIDs: []string{r.ID},
		IsReviewed:       false,
	}
}

// NewManualExpense returns a blank row dated today. Manual rows are appended
// to the bottom and only join date ordering once a sort is triggered.
func NewManualExpense(id string, now time.Time) Expense {
	return Expense{
		ID:               id,
		Date:             now.Format("2006-01-02"),
		Amount:           0,
		Category:         Categories[0],
		Project:          DefaultProject,
		Description:      "",
		LinkedReceiptIDs: []string{},
		IsReviewed:       false,
	}
}

// FieldUpdate is one validated, field-specific edit to an expense row. Each
// variant carries its own payload type; date edits additionally report that
// the collection must be re-sorted.
type FieldUpdate interface {
	apply(*Expense)
	triggersSort() bool
}

type DateUpdate struct{ Value string }

func (u DateUpdate) apply(e *Expense)   { e.Date = u.Value }
func (u DateUpdate) triggersSort() bool { return true }

// AmountUpdate stores whatever numeric value it is given; rejecting
// negatives is the input boundary's job.
type AmountUpdate struct{ Value float64 }

func (u AmountUpdate) apply(e *Expense)   { e.Amount = u.Value }
func (u AmountUpdate) triggersSort() bool { return false }

type CategoryUpdate struct{ Value string }

func (u CategoryUpdate) apply(e *Expense)   { e.Category = u.Value }
func (u CategoryUpdate) triggersSort() bool { return false }

type ProjectUpdate struct{ Value string }

func (u ProjectUpdate) apply(e *Expense)   { e.Project = u.Value }
func (u ProjectUpdate) triggersSort() bool { return false }

type DescriptionUpdate struct{ Value string }

func (u DescriptionUpdate) apply(e *Expense)   { e.Description = u.Value }
func (u DescriptionUpdate) triggersSort() bool { return false }

type ReviewedUpdate struct{ Value bool }

func (u ReviewedUpdate) apply(e *Expense)   { e.IsReviewed = u.Value }
func (u ReviewedUpdate) triggersSort() bool { return false }

// UpdateExpenseField applies one field update to the matching expense. An
// unknown expense ID leaves the collection unchanged. Only date edits
// re-sort; every other field keeps the current order.
func UpdateExpenseField(expenses []Expense, expenseID string, update FieldUpdate) []Expense {
	out := make([]Expense, len(expenses))
	copy(out, expenses)

	touched := false
	for i := range out {
		if out[i].ID == expenseID {
			update.apply(&out[i])
			touched = true
			break
		}
	}

	if touched && update.triggersSort() {
		out = sortByDateDesc(out)
	}
	return out
}

// SetLinkedReceipts replaces the full link set for one expense. The caller
// supplies the complete desired set after a toggle, so this is not additive.
func SetLinkedReceipts(expenses []Expense, expenseID string, receiptIDs []string) []Expense {
	out := make([]Expense, len(expenses))
	copy(out, expenses)

	for i := range out {
		if out[i].ID == expenseID {
			ids := make([]string, len(receiptIDs))
			copy(ids, receiptIDs)
			out[i].LinkedReceiptIDs = ids
			break
		}
	}
	return out
}

// RemoveReceiptReferences strips receiptID from every expense's link set.
// Run before the receipt itself is removed so no expense ever references a
// receipt that does not exist.
func RemoveReceiptReferences(expenses []Expense, receiptID string) []Expense {
	out := make([]Expense, len(expenses))
	copy(out, expenses)

	for i := range out {
		kept := make([]string, 0, len(out[i].LinkedReceiptIDs))
		for _, id := range out[i].LinkedReceiptIDs {
			if id != receiptID {
				kept = append(kept, id)
			}
		}
		out[i].LinkedReceiptIDs = kept
	}
	return out
}
