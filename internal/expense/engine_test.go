package expense

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Matthew-Berthoud/Cape-Cash/internal/extraction"
)

var _ = Describe("PromoteCompletedReceipts", func() {
	var (
		expenses []Expense
		receipts []Receipt
		now      time.Time
		result   []Expense
		nextID   int
	)

	newID := func() string {
		nextID++
		return fmt.Sprintf("expense-%d", nextID)
	}

	BeforeEach(func() {
		expenses = nil
		receipts = nil
		nextID = 0
		now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	})

	JustBeforeEach(func() {
		result = PromoteCompletedReceipts(expenses, receipts, newID, now)
	})

	When("a completed receipt has full extracted data", func() {
		BeforeEach(func() {
			receipts = []Receipt{{
				ID:     "receipt-1",
				Status: StatusCompleted,
				Extracted: &extraction.ExpenseData{
					Date:        "2024-03-01",
					Amount:      42.75,
					Category:    "8321 G&A Business meals",
					Description: "Team Lunch",
				},
			}}
		})

		It("should create one expense", func() {
			Expect(result).To(HaveLen(1))
		})

		It("should carry the extracted fields", func() {
			Expect(result[0].Date).To(Equal("2024-03-01"))
			Expect(result[0].Amount).To(Equal(42.75))
			Expect(result[0].Category).To(Equal("8321 G&A Business meals"))
			Expect(result[0].Description).To(Equal("Team Lunch"))
		})

		It("should default the project", func() {
			Expect(result[0].Project).To(Equal(DefaultProject))
		})

		It("should link the source receipt", func() {
			Expect(result[0].LinkedReceiptIDs).To(Equal([]string{"receipt-1"}))
		})

		It("should start unreviewed", func() {
			Expect(result[0].IsReviewed).To(BeFalse())
		})
	})

	When("extracted data has blank fields", func() {
		BeforeEach(func() {
			receipts = []Receipt{{
				ID:        "receipt-1",
				Status:    StatusCompleted,
				Extracted: &extraction.ExpenseData{},
			}}
		})

		It("should default the date to today", func() {
			Expect(result[0].Date).To(Equal("2024-03-10"))
		})

		It("should default the category to the first in the list", func() {
			Expect(result[0].Category).To(Equal(Categories[0]))
		})

		It("should default the amount to zero", func() {
			Expect(result[0].Amount).To(BeZero())
		})
	})

	When("a receipt is not completed", func() {
		BeforeEach(func() {
			receipts = []Receipt{
				{ID: "receipt-1", Status: StatusPending},
				{ID: "receipt-2", Status: StatusProcessing},
				{ID: "receipt-3", Status: StatusError},
			}
		})

		It("should promote nothing", func() {
			Expect(result).To(BeEmpty())
		})
	})

	When("a completed receipt is already linked to an expense", func() {
		BeforeEach(func() {
			expenses = []Expense{{
				ID:               "existing",
				Date:             "2024-02-01",
				LinkedReceiptIDs: []string{"receipt-1"},
			}}
			receipts = []Receipt{{
				ID:        "receipt-1",
				Status:    StatusCompleted,
				Extracted: &extraction.ExpenseData{Date: "2024-03-01"},
			}}
		})

		It("should not promote it again", func() {
			Expect(result).To(HaveLen(1))
			Expect(result[0].ID).To(Equal("existing"))
		})
	})

	When("promotion runs twice", func() {
		BeforeEach(func() {
			receipts = []Receipt{{
				ID:        "receipt-1",
				Status:    StatusCompleted,
				Extracted: &extraction.ExpenseData{Date: "2024-03-01"},
			}}
		})

		It("should be a no-op the second time", func() {
			again := PromoteCompletedReceipts(result, receipts, newID, now)
			Expect(again).To(HaveLen(1))
		})
	})

	When("multiple receipts promote at once", func() {
		BeforeEach(func() {
			receipts = []Receipt{
				{ID: "receipt-1", Status: StatusCompleted, Extracted: &extraction.ExpenseData{Date: "2024-01-01"}},
				{ID: "receipt-2", Status: StatusCompleted, Extracted: &extraction.ExpenseData{Date: "2024-03-05"}},
				{ID: "receipt-3", Status: StatusCompleted, Extracted: &extraction.ExpenseData{Date: "2024-02-15"}},
			}
		})

		It("should sort the result by date descending", func() {
			Expect(result).To(HaveLen(3))
			Expect(result[0].Date).To(Equal("2024-03-05"))
			Expect(result[1].Date).To(Equal("2024-02-15"))
			Expect(result[2].Date).To(Equal("2024-01-01"))
		})
	})

	When("two rows share the same date", func() {
		BeforeEach(func() {
			expenses = []Expense{
				{ID: "a", Date: "2024-01-05"},
				{ID: "b", Date: "2024-01-05"},
				{ID: "c", Date: "2024-01-01"},
			}
		})

		It("should keep their relative order", func() {
			Expect(result[0].ID).To(Equal("a"))
			Expect(result[1].ID).To(Equal("b"))
			Expect(result[2].ID).To(Equal("c"))
		})
	})
})

var _ = Describe("NewManualExpense", func() {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	It("should date the row today", func() {
		row := NewManualExpense("id-1", now)
		Expect(row.Date).To(Equal("2024-03-10"))
	})

	It("should use default category and project", func() {
		row := NewManualExpense("id-1", now)
		Expect(row.Category).To(Equal(Categories[0]))
		Expect(row.Project).To(Equal(DefaultProject))
	})

	It("should start with no linked receipts", func() {
		row := NewManualExpense("id-1", now)
		Expect(row.LinkedReceiptIDs).To(BeEmpty())
	})
})

var _ = Describe("UpdateExpenseField", func() {
	var expenses []Expense

	BeforeEach(func() {
		expenses = []Expense{
			{ID: "a", Date: "2024-03-05", Amount: 10},
			{ID: "b", Date: "2024-03-01", Amount: 20},
		}
	})

	When("updating an amount", func() {
		It("should change only that field", func() {
			result := UpdateExpenseField(expenses, "b", AmountUpdate{Value: 99.5})
			Expect(result[1].Amount).To(Equal(99.5))
			Expect(result[1].Date).To(Equal("2024-03-01"))
		})

		It("should not reorder the rows", func() {
			result := UpdateExpenseField(expenses, "b", AmountUpdate{Value: 99.5})
			Expect(result[0].ID).To(Equal("a"))
			Expect(result[1].ID).To(Equal("b"))
		})
	})

	When("updating a date", func() {
		It("should re-sort by date descending", func() {
			result := UpdateExpenseField(expenses, "b", DateUpdate{Value: "2024-04-01"})
			Expect(result[0].ID).To(Equal("b"))
			Expect(result[1].ID).To(Equal("a"))
		})
	})

	When("toggling review", func() {
		It("should set the flag", func() {
			result := UpdateExpenseField(expenses, "a", ReviewedUpdate{Value: true})
			Expect(result[0].IsReviewed).To(BeTrue())
		})
	})

	When("the expense ID is unknown", func() {
		It("should leave the collection unchanged", func() {
			result := UpdateExpenseField(expenses, "nope", AmountUpdate{Value: 1})
			Expect(result).To(Equal(expenses))
		})
	})

	It("should not mutate the input slice", func() {
		UpdateExpenseField(expenses, "a", AmountUpdate{Value: 1000})
		Expect(expenses[0].Amount).To(Equal(10.0))
	})
})

var _ = Describe("SetLinkedReceipts", func() {
	var expenses []Expense

	BeforeEach(func() {
		expenses = []Expense{
			{ID: "a", LinkedReceiptIDs: []string{"r1", "r2"}},
		}
	})

	It("should replace the whole set", func() {
		result := SetLinkedReceipts(expenses, "a", []string{"r3"})
		Expect(result[0].LinkedReceiptIDs).To(Equal([]string{"r3"}))
	})

	It("should allow clearing the set", func() {
		result := SetLinkedReceipts(expenses, "a", nil)
		Expect(result[0].LinkedReceiptIDs).To(BeEmpty())
	})

	It("should ignore unknown expense IDs", func() {
		result := SetLinkedReceipts(expenses, "nope", []string{"r3"})
		Expect(result[0].LinkedReceiptIDs).To(Equal([]string{"r1", "r2"}))
	})
})

var _ = Describe("RemoveReceiptReferences", func() {
	It("should strip the receipt from every expense", func() {
		expenses := []Expense{
			{ID: "a", LinkedReceiptIDs: []string{"r1", "r2"}},
			{ID: "b", LinkedReceiptIDs: []string{"r2"}},
			{ID: "c", LinkedReceiptIDs: []string{"r3"}},
		}
		result := RemoveReceiptReferences(expenses, "r2")
		Expect(result[0].LinkedReceiptIDs).To(Equal([]string{"r1"}))
		Expect(result[1].LinkedReceiptIDs).To(BeEmpty())
		Expect(result[2].LinkedReceiptIDs).To(Equal([]string{"r3"}))
	})

	It("should keep the expenses themselves", func() {
		expenses := []Expense{{ID: "b", LinkedReceiptIDs: []string{"r2"}}}
		result := RemoveReceiptReferences(expenses, "r2")
		Expect(result).To(HaveLen(1))
	})
})
