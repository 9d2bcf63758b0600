package expense

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SessionStore", func() {
	var store *SessionStore

	BeforeEach(func() {
		store = NewSessionStore()
	})

	Describe("User", func() {
		It("should report no user initially", func() {
			_, ok := store.User()
			Expect(ok).To(BeFalse())
		})

		It("should return the stored user", func() {
			store.SetUser(User{Email: "jane.doe@blackcape.io"})
			user, ok := store.User()
			Expect(ok).To(BeTrue())
			Expect(user.Email).To(Equal("jane.doe@blackcape.io"))
		})
	})

	Describe("AddReceipts", func() {
		It("should append the whole batch in order", func() {
			store.AddReceipts([]Receipt{{ID: "r1"}, {ID: "r2"}})
			store.AddReceipts([]Receipt{{ID: "r3"}})
			receipts := store.Receipts()
			Expect(receipts).To(HaveLen(3))
			Expect(receipts[2].ID).To(Equal("r3"))
		})
	})

	Describe("UpdateReceipt", func() {
		BeforeEach(func() {
			store.AddReceipts([]Receipt{{ID: "r1", Status: StatusPending}})
		})

		It("should apply the mutation", func() {
			ok := store.UpdateReceipt("r1", func(r *Receipt) {
				r.Status = StatusCompleted
			})
			Expect(ok).To(BeTrue())
			r, _ := store.Receipt("r1")
			Expect(r.Status).To(Equal(StatusCompleted))
		})

		It("should report unknown IDs", func() {
			Expect(store.UpdateReceipt("nope", func(r *Receipt) {})).To(BeFalse())
		})
	})

	Describe("Receipts", func() {
		It("should return a copy", func() {
			store.AddReceipts([]Receipt{{ID: "r1", Status: StatusPending}})
			receipts := store.Receipts()
			receipts[0].Status = StatusError
			r, _ := store.Receipt("r1")
			Expect(r.Status).To(Equal(StatusPending))
		})
	})

	Describe("RemoveReceipt", func() {
		BeforeEach(func() {
			store.AddReceipts([]Receipt{{ID: "r1"}})
			store.MutateExpenses(func(expenses []Expense, _ []Receipt) []Expense {
				return append(expenses, Expense{ID: "e1", LinkedReceiptIDs: []string{"r1"}})
			})
		})

		It("should strip every reference before removing", func() {
			_, ok := store.RemoveReceipt("r1")
			Expect(ok).To(BeTrue())
			expenses := store.Expenses()
			Expect(expenses[0].LinkedReceiptIDs).To(BeEmpty())
		})

		It("should report unknown IDs", func() {
			_, ok := store.RemoveReceipt("nope")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("LinkedExpenseIDs", func() {
		It("should find every expense referencing the receipt", func() {
			store.MutateExpenses(func(expenses []Expense, _ []Receipt) []Expense {
				return []Expense{
					{ID: "e1", LinkedReceiptIDs: []string{"r1"}},
					{ID: "e2", LinkedReceiptIDs: []string{"r2"}},
					{ID: "e3", LinkedReceiptIDs: []string{"r1", "r2"}},
				}
			})
			Expect(store.LinkedExpenseIDs("r1")).To(Equal([]string{"e1", "e3"}))
		})
	})

	Describe("DeleteExpense", func() {
		It("should remove the row", func() {
			store.MutateExpenses(func(expenses []Expense, _ []Receipt) []Expense {
				return []Expense{{ID: "e1"}, {ID: "e2"}}
			})
			Expect(store.DeleteExpense("e1")).To(BeTrue())
			Expect(store.Expenses()).To(HaveLen(1))
		})

		It("should report unknown IDs", func() {
			Expect(store.DeleteExpense("nope")).To(BeFalse())
		})
	})
})
