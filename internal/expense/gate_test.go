package expense

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExportBlockers", func() {
	var (
		expenses []Expense
		user     User
		blockers []Blocker
	)

	BeforeEach(func() {
		expenses = []Expense{{ID: "a", IsReviewed: true}}
		user = User{Supervisor: "Jane Doe"}
	})

	JustBeforeEach(func() {
		blockers = ExportBlockers(expenses, user)
	})

	When("all conditions are met", func() {
		It("should return no blockers", func() {
			Expect(blockers).To(BeEmpty())
		})

		It("should permit export", func() {
			Expect(CanExport(expenses, user)).To(BeTrue())
		})
	})

	When("there are no expenses", func() {
		BeforeEach(func() {
			expenses = nil
		})

		It("should report no_expenses", func() {
			Expect(blockers).To(ContainElement(BlockerNoExpenses))
		})
	})

	When("an expense is unreviewed", func() {
		BeforeEach(func() {
			expenses = append(expenses, Expense{ID: "b", IsReviewed: false})
		})

		It("should report unreviewed_expenses", func() {
			Expect(blockers).To(Equal([]Blocker{BlockerUnreviewed}))
		})
	})

	When("the supervisor is blank", func() {
		BeforeEach(func() {
			user.Supervisor = ""
		})

		It("should report no_supervisor", func() {
			Expect(blockers).To(Equal([]Blocker{BlockerNoSupervisor}))
		})
	})

	When("the supervisor is only whitespace", func() {
		BeforeEach(func() {
			user.Supervisor = "   "
		})

		It("should report no_supervisor", func() {
			Expect(blockers).To(Equal([]Blocker{BlockerNoSupervisor}))
		})
	})

	When("every condition is unmet", func() {
		BeforeEach(func() {
			expenses = nil
			user.Supervisor = ""
		})

		It("should report each blocker once", func() {
			Expect(blockers).To(Equal([]Blocker{BlockerNoExpenses, BlockerNoSupervisor}))
		})

		It("should not permit export", func() {
			Expect(CanExport(expenses, user)).To(BeFalse())
		})
	})
})

var _ = Describe("ComputeTotal", func() {
	It("should sum the amounts", func() {
		expenses := []Expense{
			{Amount: 10},
			{Amount: 4.5},
			{Amount: 0.5},
		}
		Expect(ComputeTotal(expenses)).To(Equal(15.0))
	})

	It("should return zero for no expenses", func() {
		Expect(ComputeTotal(nil)).To(BeZero())
	})

	It("should treat non-finite amounts as zero", func() {
		expenses := []Expense{
			{Amount: 10},
			{Amount: math.NaN()},
			{Amount: math.Inf(1)},
			{Amount: 5},
		}
		Expect(ComputeTotal(expenses)).To(Equal(15.0))
	})
})
