package expense

import "sync"

// SessionStore is the single holder of workflow state: the ordered receipt
// and expense collections plus the signed-in user. All state is in-memory
// and dies with the process. Mutations run under one lock and go through the
// pure engine functions, so every observable intermediate state satisfies
// the linkage invariants.
type SessionStore struct {
	mu       sync.RWMutex
	user     *User
	receipts []Receipt
	expenses []Expense
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// SetUser replaces the signed-in user.
func (s *SessionStore) SetUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
}

// User returns the signed-in user, if any.
func (s *SessionStore) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// UpdateUser applies the non-nil fields to the signed-in user.
func (s *SessionStore) UpdateUser(name, supervisor *string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	if name != nil {
		s.user.Name = *name
	}
	if supervisor != nil {
		s.user.Supervisor = *supervisor
	}
	return *s.user, true
}

// AddReceipts appends a batch of receipts in one critical section so readers
// never observe a partial batch.
func (s *SessionStore) AddReceipts(batch []Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, batch...)
}

// Receipts returns a copy of the receipt collection in upload order.
func (s *SessionStore) Receipts() []Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Receipt, len(s.receipts))
	copy(out, s.receipts)
	return out
}

// Receipt returns one receipt by ID.
func (s *SessionStore) Receipt(id string) (Receipt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.receipts {
		if r.ID == id {
			return r, true
		}
	}
	return Receipt{}, false
}

// UpdateReceipt mutates one receipt in place. Updates to different IDs touch
// disjoint entries, so concurrently completing extractions never overwrite
// each other.
func (s *SessionStore) UpdateReceipt(id string, fn func(*Receipt)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.receipts {
		if s.receipts[i].ID == id {
			fn(&s.receipts[i])
			return true
		}
	}
	return false
}

// LinkedExpenseIDs returns the IDs of expenses currently referencing the
// receipt.
func (s *SessionStore) LinkedExpenseIDs(receiptID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, e := range s.expenses {
		for _, rid := range e.LinkedReceiptIDs {
			if rid == receiptID {
				ids = append(ids, e.ID)
				break
			}
		}
	}
	return ids
}

// RemoveReceipt strips the receipt's ID from every expense, then removes the
// receipt itself, all in one critical section. The unlink runs first so the
// collections never reference a missing receipt.
func (s *SessionStore) RemoveReceipt(id string) (Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.receipts {
		if r.ID != id {
			continue
		}
		s.expenses = RemoveReceiptReferences(s.expenses, id)
		s.receipts = append(s.receipts[:i], s.receipts[i+1:]...)
		return r, true
	}
	return Receipt{}, false
}

// Expenses returns a copy of the expense collection in display order.
func (s *SessionStore) Expenses() []Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Expense, len(s.expenses))
	copy(out, s.expenses)
	return out
}

// MutateExpenses replaces the expense collection with fn's result, computed
// against consistent snapshots of both collections under the lock.
func (s *SessionStore) MutateExpenses(fn func(expenses []Expense, receipts []Receipt) []Expense) []Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses = fn(s.expenses, s.receipts)
	out := make([]Expense, len(s.expenses))
	copy(out, s.expenses)
	return out
}

// DeleteExpense removes one expense. Receipts are unaffected.
func (s *SessionStore) DeleteExpense(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.expenses {
		if e.ID == id {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return true
		}
	}
	return false
}
