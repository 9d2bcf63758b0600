package expense

import "github.com/Matthew-Berthoud/Cape-Cash/internal/extraction"

// ReceiptStatus tracks a receipt through its extraction lifecycle.
// A receipt transitions pending -> processing -> completed or error exactly
// once and is never re-processed automatically.
type ReceiptStatus string

const (
	StatusPending    ReceiptStatus = "pending"
	StatusProcessing ReceiptStatus = "processing"
	StatusCompleted  ReceiptStatus = "completed"
	StatusError      ReceiptStatus = "error"
)

// Receipt is an uploaded source document plus its AI-derived fields. The
// binary payload lives in the blob store under BlobKey.
type Receipt struct {
	ID          string                  `json:"id"`
	Filename    string                  `json:"filename"`
	ContentType string                  `json:"content_type"`
	BlobKey     string                  `json:"-"`
	Status      ReceiptStatus           `json:"status"`
	Extracted   *extraction.ExpenseData `json:"extracted,omitempty"`
}

// Expense is a reviewable reimbursement line item, optionally derived from
// one or more receipts.
type Expense struct {
	ID               string   `json:"id"`
	Date             string   `json:"date"` // YYYY-MM-DD
	Amount           float64  `json:"amount"`
	Category         string   `json:"category"`
	Project          string   `json:"project"`
	Description      string   `json:"description"`
	LinkedReceiptIDs []string `json:"linked_receipt_ids"`
	IsReviewed       bool     `json:"is_reviewed"`
}

// User is the signed-in employee filing the report.
type User struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Supervisor string `json:"supervisor"`
}
