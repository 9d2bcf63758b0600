package extraction

import (
	"fmt"
	"strings"
	"time"
)

// ExpenseData contains the structured fields derived from a receipt.
type ExpenseData struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

// Extractor analyzes a receipt document and derives expense fields.
type Extractor interface {
	// Extract analyzes a receipt image/PDF and returns the derived fields.
	Extract(imageData []byte, contentType string) (*ExpenseData, error)
	// Close releases provider resources.
	Close() error
}

// Fallback returns the safe defaults substituted when a provider responds
// but nothing usable can be parsed, so the user can still edit the row.
func Fallback(now time.Time, categories []string) *ExpenseData {
	category := ""
	if len(categories) > 0 {
		category = categories[0]
	}
	return &ExpenseData{
		Date:        now.Format("2006-01-02"),
		Amount:      0,
		Category:    category,
		Description: "",
	}
}

// buildPrompt produces the shared instruction text for all providers. The
// allowed category list is inlined so the model picks from it directly.
func buildPrompt(categories []string) string {
	var b strings.Builder
	b.WriteString(`You are analyzing a receipt or invoice document. Carefully read all text in the image and extract the following information:

1. **Date**: Find the transaction date, purchase date, or invoice date. Convert it to ISO 8601 format (YYYY-MM-DD). Common formats: MM/DD/YYYY, DD/MM/YYYY, or written dates.

2. **Total Amount**: Find the final total, grand total, or amount due, usually at the bottom and labeled "TOTAL", "Amount Due", or similar. Extract only the numeric value (e.g., 42.75 for $42.75).

3. **Description**: Write a short, concise description of the expense item (e.g., "Team Lunch", "Office Keyboard", "Uber to Airport").

4. **Category**: Choose the single most appropriate category from this exact list:
`)
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString(`
Context clues for categorization:
- Grocery receipts are usually "9080 Employee Morale"
- Parking receipts are "8197 G&A Office parking/tolls"
- Computer peripherals/electronics are "8190 G&A Office supplies"
- Meals should be "8321 G&A Business meals" or "5500 Direct Meals and Incidental" depending on context, default to 8321 if unsure
- Travel expenses like flights/trains are "8320 G&A Travel"

Return ONLY valid JSON in this exact format:
{
  "date": "YYYY-MM-DD",
  "amount": 0.00,
  "category": "one entry from the list above",
  "description": "short description"
}

Important:
- The date must be in YYYY-MM-DD format
- The amount must be a number (not a string), representing dollars and cents
- The category must be copied verbatim from the list
- If you cannot find a field, use null for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`)
	return b.String()
}
