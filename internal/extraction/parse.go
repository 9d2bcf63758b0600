package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// dateFormats are tried in order when the model ignores the requested
// ISO 8601 format.
var dateFormats = []string{
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// parseExpenseJSON parses a provider's JSON response into ExpenseData,
// degrading field-by-field: an unparseable date becomes today, a category
// outside the allowed list is cleared so the caller's default applies.
func parseExpenseJSON(text string, categories []string) (*ExpenseData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	// Models occasionally wrap the object in prose; keep just the first
	// balanced-looking JSON object.
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var data ExpenseData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	data.Date = normalizeDate(data.Date)

	data.Category = strings.TrimSpace(data.Category)
	if !containsCategory(categories, data.Category) {
		data.Category = ""
	}

	data.Description = strings.TrimSpace(data.Description)

	return &data, nil
}

// normalizeDate coerces a model-supplied date string to YYYY-MM-DD, falling
// back to today when nothing parses.
func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().Format("2006-01-02")
	}

	if d, err := time.Parse("2006-01-02", raw); err == nil {
		return d.Format("2006-01-02")
	}
	for _, format := range dateFormats {
		if d, err := time.Parse(format, raw); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return time.Now().Format("2006-01-02")
}

func containsCategory(categories []string, c string) bool {
	for _, v := range categories {
		if v == c {
			return true
		}
	}
	return false
}
