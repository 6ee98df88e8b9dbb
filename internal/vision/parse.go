package vision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chrishenyard/ai-receipts/internal/domain"
)

// extractedReceipt is the JSON shape the OCR prompts ask the model to emit.
// The purchase date arrives as a string because models rarely produce a
// consistent timestamp format.
type extractedReceipt struct {
	ExtractedText string  `json:"extractedText"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Vendor        string  `json:"vendor"`
	State         string  `json:"state"`
	City          string  `json:"city"`
	Country       string  `json:"country"`
	Tax           float64 `json:"tax"`
	Total         float64 `json:"total"`
	PurchaseDate  string  `json:"purchaseDate"`
}

// StripFences removes markdown code-fence markers. Models sometimes wrap
// JSON output in ```json blocks despite being told not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ParseReceipt parses model output into a draft receipt. The text must be a
// valid JSON object; unparseable dates fall back per domain.ParseDate.
func ParseReceipt(text string) (*domain.Receipt, error) {
	var extracted extractedReceipt
	if err := json.Unmarshal([]byte(text), &extracted); err != nil {
		return nil, fmt.Errorf("unmarshaling receipt: %w", err)
	}

	return &domain.Receipt{
		ExtractedText: extracted.ExtractedText,
		Title:         extracted.Title,
		Description:   extracted.Description,
		Vendor:        extracted.Vendor,
		State:         extracted.State,
		City:          extracted.City,
		Country:       extracted.Country,
		Tax:           extracted.Tax,
		Total:         extracted.Total,
		PurchaseDate:  domain.ParseDate(extracted.PurchaseDate),
	}, nil
}
