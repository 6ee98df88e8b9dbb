package domain

import "time"

// Column length limits, enforced before persistence. Extracted model output
// is truncated to fit rather than rejected.
const (
	MaxTextLen     = 4096
	MaxNameLen     = 100
	MaxImageURLLen = 500
)

type Category struct {
	CategoryID int64  `json:"categoryId"`
	Name       string `json:"name"`
}

// Receipt is both the persisted row shape and the wire shape exchanged with
// the frontend. A draft produced by scanning has ReceiptID zero and no
// timestamps; both are assigned on save.
type Receipt struct {
	ReceiptID     int64     `json:"receiptId"`
	ExtractedText string    `json:"extractedText" validate:"max=4096"`
	Title         string    `json:"title" validate:"max=100"`
	Description   string    `json:"description" validate:"max=4096"`
	Vendor        string    `json:"vendor" validate:"max=100"`
	State         string    `json:"state" validate:"max=100"`
	City          string    `json:"city" validate:"max=100"`
	Country       string    `json:"country" validate:"max=100"`
	ImageURL      string    `json:"imageUrl" validate:"required,max=500"`
	Tax           float64   `json:"tax" validate:"gte=0"`
	Total         float64   `json:"total" validate:"gt=0"`
	PurchaseDate  time.Time `json:"purchaseDate" validate:"lte"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	CategoryID    int64     `json:"categoryId" validate:"required"`
}

// ClampFields truncates free-text fields to their column limits.
func (r *Receipt) ClampFields() {
	r.ExtractedText = Truncate(r.ExtractedText, MaxTextLen)
	r.Title = Truncate(r.Title, MaxNameLen)
	r.Description = Truncate(r.Description, MaxTextLen)
	r.Vendor = Truncate(r.Vendor, MaxNameLen)
	r.State = Truncate(r.State, MaxNameLen)
	r.City = Truncate(r.City, MaxNameLen)
	r.Country = Truncate(r.Country, MaxNameLen)
	r.ImageURL = Truncate(r.ImageURL, MaxImageURLLen)
}
