package entity

import (
	"context"
	"time"

	"tally/internal/core/apperror"
)

// Document is the base type for business documents.
// Examples: Quote, Order, Invoice, StockMovement.
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID.
func NewDocument() Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

// IsBackdated checks if document date is in the past (before today).
func (d *Document) IsBackdated() bool {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	return d.Date.Before(today)
}
