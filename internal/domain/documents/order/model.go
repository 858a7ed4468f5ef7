// Package order provides the Order document, produced by converting an
// accepted quote.
package order

import (
	"context"

	"tally/internal/core/apperror"
	"tally/internal/core/entity"
	"tally/internal/core/id"
	"tally/internal/domain/documents"
)

// Order statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Transitions is the order status machine.
var Transitions = entity.TransitionTable{
	StatusPending: {StatusCompleted, StatusCancelled},
}

// Order represents a confirmed sale, created from an accepted quote.
type Order struct {
	entity.Document

	ClientID   id.ID `db:"client_id" json:"clientId"`
	CurrencyID id.ID `db:"currency_id" json:"currencyId"`

	// QuoteID references the originating quote
	QuoteID *string `db:"quote_id" json:"quoteId,omitempty"`

	Status string `db:"status" json:"status"`

	documents.Totals

	// Lines are snapshots copied from the source quote
	Lines []documents.SnapshotLine `db:"-" json:"lines"`
}

// New creates a pending order.
func New(clientID, currencyID id.ID) *Order {
	return &Order{
		Document:   entity.NewDocument(),
		ClientID:   clientID,
		CurrencyID: currencyID,
		Status:     StatusPending,
		Lines:      make([]documents.SnapshotLine, 0),
	}
}

// Validate implements entity.Validatable.
func (o *Order) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(o.ClientID) {
		return apperror.NewValidation("client is required").
			WithDetail("field", "clientId")
	}
	if id.IsNil(o.CurrencyID) {
		return apperror.NewValidation("currency is required").
			WithDetail("field", "currencyId")
	}
	if len(o.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}
	return nil
}

// SetLines replaces the table part and recomputes totals.
func (o *Order) SetLines(lines []documents.SnapshotLine) {
	o.Lines = lines
	o.Totals = documents.ComputeTotals(o.Lines)
}
