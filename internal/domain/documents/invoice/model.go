// Package invoice provides the Invoice document with its payment-oriented
// status lifecycle.
package invoice

import (
	"context"
	"time"

	"tally/internal/core/apperror"
	"tally/internal/core/entity"
	"tally/internal/core/id"
	"tally/internal/domain/documents"
)

// Invoice statuses.
const (
	StatusDraft         = "draft"
	StatusSent          = "sent"
	StatusIssued        = "issued"
	StatusPartiallyPaid = "partially_paid"
	StatusPaid          = "paid"
	StatusCancelled     = "cancelled"
	StatusRefunded      = "refunded"
)

// Transitions is the invoice status machine. cancelled and refunded are
// terminal; a refunded invoice can only be reopened through the explicit
// Reopen operation, never via ChangeStatus.
var Transitions = entity.TransitionTable{
	StatusDraft:         {StatusSent, StatusIssued, StatusCancelled},
	StatusSent:          {StatusIssued, StatusPaid, StatusPartiallyPaid, StatusCancelled},
	StatusIssued:        {StatusPaid, StatusPartiallyPaid, StatusCancelled},
	StatusPartiallyPaid: {StatusPaid, StatusCancelled},
	StatusPaid:          {StatusRefunded},
}

// DefaultDueDays is the payment window applied when none is given.
const DefaultDueDays = 30

// Invoice represents a bill issued to a client.
type Invoice struct {
	entity.Document

	ClientID   id.ID `db:"client_id" json:"clientId"`
	CurrencyID id.ID `db:"currency_id" json:"currencyId"`

	// DueDate is the payment deadline
	DueDate time.Time `db:"due_date" json:"dueDate"`

	Status string `db:"status" json:"status"`

	// QuoteID references the source quote when converted
	QuoteID *string `db:"quote_id" json:"quoteId,omitempty"`

	documents.Totals

	// Lines are frozen snapshots taken at write time
	Lines []documents.SnapshotLine `db:"-" json:"lines"`
}

// New creates a draft invoice for a client.
func New(clientID, currencyID id.ID) *Invoice {
	doc := entity.NewDocument()
	return &Invoice{
		Document:   doc,
		ClientID:   clientID,
		CurrencyID: currencyID,
		DueDate:    doc.Date.AddDate(0, 0, DefaultDueDays),
		Status:     StatusDraft,
		Lines:      make([]documents.SnapshotLine, 0),
	}
}

// Validate implements entity.Validatable.
func (inv *Invoice) Validate(ctx context.Context) error {
	if err := inv.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(inv.ClientID) {
		return apperror.NewValidation("client is required").
			WithDetail("field", "clientId")
	}
	if id.IsNil(inv.CurrencyID) {
		return apperror.NewValidation("currency is required").
			WithDetail("field", "currencyId")
	}
	if inv.DueDate.Before(inv.Date) {
		return apperror.NewValidation("due date must not precede the invoice date").
			WithDetail("field", "dueDate")
	}
	if len(inv.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	return nil
}

// SetLines replaces the table part and recomputes totals.
func (inv *Invoice) SetLines(lines []documents.SnapshotLine) {
	inv.Lines = lines
	inv.Totals = documents.ComputeTotals(inv.Lines)
}

// CanEdit reports whether lines may still change (draft only).
func (inv *Invoice) CanEdit() bool {
	return inv.Status == StatusDraft
}

// IsOverdue reports whether payment is late: past due and not settled.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	switch inv.Status {
	case StatusPaid, StatusCancelled, StatusRefunded:
		return false
	}
	return now.After(inv.DueDate)
}

// CanMarkPaid reports whether the direct mark-as-paid shortcut applies:
// a billed invoice, or any overdue one that is not already settled.
func (inv *Invoice) CanMarkPaid(now time.Time) bool {
	switch inv.Status {
	case StatusSent, StatusIssued, StatusPartiallyPaid:
		return true
	}
	return inv.IsOverdue(now)
}
