// Package quote provides the Quote document: a priced offer to a client
// that moves through a fixed status lifecycle and can be converted into
// an order or an invoice once accepted.
package quote

import (
	"context"
	"time"

	"tally/internal/core/apperror"
	"tally/internal/core/entity"
	"tally/internal/core/id"
	"tally/internal/domain/documents"
)

// Quote statuses.
const (
	StatusDraft     = "draft"
	StatusSent      = "sent"
	StatusViewed    = "viewed"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusExpired   = "expired"
	StatusConverted = "converted"
)

// Transitions is the quote status machine. rejected and converted are
// terminal; expired quotes may be re-sent.
var Transitions = entity.TransitionTable{
	StatusDraft:    {StatusSent, StatusRejected},
	StatusSent:     {StatusViewed, StatusAccepted, StatusRejected, StatusExpired},
	StatusViewed:   {StatusAccepted, StatusRejected, StatusExpired},
	StatusAccepted: {StatusConverted},
	StatusExpired:  {StatusSent},
}

// DefaultValidityDays is the validity window applied when none is given.
const DefaultValidityDays = 30

// Quote represents a priced offer to a client.
type Quote struct {
	entity.Document

	ClientID   id.ID `db:"client_id" json:"clientId"`
	CurrencyID id.ID `db:"currency_id" json:"currencyId"`

	// ValidUntil is the last day the offer stands
	ValidUntil time.Time `db:"valid_until" json:"validUntil"`

	Status string `db:"status" json:"status"`

	// ConvertedToID references the order or invoice produced from this quote
	ConvertedToID   *string `db:"converted_to_id" json:"convertedToId,omitempty"`
	ConvertedToType *string `db:"converted_to_type" json:"convertedToType,omitempty"`

	documents.Totals

	// Lines are frozen snapshots taken at write time
	Lines []documents.SnapshotLine `db:"-" json:"lines"`
}

// New creates a draft quote for a client.
func New(clientID, currencyID id.ID) *Quote {
	doc := entity.NewDocument()
	return &Quote{
		Document:   doc,
		ClientID:   clientID,
		CurrencyID: currencyID,
		ValidUntil: doc.Date.AddDate(0, 0, DefaultValidityDays),
		Status:     StatusDraft,
		Lines:      make([]documents.SnapshotLine, 0),
	}
}

// Validate implements entity.Validatable.
func (q *Quote) Validate(ctx context.Context) error {
	if err := q.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(q.ClientID) {
		return apperror.NewValidation("client is required").
			WithDetail("field", "clientId")
	}
	if id.IsNil(q.CurrencyID) {
		return apperror.NewValidation("currency is required").
			WithDetail("field", "currencyId")
	}
	if q.ValidUntil.Before(q.Date) {
		return apperror.NewValidation("valid until must not precede the quote date").
			WithDetail("field", "validUntil")
	}
	if len(q.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	return nil
}

// SetLines replaces the table part and recomputes totals.
func (q *Quote) SetLines(lines []documents.SnapshotLine) {
	q.Lines = lines
	q.Totals = documents.ComputeTotals(q.Lines)
}

// CanEdit reports whether lines may still change (draft only).
func (q *Quote) CanEdit() bool {
	return q.Status == StatusDraft
}

// CanDelete reports whether soft delete is allowed (draft or rejected).
func (q *Quote) CanDelete() bool {
	return q.Status == StatusDraft || q.Status == StatusRejected
}

// CanConvert reports whether the quote can be turned into an order or invoice.
func (q *Quote) CanConvert() bool {
	return q.Status == StatusAccepted
}

// IsPastValidity reports whether the validity window has lapsed.
func (q *Quote) IsPastValidity(now time.Time) bool {
	return now.After(q.ValidUntil)
}
