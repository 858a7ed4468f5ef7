package dto

import (
	"time"

	"tally/internal/core/apperror"
	"tally/internal/core/id"
	"tally/internal/core/types"
	"tally/internal/domain/documents"
	"tally/internal/domain/documents/invoice"
	"tally/internal/domain/documents/quote"
)

// LineRequest is one requested document line. Only the product reference
// and quantity are required; price and tax rate default to the product's
// current values and end up frozen in the stored snapshot.
type LineRequest struct {
	ProductID string         `json:"productId" binding:"required"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	UnitPrice *types.Money   `json:"unitPrice"`
	TaxRateID *string        `json:"taxRateId"`
}

// ToInput converts the request into a domain line input.
func (r LineRequest) ToInput() (documents.LineInput, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return documents.LineInput{}, apperror.NewValidation("invalid product id").
			WithDetail("field", "productId").
			WithDetail("value", r.ProductID)
	}
	in := documents.LineInput{
		ProductID: productID,
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
	}
	if r.TaxRateID != nil && *r.TaxRateID != "" {
		taxRateID, err := id.Parse(*r.TaxRateID)
		if err != nil {
			return documents.LineInput{}, apperror.NewValidation("invalid tax rate id").
				WithDetail("field", "taxRateId").
				WithDetail("value", *r.TaxRateID)
		}
		in.TaxRateID = &taxRateID
	}
	return in, nil
}

func toLineInputs(lines []LineRequest) ([]documents.LineInput, error) {
	if lines == nil {
		return nil, nil
	}
	inputs := make([]documents.LineInput, 0, len(lines))
	for _, l := range lines {
		in, err := l.ToInput()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// --- Quotes ---

// CreateQuoteRequest for creating quotes.
type CreateQuoteRequest struct {
	ClientID   string        `json:"clientId" binding:"required"`
	CurrencyID string        `json:"currencyId" binding:"required"`
	Date       *time.Time    `json:"date"`
	ValidUntil *time.Time    `json:"validUntil"`
	Comment    string        `json:"comment"`
	Lines      []LineRequest `json:"lines" binding:"required,min=1"`
}

// ToInput converts the request into a quote create input.
func (r CreateQuoteRequest) ToInput() (quote.CreateInput, error) {
	clientID, err := id.Parse(r.ClientID)
	if err != nil {
		return quote.CreateInput{}, apperror.NewValidation("invalid client id").
			WithDetail("field", "clientId")
	}
	currencyID, err := id.Parse(r.CurrencyID)
	if err != nil {
		return quote.CreateInput{}, apperror.NewValidation("invalid currency id").
			WithDetail("field", "currencyId")
	}
	lines, err := toLineInputs(r.Lines)
	if err != nil {
		return quote.CreateInput{}, err
	}
	return quote.CreateInput{
		ClientID:   clientID,
		CurrencyID: currencyID,
		Date:       r.Date,
		ValidUntil: r.ValidUntil,
		Comment:    r.Comment,
		Lines:      lines,
	}, nil
}

// UpdateQuoteRequest for updating draft quotes. Absent lines leave the
// table part untouched.
type UpdateQuoteRequest struct {
	ValidUntil *time.Time    `json:"validUntil"`
	Comment    *string       `json:"comment"`
	Lines      []LineRequest `json:"lines"`
}

// ToInput converts the request into a quote update input.
func (r UpdateQuoteRequest) ToInput() (quote.UpdateInput, error) {
	lines, err := toLineInputs(r.Lines)
	if err != nil {
		return quote.UpdateInput{}, err
	}
	return quote.UpdateInput{
		ValidUntil: r.ValidUntil,
		Comment:    r.Comment,
		Lines:      lines,
	}, nil
}

// --- Invoices ---

// CreateInvoiceRequest for creating invoices directly (not via conversion).
type CreateInvoiceRequest struct {
	ClientID   string        `json:"clientId" binding:"required"`
	CurrencyID string        `json:"currencyId" binding:"required"`
	Date       *time.Time    `json:"date"`
	DueDate    *time.Time    `json:"dueDate"`
	Comment    string        `json:"comment"`
	Lines      []LineRequest `json:"lines" binding:"required,min=1"`
}

// ToInput converts the request into an invoice create input.
func (r CreateInvoiceRequest) ToInput() (invoice.CreateInput, error) {
	clientID, err := id.Parse(r.ClientID)
	if err != nil {
		return invoice.CreateInput{}, apperror.NewValidation("invalid client id").
			WithDetail("field", "clientId")
	}
	currencyID, err := id.Parse(r.CurrencyID)
	if err != nil {
		return invoice.CreateInput{}, apperror.NewValidation("invalid currency id").
			WithDetail("field", "currencyId")
	}
	lines, err := toLineInputs(r.Lines)
	if err != nil {
		return invoice.CreateInput{}, err
	}
	return invoice.CreateInput{
		ClientID:   clientID,
		CurrencyID: currencyID,
		Date:       r.Date,
		DueDate:    r.DueDate,
		Comment:    r.Comment,
		Lines:      lines,
	}, nil
}

// UpdateInvoiceRequest for updating draft invoices.
type UpdateInvoiceRequest struct {
	DueDate *time.Time    `json:"dueDate"`
	Comment *string       `json:"comment"`
	Lines   []LineRequest `json:"lines"`
}

// ToInput converts the request into an invoice update input.
func (r UpdateInvoiceRequest) ToInput() (invoice.UpdateInput, error) {
	lines, err := toLineInputs(r.Lines)
	if err != nil {
		return invoice.UpdateInput{}, err
	}
	return invoice.UpdateInput{
		DueDate: r.DueDate,
		Comment: r.Comment,
		Lines:   lines,
	}, nil
}

// MarkPaidRequest for the explicit paid transition.
type MarkPaidRequest struct {
	Comment string `json:"comment"`
}

// ReopenRequest for reopening a refunded invoice.
type ReopenRequest struct {
	Comment string `json:"comment" binding:"required"`
}
