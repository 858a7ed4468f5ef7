// Package documents holds types and helpers shared by the quote, order,
// and invoice document packages.
package documents

import (
	"context"

	"tally/internal/core/entity"
	"tally/internal/core/id"
	"tally/internal/core/types"
)

// Document type names used in status history and audit rows.
const (
	TypeQuote         = "Quote"
	TypeOrder         = "Order"
	TypeInvoice       = "Invoice"
	TypeStockMovement = "StockMovement"
)

// SnapshotLine is one document line. Product name, SKU, unit price, and
// tax rate are copied from the product at write time and never change
// afterwards, even if the product is edited or deleted.
type SnapshotLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	// ProductID references the live product; the fields below are the frozen copy.
	ProductID   id.ID   `db:"product_id" json:"productId"`
	ProductName string  `db:"product_name" json:"productName"`
	SKU         *string `db:"sku" json:"sku,omitempty"`

	Quantity       types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice      types.Money    `db:"unit_price" json:"unitPrice"`
	TaxRatePercent types.Money    `db:"tax_rate_percent" json:"taxRatePercent"`

	// Computed: LineTotal = Quantity × UnitPrice; TaxAmount = LineTotal × rate/100.
	LineTotal types.Money `db:"line_total" json:"lineTotal"`
	TaxAmount types.Money `db:"tax_amount" json:"taxAmount"`
}

// Compute fills the derived amounts from quantity, price, and rate.
func (l *SnapshotLine) Compute() {
	l.LineTotal = l.UnitPrice.Mul(l.Quantity.Decimal())
	l.TaxAmount = types.Percent(l.LineTotal, l.TaxRatePercent)
}

// Total returns the line total including tax.
func (l *SnapshotLine) Total() types.Money {
	return l.LineTotal.Add(l.TaxAmount)
}

// Clone returns a copy with a fresh line ID, used when duplicating
// documents or copying lines across a conversion.
func (l SnapshotLine) Clone() SnapshotLine {
	c := l
	c.LineID = id.New()
	return c
}

// Totals aggregates line amounts into document totals.
type Totals struct {
	Subtotal types.Money `db:"subtotal" json:"subtotal"`
	TaxTotal types.Money `db:"tax_total" json:"taxTotal"`
	Total    types.Money `db:"total" json:"total"`
}

// ComputeTotals recomputes every line and sums them.
func ComputeTotals(lines []SnapshotLine) Totals {
	t := Totals{Subtotal: types.Zero(), TaxTotal: types.Zero(), Total: types.Zero()}
	for i := range lines {
		lines[i].Compute()
		t.Subtotal = t.Subtotal.Add(lines[i].LineTotal)
		t.TaxTotal = t.TaxTotal.Add(lines[i].TaxAmount)
	}
	t.Total = t.Subtotal.Add(t.TaxTotal)
	return t
}

// HistoryRepository persists status transition history. Rows are
// append-only: there is no update or delete.
type HistoryRepository interface {
	Append(ctx context.Context, row entity.StatusHistory) error
	ListByDocument(ctx context.Context, documentID id.ID) ([]entity.StatusHistory, error)
}
