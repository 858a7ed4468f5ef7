// Package stock provides the stock movement ledger. Movements are the
// source of truth for inventory changes; the denormalized
// product.stock_quantity is kept consistent with the ledger by this
// package, inside the same transaction as every movement write.
package stock

import (
	"context"
	"time"

	"tally/internal/core/apperror"
	"tally/internal/core/entity"
	"tally/internal/core/id"
	"tally/internal/core/types"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	// TypeIn records goods arriving (purchases, returns in)
	TypeIn MovementType = "in"
	// TypeOut records goods leaving (sales, write-offs); quantity is
	// stored negative regardless of input sign
	TypeOut MovementType = "out"
	// TypeAdjustment records a signed correction (stocktake difference)
	TypeAdjustment MovementType = "adjustment"
)

// Movement is one row of the stock ledger.
type Movement struct {
	entity.Document

	ProductID id.ID        `db:"product_id" json:"productId"`
	Type      MovementType `db:"type" json:"type"`

	// Quantity is the signed delta applied to the product's stock:
	// positive for in, negative for out, either for adjustment.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Reference is a free-form document reference (supplier invoice no, etc.)
	Reference *string `db:"reference" json:"reference,omitempty"`

	// Reason describes why the movement happened
	Reason *string `db:"reason" json:"reason,omitempty"`

	// ProviderID references the supplying client, for incoming goods
	ProviderID *string `db:"provider_id" json:"providerId,omitempty"`

	// CurrencyID and UnitCost describe the acquisition cost
	CurrencyID *string      `db:"currency_id" json:"currencyId,omitempty"`
	UnitCost   *types.Money `db:"unit_cost" json:"unitCost,omitempty"`

	// Attachments are metadata rows only; file contents live elsewhere
	Attachments []Attachment `db:"-" json:"attachments,omitempty"`
}

// Attachment is file metadata linked to a movement. Attachment rows are
// soft-deleted and restored together with their movement.
type Attachment struct {
	ID           id.ID     `db:"id" json:"id"`
	MovementID   id.ID     `db:"movement_id" json:"movementId"`
	FileName     string    `db:"file_name" json:"fileName"`
	ContentType  string    `db:"content_type" json:"contentType"`
	SizeBytes    int64     `db:"size_bytes" json:"sizeBytes"`
	DeletionMark bool      `db:"deletion_mark" json:"deletionMark"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// NewMovement creates a movement document.
func NewMovement(productID id.ID, movType MovementType, qty types.Quantity) *Movement {
	m := &Movement{
		Document:  entity.NewDocument(),
		ProductID: productID,
		Type:      movType,
		Quantity:  qty,
	}
	m.Normalize()
	return m
}

// Normalize enforces the sign convention: out movements always carry a
// negative quantity. In and adjustment movements keep the submitted
// sign, so a negative in can correct an earlier over-receipt.
func (m *Movement) Normalize() {
	if m.Type == TypeOut && m.Quantity.IsPositive() {
		m.Quantity = m.Quantity.Neg()
	}
}

// Validate implements entity.Validatable.
func (m *Movement) Validate(ctx context.Context) error {
	if err := m.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(m.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}

	switch m.Type {
	case TypeIn, TypeOut, TypeAdjustment:
	default:
		return apperror.NewValidation("invalid movement type").
			WithDetail("field", "type").
			WithDetail("value", string(m.Type))
	}

	if m.Quantity.IsZero() {
		return apperror.NewValidation("quantity must be non-zero").
			WithDetail("field", "quantity")
	}

	if m.UnitCost != nil && m.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost")
	}

	return nil
}

// Delta returns the signed stock delta this movement contributes.
// Soft-deleted movements contribute nothing.
func (m *Movement) Delta() types.Quantity {
	if m.IsDeleted() {
		return 0
	}
	return m.Quantity
}
