package dto

import (
	"time"

	"tally/internal/core/apperror"
	"tally/internal/core/id"
	"tally/internal/core/types"
	"tally/internal/domain/stock"
)

// CreateMovementRequest for recording stock movements.
type CreateMovementRequest struct {
	ProductID  string         `json:"productId" binding:"required"`
	Type       string         `json:"type" binding:"required"`
	Quantity   types.Quantity `json:"quantity" binding:"required"`
	Date       *time.Time     `json:"date"`
	Reference  *string        `json:"reference"`
	Reason     *string        `json:"reason"`
	ProviderID *string        `json:"providerId"`
	CurrencyID *string        `json:"currencyId"`
	UnitCost   *types.Money   `json:"unitCost"`
	Comment    string         `json:"comment"`
}

// ToEntity converts the request into a new Movement.
func (r CreateMovementRequest) ToEntity() (*stock.Movement, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return nil, apperror.NewValidation("invalid product id").
			WithDetail("field", "productId")
	}
	m := stock.NewMovement(productID, stock.MovementType(r.Type), r.Quantity)
	if r.Date != nil {
		m.Date = *r.Date
	}
	m.Reference = r.Reference
	m.Reason = r.Reason
	m.ProviderID = r.ProviderID
	m.CurrencyID = r.CurrencyID
	m.UnitCost = r.UnitCost
	m.Comment = r.Comment
	m.Normalize()
	return m, nil
}

// UpdateMovementRequest for editing stock movements. Every field is
// optional; changing the product reassigns the delta between products.
type UpdateMovementRequest struct {
	ProductID *string         `json:"productId"`
	Type      *string         `json:"type"`
	Quantity  *types.Quantity `json:"quantity"`
	Date      *time.Time      `json:"date"`
	Reference *string         `json:"reference"`
	Reason    *string         `json:"reason"`
	UnitCost  *types.Money    `json:"unitCost"`
	Comment   *string         `json:"comment"`
}

// ToInput converts the request into a movement update input.
func (r UpdateMovementRequest) ToInput() (stock.UpdateInput, error) {
	in := stock.UpdateInput{
		Quantity:  r.Quantity,
		Date:      r.Date,
		Reference: r.Reference,
		Reason:    r.Reason,
		UnitCost:  r.UnitCost,
		Comment:   r.Comment,
	}
	if r.ProductID != nil {
		productID, err := id.Parse(*r.ProductID)
		if err != nil {
			return stock.UpdateInput{}, apperror.NewValidation("invalid product id").
				WithDetail("field", "productId")
		}
		in.ProductID = &productID
	}
	if r.Type != nil {
		movType := stock.MovementType(*r.Type)
		in.Type = &movType
	}
	return in, nil
}

// ReconcileRequest narrows reconciliation to specific products.
// An empty list means every stock-tracked product.
type ReconcileRequest struct {
	ProductIDs []string `json:"productIds"`
}

// ToIDs parses the product id list.
func (r ReconcileRequest) ToIDs() ([]id.ID, error) {
	if len(r.ProductIDs) == 0 {
		return nil, nil
	}
	ids := make([]id.ID, 0, len(r.ProductIDs))
	for _, s := range r.ProductIDs {
		parsed, err := id.Parse(s)
		if err != nil {
			return nil, apperror.NewValidation("invalid product id").
				WithDetail("value", s)
		}
		ids = append(ids, parsed)
	}
	return ids, nil
}
