package stock

import (
	"context"
	"time"

	"tally/internal/core/id"
	"tally/internal/core/types"
	"tally/internal/domain"
)

// Repository defines operations for the stock movement ledger.
type Repository interface {
	Create(ctx context.Context, m *Movement) error
	GetByID(ctx context.Context, movementID id.ID) (*Movement, error)
	Update(ctx context.Context, m *Movement) error

	// GetForUpdate retrieves a movement with a row lock.
	GetForUpdate(ctx context.Context, movementID id.ID) (*Movement, error)

	// SetDeletionMark soft-deletes or restores a movement.
	SetDeletionMark(ctx context.Context, movementID id.ID, marked bool) error

	// HardDelete physically removes a movement and its attachment rows.
	HardDelete(ctx context.Context, movementID id.ID) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Movement], error)

	// SumActiveDeltas returns the ledger total for a product: the sum of
	// quantities over non-deleted movements.
	SumActiveDeltas(ctx context.Context, productID id.ID) (types.Quantity, error)

	// Attachment metadata
	GetAttachments(ctx context.Context, movementID id.ID) ([]Attachment, error)
	SaveAttachments(ctx context.Context, movementID id.ID, attachments []Attachment) error
	SetAttachmentsDeletionMark(ctx context.Context, movementID id.ID, marked bool) error
}

// ListFilter for filtering movements.
type ListFilter struct {
	domain.ListFilter

	ProductID  *id.ID
	Type       *MovementType
	ProviderID *id.ID
	DateFrom   *time.Time
	DateTo     *time.Time
}
