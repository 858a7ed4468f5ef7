package order

import (
	"context"
	"time"

	"tally/internal/core/id"
	"tally/internal/domain"
	"tally/internal/domain/documents"
)

// Repository defines operations for order documents.
type Repository interface {
	Create(ctx context.Context, doc *Order) error
	GetByID(ctx context.Context, docID id.ID) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	Update(ctx context.Context, doc *Order) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]documents.SnapshotLine, error)
	SaveLines(ctx context.Context, docID id.ID, lines []documents.SnapshotLine) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Order], error)

	GetForUpdate(ctx context.Context, docID id.ID) (*Order, error)
}

// ListFilter for filtering orders.
type ListFilter struct {
	domain.ListFilter

	ClientID *id.ID
	Status   *string
	DateFrom *time.Time
	DateTo   *time.Time
}
