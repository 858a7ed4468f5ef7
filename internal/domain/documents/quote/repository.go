package quote

import (
	"context"
	"time"

	"tally/internal/core/id"
	"tally/internal/domain"
	"tally/internal/domain/documents"
)

// Repository defines operations for quote documents.
type Repository interface {
	Create(ctx context.Context, doc *Quote) error
	GetByID(ctx context.Context, docID id.ID) (*Quote, error)
	GetByNumber(ctx context.Context, number string) (*Quote, error)
	Update(ctx context.Context, doc *Quote) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]documents.SnapshotLine, error)
	SaveLines(ctx context.Context, docID id.ID, lines []documents.SnapshotLine) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Quote], error)

	// GetForUpdate retrieves a quote with a row lock for status changes
	// and conversions.
	GetForUpdate(ctx context.Context, docID id.ID) (*Quote, error)
}

// ListFilter for filtering quotes.
type ListFilter struct {
	domain.ListFilter

	ClientID *id.ID
	Status   *string
	DateFrom *time.Time
	DateTo   *time.Time
}
