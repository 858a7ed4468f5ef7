package invoice

import (
	"context"
	"time"

	"tally/internal/core/id"
	"tally/internal/domain"
	"tally/internal/domain/documents"
)

// Repository defines operations for invoice documents.
type Repository interface {
	Create(ctx context.Context, doc *Invoice) error
	GetByID(ctx context.Context, docID id.ID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	Update(ctx context.Context, doc *Invoice) error
	Delete(ctx context.Context, docID id.ID) error

	GetLines(ctx context.Context, docID id.ID) ([]documents.SnapshotLine, error)
	SaveLines(ctx context.Context, docID id.ID, lines []documents.SnapshotLine) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error)

	GetForUpdate(ctx context.Context, docID id.ID) (*Invoice, error)
}

// ListFilter for filtering invoices.
type ListFilter struct {
	domain.ListFilter

	ClientID *id.ID
	Status   *string
	DateFrom *time.Time
	DateTo   *time.Time

	// Overdue selects invoices past due and not settled
	Overdue *bool
}
