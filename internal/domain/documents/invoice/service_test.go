package invoice

import (
	"context"
	"testing"

	"tally/internal/core/apperror"
	"tally/internal/core/entity"
	"tally/internal/core/id"
	"tally/internal/core/types"
	"tally/internal/domain"
	"tally/internal/domain/documents"
	"tally/pkg/numerator"
)

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	invoices map[id.ID]*Invoice
	lines    map[id.ID][]documents.SnapshotLine
}

func newFakeRepo(items ...*Invoice) *fakeRepo {
	r := &fakeRepo{
		invoices: make(map[id.ID]*Invoice),
		lines:    make(map[id.ID][]documents.SnapshotLine),
	}
	for _, inv := range items {
		r.invoices[inv.ID] = inv
		r.lines[inv.ID] = inv.Lines
	}
	return r
}

func (r *fakeRepo) Create(ctx context.Context, doc *Invoice) error {
	r.invoices[doc.ID] = doc
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, docID id.ID) (*Invoice, error) {
	inv, ok := r.invoices[docID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", docID.String())
	}
	copied := *inv
	return &copied, nil
}

func (r *fakeRepo) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	return nil, apperror.NewNotFound("invoice", number)
}

func (r *fakeRepo) Update(ctx context.Context, doc *Invoice) error {
	if _, ok := r.invoices[doc.ID]; !ok {
		return apperror.NewNotFound("invoice", doc.ID.String())
	}
	copied := *doc
	r.invoices[doc.ID] = &copied
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, docID id.ID) error {
	delete(r.invoices, docID)
	return nil
}

func (r *fakeRepo) GetLines(ctx context.Context, docID id.ID) ([]documents.SnapshotLine, error) {
	return r.lines[docID], nil
}

func (r *fakeRepo) SaveLines(ctx context.Context, docID id.ID, lines []documents.SnapshotLine) error {
	r.lines[docID] = lines
	return nil
}

func (r *fakeRepo) List(ctx context.Context, f ListFilter) (domain.ListResult[*Invoice], error) {
	return domain.ListResult[*Invoice]{}, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, docID id.ID) (*Invoice, error) {
	return r.GetByID(ctx, docID)
}

var _ Repository = (*fakeRepo)(nil)

type fakeHistory struct {
	rows []entity.StatusHistory
}

func (h *fakeHistory) Append(ctx context.Context, row entity.StatusHistory) error {
	h.rows = append(h.rows, row)
	return nil
}

func (h *fakeHistory) ListByDocument(ctx context.Context, documentID id.ID) ([]entity.StatusHistory, error) {
	return h.rows, nil
}

func testInvoice(status string) *Invoice {
	inv := New(id.New(), id.New())
	inv.Number = "INV-2026-00001"
	inv.Status = status
	inv.SetLines([]documents.SnapshotLine{{
		LineID:         id.New(),
		LineNo:         1,
		ProductID:      id.New(),
		ProductName:    "Widget",
		Quantity:       types.NewQuantityFromFloat64(1),
		UnitPrice:      types.MustMoney("100"),
		TaxRatePercent: types.MustMoney("20"),
	}})
	return inv
}

func newTestService(repo *fakeRepo, history *fakeHistory) *Service {
	return NewService(repo, history, nil, &numerator.MockGenerator{}, noopTxManager{})
}

func TestService_MarkAsPaid(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		status  string
		overdue bool
		wantOK  bool
	}{
		{status: StatusSent, wantOK: true},
		{status: StatusIssued, wantOK: true},
		{status: StatusPartiallyPaid, wantOK: true},
		{status: StatusDraft, wantOK: false},
		{status: StatusDraft, overdue: true, wantOK: true},
		{status: StatusPaid, wantOK: false},
		{status: StatusPaid, overdue: true, wantOK: false},
		{status: StatusCancelled, overdue: true, wantOK: false},
		{status: StatusRefunded, overdue: true, wantOK: false},
	}

	for _, tc := range tests {
		name := tc.status
		if tc.overdue {
			name += "_overdue"
		}
		t.Run(name, func(t *testing.T) {
			inv := testInvoice(tc.status)
			if tc.overdue {
				inv.DueDate = inv.Date.AddDate(0, 0, -1)
			}
			repo := newFakeRepo(inv)
			history := &fakeHistory{}
			svc := newTestService(repo, history)

			got, err := svc.MarkAsPaid(ctx, inv.ID, "wire received")

			if !tc.wantOK {
				if !apperror.IsInvalidTransition(err) {
					t.Fatalf("got %v, want invalid transition", err)
				}
				stored, _ := repo.GetByID(ctx, inv.ID)
				if stored.Status != tc.status {
					t.Errorf("rejected transition must not change status, got %s", stored.Status)
				}
				return
			}

			if err != nil {
				t.Fatalf("MarkAsPaid: %v", err)
			}
			if got.Status != StatusPaid {
				t.Errorf("status = %s, want paid", got.Status)
			}
			if len(history.rows) != 1 {
				t.Fatalf("history rows = %d, want 1", len(history.rows))
			}
			if history.rows[0].FromStatus != tc.status || history.rows[0].ToStatus != StatusPaid {
				t.Errorf("history %s->%s, want %s->paid",
					history.rows[0].FromStatus, history.rows[0].ToStatus, tc.status)
			}
			if history.rows[0].Comment != "wire received" {
				t.Errorf("comment = %q", history.rows[0].Comment)
			}
		})
	}
}

func TestService_Reopen(t *testing.T) {
	ctx := context.Background()

	t.Run("refunded returns to draft", func(t *testing.T) {
		inv := testInvoice(StatusRefunded)
		repo := newFakeRepo(inv)
		history := &fakeHistory{}
		svc := newTestService(repo, history)

		got, err := svc.Reopen(ctx, inv.ID, "correcting amounts")
		if err != nil {
			t.Fatalf("Reopen: %v", err)
		}
		if got.Status != StatusDraft {
			t.Errorf("status = %s, want draft", got.Status)
		}
		if len(history.rows) != 1 || history.rows[0].ToStatus != StatusDraft {
			t.Error("reopen must append a history row to draft")
		}
	})

	t.Run("only refunded can be reopened", func(t *testing.T) {
		for _, status := range []string{StatusDraft, StatusSent, StatusIssued, StatusPaid, StatusCancelled} {
			inv := testInvoice(status)
			repo := newFakeRepo(inv)
			svc := newTestService(repo, &fakeHistory{})

			_, err := svc.Reopen(ctx, inv.ID, "")
			appErr, ok := apperror.AsAppError(err)
			if !ok || appErr.Code != "INVOICE_NOT_REOPENABLE" {
				t.Errorf("Reopen(%s): got %v, want INVOICE_NOT_REOPENABLE", status, err)
			}
		}
	})

	t.Run("refunded is sealed against ChangeStatus", func(t *testing.T) {
		inv := testInvoice(StatusRefunded)
		repo := newFakeRepo(inv)
		svc := newTestService(repo, &fakeHistory{})

		if _, err := svc.ChangeStatus(ctx, inv.ID, StatusDraft, ""); !apperror.IsInvalidTransition(err) {
			t.Errorf("got %v, want invalid transition", err)
		}
	})
}

func TestService_ChangeStatus(t *testing.T) {
	ctx := context.Background()
	inv := testInvoice(StatusDraft)
	repo := newFakeRepo(inv)
	history := &fakeHistory{}
	svc := newTestService(repo, history)

	got, err := svc.ChangeStatus(ctx, inv.ID, StatusIssued, "issued to client")
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if got.Status != StatusIssued {
		t.Errorf("status = %s, want issued", got.Status)
	}
	if len(history.rows) != 1 || history.rows[0].Comment != "issued to client" {
		t.Error("transition must append one history row with the comment")
	}
}

func TestService_Update_LockedOutsideDraft(t *testing.T) {
	ctx := context.Background()
	inv := testInvoice(StatusIssued)
	repo := newFakeRepo(inv)
	svc := newTestService(repo, &fakeHistory{})

	comment := "no longer editable"
	_, err := svc.Update(ctx, inv.ID, UpdateInput{Comment: &comment})
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeDocumentLocked {
		t.Fatalf("got %v, want %s", err, apperror.CodeDocumentLocked)
	}
}

func TestService_Delete_DraftOnly(t *testing.T) {
	ctx := context.Background()

	t.Run("draft deletes", func(t *testing.T) {
		inv := testInvoice(StatusDraft)
		repo := newFakeRepo(inv)
		svc := newTestService(repo, &fakeHistory{})

		if err := svc.Delete(ctx, inv.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := repo.GetByID(ctx, inv.ID); !apperror.IsNotFound(err) {
			t.Error("draft invoice should be gone")
		}
	})

	t.Run("issued refuses", func(t *testing.T) {
		inv := testInvoice(StatusIssued)
		repo := newFakeRepo(inv)
		svc := newTestService(repo, &fakeHistory{})

		err := svc.Delete(ctx, inv.ID)
		appErr, ok := apperror.AsAppError(err)
		if !ok || appErr.Code != "INVOICE_NOT_DELETABLE" {
			t.Fatalf("got %v, want INVOICE_NOT_DELETABLE", err)
		}
	})
}
