package quote

import (
	"context"
	"testing"
	"time"

	"tally/internal/core/apperror"
	"tally/internal/core/entity"
	"tally/internal/core/id"
	"tally/internal/core/types"
	"tally/internal/domain"
	"tally/internal/domain/documents"
	"tally/pkg/numerator"
)

// --- Fakes ---

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	quotes map[id.ID]*Quote
	lines  map[id.ID][]documents.SnapshotLine
}

func newFakeRepo(items ...*Quote) *fakeRepo {
	r := &fakeRepo{
		quotes: make(map[id.ID]*Quote),
		lines:  make(map[id.ID][]documents.SnapshotLine),
	}
	for _, q := range items {
		r.quotes[q.ID] = q
		r.lines[q.ID] = q.Lines
	}
	return r
}

func (r *fakeRepo) Create(ctx context.Context, doc *Quote) error {
	r.quotes[doc.ID] = doc
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, docID id.ID) (*Quote, error) {
	q, ok := r.quotes[docID]
	if !ok {
		return nil, apperror.NewNotFound("quote", docID.String())
	}
	cp := *q
	return &cp, nil
}

func (r *fakeRepo) GetByNumber(ctx context.Context, number string) (*Quote, error) {
	for _, q := range r.quotes {
		if q.Number == number {
			return q, nil
		}
	}
	return nil, apperror.NewNotFound("quote", number)
}

func (r *fakeRepo) Update(ctx context.Context, doc *Quote) error {
	if _, ok := r.quotes[doc.ID]; !ok {
		return apperror.NewNotFound("quote", doc.ID.String())
	}
	r.quotes[doc.ID] = doc
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, docID id.ID) error {
	q, ok := r.quotes[docID]
	if !ok {
		return apperror.NewNotFound("quote", docID.String())
	}
	q.DeletionMark = true
	return nil
}

func (r *fakeRepo) GetLines(ctx context.Context, docID id.ID) ([]documents.SnapshotLine, error) {
	return r.lines[docID], nil
}

func (r *fakeRepo) SaveLines(ctx context.Context, docID id.ID, lines []documents.SnapshotLine) error {
	r.lines[docID] = lines
	return nil
}

func (r *fakeRepo) List(ctx context.Context, f ListFilter) (domain.ListResult[*Quote], error) {
	return domain.ListResult[*Quote]{}, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, docID id.ID) (*Quote, error) {
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
	var out []entity.StatusHistory
	for _, row := range h.rows {
		if row.DocumentID == documentID {
			out = append(out, row)
		}
	}
	return out, nil
}

// --- Helpers ---

func testQuote(status string) *Quote {
	q := New(id.New(), id.New())
	q.Number = "QT-2026-00001"
	q.Status = status
	q.SetLines([]documents.SnapshotLine{{
		LineID:         id.New(),
		LineNo:         1,
		ProductID:      id.New(),
		ProductName:    "Widget",
		Quantity:       types.NewQuantityFromFloat64(2),
		UnitPrice:      types.MustMoney("100"),
		TaxRatePercent: types.MustMoney("20"),
	}})
	return q
}

func newTestService(repo *fakeRepo, history *fakeHistory) *Service {
	return NewService(repo, history, nil, &numerator.MockGenerator{}, noopTxManager{})
}

// --- Tests ---

func TestTransitions_Table(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{StatusDraft, StatusSent, true},
		{StatusDraft, StatusRejected, true},
		{StatusDraft, StatusAccepted, false},
		{StatusSent, StatusViewed, true},
		{StatusSent, StatusAccepted, true},
		{StatusViewed, StatusExpired, true},
		{StatusAccepted, StatusConverted, true},
		{StatusAccepted, StatusRejected, false},
		{StatusExpired, StatusSent, true}, // expired quotes may be re-sent
		{StatusRejected, StatusSent, false},
		{StatusConverted, StatusDraft, false},
	}

	for _, tt := range tests {
		if got := Transitions.Allowed(tt.from, tt.to); got != tt.want {
			t.Errorf("Allowed(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}

	if !Transitions.IsTerminal(StatusRejected) || !Transitions.IsTerminal(StatusConverted) {
		t.Error("rejected and converted must be terminal")
	}
}

func TestService_ChangeStatus(t *testing.T) {
	ctx := context.Background()
	q := testQuote(StatusDraft)
	repo := newFakeRepo(q)
	history := &fakeHistory{}
	svc := newTestService(repo, history)

	got, err := svc.ChangeStatus(ctx, q.ID, StatusSent, "sent to client")
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if got.Status != StatusSent {
		t.Errorf("status = %s, want sent", got.Status)
	}

	if len(history.rows) != 1 {
		t.Fatalf("history rows = %d, want 1", len(history.rows))
	}
	row := history.rows[0]
	if row.FromStatus != StatusDraft || row.ToStatus != StatusSent {
		t.Errorf("history = %s to %s, want draft to sent", row.FromStatus, row.ToStatus)
	}
	if row.Comment != "sent to client" {
		t.Errorf("comment = %q", row.Comment)
	}
}

func TestService_ChangeStatus_IllegalTransition(t *testing.T) {
	ctx := context.Background()
	q := testQuote(StatusDraft)
	repo := newFakeRepo(q)
	history := &fakeHistory{}
	svc := newTestService(repo, history)

	_, err := svc.ChangeStatus(ctx, q.ID, StatusConverted, "")
	if !apperror.IsInvalidTransition(err) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	// Nothing mutated, nothing logged
	stored, _ := repo.GetByID(ctx, q.ID)
	if stored.Status != StatusDraft {
		t.Errorf("status = %s, illegal transition must not mutate", stored.Status)
	}
	if len(history.rows) != 0 {
		t.Errorf("history rows = %d, illegal transition must not log", len(history.rows))
	}
}

func TestService_ChangeStatus_NotFound(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeHistory{})
	_, err := svc.ChangeStatus(context.Background(), id.New(), StatusSent, "")
	if !apperror.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_Update_LockedOutsideDraft(t *testing.T) {
	ctx := context.Background()
	q := testQuote(StatusSent)
	svc := newTestService(newFakeRepo(q), &fakeHistory{})

	comment := "late edit"
	_, err := svc.Update(ctx, q.ID, UpdateInput{Comment: &comment})
	if err == nil {
		t.Fatal("sent quotes must reject edits")
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeDocumentLocked {
		t.Errorf("error = %v, want %s", err, apperror.CodeDocumentLocked)
	}
}

func TestService_Delete_StatusGuard(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		status  string
		wantErr bool
	}{
		{StatusDraft, false},
		{StatusRejected, false},
		{StatusSent, true},
		{StatusAccepted, true},
		{StatusConverted, true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			q := testQuote(tt.status)
			svc := newTestService(newFakeRepo(q), &fakeHistory{})

			err := svc.Delete(ctx, q.ID)
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Delete: %v", err)
			}
		})
	}
}

func TestService_Duplicate(t *testing.T) {
	ctx := context.Background()
	src := testQuote(StatusAccepted)
	repo := newFakeRepo(src)
	svc := newTestService(repo, &fakeHistory{})

	dup, err := svc.Duplicate(ctx, src.ID)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}

	if dup.ID == src.ID {
		t.Error("duplicate must get a fresh ID")
	}
	if dup.Number == src.Number {
		t.Error("duplicate must get a fresh number")
	}
	if dup.Status != StatusDraft {
		t.Errorf("status = %s, duplicates start as drafts", dup.Status)
	}
	if len(dup.Lines) != len(src.Lines) {
		t.Fatalf("lines = %d, want %d", len(dup.Lines), len(src.Lines))
	}
	if dup.Lines[0].LineID == src.Lines[0].LineID {
		t.Error("duplicated lines must get fresh line IDs")
	}
	if !dup.Total.Equal(src.Total) {
		t.Errorf("total = %s, want %s", dup.Total, src.Total)
	}
	if !dup.ValidUntil.After(src.ValidUntil.Add(-time.Hour)) {
		t.Error("validity window must be reset from today")
	}
}

func TestService_MarkExpired(t *testing.T) {
	ctx := context.Background()

	q := testQuote(StatusSent)
	q.ValidUntil = time.Now().UTC().AddDate(0, 0, -1)
	repo := newFakeRepo(q)
	svc := newTestService(repo, &fakeHistory{})

	got, err := svc.MarkExpired(ctx, q.ID)
	if err != nil {
		t.Fatalf("MarkExpired: %v", err)
	}
	if got.Status != StatusExpired {
		t.Errorf("status = %s, want expired", got.Status)
	}
}

func TestService_MarkExpired_StillValid(t *testing.T) {
	ctx := context.Background()

	q := testQuote(StatusSent)
	q.ValidUntil = time.Now().UTC().AddDate(0, 0, 7)
	svc := newTestService(newFakeRepo(q), &fakeHistory{})

	if _, err := svc.MarkExpired(ctx, q.ID); err == nil {
		t.Fatal("quotes inside their validity window must not expire")
	}
}
