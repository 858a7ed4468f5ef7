package stock

import (
	"context"
	"testing"

	"tally/internal/core/apperror"
	"tally/internal/core/id"
	"tally/internal/core/types"
	"tally/internal/domain"
	"tally/internal/domain/catalogs/product"
	"tally/pkg/numerator"
)

// --- Fakes ---

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeMovementRepo struct {
	movements map[id.ID]*Movement
}

func newFakeMovementRepo(items ...*Movement) *fakeMovementRepo {
	r := &fakeMovementRepo{movements: make(map[id.ID]*Movement)}
	for _, m := range items {
		r.movements[m.ID] = m
	}
	return r
}

func (r *fakeMovementRepo) Create(ctx context.Context, m *Movement) error {
	r.movements[m.ID] = m
	return nil
}

func (r *fakeMovementRepo) GetByID(ctx context.Context, movementID id.ID) (*Movement, error) {
	m, ok := r.movements[movementID]
	if !ok {
		return nil, apperror.NewNotFound("stock_movement", movementID.String())
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMovementRepo) Update(ctx context.Context, m *Movement) error {
	if _, ok := r.movements[m.ID]; !ok {
		return apperror.NewNotFound("stock_movement", m.ID.String())
	}
	r.movements[m.ID] = m
	return nil
}

func (r *fakeMovementRepo) GetForUpdate(ctx context.Context, movementID id.ID) (*Movement, error) {
	return r.GetByID(ctx, movementID)
}

func (r *fakeMovementRepo) SetDeletionMark(ctx context.Context, movementID id.ID, marked bool) error {
	m, ok := r.movements[movementID]
	if !ok {
		return apperror.NewNotFound("stock_movement", movementID.String())
	}
	m.DeletionMark = marked
	return nil
}

func (r *fakeMovementRepo) HardDelete(ctx context.Context, movementID id.ID) error {
	if _, ok := r.movements[movementID]; !ok {
		return apperror.NewNotFound("stock_movement", movementID.String())
	}
	delete(r.movements, movementID)
	return nil
}

func (r *fakeMovementRepo) List(ctx context.Context, f ListFilter) (domain.ListResult[*Movement], error) {
	return domain.ListResult[*Movement]{}, nil
}

func (r *fakeMovementRepo) SumActiveDeltas(ctx context.Context, productID id.ID) (types.Quantity, error) {
	var total types.Quantity
	for _, m := range r.movements {
		if m.ProductID == productID {
			total += m.Delta()
		}
	}
	return total, nil
}

func (r *fakeMovementRepo) GetAttachments(ctx context.Context, movementID id.ID) ([]Attachment, error) {
	return nil, nil
}

func (r *fakeMovementRepo) SaveAttachments(ctx context.Context, movementID id.ID, attachments []Attachment) error {
	return nil
}

func (r *fakeMovementRepo) SetAttachmentsDeletionMark(ctx context.Context, movementID id.ID, marked bool) error {
	return nil
}

var _ Repository = (*fakeMovementRepo)(nil)

type fakeProductRepo struct {
	products map[id.ID]*product.Product
}

func newFakeProductRepo(items ...*product.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: make(map[id.ID]*product.Product)}
	for _, p := range items {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) GetByID(ctx context.Context, pid id.ID) (*product.Product, error) {
	p, ok := r.products[pid]
	if !ok {
		return nil, apperror.NewNotFound("product", pid.String())
	}
	return p, nil
}

func (r *fakeProductRepo) Create(ctx context.Context, p *product.Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *fakeProductRepo) Update(ctx context.Context, p *product.Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *fakeProductRepo) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	return nil, apperror.NewNotFound("product", code)
}

func (r *fakeProductRepo) Delete(ctx context.Context, pid id.ID) error { return nil }

func (r *fakeProductRepo) SetDeletionMark(ctx context.Context, pid id.ID, marked bool) error {
	return nil
}

func (r *fakeProductRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*product.Product], error) {
	var items []*product.Product
	for _, p := range r.products {
		items = append(items, p)
	}
	return domain.ListResult[*product.Product]{Items: items, TotalCount: int64(len(items))}, nil
}

func (r *fakeProductRepo) Exists(ctx context.Context, pid id.ID) (bool, error) {
	_, ok := r.products[pid]
	return ok, nil
}

func (r *fakeProductRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return false, nil
}

func (r *fakeProductRepo) GetTree(ctx context.Context, rootID *id.ID) ([]*product.Product, error) {
	return nil, nil
}

func (r *fakeProductRepo) GetPath(ctx context.Context, pid id.ID) ([]*product.Product, error) {
	return nil, nil
}

func (r *fakeProductRepo) FindBySKU(ctx context.Context, sku string) (*product.Product, error) {
	return nil, apperror.NewNotFound("product", sku)
}

func (r *fakeProductRepo) GetForUpdate(ctx context.Context, pid id.ID) (*product.Product, error) {
	return r.GetByID(ctx, pid)
}

func (r *fakeProductRepo) AdjustStock(ctx context.Context, pid id.ID, delta types.Quantity) error {
	p, ok := r.products[pid]
	if !ok {
		return apperror.NewNotFound("product", pid.String())
	}
	p.StockQuantity += delta
	return nil
}

var _ product.Repository = (*fakeProductRepo)(nil)

// --- Helpers ---

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func testProduct(name string) *product.Product {
	return product.NewProduct("P-"+name, name, types.MustMoney("10"))
}

func newTestService(repo *fakeMovementRepo, products *fakeProductRepo) *Service {
	return NewService(repo, products, &numerator.MockGenerator{}, noopTxManager{})
}

// --- Tests ---

func TestMovement_Normalize(t *testing.T) {
	tests := []struct {
		name  string
		mtype MovementType
		in    types.Quantity
		want  types.Quantity
	}{
		{"out flips positive", TypeOut, qty(5), qty(-5)},
		{"out keeps negative", TypeOut, qty(-5), qty(-5)},
		{"in keeps negative", TypeIn, qty(-3), qty(-3)},
		{"in keeps positive", TypeIn, qty(3), qty(3)},
		{"adjustment keeps negative", TypeAdjustment, qty(-2), qty(-2)},
		{"adjustment keeps positive", TypeAdjustment, qty(2), qty(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMovement(id.New(), tt.mtype, tt.in)
			if m.Quantity != tt.want {
				t.Errorf("Quantity = %v, want %v", m.Quantity, tt.want)
			}
		})
	}
}

func TestMovement_Delta_DeletedContributesNothing(t *testing.T) {
	m := NewMovement(id.New(), TypeIn, qty(5))
	if m.Delta() != qty(5) {
		t.Errorf("Delta = %v, want 5", m.Delta())
	}
	m.DeletionMark = true
	if !m.Delta().IsZero() {
		t.Errorf("deleted movement Delta = %v, want 0", m.Delta())
	}
}

func TestService_Create_AdjustsStock(t *testing.T) {
	ctx := context.Background()
	p := testProduct("Widget")
	products := newFakeProductRepo(p)
	repo := newFakeMovementRepo()
	svc := newTestService(repo, products)

	m := NewMovement(p.ID, TypeIn, qty(10))
	if err := svc.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if p.StockQuantity != qty(10) {
		t.Errorf("stock = %v, want 10", p.StockQuantity)
	}
	if m.Number == "" {
		t.Error("movement must get a generated number")
	}

	// An outgoing movement with positive input quantity is stored negative.
	out := NewMovement(p.ID, TypeOut, qty(4))
	if err := svc.Create(ctx, out); err != nil {
		t.Fatalf("Create out: %v", err)
	}
	if p.StockQuantity != qty(6) {
		t.Errorf("stock = %v, want 6", p.StockQuantity)
	}

	// A negative in movement keeps its sign and decrements stock.
	correction := NewMovement(p.ID, TypeIn, qty(-3))
	if err := svc.Create(ctx, correction); err != nil {
		t.Fatalf("Create correction: %v", err)
	}
	if correction.Quantity != qty(-3) {
		t.Errorf("correction quantity = %v, want -3", correction.Quantity)
	}
	if p.StockQuantity != qty(3) {
		t.Errorf("stock = %v, want 3", p.StockQuantity)
	}
}

func TestService_Create_Invalid(t *testing.T) {
	ctx := context.Background()
	p := testProduct("Widget")
	svc := newTestService(newFakeMovementRepo(), newFakeProductRepo(p))

	zero := NewMovement(p.ID, TypeAdjustment, 0)
	if err := svc.Create(ctx, zero); err == nil {
		t.Error("zero quantity must be rejected")
	}

	unknown := NewMovement(id.New(), TypeIn, qty(1))
	if err := svc.Create(ctx, unknown); !apperror.IsNotFound(err) {
		t.Errorf("unknown product: got %v, want not found", err)
	}
}

func TestService_Update_ReversesAndReapplies(t *testing.T) {
	ctx := context.Background()
	p := testProduct("Widget")
	products := newFakeProductRepo(p)
	repo := newFakeMovementRepo()
	svc := newTestService(repo, products)

	m := NewMovement(p.ID, TypeIn, qty(10))
	if err := svc.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}

	newQty := qty(4)
	if _, err := svc.Update(ctx, m.ID, UpdateInput{Quantity: &newQty}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// 10 reversed, 4 applied
	if p.StockQuantity != qty(4) {
		t.Errorf("stock = %v, want 4", p.StockQuantity)
	}
}

func TestService_Update_MoveToDifferentProduct(t *testing.T) {
	ctx := context.Background()
	a, b := testProduct("A"), testProduct("B")
	products := newFakeProductRepo(a, b)
	repo := newFakeMovementRepo()
	svc := newTestService(repo, products)

	m := NewMovement(a.ID, TypeIn, qty(10))
	if err := svc.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}

	bID := b.ID
	if _, err := svc.Update(ctx, m.ID, UpdateInput{ProductID: &bID}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if !a.StockQuantity.IsZero() {
		t.Errorf("old product stock = %v, want 0 after reversal", a.StockQuantity)
	}
	if b.StockQuantity != qty(10) {
		t.Errorf("new product stock = %v, want 10", b.StockQuantity)
	}
}

func TestService_Update_DeletedMovementRejected(t *testing.T) {
	ctx := context.Background()
	p := testProduct("Widget")
	svc := newTestService(newFakeMovementRepo(), newFakeProductRepo(p))

	m := NewMovement(p.ID, TypeIn, qty(5))
	if err := svc.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.SoftDelete(ctx, m.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}

	newQty := qty(1)
	if _, err := svc.Update(ctx, m.ID, UpdateInput{Quantity: &newQty}); err == nil {
		t.Error("deleted movements must reject edits")
	}
}

func TestService_SoftDeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	p := testProduct("Widget")
	products := newFakeProductRepo(p)
	repo := newFakeMovementRepo()
	svc := newTestService(repo, products)

	m := NewMovement(p.ID, TypeIn, qty(10))
	if err := svc.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.SoftDelete(ctx, m.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if !p.StockQuantity.IsZero() {
		t.Errorf("stock = %v, delete must reverse the delta", p.StockQuantity)
	}

	// Deleting twice must not reverse twice
	if err := svc.SoftDelete(ctx, m.ID); err != nil {
		t.Fatalf("second SoftDelete: %v", err)
	}
	if !p.StockQuantity.IsZero() {
		t.Errorf("stock = %v after double delete, want 0", p.StockQuantity)
	}

	if err := svc.Restore(ctx, m.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if p.StockQuantity != qty(10) {
		t.Errorf("stock = %v, restore must re-apply the delta", p.StockQuantity)
	}

	// Restoring twice must not apply twice
	if err := svc.Restore(ctx, m.ID); err != nil {
		t.Fatalf("second Restore: %v", err)
	}
	if p.StockQuantity != qty(10) {
		t.Errorf("stock = %v after double restore, want 10", p.StockQuantity)
	}
}

func TestService_ForceDelete_RequiresSoftDelete(t *testing.T) {
	ctx := context.Background()
	p := testProduct("Widget")
	repo := newFakeMovementRepo()
	svc := newTestService(repo, newFakeProductRepo(p))

	m := NewMovement(p.ID, TypeIn, qty(5))
	if err := svc.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.ForceDelete(ctx, m.ID); err == nil {
		t.Fatal("active movements must not be hard-deleted")
	}

	if err := svc.SoftDelete(ctx, m.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if err := svc.ForceDelete(ctx, m.ID); err != nil {
		t.Fatalf("ForceDelete: %v", err)
	}
	if _, err := repo.GetByID(ctx, m.ID); !apperror.IsNotFound(err) {
		t.Error("movement must be gone after force delete")
	}
}

func TestService_Reconcile(t *testing.T) {
	ctx := context.Background()
	p := testProduct("Widget")
	products := newFakeProductRepo(p)
	repo := newFakeMovementRepo()
	svc := newTestService(repo, products)

	if err := svc.Create(ctx, NewMovement(p.ID, TypeIn, qty(10))); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Create(ctx, NewMovement(p.ID, TypeOut, qty(3))); err != nil {
		t.Fatalf("Create: %v", err)
	}

	report, err := svc.Reconcile(ctx, []id.ID{p.ID})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if report.OutOfSync != 0 {
		t.Errorf("OutOfSync = %d, want 0", report.OutOfSync)
	}
	if len(report.Rows) != 1 || !report.Rows[0].InSync() {
		t.Fatalf("rows = %+v, want one in-sync row", report.Rows)
	}
	if report.Rows[0].LedgerTotal != qty(7) {
		t.Errorf("LedgerTotal = %v, want 7", report.Rows[0].LedgerTotal)
	}
}

func TestService_Repair_FixesDrift(t *testing.T) {
	ctx := context.Background()
	p := testProduct("Widget")
	products := newFakeProductRepo(p)
	repo := newFakeMovementRepo()
	svc := newTestService(repo, products)

	if err := svc.Create(ctx, NewMovement(p.ID, TypeIn, qty(10))); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Simulate out-of-band corruption of the cached level.
	p.StockQuantity = qty(25)

	report, err := svc.Repair(ctx, []id.ID{p.ID})
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if report.OutOfSync != 1 {
		t.Errorf("OutOfSync = %d, want 1", report.OutOfSync)
	}
	if p.StockQuantity != qty(10) {
		t.Errorf("stock = %v, repair must restore the ledger total", p.StockQuantity)
	}
}

func TestService_Reconcile_SkipsUntrackedProducts(t *testing.T) {
	ctx := context.Background()
	p := testProduct("Service")
	p.TrackStock = false
	svc := newTestService(newFakeMovementRepo(), newFakeProductRepo(p))

	report, err := svc.Reconcile(ctx, []id.ID{p.ID})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(report.Rows) != 0 {
		t.Errorf("rows = %d, untracked products must be skipped", len(report.Rows))
	}
}
