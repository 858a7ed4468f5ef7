package documents

import (
	"context"
	"testing"

	"tally/internal/core/apperror"
	"tally/internal/core/id"
	"tally/internal/core/types"
	"tally/internal/domain"
	"tally/internal/domain/catalogs/product"
	"tally/internal/domain/catalogs/taxrate"
)

// --- In-memory repositories ---

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
	for _, p := range r.products {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, apperror.NewNotFound("product", code)
}

func (r *fakeProductRepo) Delete(ctx context.Context, pid id.ID) error {
	delete(r.products, pid)
	return nil
}

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
	_, err := r.GetByCode(ctx, code)
	return err == nil, nil
}

func (r *fakeProductRepo) GetTree(ctx context.Context, rootID *id.ID) ([]*product.Product, error) {
	return nil, nil
}

func (r *fakeProductRepo) GetPath(ctx context.Context, pid id.ID) ([]*product.Product, error) {
	return nil, nil
}

func (r *fakeProductRepo) FindBySKU(ctx context.Context, sku string) (*product.Product, error) {
	for _, p := range r.products {
		if p.SKU != nil && *p.SKU == sku {
			return p, nil
		}
	}
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

type fakeTaxRateRepo struct {
	rates map[id.ID]*taxrate.TaxRate
}

func newFakeTaxRateRepo(items ...*taxrate.TaxRate) *fakeTaxRateRepo {
	r := &fakeTaxRateRepo{rates: make(map[id.ID]*taxrate.TaxRate)}
	for _, tr := range items {
		r.rates[tr.ID] = tr
	}
	return r
}

func (r *fakeTaxRateRepo) GetByID(ctx context.Context, trID id.ID) (*taxrate.TaxRate, error) {
	tr, ok := r.rates[trID]
	if !ok {
		return nil, apperror.NewNotFound("tax_rate", trID.String())
	}
	return tr, nil
}

func (r *fakeTaxRateRepo) Create(ctx context.Context, tr *taxrate.TaxRate) error {
	r.rates[tr.ID] = tr
	return nil
}

func (r *fakeTaxRateRepo) Update(ctx context.Context, tr *taxrate.TaxRate) error {
	r.rates[tr.ID] = tr
	return nil
}

func (r *fakeTaxRateRepo) GetByCode(ctx context.Context, code string) (*taxrate.TaxRate, error) {
	for _, tr := range r.rates {
		if tr.Code == code {
			return tr, nil
		}
	}
	return nil, apperror.NewNotFound("tax_rate", code)
}

func (r *fakeTaxRateRepo) Delete(ctx context.Context, trID id.ID) error { return nil }

func (r *fakeTaxRateRepo) SetDeletionMark(ctx context.Context, trID id.ID, marked bool) error {
	return nil
}

func (r *fakeTaxRateRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*taxrate.TaxRate], error) {
	return domain.ListResult[*taxrate.TaxRate]{}, nil
}

func (r *fakeTaxRateRepo) Exists(ctx context.Context, trID id.ID) (bool, error) {
	_, ok := r.rates[trID]
	return ok, nil
}

func (r *fakeTaxRateRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return false, nil
}

func (r *fakeTaxRateRepo) GetTree(ctx context.Context, rootID *id.ID) ([]*taxrate.TaxRate, error) {
	return nil, nil
}

func (r *fakeTaxRateRepo) GetPath(ctx context.Context, trID id.ID) ([]*taxrate.TaxRate, error) {
	return nil, nil
}

func (r *fakeTaxRateRepo) ClearDefault(ctx context.Context) error { return nil }

var _ taxrate.Repository = (*fakeTaxRateRepo)(nil)

// --- Tests ---

func testProduct(name, price string) *product.Product {
	p := product.NewProduct("P-"+name, name, types.MustMoney(price))
	sku := "SKU-" + name
	p.SKU = &sku
	return p
}

func testTaxRate(rate string) *taxrate.TaxRate {
	tr := taxrate.NewTaxRate("TR-"+rate, "VAT "+rate, types.MustMoney(rate))
	return tr
}

func TestSnapshotter_BuildLines(t *testing.T) {
	ctx := context.Background()

	vat := testTaxRate("20")
	p := testProduct("Widget", "100")
	trID := vat.ID.String()
	p.TaxRateID = &trID

	s := NewSnapshotter(newFakeProductRepo(p), newFakeTaxRateRepo(vat))

	lines, err := s.BuildLines(ctx, []LineInput{
		{ProductID: p.ID, Quantity: types.NewQuantityFromFloat64(2)},
	})
	if err != nil {
		t.Fatalf("BuildLines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}

	l := lines[0]
	if l.ProductName != "Widget" {
		t.Errorf("ProductName = %q, want Widget", l.ProductName)
	}
	if l.SKU == nil || *l.SKU != "SKU-Widget" {
		t.Error("SKU must be frozen onto the line")
	}
	if !l.UnitPrice.Equal(types.MustMoney("100")) {
		t.Errorf("UnitPrice = %s, want product price 100", l.UnitPrice)
	}
	if !l.TaxRatePercent.Equal(types.MustMoney("20")) {
		t.Errorf("TaxRatePercent = %s, want product default 20", l.TaxRatePercent)
	}
	if !l.LineTotal.Equal(types.MustMoney("200")) || !l.TaxAmount.Equal(types.MustMoney("40")) {
		t.Errorf("computed amounts = %s / %s, want 200 / 40", l.LineTotal, l.TaxAmount)
	}
}

func TestSnapshotter_BuildLines_PriceOverride(t *testing.T) {
	ctx := context.Background()
	p := testProduct("Widget", "100")
	s := NewSnapshotter(newFakeProductRepo(p), newFakeTaxRateRepo())

	negotiated := types.MustMoney("85")
	lines, err := s.BuildLines(ctx, []LineInput{
		{ProductID: p.ID, Quantity: types.NewQuantityFromFloat64(1), UnitPrice: &negotiated},
	})
	if err != nil {
		t.Fatalf("BuildLines: %v", err)
	}
	if !lines[0].UnitPrice.Equal(negotiated) {
		t.Errorf("UnitPrice = %s, want negotiated 85", lines[0].UnitPrice)
	}
	// No explicit rate and no product default resolves to zero tax
	if !lines[0].TaxRatePercent.IsZero() {
		t.Errorf("TaxRatePercent = %s, want 0", lines[0].TaxRatePercent)
	}
}

func TestSnapshotter_BuildLines_ExplicitTaxRateWins(t *testing.T) {
	ctx := context.Background()

	standard := testTaxRate("20")
	reduced := testTaxRate("10")
	p := testProduct("Widget", "100")
	stdID := standard.ID.String()
	p.TaxRateID = &stdID

	s := NewSnapshotter(newFakeProductRepo(p), newFakeTaxRateRepo(standard, reduced))

	reducedID := reduced.ID
	lines, err := s.BuildLines(ctx, []LineInput{
		{ProductID: p.ID, Quantity: types.NewQuantityFromFloat64(1), TaxRateID: &reducedID},
	})
	if err != nil {
		t.Fatalf("BuildLines: %v", err)
	}
	if !lines[0].TaxRatePercent.Equal(types.MustMoney("10")) {
		t.Errorf("TaxRatePercent = %s, explicit rate must win over product default", lines[0].TaxRatePercent)
	}
}

func TestSnapshotter_BuildLines_Errors(t *testing.T) {
	ctx := context.Background()
	p := testProduct("Widget", "100")
	s := NewSnapshotter(newFakeProductRepo(p), newFakeTaxRateRepo())

	tests := []struct {
		name   string
		inputs []LineInput
	}{
		{"no lines", nil},
		{"nil product", []LineInput{{Quantity: types.NewQuantityFromFloat64(1)}}},
		{"zero quantity", []LineInput{{ProductID: p.ID}}},
		{"negative quantity", []LineInput{{ProductID: p.ID, Quantity: types.NewQuantityFromFloat64(-1)}}},
		{"unknown product", []LineInput{{ProductID: id.New(), Quantity: types.NewQuantityFromFloat64(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.BuildLines(ctx, tt.inputs); err == nil {
				t.Error("expected error")
			}
		})
	}
}
