package convert

import (
	"context"
	"testing"

	"tally/internal/core/apperror"
	"tally/internal/core/entity"
	"tally/internal/core/id"
	"tally/internal/core/types"
	"tally/internal/domain"
	"tally/internal/domain/catalogs/product"
	"tally/internal/domain/catalogs/taxrate"
	"tally/internal/domain/documents"
	"tally/internal/domain/documents/invoice"
	"tally/internal/domain/documents/order"
	"tally/internal/domain/documents/quote"
	"tally/pkg/numerator"
)

// --- Fakes ---

type noopTxManager struct{}

func (noopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeQuoteRepo struct {
	quotes map[id.ID]*quote.Quote
	lines  map[id.ID][]documents.SnapshotLine
}

func newFakeQuoteRepo(items ...*quote.Quote) *fakeQuoteRepo {
	r := &fakeQuoteRepo{
		quotes: make(map[id.ID]*quote.Quote),
		lines:  make(map[id.ID][]documents.SnapshotLine),
	}
	for _, q := range items {
		r.quotes[q.ID] = q
		r.lines[q.ID] = q.Lines
	}
	return r
}

func (r *fakeQuoteRepo) Create(ctx context.Context, doc *quote.Quote) error {
	r.quotes[doc.ID] = doc
	return nil
}

func (r *fakeQuoteRepo) GetByID(ctx context.Context, docID id.ID) (*quote.Quote, error) {
	q, ok := r.quotes[docID]
	if !ok {
		return nil, apperror.NewNotFound("quote", docID.String())
	}
	return q, nil
}

func (r *fakeQuoteRepo) GetByNumber(ctx context.Context, number string) (*quote.Quote, error) {
	return nil, apperror.NewNotFound("quote", number)
}

func (r *fakeQuoteRepo) Update(ctx context.Context, doc *quote.Quote) error {
	r.quotes[doc.ID] = doc
	return nil
}

func (r *fakeQuoteRepo) Delete(ctx context.Context, docID id.ID) error { return nil }

func (r *fakeQuoteRepo) GetLines(ctx context.Context, docID id.ID) ([]documents.SnapshotLine, error) {
	return r.lines[docID], nil
}

func (r *fakeQuoteRepo) SaveLines(ctx context.Context, docID id.ID, lines []documents.SnapshotLine) error {
	r.lines[docID] = lines
	return nil
}

func (r *fakeQuoteRepo) List(ctx context.Context, f quote.ListFilter) (domain.ListResult[*quote.Quote], error) {
	return domain.ListResult[*quote.Quote]{}, nil
}

func (r *fakeQuoteRepo) GetForUpdate(ctx context.Context, docID id.ID) (*quote.Quote, error) {
	return r.GetByID(ctx, docID)
}

var _ quote.Repository = (*fakeQuoteRepo)(nil)

type fakeOrderRepo struct {
	orders map[id.ID]*order.Order
	lines  map[id.ID][]documents.SnapshotLine
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders: make(map[id.ID]*order.Order),
		lines:  make(map[id.ID][]documents.SnapshotLine),
	}
}

func (r *fakeOrderRepo) Create(ctx context.Context, doc *order.Order) error {
	r.orders[doc.ID] = doc
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, docID id.ID) (*order.Order, error) {
	o, ok := r.orders[docID]
	if !ok {
		return nil, apperror.NewNotFound("order", docID.String())
	}
	return o, nil
}

func (r *fakeOrderRepo) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return nil, apperror.NewNotFound("order", number)
}

func (r *fakeOrderRepo) Update(ctx context.Context, doc *order.Order) error { return nil }

func (r *fakeOrderRepo) Delete(ctx context.Context, docID id.ID) error { return nil }

func (r *fakeOrderRepo) GetLines(ctx context.Context, docID id.ID) ([]documents.SnapshotLine, error) {
	return r.lines[docID], nil
}

func (r *fakeOrderRepo) SaveLines(ctx context.Context, docID id.ID, lines []documents.SnapshotLine) error {
	r.lines[docID] = lines
	return nil
}

func (r *fakeOrderRepo) List(ctx context.Context, f order.ListFilter) (domain.ListResult[*order.Order], error) {
	return domain.ListResult[*order.Order]{}, nil
}

func (r *fakeOrderRepo) GetForUpdate(ctx context.Context, docID id.ID) (*order.Order, error) {
	return r.GetByID(ctx, docID)
}

var _ order.Repository = (*fakeOrderRepo)(nil)

type fakeInvoiceRepo struct {
	invoices map[id.ID]*invoice.Invoice
	lines    map[id.ID][]documents.SnapshotLine
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: make(map[id.ID]*invoice.Invoice),
		lines:    make(map[id.ID][]documents.SnapshotLine),
	}
}

func (r *fakeInvoiceRepo) Create(ctx context.Context, doc *invoice.Invoice) error {
	r.invoices[doc.ID] = doc
	return nil
}

func (r *fakeInvoiceRepo) GetByID(ctx context.Context, docID id.ID) (*invoice.Invoice, error) {
	inv, ok := r.invoices[docID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", docID.String())
	}
	return inv, nil
}

func (r *fakeInvoiceRepo) GetByNumber(ctx context.Context, number string) (*invoice.Invoice, error) {
	return nil, apperror.NewNotFound("invoice", number)
}

func (r *fakeInvoiceRepo) Update(ctx context.Context, doc *invoice.Invoice) error { return nil }

func (r *fakeInvoiceRepo) Delete(ctx context.Context, docID id.ID) error { return nil }

func (r *fakeInvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]documents.SnapshotLine, error) {
	return r.lines[docID], nil
}

func (r *fakeInvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []documents.SnapshotLine) error {
	r.lines[docID] = lines
	return nil
}

func (r *fakeInvoiceRepo) List(ctx context.Context, f invoice.ListFilter) (domain.ListResult[*invoice.Invoice], error) {
	return domain.ListResult[*invoice.Invoice]{}, nil
}

func (r *fakeInvoiceRepo) GetForUpdate(ctx context.Context, docID id.ID) (*invoice.Invoice, error) {
	return r.GetByID(ctx, docID)
}

var _ invoice.Repository = (*fakeInvoiceRepo)(nil)

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

// fakeProductRepo backs the snapshotter in the invoice path. Only the
// methods the snapshotter touches matter; the rest satisfy the interface.
type fakeProductRepo struct {
	products map[id.ID]*product.Product
}

func (r *fakeProductRepo) GetByID(ctx context.Context, pid id.ID) (*product.Product, error) {
	p, ok := r.products[pid]
	if !ok {
		return nil, apperror.NewNotFound("product", pid.String())
	}
	return p, nil
}

func (r *fakeProductRepo) Create(ctx context.Context, p *product.Product) error { return nil }
func (r *fakeProductRepo) Update(ctx context.Context, p *product.Product) error { return nil }

func (r *fakeProductRepo) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	return nil, apperror.NewNotFound("product", code)
}

func (r *fakeProductRepo) Delete(ctx context.Context, pid id.ID) error { return nil }

func (r *fakeProductRepo) SetDeletionMark(ctx context.Context, pid id.ID, marked bool) error {
	return nil
}

func (r *fakeProductRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*product.Product], error) {
	return domain.ListResult[*product.Product]{}, nil
}

func (r *fakeProductRepo) Exists(ctx context.Context, pid id.ID) (bool, error) { return false, nil }

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
	return nil
}

var _ product.Repository = (*fakeProductRepo)(nil)

type fakeTaxRateRepo struct{}

func (fakeTaxRateRepo) Create(ctx context.Context, tr *taxrate.TaxRate) error { return nil }

func (fakeTaxRateRepo) GetByID(ctx context.Context, trID id.ID) (*taxrate.TaxRate, error) {
	return nil, apperror.NewNotFound("tax_rate", trID.String())
}

func (fakeTaxRateRepo) GetByCode(ctx context.Context, code string) (*taxrate.TaxRate, error) {
	return nil, apperror.NewNotFound("tax_rate", code)
}

func (fakeTaxRateRepo) Update(ctx context.Context, tr *taxrate.TaxRate) error { return nil }
func (fakeTaxRateRepo) Delete(ctx context.Context, trID id.ID) error          { return nil }

func (fakeTaxRateRepo) SetDeletionMark(ctx context.Context, trID id.ID, marked bool) error {
	return nil
}

func (fakeTaxRateRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*taxrate.TaxRate], error) {
	return domain.ListResult[*taxrate.TaxRate]{}, nil
}

func (fakeTaxRateRepo) Exists(ctx context.Context, trID id.ID) (bool, error) { return false, nil }

func (fakeTaxRateRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return false, nil
}

func (fakeTaxRateRepo) GetTree(ctx context.Context, rootID *id.ID) ([]*taxrate.TaxRate, error) {
	return nil, nil
}

func (fakeTaxRateRepo) GetPath(ctx context.Context, trID id.ID) ([]*taxrate.TaxRate, error) {
	return nil, nil
}

func (fakeTaxRateRepo) ClearDefault(ctx context.Context) error { return nil }

var _ taxrate.Repository = fakeTaxRateRepo{}

// --- Helpers ---

func acceptedQuote(p *product.Product) *quote.Quote {
	q := quote.New(id.New(), id.New())
	q.Number = "QT-2026-00042"
	q.Status = quote.StatusAccepted
	q.SetLines([]documents.SnapshotLine{{
		LineID:         id.New(),
		LineNo:         1,
		ProductID:      p.ID,
		ProductName:    p.Name,
		Quantity:       types.NewQuantityFromFloat64(2),
		UnitPrice:      types.MustMoney("80"), // negotiated below list price
		TaxRatePercent: types.MustMoney("20"),
	}})
	return q
}

func newTestConverter(quotes *fakeQuoteRepo, orders *fakeOrderRepo, invoices *fakeInvoiceRepo, history *fakeHistory, products *fakeProductRepo) *Converter {
	snapshotter := documents.NewSnapshotter(products, fakeTaxRateRepo{})
	return NewConverter(quotes, orders, invoices, history, snapshotter, &numerator.MockGenerator{}, noopTxManager{})
}

// --- Tests ---

func TestConverter_ToOrder(t *testing.T) {
	ctx := context.Background()
	p := product.NewProduct("P-W", "Widget", types.MustMoney("100"))
	q := acceptedQuote(p)
	quotes := newFakeQuoteRepo(q)
	orders := newFakeOrderRepo()
	history := &fakeHistory{}
	conv := newTestConverter(quotes, orders, newFakeInvoiceRepo(), history, &fakeProductRepo{products: map[id.ID]*product.Product{p.ID: p}})

	o, err := conv.ToOrder(ctx, q.ID)
	if err != nil {
		t.Fatalf("ToOrder: %v", err)
	}

	if o.Status != order.StatusPending {
		t.Errorf("status = %s, want pending", o.Status)
	}
	if o.QuoteID == nil || *o.QuoteID != q.ID.String() {
		t.Error("order must reference the source quote")
	}

	// Order pricing honors the quoted prices, not today's list price.
	if len(o.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(o.Lines))
	}
	if !o.Lines[0].UnitPrice.Equal(types.MustMoney("80")) {
		t.Errorf("UnitPrice = %s, want quoted 80", o.Lines[0].UnitPrice)
	}
	if o.Lines[0].LineID == q.Lines[0].LineID {
		t.Error("copied lines must get fresh line IDs")
	}

	// Source quote flipped to converted with the target recorded.
	src, _ := quotes.GetByID(ctx, q.ID)
	if src.Status != quote.StatusConverted {
		t.Errorf("quote status = %s, want converted", src.Status)
	}
	if src.ConvertedToID == nil || *src.ConvertedToID != o.ID.String() {
		t.Error("quote must record the conversion target")
	}
	if src.ConvertedToType == nil || *src.ConvertedToType != documents.TypeOrder {
		t.Error("quote must record the target type")
	}

	if len(history.rows) != 1 || history.rows[0].ToStatus != quote.StatusConverted {
		t.Error("conversion must append one history row")
	}
}

func TestConverter_ToInvoice_ResnapshotsPrices(t *testing.T) {
	ctx := context.Background()
	p := product.NewProduct("P-W", "Widget", types.MustMoney("100"))
	q := acceptedQuote(p) // quoted at 80, list price now 100
	quotes := newFakeQuoteRepo(q)
	invoices := newFakeInvoiceRepo()
	history := &fakeHistory{}
	conv := newTestConverter(quotes, newFakeOrderRepo(), invoices, history, &fakeProductRepo{products: map[id.ID]*product.Product{p.ID: p}})

	inv, err := conv.ToInvoice(ctx, q.ID)
	if err != nil {
		t.Fatalf("ToInvoice: %v", err)
	}

	if inv.Status != invoice.StatusDraft {
		t.Errorf("status = %s, want draft", inv.Status)
	}
	// Lines carry today's list price, not the quoted one.
	if len(inv.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(inv.Lines))
	}
	if !inv.Lines[0].UnitPrice.Equal(types.MustMoney("100")) {
		t.Errorf("UnitPrice = %s, want current 100", inv.Lines[0].UnitPrice)
	}

	src, _ := quotes.GetByID(ctx, q.ID)
	if src.Status != quote.StatusConverted {
		t.Errorf("quote status = %s, want converted", src.Status)
	}
}

func TestConverter_RejectsNonAcceptedQuote(t *testing.T) {
	ctx := context.Background()
	p := product.NewProduct("P-W", "Widget", types.MustMoney("100"))

	for _, status := range []string{quote.StatusDraft, quote.StatusSent, quote.StatusRejected, quote.StatusConverted} {
		t.Run(status, func(t *testing.T) {
			q := acceptedQuote(p)
			q.Status = status
			quotes := newFakeQuoteRepo(q)
			conv := newTestConverter(quotes, newFakeOrderRepo(), newFakeInvoiceRepo(), &fakeHistory{}, &fakeProductRepo{products: map[id.ID]*product.Product{p.ID: p}})

			if _, err := conv.ToOrder(ctx, q.ID); !apperror.IsInvalidTransition(err) {
				t.Errorf("ToOrder on %s quote: got %v, want invalid transition", status, err)
			}
		})
	}
}

func TestConverter_UnknownQuote(t *testing.T) {
	conv := newTestConverter(newFakeQuoteRepo(), newFakeOrderRepo(), newFakeInvoiceRepo(), &fakeHistory{}, &fakeProductRepo{products: map[id.ID]*product.Product{}})

	if _, err := conv.ToOrder(context.Background(), id.New()); !apperror.IsNotFound(err) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestConverter_ToInvoice_DeletedProductAborts(t *testing.T) {
	ctx := context.Background()
	p := product.NewProduct("P-W", "Widget", types.MustMoney("100"))
	q := acceptedQuote(p)
	quotes := newFakeQuoteRepo(q)
	// Product catalog no longer has the product: re-snapshotting must fail
	// and the quote must stay accepted.
	conv := newTestConverter(quotes, newFakeOrderRepo(), newFakeInvoiceRepo(), &fakeHistory{}, &fakeProductRepo{products: map[id.ID]*product.Product{}})

	if _, err := conv.ToInvoice(ctx, q.ID); !apperror.IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
	src, _ := quotes.GetByID(ctx, q.ID)
	if src.Status != quote.StatusAccepted {
		t.Errorf("quote status = %s, failed conversion must not mutate", src.Status)
	}
}
