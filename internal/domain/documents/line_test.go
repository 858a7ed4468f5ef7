package documents

import (
	"testing"

	"tally/internal/core/id"
	"tally/internal/core/types"
)

func line(qty float64, price, rate string) SnapshotLine {
	return SnapshotLine{
		LineID:         id.New(),
		LineNo:         1,
		ProductID:      id.New(),
		ProductName:    "Widget",
		Quantity:       types.NewQuantityFromFloat64(qty),
		UnitPrice:      types.MustMoney(price),
		TaxRatePercent: types.MustMoney(rate),
	}
}

func TestSnapshotLine_Compute(t *testing.T) {
	tests := []struct {
		name      string
		qty       float64
		price     string
		rate      string
		wantTotal string
		wantTax   string
	}{
		{"whole units", 3, "100", "20", "300", "60"},
		{"fractional quantity", 2.5, "10.40", "10", "26", "2.6"},
		{"zero rate", 4, "25", "0", "100", "0"},
		{"single line cent", 1, "0.01", "20", "0.01", "0.002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := line(tt.qty, tt.price, tt.rate)
			l.Compute()

			if !l.LineTotal.Equal(types.MustMoney(tt.wantTotal)) {
				t.Errorf("LineTotal = %s, want %s", l.LineTotal, tt.wantTotal)
			}
			if !l.TaxAmount.Equal(types.MustMoney(tt.wantTax)) {
				t.Errorf("TaxAmount = %s, want %s", l.TaxAmount, tt.wantTax)
			}
			wantGross := types.MustMoney(tt.wantTotal).Add(types.MustMoney(tt.wantTax))
			if !l.Total().Equal(wantGross) {
				t.Errorf("Total() = %s, want %s", l.Total(), wantGross)
			}
		})
	}
}

func TestSnapshotLine_Compute_LargeQuantity(t *testing.T) {
	// Scaled quantity above 2^53 stays exact through the tax math.
	l := line(1, "10", "0")
	l.Quantity = types.NewQuantityFromInt64Scaled(9_007_199_254_740_993)
	l.Compute()

	if got := l.LineTotal.String(); got != "9007199254740.993" {
		t.Errorf("LineTotal = %s, want 9007199254740.993", got)
	}
}

func TestSnapshotLine_Clone(t *testing.T) {
	src := line(2, "50", "20")
	src.Compute()

	c := src.Clone()

	if c.LineID == src.LineID {
		t.Error("clone must get a fresh line ID")
	}
	if c.ProductID != src.ProductID || c.ProductName != src.ProductName {
		t.Error("clone must carry the frozen product data verbatim")
	}
	if !c.UnitPrice.Equal(src.UnitPrice) || c.Quantity != src.Quantity {
		t.Error("clone must carry price and quantity verbatim")
	}
}

func TestComputeTotals(t *testing.T) {
	lines := []SnapshotLine{
		line(2, "100", "20"), // 200 + 40
		line(1, "50", "10"),  // 50 + 5
	}

	totals := ComputeTotals(lines)

	if !totals.Subtotal.Equal(types.MustMoney("250")) {
		t.Errorf("Subtotal = %s, want 250", totals.Subtotal)
	}
	if !totals.TaxTotal.Equal(types.MustMoney("45")) {
		t.Errorf("TaxTotal = %s, want 45", totals.TaxTotal)
	}
	if !totals.Total.Equal(types.MustMoney("295")) {
		t.Errorf("Total = %s, want 295", totals.Total)
	}

	// ComputeTotals recomputes each line in place
	if !lines[0].LineTotal.Equal(types.MustMoney("200")) {
		t.Errorf("line 1 LineTotal = %s, want 200", lines[0].LineTotal)
	}
}

func TestComputeTotals_Empty(t *testing.T) {
	totals := ComputeTotals(nil)
	if !totals.Total.IsZero() || !totals.Subtotal.IsZero() || !totals.TaxTotal.IsZero() {
		t.Errorf("empty totals must be zero, got %+v", totals)
	}
}
