package order

import (
	"context"
	"testing"

	"tally/internal/core/id"
	"tally/internal/core/types"
	"tally/internal/domain/documents"
)

func TestTransitions_Table(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCancelled, true},
		{StatusCompleted, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
	}

	for _, tt := range tests {
		if got := Transitions.Allowed(tt.from, tt.to); got != tt.want {
			t.Errorf("Allowed(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}

	if !Transitions.IsTerminal(StatusCompleted) || !Transitions.IsTerminal(StatusCancelled) {
		t.Error("completed and cancelled must be terminal")
	}
}

func TestOrder_Validate(t *testing.T) {
	ctx := context.Background()

	o := New(id.New(), id.New())
	o.SetLines([]documents.SnapshotLine{{
		LineID:    id.New(),
		ProductID: id.New(),
		Quantity:  types.NewQuantityFromFloat64(1),
		UnitPrice: types.MustMoney("10"),
	}})
	if err := o.Validate(ctx); err != nil {
		t.Errorf("valid order rejected: %v", err)
	}

	noLines := New(id.New(), id.New())
	if err := noLines.Validate(ctx); err == nil {
		t.Error("order without lines must be rejected")
	}

	noClient := New(id.Nil(), id.New())
	noClient.SetLines(o.Lines)
	if err := noClient.Validate(ctx); err == nil {
		t.Error("order without client must be rejected")
	}
}

func TestOrder_SetLines_RecomputesTotals(t *testing.T) {
	o := New(id.New(), id.New())
	o.SetLines([]documents.SnapshotLine{
		{LineID: id.New(), ProductID: id.New(), Quantity: types.NewQuantityFromFloat64(2), UnitPrice: types.MustMoney("100"), TaxRatePercent: types.MustMoney("20")},
	})

	if !o.Subtotal.Equal(types.MustMoney("200")) {
		t.Errorf("Subtotal = %s, want 200", o.Subtotal)
	}
	if !o.Total.Equal(types.MustMoney("240")) {
		t.Errorf("Total = %s, want 240", o.Total)
	}
}
