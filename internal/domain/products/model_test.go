package products

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newCut(onHand string) *Product {
	return &Product{
		ID:            1,
		Name:          "Corte Típico",
		Kind:          KindCut,
		YardsOnHand:   dec(onHand),
		YardsOriginal: YardsPerCut,
		CutState:      CutFull,
	}
}

func TestReserveUnits(t *testing.T) {
	p := &Product{ID: 2, Name: "Huipil", Kind: KindDiscrete, Stock: 2}

	require.NoError(t, p.ReserveUnits(2))
	assert.Equal(t, 0, p.Stock)

	err := p.ReserveUnits(1)
	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(2), ise.ProductID)
	assert.Equal(t, "units", ise.Unit)
	assert.Equal(t, 0, p.Stock)
}

func TestReserveUnitsInsufficientLeavesStock(t *testing.T) {
	p := &Product{ID: 3, Name: "Faja", Kind: KindDiscrete, Stock: 2}
	err := p.ReserveUnits(3)
	require.Error(t, err)
	assert.Equal(t, 2, p.Stock)
}

func TestReserveYardsAndCutState(t *testing.T) {
	p := newCut("8.00")

	require.NoError(t, p.ReserveYards(dec("5.00")))
	assert.True(t, p.YardsOnHand.Equal(dec("3.00")))
	assert.Equal(t, CutPartial, p.CutState)

	require.NoError(t, p.ReserveYards(dec("3.00")))
	assert.True(t, p.YardsOnHand.IsZero())
	assert.Equal(t, CutDepleted, p.CutState)

	err := p.ReserveYards(dec("0.50"))
	var ise *InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, "yards", ise.Unit)
}

func TestReleaseYardsRestoresState(t *testing.T) {
	p := newCut("8.00")
	require.NoError(t, p.ReserveYards(dec("8.00")))
	assert.Equal(t, CutDepleted, p.CutState)

	p.ReleaseYards(dec("8.00"))
	assert.True(t, p.YardsOnHand.Equal(dec("8.00")))
	assert.Equal(t, CutFull, p.CutState)
}

func TestFullCutComparesAgainstOriginal(t *testing.T) {
	p := newCut("3.00")
	p.CutState = CutPartial

	// остаток 3.00, запрошено ровно 3.00 — всё равно частичная продажа
	assert.False(t, p.FullCut(dec("3.00")))
	assert.True(t, p.FullCut(dec("8.00")))
	assert.True(t, p.FullCut(dec("9.00")))
	assert.False(t, p.FullCut(dec("7.99")))
}

func TestLowStock(t *testing.T) {
	cases := []struct {
		name string
		p    Product
		want bool
	}{
		{"discrete below", Product{Kind: KindDiscrete, Stock: 4}, true},
		{"discrete at threshold", Product{Kind: KindDiscrete, Stock: 5}, false},
		{"cut below", Product{Kind: KindCut, YardsOnHand: dec("2.99")}, true},
		{"cut at threshold", Product{Kind: KindCut, YardsOnHand: dec("3.00")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.p.LowStock())
		})
	}
}
