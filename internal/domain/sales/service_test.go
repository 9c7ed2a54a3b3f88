package sales_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorataya/tipica-pos/internal/domain/products"
	"github.com/jmorataya/tipica-pos/internal/domain/sales"
	"github.com/jmorataya/tipica-pos/internal/domain/sales/memory"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newService(t *testing.T) (*sales.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	store.SeedOperator(1, "Marta")
	clock := fixedClock{t: time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)}
	svc := sales.NewService(store, clock, slog.New(slog.DiscardHandler))
	return svc, store
}

func seedCut(store *memory.Store, onHand string) int64 {
	return store.SeedProduct(products.Product{
		Name:          "Corte Típico",
		Kind:          products.KindCut,
		YardsOnHand:   dec(onHand),
		YardsOriginal: products.YardsPerCut,
		CutState:      products.CutFull,
		SalePrice:     dec("150.00"),
	})
}

func seedDiscrete(store *memory.Store, stock int) int64 {
	return store.SeedProduct(products.Product{
		Name:      "Huipil",
		Kind:      products.KindDiscrete,
		Stock:     stock,
		SalePrice: dec("250.00"),
	})
}

func TestCreateSaleTotals(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	pid := seedDiscrete(store, 10)

	sale, err := svc.CreateSale(ctx, 1, sales.CreateInput{
		Channel:       "store",
		PaymentMethod: "cash",
		PaymentState:  sales.PaymentPaid,
		Lines: []sales.LineInput{
			{ProductID: pid, Quantity: 3, UnitPrice: dec("250.00")},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "FAC-20250314150926", sale.Invoice)
	assert.Equal(t, sales.StatusCompleted, sale.Status)
	assert.True(t, sale.Subtotal.Equal(dec("750.00")), "subtotal=%s", sale.Subtotal)
	assert.True(t, sale.Tax.Equal(dec("90.00")), "tax=%s", sale.Tax)
	assert.True(t, sale.Total.Equal(dec("840.00")), "total=%s", sale.Total)
	assert.True(t, sale.Discount.IsZero())
	assert.Equal(t, "Marta", sale.OperatorName)
	assert.Equal(t, "Cliente General", sale.CustomerName)

	require.Len(t, sale.Lines, 1)
	assert.Equal(t, sales.ClassFull, sale.Lines[0].Classification)
	assert.Nil(t, sale.Lines[0].YardsSold)

	p, _ := store.Product(pid)
	assert.Equal(t, 7, p.Stock)
}

func TestCreateSalePartialCut(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	pid := seedCut(store, "8.00")

	yards := dec("5.00")
	sale, err := svc.CreateSale(ctx, 1, sales.CreateInput{
		Channel:       "store",
		PaymentMethod: "cash",
		PaymentState:  sales.PaymentPaid,
		Lines: []sales.LineInput{
			{ProductID: pid, Quantity: 5, Yards: &yards, UnitPrice: dec("20.00")},
		},
	})
	require.NoError(t, err)

	require.Len(t, sale.Lines, 1)
	line := sale.Lines[0]
	assert.Equal(t, sales.ClassPartial, line.Classification)
	require.NotNil(t, line.YardsSold)
	assert.True(t, line.YardsSold.Equal(dec("5.00")))

	p, _ := store.Product(pid)
	assert.True(t, p.YardsOnHand.Equal(dec("3.00")))
	assert.Equal(t, products.CutPartial, p.CutState)

	eligible, err := svc.CheckReturnEligibility(ctx, line.ID)
	require.NoError(t, err)
	assert.False(t, eligible)
}

func TestCreateSaleFullCutByDefaultQuantity(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	pid := seedCut(store, "8.00")

	// метраж не указан — берётся целое количество (8)
	sale, err := svc.CreateSale(ctx, 1, sales.CreateInput{
		Channel:       "store",
		PaymentMethod: "card",
		PaymentState:  sales.PaymentPending,
		Lines: []sales.LineInput{
			{ProductID: pid, Quantity: 8, UnitPrice: dec("20.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, sales.ClassFull, sale.Lines[0].Classification)

	p, _ := store.Product(pid)
	assert.True(t, p.YardsOnHand.IsZero())
	assert.Equal(t, products.CutDepleted, p.CutState)

	eligible, err := svc.CheckReturnEligibility(ctx, sale.Lines[0].ID)
	require.NoError(t, err)
	assert.True(t, eligible)
}

func TestCreateSaleLastRemnantStaysPartial(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	pid := seedCut(store, "3.00")

	// продажа всего остатка начатого отреза — всё равно частичная:
	// сравнение идёт с базой 8.00, а не с остатком
	yards := dec("3.00")
	sale, err := svc.CreateSale(ctx, 1, sales.CreateInput{
		Channel:       "store",
		PaymentMethod: "cash",
		PaymentState:  sales.PaymentPaid,
		Lines: []sales.LineInput{
			{ProductID: pid, Quantity: 3, Yards: &yards, UnitPrice: dec("20.00")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, sales.ClassPartial, sale.Lines[0].Classification)

	p, _ := store.Product(pid)
	assert.Equal(t, products.CutDepleted, p.CutState)
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	pid := seedDiscrete(store, 2)

	_, err := svc.CreateSale(ctx, 1, sales.CreateInput{
		Channel:       "store",
		PaymentMethod: "cash",
		PaymentState:  sales.PaymentPaid,
		Lines: []sales.LineInput{
			{ProductID: pid, Quantity: 3, UnitPrice: dec("250.00")},
		},
	})
	var ise *products.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, pid, ise.ProductID)

	p, _ := store.Product(pid)
	assert.Equal(t, 2, p.Stock)
}

func TestCreateSaleMultiLineAtomicity(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	okID := seedDiscrete(store, 10)
	shortID := store.SeedProduct(products.Product{
		Name:      "Faja",
		Kind:      products.KindDiscrete,
		Stock:     1,
		SalePrice: dec("80.00"),
	})

	_, err := svc.CreateSale(ctx, 1, sales.CreateInput{
		Channel:       "store",
		PaymentMethod: "cash",
		PaymentState:  sales.PaymentPaid,
		Lines: []sales.LineInput{
			{ProductID: okID, Quantity: 4, UnitPrice: dec("250.00")},
			{ProductID: shortID, Quantity: 2, UnitPrice: dec("80.00")},
		},
	})
	var ise *products.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, shortID, ise.ProductID)

	// первая строка тоже откатилась, продажа не читается
	p, _ := store.Product(okID)
	assert.Equal(t, 10, p.Stock)
	slist, err := svc.ListSales(ctx)
	require.NoError(t, err)
	assert.Empty(t, slist)
}

func TestCreateSaleUnknownProductAborts(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	pid := seedDiscrete(store, 10)

	_, err := svc.CreateSale(ctx, 1, sales.CreateInput{
		Channel:       "store",
		PaymentMethod: "cash",
		PaymentState:  sales.PaymentPaid,
		Lines: []sales.LineInput{
			{ProductID: pid, Quantity: 1, UnitPrice: dec("250.00")},
			{ProductID: 999, Quantity: 1, UnitPrice: dec("10.00")},
		},
	})
	require.ErrorIs(t, err, sales.ErrProductNotFound)

	p, _ := store.Product(pid)
	assert.Equal(t, 10, p.Stock)
}

func TestCreateSaleValidation(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	pid := seedDiscrete(store, 10)

	cases := []struct {
		name string
		op   int64
		in   sales.CreateInput
	}{
		{"no operator", 0, sales.CreateInput{
			PaymentState: sales.PaymentPaid,
			Lines:        []sales.LineInput{{ProductID: pid, Quantity: 1, UnitPrice: dec("1")}},
		}},
		{"empty lines", 1, sales.CreateInput{PaymentState: sales.PaymentPaid}},
		{"zero quantity", 1, sales.CreateInput{
			PaymentState: sales.PaymentPaid,
			Lines:        []sales.LineInput{{ProductID: pid, Quantity: 0, UnitPrice: dec("1")}},
		}},
		{"negative price", 1, sales.CreateInput{
			PaymentState: sales.PaymentPaid,
			Lines:        []sales.LineInput{{ProductID: pid, Quantity: 1, UnitPrice: dec("-1")}},
		}},
		{"bad payment state", 1, sales.CreateInput{
			PaymentState: "maybe",
			Lines:        []sales.LineInput{{ProductID: pid, Quantity: 1, UnitPrice: dec("1")}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateSale(ctx, tc.op, tc.in)
			assert.ErrorIs(t, err, sales.ErrValidation)
		})
	}
}

func TestCancelSaleRestoresStock(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	discID := seedDiscrete(store, 3)
	cutID := seedCut(store, "8.00")

	yards := dec("5.00")
	sale, err := svc.CreateSale(ctx, 1, sales.CreateInput{
		Channel:       "store",
		PaymentMethod: "cash",
		PaymentState:  sales.PaymentPaid,
		Lines: []sales.LineInput{
			{ProductID: discID, Quantity: 1, UnitPrice: dec("250.00")},
			{ProductID: cutID, Quantity: 5, Yards: &yards, UnitPrice: dec("20.00")},
		},
	})
	require.NoError(t, err)

	require.NoError(t, svc.CancelSale(ctx, sale.ID, 1))

	p, _ := store.Product(discID)
	assert.Equal(t, 3, p.Stock)
	c, _ := store.Product(cutID)
	assert.True(t, c.YardsOnHand.Equal(dec("8.00")))
	assert.Equal(t, products.CutFull, c.CutState)

	got, err := svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusCancelled, got.Status)

	// классификация строк пережила отмену
	assert.Equal(t, sales.ClassFull, got.Lines[0].Classification)
	assert.Equal(t, sales.ClassPartial, got.Lines[1].Classification)

	err = svc.CancelSale(ctx, sale.ID, 1)
	assert.ErrorIs(t, err, sales.ErrAlreadyCancelled)
}

func TestCancelSaleNotFound(t *testing.T) {
	svc, _ := newService(t)
	err := svc.CancelSale(context.Background(), 42, 1)
	assert.ErrorIs(t, err, sales.ErrSaleNotFound)
}

func TestEligibilityAfterCancellation(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	pid := seedCut(store, "8.00")

	yards := dec("2.50")
	sale, err := svc.CreateSale(ctx, 1, sales.CreateInput{
		Channel:       "whatsapp",
		PaymentMethod: "transfer",
		PaymentState:  sales.PaymentPending,
		Lines: []sales.LineInput{
			{ProductID: pid, Quantity: 2, Yards: &yards, UnitPrice: dec("20.00")},
		},
	})
	require.NoError(t, err)
	require.NoError(t, svc.CancelSale(ctx, sale.ID, 1))

	eligible, err := svc.CheckReturnEligibility(ctx, sale.Lines[0].ID)
	require.NoError(t, err)
	assert.False(t, eligible, "partial line stays ineligible after cancellation")
}

func TestEligibilityLineNotFound(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.CheckReturnEligibility(context.Background(), 777)
	assert.ErrorIs(t, err, sales.ErrLineNotFound)
}

func TestGetSaleNotFound(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.GetSale(context.Background(), 123)
	assert.ErrorIs(t, err, sales.ErrSaleNotFound)
}

func TestListLowStock(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	seedDiscrete(store, 10)
	lowDisc := store.SeedProduct(products.Product{
		Name: "Blusa", Kind: products.KindDiscrete, Stock: 2, SalePrice: dec("90.00"),
	})
	lowCut := store.SeedProduct(products.Product{
		Name:          "Perraje",
		Kind:          products.KindCut,
		YardsOnHand:   dec("1.50"),
		YardsOriginal: products.YardsPerCut,
		CutState:      products.CutPartial,
		SalePrice:     dec("200.00"),
	})

	low, err := svc.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 2)
	ids := []int64{low[0].ID, low[1].ID}
	assert.Contains(t, ids, lowDisc)
	assert.Contains(t, ids, lowCut)
}

type captureNotifier struct{ got []products.Product }

func (n *captureNotifier) LowStock(_ context.Context, ps []products.Product) {
	n.got = append(n.got, ps...)
}

func TestNotifierCalledWhenStockFallsLow(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	pid := seedDiscrete(store, 6)

	n := &captureNotifier{}
	svc.SetNotifier(n)

	_, err := svc.CreateSale(ctx, 1, sales.CreateInput{
		Channel:       "store",
		PaymentMethod: "cash",
		PaymentState:  sales.PaymentPaid,
		Lines: []sales.LineInput{
			{ProductID: pid, Quantity: 3, UnitPrice: dec("250.00")},
		},
	})
	require.NoError(t, err)

	require.Len(t, n.got, 1)
	assert.Equal(t, pid, n.got[0].ID)
	assert.Equal(t, 3, n.got[0].Stock)
}
