package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jmorataya/tipica-pos/internal/domain/products"
)

func TestSalesWorkbook(t *testing.T) {
	rows := []LedgerRow{
		{
			Invoice:  "FAC-20250314150926",
			Date:     time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC),
			Operator: "Marta",
			Customer: "Cliente General",
			Channel:  "store",
			Status:   "completed",
			Product:  "Corte Típico",
			Quantity: 5,
			YardsSold: decimal.NullDecimal{
				Decimal: decimal.RequireFromString("5.00"), Valid: true,
			},
			UnitPrice:      decimal.RequireFromString("20.00"),
			Classification: "partial",
		},
	}

	buf, err := SalesWorkbook(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	got, err := f.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "FAC-20250314150926", got)

	got, err = f.GetCellValue(sheet, "I2")
	require.NoError(t, err)
	assert.Equal(t, "5.00", got)

	got, err = f.GetCellValue(sheet, "K2")
	require.NoError(t, err)
	assert.Equal(t, "partial", got)
}

func TestLowStockWorkbook(t *testing.T) {
	ps := []products.Product{
		{ID: 1, Code: "PROD-1", Name: "Huipil", Kind: products.KindDiscrete, Stock: 2},
		{
			ID: 2, Code: "PROD-2", Name: "Perraje", Kind: products.KindCut,
			YardsOnHand: decimal.RequireFromString("1.50"),
			CutState:    products.CutPartial,
		},
	}

	buf, err := LowStockWorkbook(ps)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	got, err := f.GetCellValue(sheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "Huipil", got)

	got, err = f.GetCellValue(sheet, "F3")
	require.NoError(t, err)
	assert.Equal(t, "1.50", got)

	got, err = f.GetCellValue(sheet, "G3")
	require.NoError(t, err)
	assert.Equal(t, "partial", got)
}
