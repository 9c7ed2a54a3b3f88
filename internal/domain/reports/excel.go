package reports

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jmorataya/tipica-pos/internal/domain/products"
)

// SalesWorkbook собирает журнал продаж в xlsx.
func SalesWorkbook(rows []LedgerRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{
		"invoice", "date", "operator", "customer", "channel", "status",
		"product", "quantity", "yards_sold", "unit_price", "classification",
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("sales workbook header: %w", err)
	}

	for i, lr := range rows {
		yards := ""
		if lr.YardsSold.Valid {
			yards = lr.YardsSold.Decimal.StringFixed(2)
		}
		excelRow := []interface{}{
			lr.Invoice,
			lr.Date.Format("2006-01-02 15:04"),
			lr.Operator,
			lr.Customer,
			lr.Channel,
			lr.Status,
			lr.Product,
			lr.Quantity,
			yards,
			lr.UnitPrice.StringFixed(2),
			lr.Classification,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return nil, fmt.Errorf("sales workbook row %d: %w", i+2, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// LowStockWorkbook — список товаров ниже порога.
func LowStockWorkbook(ps []products.Product) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	header := []interface{}{"id", "code", "name", "kind", "stock", "yards_on_hand", "cut_state"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("low stock workbook header: %w", err)
	}

	for i, p := range ps {
		yards, state := "", ""
		if p.Kind == products.KindCut {
			yards = p.YardsOnHand.StringFixed(2)
			state = string(p.CutState)
		}
		excelRow := []interface{}{p.ID, p.Code, p.Name, string(p.Kind), p.Stock, yards, state}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
			return nil, fmt.Errorf("low stock workbook row %d: %w", i+2, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
