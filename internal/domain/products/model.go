package products

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindDiscrete Kind = "discrete" // счёт поштучно
	KindCut      Kind = "cut"      // отрез ткани, учёт в ярдах
)

type CutState string

const (
	CutFull     CutState = "full"
	CutPartial  CutState = "partial"
	CutDepleted CutState = "depleted"
)

// Пороги для списка «мало на складе».
const (
	LowStockUnits = 5
	LowStockYards = 3
)

// YardsPerCut — длина нового отреза. Классификация продажи всегда
// сравнивается с этой базой, а не с текущим остатком.
var YardsPerCut = decimal.RequireFromString("8.00")

type Product struct {
	ID            int64
	Code          string
	Name          string
	Description   string
	Kind          Kind
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
	Stock         int // только для Kind=discrete
	YardsOnHand   decimal.Decimal
	YardsOriginal decimal.Decimal
	CutState      CutState
	SupplierID    *int64
	BranchID      *int64
	CreatedAt     time.Time
}

// InsufficientStockError — запрошено больше, чем есть на складе.
// Повтор той же операции без изменения входа бессмыслен.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested decimal.Decimal
	Available decimal.Decimal
	Unit      string // "units" | "yards"
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (id=%d): requested %s, available %s %s",
		e.Name, e.ProductID, e.Requested, e.Available, e.Unit)
}

// FullCut сообщает, считается ли продажа yards ярдов полной.
// Сравнение ведётся с YardsOriginal (8.00), а не с остатком: продажа
// последнего куска начатого отреза остаётся частичной.
func (p *Product) FullCut(yards decimal.Decimal) bool {
	return yards.GreaterThanOrEqual(p.YardsOriginal)
}

// ReserveUnits списывает qty штук, без ухода в минус.
func (p *Product) ReserveUnits(qty int) error {
	if qty > p.Stock {
		return &InsufficientStockError{
			ProductID: p.ID,
			Name:      p.Name,
			Requested: decimal.NewFromInt(int64(qty)),
			Available: decimal.NewFromInt(int64(p.Stock)),
			Unit:      "units",
		}
	}
	p.Stock -= qty
	return nil
}

// ReserveYards списывает yards ярдов и пересчитывает состояние отреза.
func (p *Product) ReserveYards(yards decimal.Decimal) error {
	if p.YardsOnHand.LessThan(yards) {
		return &InsufficientStockError{
			ProductID: p.ID,
			Name:      p.Name,
			Requested: yards,
			Available: p.YardsOnHand,
			Unit:      "yards",
		}
	}
	p.YardsOnHand = p.YardsOnHand.Sub(yards)
	p.recalcCutState()
	return nil
}

// ReleaseUnits возвращает qty штук (отмена продажи).
func (p *Product) ReleaseUnits(qty int) {
	p.Stock += qty
}

// ReleaseYards возвращает yards ярдов и пересчитывает состояние.
func (p *Product) ReleaseYards(yards decimal.Decimal) {
	p.YardsOnHand = p.YardsOnHand.Add(yards)
	p.recalcCutState()
}

// LowStock — попадает ли товар в список «мало на складе».
func (p *Product) LowStock() bool {
	if p.Kind == KindCut {
		return p.YardsOnHand.LessThan(decimal.NewFromInt(LowStockYards))
	}
	return p.Stock < LowStockUnits
}

func (p *Product) recalcCutState() {
	switch {
	case p.YardsOnHand.GreaterThanOrEqual(p.YardsOriginal):
		p.CutState = CutFull
	case p.YardsOnHand.IsPositive():
		p.CutState = CutPartial
	default:
		p.CutState = CutDepleted
	}
}
