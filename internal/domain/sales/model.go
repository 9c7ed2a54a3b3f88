package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type PaymentState string

const (
	PaymentPending PaymentState = "pending"
	PaymentPaid    PaymentState = "paid"
)

type Classification string

const (
	ClassFull    Classification = "full"
	ClassPartial Classification = "partial"
)

// TaxRate — НДС 12%, фиксирован бизнесом, не конфигурируется.
var TaxRate = decimal.RequireFromString("0.12")

type Sale struct {
	ID            int64
	Invoice       string
	CustomerID    *int64
	CustomerName  string // "Cliente General", если покупатель не указан
	OperatorID    int64
	OperatorName  string
	Date          time.Time
	Channel       string // store | facebook | whatsapp
	PaymentMethod string // cash | card | transfer | check
	PaymentState  PaymentState
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	Status        Status
	Notes         string
	Lines         []Line
}

type Line struct {
	ID              int64
	SaleID          int64
	ProductID       int64
	ProductName     string
	Quantity        int
	YardsSold       *decimal.Decimal // только для отрезов
	UnitPrice       decimal.Decimal
	Classification  Classification
	DiscountApplied decimal.Decimal // пока всегда 0, поле зарезервировано
	PromotionID     *int64
}

// Totals считает сумму по строкам: subtotal, налог и итог.
// Скидка на момент создания всегда нулевая.
func Totals(lines []Line, discount decimal.Decimal) (subtotal, tax, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	tax = subtotal.Mul(TaxRate).Round(2)
	total = subtotal.Add(tax).Sub(discount)
	return subtotal, tax, total
}
