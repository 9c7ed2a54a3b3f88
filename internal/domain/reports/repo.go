package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo — read-only проекции для дашборда. Бизнес-логики здесь нет;
// отменённые продажи исключаются из выручки.
type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

type Summary struct {
	Sales   int
	Revenue decimal.Decimal
}

// DailySummary — число и выручка завершённых продаж за сутки day.
func (r *Repo) DailySummary(ctx context.Context, day time.Time) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM sales
		WHERE status = 'completed' AND date >= $1 AND date < $1 + INTERVAL '1 day'
	`, day.Truncate(24*time.Hour)).Scan(&s.Sales, &s.Revenue)
	return s, err
}

// MonthlyRevenue — выручка месяца без отменённых продаж.
func (r *Repo) MonthlyRevenue(ctx context.Context, year int, month time.Month) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0)
		FROM sales
		WHERE status <> 'cancelled'
		  AND EXTRACT(YEAR FROM date) = $1 AND EXTRACT(MONTH FROM date) = $2
	`, year, int(month)).Scan(&total)
	return total, err
}

type TopProduct struct {
	ProductID int64
	Name      string
	Quantity  int64
}

func (r *Repo) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.product_id, p.name, SUM(l.quantity)
		FROM sale_lines l
		JOIN sales s ON s.id = l.sale_id AND s.status <> 'cancelled'
		JOIN products p ON p.id = l.product_id
		GROUP BY l.product_id, p.name
		ORDER BY SUM(l.quantity) DESC, p.name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TopProduct
	for rows.Next() {
		var tp TopProduct
		if err := rows.Scan(&tp.ProductID, &tp.Name, &tp.Quantity); err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

type ChannelTotal struct {
	Channel string
	Sales   int
	Revenue decimal.Decimal
}

func (r *Repo) SalesByChannel(ctx context.Context, from, to time.Time) ([]ChannelTotal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT channel, COUNT(*), COALESCE(SUM(total), 0)
		FROM sales
		WHERE status <> 'cancelled' AND date >= $1 AND date < $2
		GROUP BY channel
		ORDER BY channel
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ChannelTotal
	for rows.Next() {
		var ct ChannelTotal
		if err := rows.Scan(&ct.Channel, &ct.Sales, &ct.Revenue); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// LedgerRow — строка журнала продаж для выгрузки в Excel.
type LedgerRow struct {
	Invoice        string
	Date           time.Time
	Operator       string
	Customer       string
	Channel        string
	Status         string
	Product        string
	Quantity       int
	YardsSold      decimal.NullDecimal
	UnitPrice      decimal.Decimal
	Classification string
}

func (r *Repo) SalesLedger(ctx context.Context, from, to time.Time) ([]LedgerRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.invoice, s.date, u.name, COALESCE(c.name, 'Cliente General'),
		       s.channel, s.status,
		       p.name, l.quantity, l.yards_sold, l.unit_price, l.classification
		FROM sales s
		JOIN users u ON u.id = s.operator_id
		LEFT JOIN customers c ON c.id = s.customer_id
		JOIN sale_lines l ON l.sale_id = s.id
		JOIN products p ON p.id = l.product_id
		WHERE s.date >= $1 AND s.date < $2
		ORDER BY s.date, s.id, l.id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LedgerRow
	for rows.Next() {
		var lr LedgerRow
		if err := rows.Scan(&lr.Invoice, &lr.Date, &lr.Operator, &lr.Customer,
			&lr.Channel, &lr.Status,
			&lr.Product, &lr.Quantity, &lr.YardsSold, &lr.UnitPrice, &lr.Classification); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}
