package sales

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jmorataya/tipica-pos/internal/domain/products"
)

// PgStore — боевая реализация Store поверх Postgres.
// Строки товаров блокируются через SELECT ... FOR UPDATE, поэтому
// read committed достаточно, чтобы остаток не ушёл в минус.
type PgStore struct {
	pool     *pgxpool.Pool
	products *products.Repo
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, products: products.NewRepo(pool)}
}

func (s *PgStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrConflict, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrConflict, err)
	}
	return nil
}

const saleCols = `
	s.id, s.invoice, s.customer_id, COALESCE(c.name, 'Cliente General'),
	s.operator_id, u.name, s.date, s.channel, s.payment_method, s.payment_state,
	s.subtotal, s.discount, s.tax, s.total, s.status, s.notes`

const saleJoins = `
	FROM sales s
	JOIN users u ON u.id = s.operator_id
	LEFT JOIN customers c ON c.id = s.customer_id`

func scanSale(row pgx.Row) (*Sale, error) {
	var sl Sale
	if err := row.Scan(
		&sl.ID, &sl.Invoice, &sl.CustomerID, &sl.CustomerName,
		&sl.OperatorID, &sl.OperatorName, &sl.Date, &sl.Channel,
		&sl.PaymentMethod, &sl.PaymentState,
		&sl.Subtotal, &sl.Discount, &sl.Tax, &sl.Total, &sl.Status, &sl.Notes,
	); err != nil {
		return nil, err
	}
	return &sl, nil
}

func (s *PgStore) GetSale(ctx context.Context, id int64) (*Sale, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+saleCols+saleJoins+` WHERE s.id = $1`, id)
	sl, err := scanSale(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lines, err := s.linesOf(ctx, id)
	if err != nil {
		return nil, err
	}
	sl.Lines = lines
	return sl, nil
}

func (s *PgStore) ListSales(ctx context.Context) ([]Sale, error) {
	rows, err := s.pool.Query(ctx, `SELECT`+saleCols+saleJoins+` ORDER BY s.date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Sale
	for rows.Next() {
		sl, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sl)
	}
	return out, rows.Err()
}

func (s *PgStore) GetLine(ctx context.Context, id int64) (*Line, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT l.id, l.sale_id, l.product_id, p.name, l.quantity, l.yards_sold,
		       l.unit_price, l.classification, l.discount_applied, l.promotion_id
		FROM sale_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.id = $1
	`, id)
	l, err := scanLine(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *PgStore) ListLowStock(ctx context.Context) ([]products.Product, error) {
	return s.products.ListLowStock(ctx)
}

func scanLine(row pgx.Row) (*Line, error) {
	var l Line
	var yards decimal.NullDecimal
	if err := row.Scan(
		&l.ID, &l.SaleID, &l.ProductID, &l.ProductName, &l.Quantity, &yards,
		&l.UnitPrice, &l.Classification, &l.DiscountApplied, &l.PromotionID,
	); err != nil {
		return nil, err
	}
	if yards.Valid {
		l.YardsSold = &yards.Decimal
	}
	return &l, nil
}

func (s *PgStore) linesOf(ctx context.Context, saleID int64) ([]Line, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT l.id, l.sale_id, l.product_id, p.name, l.quantity, l.yards_sold,
		       l.unit_price, l.classification, l.discount_applied, l.promotion_id
		FROM sale_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.sale_id = $1
		ORDER BY l.id
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) ProductForUpdate(ctx context.Context, id int64) (*products.Product, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT id, code, name, description, kind, purchase_price, sale_price,
		       stock, yards_on_hand, yards_original, cut_state, supplier_id, branch_id, created_at
		FROM products WHERE id = $1
		FOR UPDATE
	`, id)
	var p products.Product
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Description, &p.Kind,
		&p.PurchasePrice, &p.SalePrice,
		&p.Stock, &p.YardsOnHand, &p.YardsOriginal, &p.CutState,
		&p.SupplierID, &p.BranchID, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) SaveProductStock(ctx context.Context, p *products.Product) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE products
		SET stock=$2, yards_on_hand=$3, cut_state=$4
		WHERE id=$1
	`, p.ID, p.Stock, p.YardsOnHand, string(p.CutState))
	return err
}

func (t *pgTx) InsertSale(ctx context.Context, s *Sale) error {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO sales (invoice, customer_id, operator_id, date, channel,
			payment_method, payment_state, subtotal, discount, tax, total, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id
	`, s.Invoice, s.CustomerID, s.OperatorID, s.Date, s.Channel,
		s.PaymentMethod, string(s.PaymentState),
		s.Subtotal, s.Discount, s.Tax, s.Total, string(s.Status), s.Notes)
	return row.Scan(&s.ID)
}

func (t *pgTx) InsertLine(ctx context.Context, l *Line) error {
	var yards decimal.NullDecimal
	if l.YardsSold != nil {
		yards = decimal.NullDecimal{Decimal: *l.YardsSold, Valid: true}
	}
	row := t.tx.QueryRow(ctx, `
		INSERT INTO sale_lines (sale_id, product_id, quantity, yards_sold,
			unit_price, classification, discount_applied, promotion_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, l.SaleID, l.ProductID, l.Quantity, yards,
		l.UnitPrice, string(l.Classification), l.DiscountApplied, l.PromotionID)
	return row.Scan(&l.ID)
}

func (t *pgTx) UpdateSaleTotals(ctx context.Context, s *Sale) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE sales SET subtotal=$2, discount=$3, tax=$4, total=$5 WHERE id=$1
	`, s.ID, s.Subtotal, s.Discount, s.Tax, s.Total)
	return err
}

func (t *pgTx) SaleForUpdate(ctx context.Context, id int64) (*Sale, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT id, invoice, operator_id, status
		FROM sales WHERE id = $1
		FOR UPDATE
	`, id)
	var sl Sale
	if err := row.Scan(&sl.ID, &sl.Invoice, &sl.OperatorID, &sl.Status); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	rows, err := t.tx.Query(ctx, `
		SELECT id, sale_id, product_id, quantity, yards_sold, unit_price,
		       classification, discount_applied, promotion_id
		FROM sale_lines WHERE sale_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		var yards decimal.NullDecimal
		if err := rows.Scan(&l.ID, &l.SaleID, &l.ProductID, &l.Quantity, &yards,
			&l.UnitPrice, &l.Classification, &l.DiscountApplied, &l.PromotionID); err != nil {
			return nil, err
		}
		if yards.Valid {
			l.YardsSold = &yards.Decimal
		}
		sl.Lines = append(sl.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sl, nil
}

func (t *pgTx) MarkCancelled(ctx context.Context, saleID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE sales SET status='cancelled' WHERE id=$1`, saleID)
	return err
}
