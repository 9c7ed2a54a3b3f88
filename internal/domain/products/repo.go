package products

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const productCols = `id, code, name, description, kind, purchase_price, sale_price,
	stock, yards_on_hand, yards_original, cut_state, supplier_id, branch_id, created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Description, &p.Kind,
		&p.PurchasePrice, &p.SalePrice,
		&p.Stock, &p.YardsOnHand, &p.YardsOriginal, &p.CutState,
		&p.SupplierID, &p.BranchID, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) Create(ctx context.Context, p *Product) (*Product, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (code, name, description, kind, purchase_price, sale_price,
			stock, yards_on_hand, yards_original, cut_state, supplier_id, branch_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING `+productCols+`
	`, p.Code, p.Name, p.Description, string(p.Kind), p.PurchasePrice, p.SalePrice,
		p.Stock, p.YardsOnHand, p.YardsOriginal, string(p.CutState), p.SupplierID, p.BranchID)
	return scanProduct(row)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Product, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+productCols+` FROM products WHERE id = $1
	`, id)
	p, err := scanProduct(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+productCols+` FROM products ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repo) ListByKind(ctx context.Context, kind Kind) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+productCols+` FROM products WHERE kind = $1 ORDER BY name
	`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListLowStock — товары ниже порога: штучные по stock, отрезы по остатку ярдов.
func (r *Repo) ListLowStock(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+productCols+` FROM products
		WHERE (kind = 'discrete' AND stock < $1)
		   OR (kind = 'cut' AND yards_on_hand < $2)
		ORDER BY name
	`, LowStockUnits, LowStockYards)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repo) Update(ctx context.Context, p *Product) (*Product, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE products
		SET name=$2, description=$3, purchase_price=$4, sale_price=$5,
		    supplier_id=$6, branch_id=$7
		WHERE id=$1
		RETURNING `+productCols+`
	`, p.ID, p.Name, p.Description, p.PurchasePrice, p.SalePrice, p.SupplierID, p.BranchID)
	return scanProduct(row)
}
