package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo — сквозной CRUD справочников. Инвариантов, кроме уникальности
// имён, здесь нет; движок продаж справочники только читает.
type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

/* Customers */

func (r *Repo) CreateCustomer(ctx context.Context, name, phone, address string) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO customers (name, phone, address) VALUES ($1,$2,$3)
		RETURNING id, name, phone, address, active, created_at
	`, name, phone, address)
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Active, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) GetCustomerByID(ctx context.Context, id int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, phone, address, active, created_at
		FROM customers WHERE id = $1
	`, id)
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Active, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repo) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, phone, address, active, created_at
		FROM customers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.Active, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

/* Suppliers */

func (r *Repo) CreateSupplier(ctx context.Context, name, contact, phone string) (*Supplier, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO suppliers (name, contact, phone) VALUES ($1,$2,$3)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, contact, phone, active, created_at
	`, name, contact, phone)
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Contact, &s.Phone, &s.Active, &s.CreatedAt)
	if err == pgx.ErrNoRows {
		// уже есть — вернём существующего
		return r.GetSupplierByName(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) GetSupplierByName(ctx context.Context, name string) (*Supplier, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, contact, phone, active, created_at
		FROM suppliers WHERE name = $1
	`, name)
	var s Supplier
	if err := row.Scan(&s.ID, &s.Name, &s.Contact, &s.Phone, &s.Active, &s.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, contact, phone, active, created_at
		FROM suppliers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Contact, &s.Phone, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

/* Branches */

func (r *Repo) CreateBranch(ctx context.Context, name, address string) (*Branch, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO branches (name, address) VALUES ($1,$2)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, address, active, created_at
	`, name, address)
	var b Branch
	err := row.Scan(&b.ID, &b.Name, &b.Address, &b.Active, &b.CreatedAt)
	if err == pgx.ErrNoRows {
		return r.GetBranchByName(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repo) GetBranchByName(ctx context.Context, name string) (*Branch, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, address, active, created_at
		FROM branches WHERE name = $1
	`, name)
	var b Branch
	if err := row.Scan(&b.ID, &b.Name, &b.Address, &b.Active, &b.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *Repo) ListBranches(ctx context.Context) ([]Branch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, address, active, created_at
		FROM branches
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.Active, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
