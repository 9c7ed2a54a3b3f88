// Package memory — реализация sales.Store в памяти для тестов и
// эфемерных окружений. Транзакционность обеспечивается снимком
// состояния: ошибка внутри Transact восстанавливает всё как было.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jmorataya/tipica-pos/internal/domain/products"
	"github.com/jmorataya/tipica-pos/internal/domain/sales"
)

var _ sales.Store = (*Store)(nil)

type Store struct {
	mu        sync.Mutex
	products  map[int64]*products.Product
	sales     map[int64]*sales.Sale
	lines     map[int64]*sales.Line
	operators map[int64]string
	customers map[int64]string

	nextProduct int64
	nextSale    int64
	nextLine    int64
}

func New() *Store {
	return &Store{
		products:  map[int64]*products.Product{},
		sales:     map[int64]*sales.Sale{},
		lines:     map[int64]*sales.Line{},
		operators: map[int64]string{},
		customers: map[int64]string{},
	}
}

func (s *Store) SeedProduct(p products.Product) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextProduct++
		p.ID = s.nextProduct
	} else if p.ID > s.nextProduct {
		s.nextProduct = p.ID
	}
	s.products[p.ID] = &p
	return p.ID
}

func (s *Store) SeedOperator(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operators[id] = name
}

func (s *Store) SeedCustomer(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[id] = name
}

// Product возвращает копию товара для проверок в тестах.
func (s *Store) Product(id int64) (products.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return products.Product{}, false
	}
	return *p, true
}

func (s *Store) Transact(_ context.Context, fn func(tx sales.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&memTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	products map[int64]*products.Product
	sales    map[int64]*sales.Sale
	lines    map[int64]*sales.Line
	nextSale int64
	nextLine int64
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		products: make(map[int64]*products.Product, len(s.products)),
		sales:    make(map[int64]*sales.Sale, len(s.sales)),
		lines:    make(map[int64]*sales.Line, len(s.lines)),
		nextSale: s.nextSale,
		nextLine: s.nextLine,
	}
	for id, p := range s.products {
		cp := *p
		snap.products[id] = &cp
	}
	for id, sl := range s.sales {
		cp := *sl
		cp.Lines = append([]sales.Line(nil), sl.Lines...)
		snap.sales[id] = &cp
	}
	for id, l := range s.lines {
		cp := *l
		snap.lines[id] = &cp
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.products = snap.products
	s.sales = snap.sales
	s.lines = snap.lines
	s.nextSale = snap.nextSale
	s.nextLine = snap.nextLine
}

func (s *Store) GetSale(_ context.Context, id int64) (*sales.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assembleSale(id), nil
}

func (s *Store) GetLine(_ context.Context, id int64) (*sales.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	if p, ok := s.products[l.ProductID]; ok {
		cp.ProductName = p.Name
	}
	return &cp, nil
}

func (s *Store) ListSales(_ context.Context) ([]sales.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.sales))
	for id := range s.sales {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	out := make([]sales.Sale, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.assembleSale(id))
	}
	return out, nil
}

func (s *Store) ListLowStock(_ context.Context) ([]products.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []products.Product
	for _, p := range s.products {
		if p.LowStock() {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// assembleSale собирает копию продажи со строками и именами; вызывающий
// держит s.mu.
func (s *Store) assembleSale(id int64) *sales.Sale {
	sl, ok := s.sales[id]
	if !ok {
		return nil
	}
	cp := *sl
	cp.OperatorName = s.operators[sl.OperatorID]
	cp.CustomerName = "Cliente General"
	if sl.CustomerID != nil {
		if name, ok := s.customers[*sl.CustomerID]; ok {
			cp.CustomerName = name
		}
	}
	cp.Lines = nil
	var lineIDs []int64
	for lid, l := range s.lines {
		if l.SaleID == id {
			lineIDs = append(lineIDs, lid)
		}
	}
	sort.Slice(lineIDs, func(i, j int) bool { return lineIDs[i] < lineIDs[j] })
	for _, lid := range lineIDs {
		l := *s.lines[lid]
		if p, ok := s.products[l.ProductID]; ok {
			l.ProductName = p.Name
		}
		cp.Lines = append(cp.Lines, l)
	}
	return &cp
}

type memTx struct{ s *Store }

func (t *memTx) ProductForUpdate(_ context.Context, id int64) (*products.Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (t *memTx) SaveProductStock(_ context.Context, p *products.Product) error {
	if cur, ok := t.s.products[p.ID]; ok && cur != p {
		cur.Stock = p.Stock
		cur.YardsOnHand = p.YardsOnHand
		cur.CutState = p.CutState
	}
	return nil
}

func (t *memTx) InsertSale(_ context.Context, sl *sales.Sale) error {
	t.s.nextSale++
	sl.ID = t.s.nextSale
	cp := *sl
	cp.Lines = nil
	t.s.sales[sl.ID] = &cp
	return nil
}

func (t *memTx) InsertLine(_ context.Context, l *sales.Line) error {
	t.s.nextLine++
	l.ID = t.s.nextLine
	cp := *l
	t.s.lines[l.ID] = &cp
	return nil
}

func (t *memTx) UpdateSaleTotals(_ context.Context, sl *sales.Sale) error {
	cur, ok := t.s.sales[sl.ID]
	if !ok {
		return nil
	}
	cur.Subtotal, cur.Discount, cur.Tax, cur.Total = sl.Subtotal, sl.Discount, sl.Tax, sl.Total
	return nil
}

func (t *memTx) SaleForUpdate(_ context.Context, id int64) (*sales.Sale, error) {
	return t.s.assembleSale(id), nil
}

func (t *memTx) MarkCancelled(_ context.Context, saleID int64) error {
	if cur, ok := t.s.sales[saleID]; ok {
		cur.Status = sales.StatusCancelled
	}
	return nil
}
