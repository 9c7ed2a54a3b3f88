package sales

import (
	"context"

	"github.com/jmorataya/tipica-pos/internal/domain/products"
)

// Store — порт хранилища движка продаж. Реализации: pgx (боевая)
// и memory (тесты, эфемерные окружения).
//
// Методы чтения возвращают nil, nil, если записи нет.
type Store interface {
	// Transact выполняет fn в одной транзакции: либо все изменения
	// видимы, либо никакие. Ошибка из fn откатывает всё.
	Transact(ctx context.Context, fn func(tx Tx) error) error

	GetSale(ctx context.Context, id int64) (*Sale, error)
	GetLine(ctx context.Context, id int64) (*Line, error)
	ListSales(ctx context.Context) ([]Sale, error)
	ListLowStock(ctx context.Context) ([]products.Product, error)
}

// Tx — операции внутри атомарной единицы работы.
type Tx interface {
	// ProductForUpdate читает товар с блокировкой строки до конца
	// транзакции. Проверка остатка смотрит на значение после захвата
	// блокировки, поэтому остаток не уходит в минус при гонках.
	ProductForUpdate(ctx context.Context, id int64) (*products.Product, error)
	SaveProductStock(ctx context.Context, p *products.Product) error

	InsertSale(ctx context.Context, s *Sale) error // заполняет s.ID
	InsertLine(ctx context.Context, l *Line) error // заполняет l.ID
	UpdateSaleTotals(ctx context.Context, s *Sale) error

	SaleForUpdate(ctx context.Context, id int64) (*Sale, error) // вместе со строками
	MarkCancelled(ctx context.Context, saleID int64) error
}
