package sales

import "errors"

// Ошибки бизнес-правил возвращаются вызывающему как есть, без ретраев.
// Нехватку товара см. products.InsufficientStockError.
var (
	ErrSaleNotFound     = errors.New("sale not found")
	ErrLineNotFound     = errors.New("sale line not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrAlreadyCancelled = errors.New("sale already cancelled")
	ErrValidation       = errors.New("invalid sale input")

	// ErrConflict — сбой на уровне хранилища (commit, lock timeout).
	// Операцию безопасно повторить целиком: частичных эффектов нет.
	ErrConflict = errors.New("storage conflict")
)
