package sales

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmorataya/tipica-pos/internal/domain/products"
)

// Clock отдаёт текущее время. Внедряется, чтобы номер фактуры и дата
// продажи не зависели от настенных часов в тестах.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// Notifier получает товары, упавшие ниже порога после продажи.
// Ошибки доставки не влияют на продажу.
type Notifier interface {
	LowStock(ctx context.Context, ps []products.Product)
}

// Service — движок продаж: создание, отмена, проверка возврата.
// Единственный компонент, которому разрешено менять остатки.
type Service struct {
	store    Store
	clock    Clock
	log      *slog.Logger
	notifier Notifier // может быть nil
}

func NewService(store Store, clock Clock, log *slog.Logger) *Service {
	if clock == nil {
		clock = SystemClock()
	}
	return &Service{store: store, clock: clock, log: log}
}

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

type LineInput struct {
	ProductID   int64
	Quantity    int
	Yards       *decimal.Decimal // явный метраж для отрезов; иначе берём Quantity
	UnitPrice   decimal.Decimal
	PromotionID *int64
}

type CreateInput struct {
	CustomerID    *int64
	Channel       string
	PaymentMethod string
	PaymentState  PaymentState
	Notes         string
	Lines         []LineInput
}

func (in CreateInput) validate() error {
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	for i, l := range in.Lines {
		if l.ProductID <= 0 {
			return fmt.Errorf("%w: line %d: product id required", ErrValidation, i+1)
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: line %d: quantity must be positive", ErrValidation, i+1)
		}
		if l.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: line %d: unit price must not be negative", ErrValidation, i+1)
		}
		if l.Yards != nil && !l.Yards.IsPositive() {
			return fmt.Errorf("%w: line %d: yards must be positive", ErrValidation, i+1)
		}
	}
	switch in.PaymentState {
	case PaymentPending, PaymentPaid:
	default:
		return fmt.Errorf("%w: unknown payment state %q", ErrValidation, in.PaymentState)
	}
	return nil
}

// CreateSale атомарно проверяет остатки, списывает их и сохраняет
// продажу со строками. Любая ошибка до коммита не оставляет следов:
// ни изменённых остатков, ни читаемой шапки продажи.
func (s *Service) CreateSale(ctx context.Context, operatorID int64, in CreateInput) (*Sale, error) {
	if operatorID <= 0 {
		return nil, fmt.Errorf("%w: operator required", ErrValidation)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sale := &Sale{
		// Номер на основе времени; риск коллизии принят осознанно.
		Invoice:       "FAC-" + now.Format("20060102150405"),
		CustomerID:    in.CustomerID,
		OperatorID:    operatorID,
		Date:          now,
		Channel:       in.Channel,
		PaymentMethod: in.PaymentMethod,
		PaymentState:  in.PaymentState,
		Status:        StatusCompleted,
		Notes:         in.Notes,
		Discount:      decimal.Zero,
	}

	var low []products.Product
	err := s.store.Transact(ctx, func(tx Tx) error {
		if err := tx.InsertSale(ctx, sale); err != nil {
			return err
		}

		low = low[:0]
		var lines []Line
		for _, li := range in.Lines {
			p, err := tx.ProductForUpdate(ctx, li.ProductID)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("%w: id=%d", ErrProductNotFound, li.ProductID)
			}

			line := Line{
				SaleID:          sale.ID,
				ProductID:       p.ID,
				ProductName:     p.Name,
				Quantity:        li.Quantity,
				UnitPrice:       li.UnitPrice,
				Classification:  ClassFull,
				DiscountApplied: decimal.Zero,
				PromotionID:     li.PromotionID,
			}

			switch p.Kind {
			case products.KindCut:
				yards := decimal.NewFromInt(int64(li.Quantity))
				if li.Yards != nil {
					yards = *li.Yards
				}
				if !p.FullCut(yards) {
					line.Classification = ClassPartial
				}
				if err := p.ReserveYards(yards); err != nil {
					return err
				}
				line.YardsSold = &yards
			default:
				if err := p.ReserveUnits(li.Quantity); err != nil {
					return err
				}
			}

			if err := tx.SaveProductStock(ctx, p); err != nil {
				return err
			}
			if err := tx.InsertLine(ctx, &line); err != nil {
				return err
			}
			lines = append(lines, line)
			if p.LowStock() {
				low = append(low, *p)
			}
		}

		sale.Subtotal, sale.Tax, sale.Total = Totals(lines, sale.Discount)
		sale.Lines = lines
		return tx.UpdateSaleTotals(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sale created",
		"sale_id", sale.ID, "invoice", sale.Invoice,
		"operator_id", operatorID, "lines", len(sale.Lines), "total", sale.Total)

	if s.notifier != nil && len(low) > 0 {
		s.notifier.LowStock(ctx, low)
	}

	return s.store.GetSale(ctx, sale.ID)
}

// CancelSale возвращает остатки по каждой строке и помечает продажу
// отменённой. Классификация строк не меняется: это исторический факт,
// от которого зависит право на возврат.
func (s *Service) CancelSale(ctx context.Context, saleID, operatorID int64) error {
	err := s.store.Transact(ctx, func(tx Tx) error {
		sale, err := tx.SaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return fmt.Errorf("%w: id=%d", ErrSaleNotFound, saleID)
		}
		if sale.Status == StatusCancelled {
			return fmt.Errorf("%w: id=%d", ErrAlreadyCancelled, saleID)
		}

		for _, line := range sale.Lines {
			p, err := tx.ProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if p == nil {
				// товар удалён из каталога — возвращать некуда
				continue
			}
			if line.YardsSold != nil {
				p.ReleaseYards(*line.YardsSold)
			} else {
				p.ReleaseUnits(line.Quantity)
			}
			if err := tx.SaveProductStock(ctx, p); err != nil {
				return err
			}
		}

		return tx.MarkCancelled(ctx, saleID)
	})
	if err != nil {
		return err
	}

	s.log.Info("sale cancelled", "sale_id", saleID, "operator_id", operatorID)
	return nil
}

// CheckReturnEligibility — чистый предикат без побочных эффектов.
// Возврат разрешён только для строк с полной продажей; частичные
// отрезы не принимаются назад ни при каких условиях.
func (s *Service) CheckReturnEligibility(ctx context.Context, lineID int64) (bool, error) {
	line, err := s.store.GetLine(ctx, lineID)
	if err != nil {
		return false, err
	}
	if line == nil {
		return false, fmt.Errorf("%w: id=%d", ErrLineNotFound, lineID)
	}
	return line.Classification == ClassFull, nil
}

func (s *Service) GetSale(ctx context.Context, id int64) (*Sale, error) {
	sale, err := s.store.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, fmt.Errorf("%w: id=%d", ErrSaleNotFound, id)
	}
	return sale, nil
}

func (s *Service) ListSales(ctx context.Context) ([]Sale, error) {
	return s.store.ListSales(ctx)
}

func (s *Service) ListLowStock(ctx context.Context) ([]products.Product, error) {
	return s.store.ListLowStock(ctx)
}
