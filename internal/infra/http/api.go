package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmorataya/tipica-pos/internal/domain/products"
	"github.com/jmorataya/tipica-pos/internal/domain/reports"
	"github.com/jmorataya/tipica-pos/internal/domain/sales"
	"github.com/jmorataya/tipica-pos/internal/infra/metrics"
)

// API — REST-поверхность движка продаж. Личность оператора приходит
// в заголовке X-Operator-ID от внешнего провайдера и не перепроверяется.
type API struct {
	log     *slog.Logger
	sales   *sales.Service
	reports *reports.Repo // nil, если отчётные ручки не нужны (тесты)
}

func NewAPI(log *slog.Logger, salesSvc *sales.Service, reportsRepo *reports.Repo) *API {
	return &API{log: log, sales: salesSvc, reports: reportsRepo}
}

func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sales", a.handleCreateSale)
	mux.HandleFunc("GET /api/sales", a.handleListSales)
	mux.HandleFunc("GET /api/sales/{id}", a.handleGetSale)
	mux.HandleFunc("POST /api/sales/{id}/cancel", a.handleCancelSale)
	mux.HandleFunc("GET /api/returns/validate/{lineID}", a.handleValidateReturn)
	mux.HandleFunc("GET /api/products/low-stock", a.handleLowStock)
	mux.HandleFunc("GET /api/reports/low-stock.xlsx", a.handleLowStockExcel)
	if a.reports != nil {
		mux.HandleFunc("GET /api/reports/summary", a.handleSummary)
		mux.HandleFunc("GET /api/reports/sales.xlsx", a.handleSalesExcel)
	}
}

/* DTOs */

type lineDTO struct {
	ID             int64            `json:"id"`
	ProductID      int64            `json:"product_id"`
	ProductName    string           `json:"product_name"`
	Quantity       int              `json:"quantity"`
	YardsSold      *decimal.Decimal `json:"yards_sold,omitempty"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	Classification string           `json:"classification"`
	PromotionID    *int64           `json:"promotion_id,omitempty"`
}

type saleDTO struct {
	ID            int64           `json:"id"`
	Invoice       string          `json:"invoice"`
	CustomerID    *int64          `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name"`
	OperatorID    int64           `json:"operator_id"`
	OperatorName  string          `json:"operator_name"`
	Date          time.Time       `json:"date"`
	Channel       string          `json:"channel"`
	PaymentMethod string          `json:"payment_method"`
	PaymentState  string          `json:"payment_state"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	Notes         string          `json:"notes,omitempty"`
	Lines         []lineDTO       `json:"lines"`
}

func toSaleDTO(s *sales.Sale) saleDTO {
	dto := saleDTO{
		ID:            s.ID,
		Invoice:       s.Invoice,
		CustomerID:    s.CustomerID,
		CustomerName:  s.CustomerName,
		OperatorID:    s.OperatorID,
		OperatorName:  s.OperatorName,
		Date:          s.Date,
		Channel:       s.Channel,
		PaymentMethod: s.PaymentMethod,
		PaymentState:  string(s.PaymentState),
		Subtotal:      s.Subtotal,
		Discount:      s.Discount,
		Tax:           s.Tax,
		Total:         s.Total,
		Status:        string(s.Status),
		Notes:         s.Notes,
		Lines:         []lineDTO{},
	}
	for _, l := range s.Lines {
		dto.Lines = append(dto.Lines, lineDTO{
			ID:             l.ID,
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			Quantity:       l.Quantity,
			YardsSold:      l.YardsSold,
			UnitPrice:      l.UnitPrice,
			Classification: string(l.Classification),
			PromotionID:    l.PromotionID,
		})
	}
	return dto
}

type productDTO struct {
	ID          int64            `json:"id"`
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	Kind        string           `json:"kind"`
	Stock       int              `json:"stock"`
	YardsOnHand *decimal.Decimal `json:"yards_on_hand,omitempty"`
	CutState    string           `json:"cut_state,omitempty"`
}

func toProductDTO(p products.Product) productDTO {
	dto := productDTO{
		ID:    p.ID,
		Code:  p.Code,
		Name:  p.Name,
		Kind:  string(p.Kind),
		Stock: p.Stock,
	}
	if p.Kind == products.KindCut {
		yards := p.YardsOnHand
		dto.YardsOnHand = &yards
		dto.CutState = string(p.CutState)
	}
	return dto
}

type createSaleRequest struct {
	CustomerID    *int64 `json:"customer_id"`
	Channel       string `json:"channel"`
	PaymentMethod string `json:"payment_method"`
	PaymentState  string `json:"payment_state"`
	Notes         string `json:"notes"`
	Lines         []struct {
		ProductID   int64            `json:"product_id"`
		Quantity    int              `json:"quantity"`
		Yards       *decimal.Decimal `json:"yards"`
		UnitPrice   decimal.Decimal  `json:"unit_price"`
		PromotionID *int64           `json:"promotion_id"`
	} `json:"lines"`
}

/* Handlers */

func (a *API) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := operatorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid X-Operator-ID header")
		return
	}

	var req createSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	in := sales.CreateInput{
		CustomerID:    req.CustomerID,
		Channel:       req.Channel,
		PaymentMethod: req.PaymentMethod,
		PaymentState:  sales.PaymentState(req.PaymentState),
		Notes:         req.Notes,
	}
	for _, l := range req.Lines {
		in.Lines = append(in.Lines, sales.LineInput{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			Yards:       l.Yards,
			UnitPrice:   l.UnitPrice,
			PromotionID: l.PromotionID,
		})
	}

	sale, err := a.sales.CreateSale(r.Context(), operatorID, in)
	if err != nil {
		a.saleError(w, r, err)
		return
	}

	metrics.SalesCreated.Inc()
	writeJSON(w, http.StatusCreated, response{Success: true, Data: toSaleDTO(sale)})
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	sale, err := a.sales.GetSale(r.Context(), id)
	if err != nil {
		a.saleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: toSaleDTO(sale)})
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	list, err := a.sales.ListSales(r.Context())
	if err != nil {
		a.saleError(w, r, err)
		return
	}
	dtos := make([]saleDTO, 0, len(list))
	for i := range list {
		dtos = append(dtos, toSaleDTO(&list[i]))
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: dtos})
}

func (a *API) handleCancelSale(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := operatorFrom(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid X-Operator-ID header")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	if err := a.sales.CancelSale(r.Context(), id, operatorID); err != nil {
		a.saleError(w, r, err)
		return
	}
	metrics.SalesCancelled.Inc()
	writeJSON(w, http.StatusOK, response{Success: true, Message: "sale cancelled"})
}

func (a *API) handleValidateReturn(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "lineID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid line id")
		return
	}
	eligible, err := a.sales.CheckReturnEligibility(r.Context(), id)
	if err != nil {
		a.saleError(w, r, err)
		return
	}
	msg := "product can be returned"
	if !eligible {
		msg = "partial sales are not returnable"
	}
	writeJSON(w, http.StatusOK, response{
		Success: true,
		Message: msg,
		Data:    map[string]bool{"eligible": eligible},
	})
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	ps, err := a.sales.ListLowStock(r.Context())
	if err != nil {
		a.saleError(w, r, err)
		return
	}
	dtos := make([]productDTO, 0, len(ps))
	for _, p := range ps {
		dtos = append(dtos, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: dtos})
}

func (a *API) handleLowStockExcel(w http.ResponseWriter, r *http.Request) {
	ps, err := a.sales.ListLowStock(r.Context())
	if err != nil {
		a.saleError(w, r, err)
		return
	}
	buf, err := reports.LowStockWorkbook(ps)
	if err != nil {
		a.log.Error("low stock export failed", "err", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	sendWorkbook(w, "low_stock", buf.Bytes())
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now()

	daily, err := a.reports.DailySummary(ctx, now)
	if err != nil {
		a.log.Error("daily summary failed", "err", err)
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}
	monthly, err := a.reports.MonthlyRevenue(ctx, now.Year(), now.Month())
	if err != nil {
		a.log.Error("monthly revenue failed", "err", err)
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}
	top, err := a.reports.TopProducts(ctx, 5)
	if err != nil {
		a.log.Error("top products failed", "err", err)
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}

	writeJSON(w, http.StatusOK, response{Success: true, Data: map[string]any{
		"today_sales":     daily.Sales,
		"today_revenue":   daily.Revenue,
		"monthly_revenue": monthly,
		"top_products":    top,
	}})
}

func (a *API) handleSalesExcel(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := a.reports.SalesLedger(r.Context(), from, to)
	if err != nil {
		a.log.Error("sales ledger failed", "err", err)
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}
	buf, err := reports.SalesWorkbook(rows)
	if err != nil {
		a.log.Error("sales export failed", "err", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	sendWorkbook(w, "sales", buf.Bytes())
}

/* Helpers */

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, response{Success: false, Message: msg})
}

func sendWorkbook(w http.ResponseWriter, prefix string, data []byte) {
	name := fmt.Sprintf("%s_%s.xlsx", prefix, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func operatorFrom(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-Operator-ID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func dateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"
	fromStr := r.URL.Query().Get("from")
	toStr := r.URL.Query().Get("to")
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, errors.New("from and to query params required (YYYY-MM-DD)")
	}
	from, err := time.Parse(layout, fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid from date")
	}
	to, err := time.Parse(layout, toStr)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid to date")
	}
	return from, to.AddDate(0, 0, 1), nil
}

// saleError переводит ошибки движка в HTTP-статусы и метрики.
func (a *API) saleError(w http.ResponseWriter, r *http.Request, err error) {
	var ise *products.InsufficientStockError
	switch {
	case errors.Is(err, sales.ErrValidation):
		metrics.SaleFailures.WithLabelValues("validation").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &ise):
		metrics.SaleFailures.WithLabelValues("insufficient_stock").Inc()
		writeError(w, http.StatusConflict, ise.Error())
	case errors.Is(err, sales.ErrAlreadyCancelled):
		metrics.SaleFailures.WithLabelValues("already_cancelled").Inc()
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, sales.ErrSaleNotFound),
		errors.Is(err, sales.ErrLineNotFound),
		errors.Is(err, sales.ErrProductNotFound):
		metrics.SaleFailures.WithLabelValues("not_found").Inc()
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sales.ErrConflict):
		metrics.SaleFailures.WithLabelValues("conflict").Inc()
		writeError(w, http.StatusServiceUnavailable, "storage conflict, retry the operation")
	default:
		metrics.SaleFailures.WithLabelValues("internal").Inc()
		a.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
