package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorataya/tipica-pos/internal/domain/products"
	"github.com/jmorataya/tipica-pos/internal/domain/sales"
	"github.com/jmorataya/tipica-pos/internal/domain/sales/memory"
)

func newTestMux(t *testing.T) (*http.ServeMux, *memory.Store) {
	t.Helper()
	store := memory.New()
	store.SeedOperator(1, "Marta")
	log := slog.New(slog.DiscardHandler)
	svc := sales.NewService(store, nil, log)
	api := NewAPI(log, svc, nil)
	mux := http.NewServeMux()
	api.Register(mux)
	return mux, store
}

func do(mux *http.ServeMux, method, target, body string, operator bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if operator {
		req.Header.Set("X-Operator-ID", "1")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func seedCut(store *memory.Store) int64 {
	return store.SeedProduct(products.Product{
		Name:          "Corte Típico",
		Kind:          products.KindCut,
		YardsOnHand:   decimal.RequireFromString("8.00"),
		YardsOriginal: products.YardsPerCut,
		CutState:      products.CutFull,
	})
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Success bool           `json:"success"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestCreateSaleEndpoint(t *testing.T) {
	mux, store := newTestMux(t)
	pid := seedCut(store)

	body := fmt.Sprintf(`{
		"channel": "store",
		"payment_method": "cash",
		"payment_state": "paid",
		"lines": [{"product_id": %d, "quantity": 5, "yards": "5.00", "unit_price": "20.00"}]
	}`, pid)

	w := do(mux, http.MethodPost, "/api/sales", body, true)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	assert.Equal(t, "completed", data["status"])
	// decimal сериализуется строкой
	assert.Equal(t, "100.00", data["subtotal"])
	assert.Equal(t, "12.00", data["tax"])
	assert.Equal(t, "112.00", data["total"])

	lines := data["lines"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.Equal(t, "partial", line["classification"])

	p, _ := store.Product(pid)
	assert.True(t, p.YardsOnHand.Equal(decimal.RequireFromString("3.00")))
}

func TestCreateSaleRequiresOperator(t *testing.T) {
	mux, store := newTestMux(t)
	pid := seedCut(store)

	body := fmt.Sprintf(`{"payment_state":"paid","lines":[{"product_id":%d,"quantity":1,"unit_price":"20.00"}]}`, pid)
	w := do(mux, http.MethodPost, "/api/sales", body, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateSaleInsufficientStockStatus(t *testing.T) {
	mux, store := newTestMux(t)
	pid := store.SeedProduct(products.Product{
		Name: "Huipil", Kind: products.KindDiscrete, Stock: 2,
	})

	body := fmt.Sprintf(`{"payment_state":"paid","lines":[{"product_id":%d,"quantity":3,"unit_price":"250.00"}]}`, pid)
	w := do(mux, http.MethodPost, "/api/sales", body, true)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient stock")

	p, _ := store.Product(pid)
	assert.Equal(t, 2, p.Stock)
}

func TestCreateSaleValidationStatus(t *testing.T) {
	mux, _ := newTestMux(t)
	w := do(mux, http.MethodPost, "/api/sales", `{"payment_state":"paid","lines":[]}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelSaleEndpoint(t *testing.T) {
	mux, store := newTestMux(t)
	pid := store.SeedProduct(products.Product{
		Name: "Huipil", Kind: products.KindDiscrete, Stock: 3,
	})

	body := fmt.Sprintf(`{"payment_state":"paid","lines":[{"product_id":%d,"quantity":1,"unit_price":"250.00"}]}`, pid)
	w := do(mux, http.MethodPost, "/api/sales", body, true)
	require.Equal(t, http.StatusCreated, w.Code)
	saleID := int64(decodeData(t, w)["id"].(float64))

	w = do(mux, http.MethodPost, fmt.Sprintf("/api/sales/%d/cancel", saleID), "", true)
	assert.Equal(t, http.StatusOK, w.Code)

	p, _ := store.Product(pid)
	assert.Equal(t, 3, p.Stock)

	// повторная отмена — отказ, а не тихий успех
	w = do(mux, http.MethodPost, fmt.Sprintf("/api/sales/%d/cancel", saleID), "", true)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(mux, http.MethodPost, "/api/sales/9999/cancel", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidateReturnEndpoint(t *testing.T) {
	mux, store := newTestMux(t)
	pid := seedCut(store)

	body := fmt.Sprintf(`{"payment_state":"paid","lines":[{"product_id":%d,"quantity":3,"yards":"3.00","unit_price":"20.00"}]}`, pid)
	w := do(mux, http.MethodPost, "/api/sales", body, true)
	require.Equal(t, http.StatusCreated, w.Code)
	lines := decodeData(t, w)["lines"].([]any)
	lineID := int64(lines[0].(map[string]any)["id"].(float64))

	w = do(mux, http.MethodGet, fmt.Sprintf("/api/returns/validate/%d", lineID), "", false)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, false, data["eligible"])

	w = do(mux, http.MethodGet, "/api/returns/validate/555", "", false)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLowStockEndpoints(t *testing.T) {
	mux, store := newTestMux(t)
	store.SeedProduct(products.Product{
		Name: "Blusa", Kind: products.KindDiscrete, Stock: 1,
	})

	w := do(mux, http.MethodGet, "/api/products/low-stock", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Blusa", resp.Data[0]["name"])

	w = do(mux, http.MethodGet, "/api/reports/low-stock.xlsx", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotEmpty(t, w.Body.Bytes())
}
