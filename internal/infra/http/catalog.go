package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmorataya/tipica-pos/internal/domain/catalog"
	"github.com/jmorataya/tipica-pos/internal/domain/products"
	"github.com/jmorataya/tipica-pos/internal/domain/users"
)

// CatalogAPI — сквозной CRUD справочников. Остатки здесь не меняются:
// создание товара задаёт начальный запас, дальше им владеет движок продаж.
type CatalogAPI struct {
	products *products.Repo
	catalog  *catalog.Repo
	users    *users.Repo
}

func NewCatalogAPI(productsRepo *products.Repo, catalogRepo *catalog.Repo, usersRepo *users.Repo) *CatalogAPI {
	return &CatalogAPI{products: productsRepo, catalog: catalogRepo, users: usersRepo}
}

func (c *CatalogAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/products", c.handleCreateProduct)
	mux.HandleFunc("GET /api/products", c.handleListProducts)
	mux.HandleFunc("GET /api/products/{id}", c.handleGetProduct)
	mux.HandleFunc("PUT /api/products/{id}", c.handleUpdateProduct)

	mux.HandleFunc("POST /api/customers", c.handleCreateCustomer)
	mux.HandleFunc("GET /api/customers", c.handleListCustomers)
	mux.HandleFunc("GET /api/customers/{id}", c.handleGetCustomer)
	mux.HandleFunc("POST /api/suppliers", c.handleCreateSupplier)
	mux.HandleFunc("GET /api/suppliers", c.handleListSuppliers)
	mux.HandleFunc("POST /api/branches", c.handleCreateBranch)
	mux.HandleFunc("GET /api/branches", c.handleListBranches)

	mux.HandleFunc("GET /api/users", c.handleListUsers)
	mux.HandleFunc("GET /api/users/{id}", c.handleGetUser)
}

type createProductRequest struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Kind          string          `json:"kind"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	Stock         int             `json:"stock"`
	SupplierID    *int64          `json:"supplier_id"`
	BranchID      *int64          `json:"branch_id"`
}

func (c *CatalogAPI) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	kind := products.Kind(req.Kind)
	if kind != products.KindDiscrete && kind != products.KindCut {
		writeError(w, http.StatusBadRequest, "kind must be 'discrete' or 'cut'")
		return
	}
	if req.Code == "" {
		req.Code = "PROD-" + time.Now().Format("20060102150405")
	}

	p := &products.Product{
		Code:          req.Code,
		Name:          req.Name,
		Description:   req.Description,
		Kind:          kind,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		Stock:         req.Stock,
		YardsOnHand:   products.YardsPerCut,
		YardsOriginal: products.YardsPerCut,
		CutState:      products.CutFull,
		SupplierID:    req.SupplierID,
		BranchID:      req.BranchID,
	}
	created, err := c.products.Create(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create product failed")
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Data: toProductDTO(*created)})
}

func (c *CatalogAPI) handleListProducts(w http.ResponseWriter, r *http.Request) {
	var ps []products.Product
	var err error
	if kind := r.URL.Query().Get("kind"); kind != "" {
		ps, err = c.products.ListByKind(r.Context(), products.Kind(kind))
	} else {
		ps, err = c.products.List(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list products failed")
		return
	}
	dtos := make([]productDTO, 0, len(ps))
	for _, p := range ps {
		dtos = append(dtos, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: dtos})
}

func (c *CatalogAPI) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, err := c.products.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get product failed")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: toProductDTO(*p)})
}

type updateProductRequest struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	SalePrice     *decimal.Decimal `json:"sale_price"`
	SupplierID    *int64           `json:"supplier_id"`
	BranchID      *int64           `json:"branch_id"`
}

// handleUpdateProduct правит карточку товара. Остатки и состояние отреза
// намеренно недоступны: ими управляют только продажа и отмена.
func (c *CatalogAPI) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	p, err := c.products.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get product failed")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.PurchasePrice != nil {
		p.PurchasePrice = *req.PurchasePrice
	}
	if req.SalePrice != nil {
		p.SalePrice = *req.SalePrice
	}
	if req.SupplierID != nil {
		p.SupplierID = req.SupplierID
	}
	if req.BranchID != nil {
		p.BranchID = req.BranchID
	}
	updated, err := c.products.Update(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "update product failed")
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: toProductDTO(*updated)})
}

type namedEntityRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Contact string `json:"contact"`
}

func (c *CatalogAPI) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req namedEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	cust, err := c.catalog.CreateCustomer(r.Context(), req.Name, req.Phone, req.Address)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create customer failed")
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Data: cust})
}

func (c *CatalogAPI) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	list, err := c.catalog.ListCustomers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list customers failed")
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: list})
}

func (c *CatalogAPI) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	cust, err := c.catalog.GetCustomerByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get customer failed")
		return
	}
	if cust == nil {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: cust})
}

func (c *CatalogAPI) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req namedEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	sup, err := c.catalog.CreateSupplier(r.Context(), req.Name, req.Contact, req.Phone)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create supplier failed")
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Data: sup})
}

func (c *CatalogAPI) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	list, err := c.catalog.ListSuppliers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list suppliers failed")
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: list})
}

func (c *CatalogAPI) handleCreateBranch(w http.ResponseWriter, r *http.Request) {
	var req namedEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	br, err := c.catalog.CreateBranch(r.Context(), req.Name, req.Address)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create branch failed")
		return
	}
	writeJSON(w, http.StatusCreated, response{Success: true, Data: br})
}

func (c *CatalogAPI) handleListBranches(w http.ResponseWriter, r *http.Request) {
	list, err := c.catalog.ListBranches(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list branches failed")
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: list})
}

func (c *CatalogAPI) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := c.users.List(r.Context(), true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list users failed")
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: list})
}

func (c *CatalogAPI) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	u, err := c.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get user failed")
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Data: u})
}
