package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"nabil-inventory-api/internal/model"
	"nabil-inventory-api/internal/service"
	"nabil-inventory-api/pkg/apierror"
	"nabil-inventory-api/pkg/response"

	"github.com/go-chi/chi/v5"
)

// CatalogHandler handles category, product, and sale HTTP requests. Every
// mutation returns only after the local store has durably reflected the
// change; cloud propagation happens behind the debounce.
type CatalogHandler struct {
	inv      *service.InventoryService
	sessions middlewareSessions
}

// middlewareSessions is the slice of the coordinator the handler needs to
// attach the current user to state responses.
type middlewareSessions interface {
	CurrentUser() *model.User
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(inv *service.InventoryService, sessions middlewareSessions) *CatalogHandler {
	return &CatalogHandler{inv: inv, sessions: sessions}
}

// StateResponse is the reactive snapshot the UI layer consumes.
type StateResponse struct {
	Categories  []model.Category   `json:"categories"`
	Products    []model.Product    `json:"products"`
	Sales       []model.SaleRecord `json:"sales"`
	Earnings    float64            `json:"earnings"`
	CurrentUser *model.User        `json:"currentUser"`
}

// GetState handles GET /api/v1/state
func (h *CatalogHandler) GetState(w http.ResponseWriter, r *http.Request) {
	snap := h.inv.State()
	response.OK(w, StateResponse{
		Categories:  snap.Categories,
		Products:    snap.Products,
		Sales:       snap.Sales,
		Earnings:    snap.Earnings,
		CurrentUser: h.sessions.CurrentUser(),
	})
}

// AddCategory handles POST /api/v1/categories
func (h *CatalogHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var cat model.Category
	if err := json.NewDecoder(r.Body).Decode(&cat); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if cat.Name == "" {
		response.Error(w, apierror.BadRequest("name is required"))
		return
	}

	saved, err := h.inv.AddCategory(r.Context(), cat)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, saved)
}

// DeleteCategory handles DELETE /api/v1/categories/{id}. Cascades to every
// product in the category.
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Error(w, apierror.BadRequest("id is required"))
		return
	}

	if err := h.inv.DeleteCategory(r.Context(), id); err != nil {
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}

// AddProduct handles POST /api/v1/products
func (h *CatalogHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var prod model.Product
	if err := json.NewDecoder(r.Body).Decode(&prod); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if prod.Name == "" {
		response.Error(w, apierror.BadRequest("name is required"))
		return
	}
	if prod.Quantity < 0 {
		response.Error(w, apierror.BadRequest("quantity cannot be negative"))
		return
	}

	saved, err := h.inv.AddProduct(r.Context(), prod)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, saved)
}

// GetProductByBarcode handles GET /api/v1/products/barcode/{code}. The
// scan flow looks a product up by its stored barcode before opening the
// sale dialog.
func (h *CatalogHandler) GetProductByBarcode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		response.Error(w, apierror.BadRequest("barcode is required"))
		return
	}

	product, err := h.inv.ProductByBarcode(code)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			response.Error(w, apierror.NotFound("no product with that barcode"))
			return
		}
		response.Error(w, err)
		return
	}
	response.OK(w, product)
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		response.Error(w, apierror.BadRequest("id is required"))
		return
	}

	if err := h.inv.DeleteProduct(r.Context(), id); err != nil {
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}

// SaleRequest represents the request body for recording a sale.
type SaleRequest struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// RecordSale handles POST /api/v1/sales
func (h *CatalogHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	if req.ProductID == "" {
		response.Error(w, apierror.BadRequest("productId is required"))
		return
	}

	sale, err := h.inv.RecordSale(r.Context(), req.ProductID, req.Quantity, req.UnitPrice)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			response.Error(w, apierror.NotFound("product not found"))
		case errors.Is(err, service.ErrInvalidQuantity):
			response.Error(w, apierror.BadRequest(err.Error()))
		default:
			response.Error(w, err)
		}
		return
	}
	response.Created(w, sale)
}
