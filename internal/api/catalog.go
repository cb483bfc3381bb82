package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"farmapos/domain"
)

// Product handlers

type productRequest struct {
	Name       string          `json:"name" validate:"required"`
	Barcode    string          `json:"barcode"`
	Category   string          `json:"category"`
	Laboratory string          `json:"laboratory"`
	CostPrice  decimal.Decimal `json:"cost_price"`
	SalePrice  decimal.Decimal `json:"sale_price"`
	TaxExempt  bool            `json:"tax_exempt"`
	RequiresRx bool            `json:"requires_rx"`
	Active     *bool           `json:"active"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SalePrice.IsNegative() || req.CostPrice.IsNegative() {
		respondError(w, http.StatusBadRequest, "prices must not be negative")
		return
	}

	var id int64
	err := h.db.QueryRowx(`INSERT INTO products (name, barcode, category, laboratory, cost_price, sale_price, tax_exempt, requires_rx)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		req.Name, nullIfEmpty(req.Barcode), req.Category, req.Laboratory,
		req.CostPrice, req.SalePrice, req.TaxExempt, req.RequiresRx).Scan(&id)
	if err != nil {
		respondError(w, http.StatusConflict, "unable to create product")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id, "name": req.Name})
}

func (h *Handler) searchProducts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	var products []domain.Product
	var err error
	if query == "" {
		err = h.db.Select(&products, `SELECT id, name, barcode, category, laboratory, cost_price, sale_price,
            tax_exempt, requires_rx, active, created_at, updated_at FROM products WHERE active = 1 ORDER BY name LIMIT 25`)
	} else {
		like := "%" + strings.ToLower(query) + "%"
		err = h.db.Select(&products, `SELECT id, name, barcode, category, laboratory, cost_price, sale_price,
            tax_exempt, requires_rx, active, created_at, updated_at FROM products
            WHERE active = 1 AND (lower(name) LIKE $1 OR barcode = $2) ORDER BY name LIMIT 25`, like, query)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to search products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var product domain.Product
	err = h.db.Get(&product, `SELECT id, name, barcode, category, laboratory, cost_price, sale_price,
        tax_exempt, requires_rx, active, created_at, updated_at FROM products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch product")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	if _, err := h.db.Exec(`UPDATE products SET name = $1, barcode = $2, category = $3, laboratory = $4,
        cost_price = $5, sale_price = $6, tax_exempt = $7, requires_rx = $8, active = $9, updated_at = CURRENT_TIMESTAMP
        WHERE id = $10`,
		req.Name, nullIfEmpty(req.Barcode), req.Category, req.Laboratory,
		req.CostPrice, req.SalePrice, req.TaxExempt, req.RequiresRx, active, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update product")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Location handlers

type locationRequest struct {
	Name    string `json:"name" validate:"required"`
	Address string `json:"address"`
	Kind    string `json:"kind" validate:"omitempty,oneof=sucursal bodega"`
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind := req.Kind
	if kind == "" {
		kind = "sucursal"
	}
	var id int64
	if err := h.db.QueryRowx(`INSERT INTO locations (name, address, kind) VALUES ($1, $2, $3) RETURNING id`,
		req.Name, req.Address, kind).Scan(&id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create location")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id, "name": req.Name})
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	var locations []domain.Location
	if err := h.db.Select(&locations, `SELECT id, name, address, kind, created_at FROM locations ORDER BY name`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list locations")
		return
	}
	respondJSON(w, http.StatusOK, locations)
}

// Supplier handlers

type supplierRequest struct {
	Name    string `json:"name" validate:"required"`
	TaxID   string `json:"tax_id"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Active  *bool  `json:"active"`
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var id int64
	if err := h.db.QueryRowx(`INSERT INTO suppliers (name, tax_id, email, phone, address) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		req.Name, nullIfEmpty(req.TaxID), nullIfEmpty(req.Email), nullIfEmpty(req.Phone), req.Address).Scan(&id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create supplier")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id, "name": req.Name})
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	var suppliers []domain.Supplier
	if err := h.db.Select(&suppliers, `SELECT id, name, tax_id, email, phone, address, active, created_at
        FROM suppliers WHERE active = 1 ORDER BY name`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list suppliers")
		return
	}
	respondJSON(w, http.StatusOK, suppliers)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid supplier id")
		return
	}
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	if _, err := h.db.Exec(`UPDATE suppliers SET name = $1, tax_id = $2, email = $3, phone = $4, address = $5, active = $6
        WHERE id = $7`,
		req.Name, nullIfEmpty(req.TaxID), nullIfEmpty(req.Email), nullIfEmpty(req.Phone), req.Address, active, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update supplier")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func nullIfEmpty(val string) *string {
	trimmed := strings.TrimSpace(val)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
