package api

import (
	"errors"
	"net/http"
	"strconv"

	"farmapos/domain"
	"farmapos/internal/pos"
)

type inventoryRow struct {
	domain.InventoryRecord
	ProductName  string `db:"product_name" json:"product_name"`
	LocationName string `db:"location_name" json:"location_name"`
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	query := `SELECT i.id, i.product_id, i.location_id, i.current_stock, i.min_stock, i.expiry_date,
        i.created_at, i.updated_at, p.name AS product_name, l.name AS location_name
        FROM inventory i
        JOIN products p ON p.id = i.product_id
        JOIN locations l ON l.id = i.location_id`
	args := []any{}
	if raw := r.URL.Query().Get("location_id"); raw != "" {
		locationID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || locationID <= 0 {
			respondError(w, http.StatusBadRequest, "invalid location_id")
			return
		}
		query += ` WHERE i.location_id = $1`
		args = append(args, locationID)
	}
	query += ` ORDER BY p.name`

	var rows []inventoryRow
	if err := h.db.Select(&rows, query, args...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list inventory")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

type adjustRequest struct {
	ProductID  int64  `json:"product_id" validate:"required"`
	LocationID int64  `json:"location_id" validate:"required"`
	NewStock   int64  `json:"new_stock" validate:"min=0"`
	Notes      string `json:"notes"`
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := h.pos.AdjustStock(r.Context(), req.ProductID, req.LocationID, req.NewStock, req.Notes)
	if errors.Is(err, pos.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to adjust stock")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "stock adjusted"})
}

type purchaseRequest struct {
	SupplierID *int64             `json:"supplier_id"`
	LocationID int64              `json:"location_id" validate:"required"`
	Items      []pos.PurchaseLine `json:"items" validate:"required,min=1"`
}

func (h *Handler) receivePurchase(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.pos.ReceivePurchase(r.Context(), req.SupplierID, req.LocationID, req.Items); err != nil {
		if errors.Is(err, pos.ErrBadQuantity) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to register purchase")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "purchase registered"})
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	query := `SELECT id, product_id, location_id, movement_type, quantity, unit_cost, total_cost,
        stock_before, stock_after, reference_type, reference_id, notes, created_at
        FROM inventory_movements`
	args := []any{}
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		productID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || productID <= 0 {
			respondError(w, http.StatusBadRequest, "invalid product_id")
			return
		}
		query += ` WHERE product_id = $1`
		args = append(args, productID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT 100`

	var movements []domain.InventoryMovement
	if err := h.db.Select(&movements, query, args...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list movements")
		return
	}
	respondJSON(w, http.StatusOK, movements)
}

func (h *Handler) lowStockAlerts(w http.ResponseWriter, r *http.Request) {
	var rows []inventoryRow
	if err := h.db.Select(&rows, `SELECT i.id, i.product_id, i.location_id, i.current_stock, i.min_stock, i.expiry_date,
        i.created_at, i.updated_at, p.name AS product_name, l.name AS location_name
        FROM inventory i
        JOIN products p ON p.id = i.product_id
        JOIN locations l ON l.id = i.location_id
        WHERE i.current_stock <= i.min_stock
        ORDER BY i.current_stock ASC`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch alerts")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) expiryAlerts(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 30
	}
	var rows []inventoryRow
	if err := h.db.Select(&rows, `SELECT i.id, i.product_id, i.location_id, i.current_stock, i.min_stock, i.expiry_date,
        i.created_at, i.updated_at, p.name AS product_name, l.name AS location_name
        FROM inventory i
        JOIN products p ON p.id = i.product_id
        JOIN locations l ON l.id = i.location_id
        WHERE i.expiry_date IS NOT NULL
        AND DATE(i.expiry_date) <= DATE('now', '+' || $1 || ' days')
        ORDER BY i.expiry_date ASC`, days); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch alerts")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}
