package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"farmapos/domain"
)

// Client handlers

type clientRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	code := uuid.NewString()
	var id int64
	if err := h.db.QueryRowx(`INSERT INTO clients (code, name, email, phone) VALUES ($1, $2, $3, $4) RETURNING id`,
		code, req.Name, nullIfEmpty(req.Email), nullIfEmpty(req.Phone)).Scan(&id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create client")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id, "code": code, "name": req.Name})
}

const clientColumns = `id, code, name, email, phone, loyalty_points, total_purchases, last_purchase_date, created_at`

func (h *Handler) searchClients(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	var clients []domain.Client
	var err error
	if query == "" {
		err = h.db.Select(&clients, `SELECT `+clientColumns+` FROM clients ORDER BY name LIMIT 25`)
	} else {
		like := "%" + strings.ToLower(query) + "%"
		err = h.db.Select(&clients, `SELECT `+clientColumns+` FROM clients
            WHERE lower(name) LIKE $1 OR phone = $2 ORDER BY name LIMIT 25`, like, query)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to search clients")
		return
	}
	respondJSON(w, http.StatusOK, clients)
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var client domain.Client
	err = h.db.Get(&client, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "client not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch client")
		return
	}
	respondJSON(w, http.StatusOK, client)
}

func (h *Handler) updateClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var req clientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.db.Exec(`UPDATE clients SET name = $1, email = $2, phone = $3 WHERE id = $4`,
		req.Name, nullIfEmpty(req.Email), nullIfEmpty(req.Phone), id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update client")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) clientLoyaltyHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var transactions []domain.LoyaltyTransaction
	if err := h.db.Select(&transactions, `SELECT id, client_id, transaction_type, points, sale_id, notes, created_at
        FROM loyalty_transactions WHERE client_id = $1 ORDER BY created_at DESC, id DESC LIMIT 100`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch loyalty history")
		return
	}
	respondJSON(w, http.StatusOK, transactions)
}

// Loyalty plan handlers

type loyaltyPlanRequest struct {
	Name              string          `json:"name" validate:"required"`
	PointsPerCurrency decimal.Decimal `json:"points_per_currency"`
}

func (h *Handler) createLoyaltyPlan(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	var req loyaltyPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.PointsPerCurrency.IsPositive() {
		respondError(w, http.StatusBadRequest, "points_per_currency must be greater than zero")
		return
	}
	var id int64
	if err := h.db.QueryRowx(`INSERT INTO loyalty_plans (name, points_per_currency) VALUES ($1, $2) RETURNING id`,
		req.Name, req.PointsPerCurrency).Scan(&id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create plan")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"id": id, "name": req.Name})
}

func (h *Handler) listLoyaltyPlans(w http.ResponseWriter, r *http.Request) {
	var plans []domain.LoyaltyPlan
	if err := h.db.Select(&plans, `SELECT id, name, points_per_currency, active, created_at
        FROM loyalty_plans ORDER BY created_at DESC`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list plans")
		return
	}
	respondJSON(w, http.StatusOK, plans)
}

// activateLoyaltyPlan makes the chosen plan the single active one.
func (h *Handler) activateLoyaltyPlan(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid plan id")
		return
	}
	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to activate plan")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE loyalty_plans SET active = 0 WHERE active = 1`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to activate plan")
		return
	}
	result, err := tx.Exec(`UPDATE loyalty_plans SET active = 1 WHERE id = $1`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to activate plan")
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "plan not found")
		return
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to activate plan")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "activated"})
}
