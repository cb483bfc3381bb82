package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"farmapos/domain"
	"farmapos/internal/pos"
)

type openSessionRequest struct {
	OpeningAmount decimal.Decimal `json:"opening_amount"`
	Notes         string          `json:"notes"`
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleCashier) {
		return
	}
	var req openSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	uid := currentUserID(r)
	if uid == nil {
		respondError(w, http.StatusUnauthorized, "missing user")
		return
	}
	session, err := h.pos.OpenSession(r.Context(), *uid, req.OpeningAmount, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, pos.ErrSessionAlreadyOpen):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, pos.ErrBadAmount):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("unable to open session", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "unable to open session")
		}
		return
	}
	respondJSON(w, http.StatusCreated, session)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	var sessions []domain.CashSession
	if err := h.db.Select(&sessions, `SELECT id, reference, user_id, opening_amount, expected_amount, declared_amount,
        deviation, deviation_class, status, notes, opened_at, closed_at
        FROM cash_sessions ORDER BY opened_at DESC LIMIT 100`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list sessions")
		return
	}
	respondJSON(w, http.StatusOK, sessions)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	var session domain.CashSession
	err = h.db.Get(&session, `SELECT id, reference, user_id, opening_amount, expected_amount, declared_amount,
        deviation, deviation_class, status, notes, opened_at, closed_at FROM cash_sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch session")
		return
	}
	var movements []domain.CashMovement
	if err := h.db.Select(&movements, `SELECT id, session_id, movement_type, amount, description, reference_id, created_at
        FROM cash_movements WHERE session_id = $1 ORDER BY created_at ASC, id ASC`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch movements")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session": session, "movements": movements})
}

type movementRequest struct {
	MovementType string          `json:"movement_type" validate:"required,oneof=ingreso egreso"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description" validate:"required"`
}

func (h *Handler) recordMovement(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleCashier) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	var req movementRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	movement, err := h.pos.RecordMovement(r.Context(), id, req.MovementType, req.Amount, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, pos.ErrSessionNotOpen):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, pos.ErrBadAmount):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "unable to record movement")
		}
		return
	}
	respondJSON(w, http.StatusCreated, movement)
}

type closeSessionRequest struct {
	DeclaredAmount decimal.Decimal `json:"declared_amount"`
	Notes          string          `json:"notes"`
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleCashier) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	var req closeSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := h.pos.CloseSession(r.Context(), id, req.DeclaredAmount, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, pos.ErrSessionNotOpen):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, pos.ErrBadAmount):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "unable to close session")
		}
		return
	}
	respondJSON(w, http.StatusOK, session)
}
