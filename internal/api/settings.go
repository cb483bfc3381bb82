package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"farmapos/domain"
)

func (h *Handler) companySettings(ctx context.Context) (domain.CompanySettings, error) {
	var settings domain.CompanySettings
	err := h.db.GetContext(ctx, &settings, `SELECT id, name, tax_id, address, phone, receipt_footer,
        paper_width, tax_rate, updated_at FROM company_settings WHERE id = 1`)
	return settings, err
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.companySettings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load settings")
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

type settingsRequest struct {
	Name          string          `json:"name" validate:"required"`
	TaxID         string          `json:"tax_id"`
	Address       string          `json:"address"`
	Phone         string          `json:"phone"`
	ReceiptFooter string          `json:"receipt_footer"`
	PaperWidth    int             `json:"paper_width" validate:"min=32,max=64"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TaxRate.IsNegative() {
		respondError(w, http.StatusBadRequest, "tax_rate must not be negative")
		return
	}
	if _, err := h.db.Exec(`UPDATE company_settings SET name = $1, tax_id = $2, address = $3, phone = $4,
        receipt_footer = $5, paper_width = $6, tax_rate = $7, updated_at = CURRENT_TIMESTAMP WHERE id = 1`,
		req.Name, req.TaxID, req.Address, req.Phone, req.ReceiptFooter, req.PaperWidth, req.TaxRate); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update settings")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
