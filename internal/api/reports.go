package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"farmapos/domain"
)

func (h *Handler) dailySales(w http.ResponseWriter, r *http.Request) {
	h.salesSummary(w, r, `DATE(created_at) = DATE('now')`)
}

func (h *Handler) monthlySales(w http.ResponseWriter, r *http.Request) {
	h.salesSummary(w, r, `strftime('%Y-%m', created_at) = strftime('%Y-%m', 'now')`)
}

func (h *Handler) salesSummary(w http.ResponseWriter, r *http.Request, period string) {
	query := `SELECT COALESCE(SUM(total_amount), 0) AS revenue, COUNT(*) AS count FROM sales
        WHERE status = '` + domain.SaleCompleted + `' AND ` + period
	args := []interface{}{}
	if raw := strings.TrimSpace(r.URL.Query().Get("client_id")); raw != "" {
		clientID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || clientID <= 0 {
			respondError(w, http.StatusBadRequest, "invalid client_id")
			return
		}
		query += " AND client_id = $1"
		args = append(args, clientID)
	}
	var revenue float64
	var count int64
	if err := h.db.QueryRow(query, args...).Scan(&revenue, &count); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch sales summary")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"revenue": revenue, "sales_count": count})
}

type saleReportEntry struct {
	domain.Sale
	Items []saleItemRow `json:"items"`
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}

	var (
		args    []any
		clauses []string
	)

	clientIDStr := strings.TrimSpace(r.URL.Query().Get("client_id"))
	if clientIDStr != "" {
		clientID, err := strconv.ParseInt(clientIDStr, 10, 64)
		if err != nil || clientID <= 0 {
			respondError(w, http.StatusBadRequest, "invalid client_id")
			return
		}
		args = append(args, clientID)
		clauses = append(clauses, fmt.Sprintf("client_id = $%d", len(args)))
	}

	startDate := strings.TrimSpace(r.URL.Query().Get("start_date"))
	if startDate != "" {
		if _, err := time.Parse("2006-01-02", startDate); err != nil {
			respondError(w, http.StatusBadRequest, "start_date must be in YYYY-MM-DD format")
			return
		}
		args = append(args, startDate)
		clauses = append(clauses, fmt.Sprintf("DATE(created_at) >= $%d", len(args)))
	}

	endDate := strings.TrimSpace(r.URL.Query().Get("end_date"))
	if endDate != "" {
		if _, err := time.Parse("2006-01-02", endDate); err != nil {
			respondError(w, http.StatusBadRequest, "end_date must be in YYYY-MM-DD format")
			return
		}
		args = append(args, endDate)
		clauses = append(clauses, fmt.Sprintf("DATE(created_at) <= $%d", len(args)))
	}

	query := `SELECT id, sale_number, client_id, user_id, subtotal, discount_amount, tax_amount,
        total_amount, payment_method, status, notes, created_at FROM sales`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	var sales []domain.Sale
	if err := h.db.Select(&sales, query, args...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch sales report")
		return
	}
	if len(sales) == 0 {
		respondJSON(w, http.StatusOK, []saleReportEntry{})
		return
	}

	ids := make([]int64, len(sales))
	for i, sale := range sales {
		ids[i] = sale.ID
	}

	itemsQuery, itemsArgs, err := sqlx.In(`SELECT si.id, si.sale_id, si.product_id, si.quantity, si.unit_price,
        si.discount_amount, si.total_price, p.name AS product_name
        FROM sale_items si JOIN products p ON p.id = si.product_id
        WHERE si.sale_id IN (?)`, ids)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to prepare sale items query")
		return
	}
	itemsQuery = h.db.Rebind(itemsQuery)

	var rows []saleItemRow
	if err := h.db.Select(&rows, itemsQuery, itemsArgs...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load sale items")
		return
	}
	itemsBySale := make(map[int64][]saleItemRow)
	for _, row := range rows {
		itemsBySale[row.SaleID] = append(itemsBySale[row.SaleID], row)
	}

	report := make([]saleReportEntry, len(sales))
	for i, sale := range sales {
		report[i] = saleReportEntry{Sale: sale, Items: itemsBySale[sale.ID]}
	}

	respondJSON(w, http.StatusOK, report)
}
