package api

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"farmapos/domain"
	"farmapos/internal/pos"
	"farmapos/internal/receipt"
)

type checkoutItem struct {
	ProductID int64           `json:"product_id" validate:"required"`
	Quantity  int64           `json:"quantity" validate:"required,min=1"`
	Discount  decimal.Decimal `json:"discount"`
}

type checkoutRequest struct {
	Items          []checkoutItem  `json:"items" validate:"required,min=1,dive"`
	ClientID       *int64          `json:"client_id"`
	LocationID     *int64          `json:"location_id"`
	SessionID      *int64          `json:"session_id"`
	PaymentMethod  string          `json:"payment_method" validate:"required,oneof=efectivo debito credito transferencia"`
	PointsRedeemed int64           `json:"points_redeemed" validate:"min=0"`
	CashReceived   decimal.Decimal `json:"cash_received"`
	Notes          string          `json:"notes"`
}

type checkoutResponse struct {
	pos.CheckoutResult
	Receipt string `json:"receipt"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleCashier) {
		return
	}
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := h.companySettings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load settings")
		return
	}

	cart, err := h.buildCart(r.Context(), req.Items, settings.TaxRate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.pos.ProcessSale(r.Context(), pos.CheckoutInput{
		Cart:           cart,
		ClientID:       req.ClientID,
		UserID:         currentUserID(r),
		LocationID:     req.LocationID,
		SessionID:      req.SessionID,
		PaymentMethod:  req.PaymentMethod,
		PointsRedeemed: req.PointsRedeemed,
		CashReceived:   req.CashReceived,
		Notes:          req.Notes,
	})
	if err != nil {
		h.logger.Error("checkout failed", zap.Error(err))
		switch {
		case errors.Is(err, pos.ErrEmptyCart),
			errors.Is(err, pos.ErrNoPaymentMethod),
			errors.Is(err, pos.ErrInsufficientPoints),
			errors.Is(err, pos.ErrClientNotFound):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, pos.ErrSessionNotOpen):
			respondError(w, http.StatusConflict, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "unable to process sale")
		}
		return
	}

	var client *domain.Client
	if req.ClientID != nil {
		client = h.lookupClient(r.Context(), *req.ClientID)
	}
	ticket := receipt.Format(receipt.Receipt{
		Sale:         result.Sale,
		Items:        result.Items,
		Client:       client,
		Cashier:      h.lookupUsername(r.Context(), currentUserID(r)),
		CashReceived: req.CashReceived,
		Change:       result.Change,
	}, settings)

	respondJSON(w, http.StatusCreated, checkoutResponse{CheckoutResult: *result, Receipt: ticket})
}

// buildCart resolves each requested product and accumulates it into a cart.
// A product listed on more than one request line ends up as a single cart
// line with the quantities and discounts summed.
func (h *Handler) buildCart(ctx context.Context, items []checkoutItem, taxRate decimal.Decimal) (*pos.Cart, error) {
	cart := pos.NewCart(taxRate)
	quantities := make(map[int64]int64)
	discounts := make(map[int64]decimal.Decimal)
	for _, item := range items {
		if _, seen := quantities[item.ProductID]; !seen {
			var product struct {
				ID        int64           `db:"id"`
				Name      string          `db:"name"`
				SalePrice decimal.Decimal `db:"sale_price"`
				TaxExempt bool            `db:"tax_exempt"`
			}
			err := h.db.GetContext(ctx, &product, `SELECT id, name, sale_price, tax_exempt FROM products
            WHERE id = $1 AND active = 1`, item.ProductID)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, errors.New("product not found: " + strconv.FormatInt(item.ProductID, 10))
			}
			if err != nil {
				return nil, err
			}
			cart.Add(product.ID, product.Name, product.SalePrice, product.TaxExempt)
		}
		quantities[item.ProductID] += item.Quantity
		discounts[item.ProductID] = discounts[item.ProductID].Add(item.Discount)
	}
	for i, line := range cart.Lines() {
		if err := cart.UpdateQuantity(i, quantities[line.ProductID]); err != nil {
			return nil, err
		}
		if discount := discounts[line.ProductID]; !discount.IsZero() {
			if err := cart.UpdateDiscount(i, discount); err != nil {
				return nil, err
			}
		}
	}
	return cart, nil
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	sale, items, ok := h.loadSale(w, r.Context(), id)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sale": sale, "items": items})
}

type saleItemRow struct {
	domain.SaleItem
	ProductName string `db:"product_name" json:"product_name"`
}

func (h *Handler) loadSale(w http.ResponseWriter, ctx context.Context, id int64) (domain.Sale, []saleItemRow, bool) {
	var sale domain.Sale
	err := h.db.GetContext(ctx, &sale, `SELECT id, sale_number, client_id, user_id, subtotal, discount_amount,
        tax_amount, total_amount, payment_method, status, notes, created_at FROM sales WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "sale not found")
		return sale, nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch sale")
		return sale, nil, false
	}
	var items []saleItemRow
	if err := h.db.SelectContext(ctx, &items, `SELECT si.id, si.sale_id, si.product_id, si.quantity, si.unit_price,
        si.discount_amount, si.total_price, p.name AS product_name
        FROM sale_items si JOIN products p ON p.id = si.product_id WHERE si.sale_id = $1`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch sale items")
		return sale, nil, false
	}
	return sale, items, true
}

// saleReceipt re-renders the ticket for a stored sale.
func (h *Handler) saleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	sale, items, ok := h.loadSale(w, r.Context(), id)
	if !ok {
		return
	}
	settings, err := h.companySettings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load settings")
		return
	}

	lines := make([]pos.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, pos.CartLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.DiscountAmount,
			Total:       item.TotalPrice,
		})
	}
	var client *domain.Client
	if sale.ClientID != nil {
		client = h.lookupClient(r.Context(), *sale.ClientID)
	}
	ticket := receipt.Format(receipt.Receipt{
		Sale:    sale,
		Items:   lines,
		Client:  client,
		Cashier: h.lookupUsername(r.Context(), sale.UserID),
	}, settings)
	respondJSON(w, http.StatusOK, map[string]string{"receipt": ticket})
}

// Refund handlers

type refundRequest struct {
	SaleID     int64            `json:"sale_id" validate:"required"`
	LocationID *int64           `json:"location_id"`
	SessionID  *int64           `json:"session_id"`
	Items      []pos.RefundLine `json:"items"`
	Reason     string           `json:"reason" validate:"required,min=5"`
}

func (h *Handler) createRefund(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleCashier) {
		return
	}
	var req refundRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.pos.ProcessRefund(r.Context(), pos.RefundInput{
		SaleID:     req.SaleID,
		UserID:     currentUserID(r),
		LocationID: req.LocationID,
		SessionID:  req.SessionID,
		Items:      req.Items,
		Reason:     req.Reason,
	})
	if err != nil {
		h.logger.Error("refund failed", zap.Error(err), zap.Int64("sale_id", req.SaleID))
		switch {
		case errors.Is(err, pos.ErrSaleNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, pos.ErrAlreadyRefunded), errors.Is(err, pos.ErrSessionNotOpen):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, pos.ErrBadQuantity):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "unable to process refund")
		}
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// Quote handlers

type quoteRequest struct {
	Items      []checkoutItem `json:"items" validate:"required,min=1,dive"`
	ClientID   *int64         `json:"client_id"`
	ValidUntil string         `json:"valid_until" validate:"omitempty,datetime=2006-01-02"`
	Notes      string         `json:"notes"`
}

func (h *Handler) createQuote(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleCashier) {
		return
	}
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := h.companySettings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load settings")
		return
	}
	cart, err := h.buildCart(r.Context(), req.Items, settings.TaxRate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := h.pos.CreateQuote(r.Context(), pos.QuoteInput{
		Cart:       cart,
		ClientID:   req.ClientID,
		UserID:     currentUserID(r),
		ValidUntil: nullIfEmpty(req.ValidUntil),
		Notes:      req.Notes,
	})
	if err != nil {
		h.logger.Error("quote creation failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "unable to create quote")
		return
	}
	respondJSON(w, http.StatusCreated, quote)
}

func (h *Handler) listQuotes(w http.ResponseWriter, r *http.Request) {
	var quotes []domain.Quote
	if err := h.db.Select(&quotes, `SELECT id, quote_number, client_id, user_id, subtotal, discount_amount,
        tax_amount, total_amount, status, valid_until, notes, created_at
        FROM quotes ORDER BY created_at DESC LIMIT 100`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list quotes")
		return
	}
	respondJSON(w, http.StatusOK, quotes)
}

func (h *Handler) getQuote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid quote id")
		return
	}
	var quote domain.Quote
	err = h.db.Get(&quote, `SELECT id, quote_number, client_id, user_id, subtotal, discount_amount,
        tax_amount, total_amount, status, valid_until, notes, created_at FROM quotes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "quote not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch quote")
		return
	}
	var items []domain.QuoteItem
	if err := h.db.Select(&items, `SELECT id, quote_id, product_id, quantity, unit_price, discount_amount, total_price
        FROM quote_items WHERE quote_id = $1`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to fetch quote items")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"quote": quote, "items": items})
}

func (h *Handler) convertQuote(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleCashier) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid quote id")
		return
	}
	lines, err := h.pos.ConvertQuote(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, pos.ErrQuoteNotFound):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, pos.ErrQuoteNotPending):
			respondError(w, http.StatusConflict, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "unable to convert quote")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": lines})
}

// Lookup helpers used for receipt rendering; failures degrade to empty values.

func (h *Handler) lookupClient(ctx context.Context, id int64) *domain.Client {
	var client domain.Client
	if err := h.db.GetContext(ctx, &client, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id); err != nil {
		return nil
	}
	return &client
}

func (h *Handler) lookupUsername(ctx context.Context, id *int64) string {
	if id == nil {
		return ""
	}
	var username string
	if err := h.db.GetContext(ctx, &username, `SELECT username FROM users WHERE id = $1`, *id); err != nil {
		return ""
	}
	return username
}
