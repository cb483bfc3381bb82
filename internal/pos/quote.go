package pos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"farmapos/domain"
)

// ErrQuoteNotFound is returned when the referenced quote does not exist.
var ErrQuoteNotFound = errors.New("quote not found")

// ErrQuoteNotPending is returned when converting a quote that was already
// converted or has expired.
var ErrQuoteNotPending = errors.New("quote is not pending")

// QuoteInput describes a quote to be saved. Quote prices are tax inclusive,
// so totals use the embedded-tax extraction rather than adding tax on top.
type QuoteInput struct {
	Cart       *Cart
	ClientID   *int64
	UserID     *int64
	ValidUntil *string
	Notes      string
}

// CreateQuote persists the quote header and its items in one transaction.
func (s *Service) CreateQuote(ctx context.Context, in QuoteInput) (*domain.Quote, error) {
	if in.Cart == nil || in.Cart.Len() == 0 {
		return nil, ErrEmptyCart
	}

	totals := in.Cart.InclusiveTotals()
	now := time.Now()
	quoteNumber := GenerateNumber("C", now)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin quote: %w", err)
	}
	defer tx.Rollback()

	var quoteID int64
	err = tx.QueryRowxContext(ctx, `INSERT INTO quotes
        (quote_number, client_id, user_id, subtotal, discount_amount, tax_amount, total_amount, status, valid_until, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		quoteNumber, in.ClientID, in.UserID, totals.Subtotal, totals.Discount, totals.Tax, totals.Total,
		domain.QuotePending, in.ValidUntil, in.Notes).Scan(&quoteID)
	if err != nil {
		return nil, fmt.Errorf("insert quote: %w", err)
	}

	for _, line := range in.Cart.Lines() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO quote_items
            (quote_id, product_id, quantity, unit_price, discount_amount, total_price)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			quoteID, line.ProductID, line.Quantity, line.UnitPrice, line.Discount, line.Total); err != nil {
			return nil, fmt.Errorf("insert quote items: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit quote: %w", err)
	}

	s.logger.Info("quote created", zap.String("quote_number", quoteNumber), zap.Int64("quote_id", quoteID))

	return &domain.Quote{
		ID:             quoteID,
		QuoteNumber:    quoteNumber,
		ClientID:       in.ClientID,
		UserID:         in.UserID,
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.Discount,
		TaxAmount:      totals.Tax,
		TotalAmount:    totals.Total,
		Status:         domain.QuotePending,
		ValidUntil:     in.ValidUntil,
		Notes:          in.Notes,
		CreatedAt:      now.Format(time.RFC3339),
	}, nil
}

// ConvertQuote marks a pending quote as converted and returns its items as
// cart lines ready for checkout. A quote past its valid-until date is marked
// expired instead and cannot be converted.
func (s *Service) ConvertQuote(ctx context.Context, quoteID int64) ([]CartLine, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin conversion: %w", err)
	}
	defer tx.Rollback()

	var quote domain.Quote
	err = tx.GetContext(ctx, &quote, `SELECT id, quote_number, client_id, user_id, subtotal, discount_amount, tax_amount,
        total_amount, status, valid_until, notes, created_at FROM quotes WHERE id = $1`, quoteID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQuoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read quote: %w", err)
	}
	if quote.Status != domain.QuotePending {
		return nil, ErrQuoteNotPending
	}
	if quote.ValidUntil != nil {
		until, err := time.Parse("2006-01-02", *quote.ValidUntil)
		if err == nil && time.Now().After(until.AddDate(0, 0, 1)) {
			if _, err := tx.ExecContext(ctx, `UPDATE quotes SET status = $1 WHERE id = $2`, domain.QuoteExpired, quoteID); err != nil {
				return nil, fmt.Errorf("expire quote: %w", err)
			}
			if err := tx.Commit(); err != nil {
				return nil, fmt.Errorf("commit expiry: %w", err)
			}
			return nil, ErrQuoteNotPending
		}
	}

	type quoteRow struct {
		domain.QuoteItem
		ProductName string `db:"product_name"`
	}
	var rows []quoteRow
	if err := tx.SelectContext(ctx, &rows, `SELECT qi.id, qi.quote_id, qi.product_id, qi.quantity, qi.unit_price,
        qi.discount_amount, qi.total_price, p.name AS product_name
        FROM quote_items qi JOIN products p ON p.id = qi.product_id
        WHERE qi.quote_id = $1`, quoteID); err != nil {
		return nil, fmt.Errorf("read quote items: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE quotes SET status = $1 WHERE id = $2`, domain.QuoteConverted, quoteID); err != nil {
		return nil, fmt.Errorf("update quote: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit conversion: %w", err)
	}

	lines := make([]CartLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, CartLine{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Quantity:    row.Quantity,
			UnitPrice:   row.UnitPrice,
			Discount:    row.DiscountAmount,
			Total:       row.TotalPrice,
		})
	}
	return lines, nil
}
