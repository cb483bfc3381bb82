package pos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"farmapos/domain"
)

// CheckoutInput describes one finalized cart ready to be charged.
type CheckoutInput struct {
	Cart           *Cart
	ClientID       *int64
	UserID         *int64
	LocationID     *int64 // explicit location; when nil the highest-stock record is used
	SessionID      *int64 // open cash session, required for cash movements
	PaymentMethod  string
	PointsRedeemed int64
	CashReceived   decimal.Decimal
	Notes          string
}

// CheckoutResult is what the caller gets back: the persisted sale, the cart
// lines for receipt rendering, and any non-fatal conditions encountered.
// Warnings replace the silently swallowed side effects of earlier designs:
// the sale is still committed, but the caller can see what went sideways.
type CheckoutResult struct {
	Sale         domain.Sale     `json:"sale"`
	Items        []CartLine      `json:"items"`
	PointsEarned int64           `json:"points_earned"`
	Change       decimal.Decimal `json:"change"`
	Warnings     []string        `json:"warnings,omitempty"`
}

// ProcessSale runs the checkout sequence as one transaction: sale header,
// loyalty redeem/earn, sale items, stock decrement plus movement audit rows,
// payment, and the cash-register movement for cash payments. A failure on
// any written step rolls the whole sale back; there are no orphan rows.
func (s *Service) ProcessSale(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if in.Cart == nil || in.Cart.Len() == 0 {
		return nil, ErrEmptyCart
	}
	if in.PaymentMethod == "" {
		return nil, ErrNoPaymentMethod
	}
	if in.PointsRedeemed > 0 && in.ClientID == nil {
		return nil, fmt.Errorf("%w: points redemption requires a client", ErrClientNotFound)
	}

	lines := in.Cart.Lines()
	totals := in.Cart.Totals()
	now := time.Now()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin checkout: %w", err)
	}
	defer tx.Rollback()

	result := &CheckoutResult{Items: lines}

	// 1. Sale header.
	saleNumber := GenerateNumber("V", now)
	var saleID int64
	err = tx.QueryRowxContext(ctx, `INSERT INTO sales
        (sale_number, client_id, user_id, subtotal, discount_amount, tax_amount, total_amount, payment_method, status, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		saleNumber, in.ClientID, in.UserID, totals.Subtotal, totals.Discount, totals.Tax, totals.Total,
		in.PaymentMethod, domain.SaleCompleted, in.Notes).Scan(&saleID)
	if err != nil {
		return nil, fmt.Errorf("insert sale: %w", err)
	}

	// 2. Loyalty: redeem first, then earn against the active plan.
	if in.ClientID != nil {
		earned, err := s.applyLoyalty(ctx, tx, *in.ClientID, saleID, in.PointsRedeemed, totals.Total, now)
		if err != nil {
			return nil, err
		}
		result.PointsEarned = earned
	}

	// 3. Sale items.
	for _, line := range lines {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sale_items
            (sale_id, product_id, quantity, unit_price, discount_amount, total_price)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			saleID, line.ProductID, line.Quantity, line.UnitPrice, line.Discount, line.Total); err != nil {
			return nil, fmt.Errorf("insert sale items: %w", err)
		}
	}

	// 4. Stock decrement and movement audit, one per line. A line with no
	// inventory record is reported and skipped, not fatal. Stock is allowed
	// to go negative; that case comes back as a warning.
	for _, line := range lines {
		var costPrice decimal.Decimal
		if err := tx.GetContext(ctx, &costPrice, `SELECT cost_price FROM products WHERE id = $1`, line.ProductID); err != nil {
			return nil, fmt.Errorf("read product cost: %w", err)
		}
		warning, err := s.moveStock(ctx, tx, stockMove{
			ProductID:     line.ProductID,
			LocationID:    in.LocationID,
			Delta:         -line.Quantity,
			MovementType:  domain.MovementSale,
			ReferenceType: "sale",
			ReferenceID:   saleID,
			UnitCost:      costPrice,
			SkipMissing:   true,
		})
		if err != nil {
			return nil, err
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
	}

	// 5. Payment.
	if _, err := tx.ExecContext(ctx, `INSERT INTO payments (sale_id, amount, payment_method) VALUES ($1, $2, $3)`,
		saleID, totals.Total, in.PaymentMethod); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	// 6. Cash-register ledger entry for cash payments.
	if in.PaymentMethod == domain.PaymentCash && in.SessionID != nil {
		if err := s.recordSessionSale(ctx, tx, *in.SessionID, saleID, saleNumber, totals.Total); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkout: %w", err)
	}

	if !in.CashReceived.IsZero() && in.CashReceived.GreaterThan(totals.Total) {
		result.Change = in.CashReceived.Sub(totals.Total)
	}

	result.Sale = domain.Sale{
		ID:             saleID,
		SaleNumber:     saleNumber,
		ClientID:       in.ClientID,
		UserID:         in.UserID,
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.Discount,
		TaxAmount:      totals.Tax,
		TotalAmount:    totals.Total,
		PaymentMethod:  in.PaymentMethod,
		Status:         domain.SaleCompleted,
		Notes:          in.Notes,
		CreatedAt:      now.Format(time.RFC3339),
	}

	s.logger.Info("sale completed",
		zap.String("sale_number", saleNumber),
		zap.Int64("sale_id", saleID),
		zap.String("total", totals.Total.String()),
		zap.Int("items", len(lines)),
		zap.Int("warnings", len(result.Warnings)))

	return result, nil
}

// applyLoyalty subtracts redeemed points, adds points earned under the
// active plan, appends the ledger rows and refreshes the client row.
// Returns the points earned.
func (s *Service) applyLoyalty(ctx context.Context, tx *sqlx.Tx, clientID, saleID, redeemed int64, total decimal.Decimal, now time.Time) (int64, error) {
	var client struct {
		LoyaltyPoints  int64           `db:"loyalty_points"`
		TotalPurchases decimal.Decimal `db:"total_purchases"`
	}
	err := tx.GetContext(ctx, &client, `SELECT loyalty_points, total_purchases FROM clients WHERE id = $1`, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrClientNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read client: %w", err)
	}

	if redeemed > 0 {
		if redeemed > client.LoyaltyPoints {
			return 0, ErrInsufficientPoints
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO loyalty_transactions (client_id, transaction_type, points, sale_id, notes)
            VALUES ($1, $2, $3, $4, $5)`,
			clientID, domain.LoyaltyRedeem, -redeemed, saleID, "Canje en venta"); err != nil {
			return 0, fmt.Errorf("insert redeem transaction: %w", err)
		}
	}

	var earned int64
	var plan domain.LoyaltyPlan
	err = tx.GetContext(ctx, &plan, `SELECT id, name, points_per_currency, active, created_at FROM loyalty_plans WHERE active = 1 LIMIT 1`)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No active plan: nothing earned, not an error.
	case err != nil:
		return 0, fmt.Errorf("read loyalty plan: %w", err)
	default:
		earned = total.Mul(plan.PointsPerCurrency).Floor().IntPart()
		if earned > 0 {
			if _, err := tx.ExecContext(ctx, `INSERT INTO loyalty_transactions (client_id, transaction_type, points, sale_id, notes)
                VALUES ($1, $2, $3, $4, $5)`,
				clientID, domain.LoyaltyEarn, earned, saleID, plan.Name); err != nil {
				return 0, fmt.Errorf("insert earn transaction: %w", err)
			}
		}
	}

	newBalance := client.LoyaltyPoints - redeemed + earned
	if _, err := tx.ExecContext(ctx, `UPDATE clients
        SET loyalty_points = $1, total_purchases = $2, last_purchase_date = $3 WHERE id = $4`,
		newBalance, client.TotalPurchases.Add(total), now.Format("2006-01-02"), clientID); err != nil {
		return 0, fmt.Errorf("update client: %w", err)
	}
	return earned, nil
}

// recordSessionSale appends a sale entry to the open cash session ledger.
func (s *Service) recordSessionSale(ctx context.Context, tx *sqlx.Tx, sessionID, saleID int64, saleNumber string, amount decimal.Decimal) error {
	var status string
	err := tx.GetContext(ctx, &status, `SELECT status FROM cash_sessions WHERE id = $1`, sessionID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && status != domain.SessionOpen) {
		return ErrSessionNotOpen
	}
	if err != nil {
		return fmt.Errorf("read cash session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO cash_movements (session_id, movement_type, amount, description, reference_id)
        VALUES ($1, $2, $3, $4, $5)`,
		sessionID, domain.CashSale, amount, "Venta "+saleNumber, saleID); err != nil {
		return fmt.Errorf("insert cash movement: %w", err)
	}
	return nil
}
