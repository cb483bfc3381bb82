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

// RefundLine names a product and how many units come back.
type RefundLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// RefundInput describes a refund against a completed sale. When Items is
// empty the whole sale is refunded.
type RefundInput struct {
	SaleID     int64
	UserID     *int64
	LocationID *int64
	SessionID  *int64
	Items      []RefundLine
	Reason     string
}

// RefundResult carries the persisted refund and non-fatal conditions.
type RefundResult struct {
	Refund   domain.Refund `json:"refund"`
	Warnings []string      `json:"warnings,omitempty"`
}

// ProcessRefund restocks the returned units, reverses the proportional share
// of earned loyalty points and records the refund, all in one transaction.
// The sale is marked refunded once every sold unit has come back.
func (s *Service) ProcessRefund(ctx context.Context, in RefundInput) (*RefundResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin refund: %w", err)
	}
	defer tx.Rollback()

	var sale domain.Sale
	err = tx.GetContext(ctx, &sale, `SELECT id, sale_number, client_id, user_id, subtotal, discount_amount, tax_amount,
        total_amount, payment_method, status, notes, created_at FROM sales WHERE id = $1`, in.SaleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read sale: %w", err)
	}
	if sale.Status == domain.SaleRefunded {
		return nil, ErrAlreadyRefunded
	}

	var soldItems []domain.SaleItem
	if err := tx.SelectContext(ctx, &soldItems, `SELECT id, sale_id, product_id, quantity, unit_price, discount_amount, total_price
        FROM sale_items WHERE sale_id = $1`, in.SaleID); err != nil {
		return nil, fmt.Errorf("read sale items: %w", err)
	}
	soldByProduct := make(map[int64]domain.SaleItem, len(soldItems))
	for _, item := range soldItems {
		soldByProduct[item.ProductID] = item
	}

	lines := in.Items
	if len(lines) == 0 {
		for _, item := range soldItems {
			lines = append(lines, RefundLine{ProductID: item.ProductID, Quantity: item.Quantity})
		}
	}

	// Refund base per line: the effective (discounted) per-unit price.
	base := decimal.Zero
	for _, line := range lines {
		sold, ok := soldByProduct[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d is not part of sale %d", line.ProductID, in.SaleID)
		}
		already, err := refundedQuantity(ctx, tx, in.SaleID, line.ProductID)
		if err != nil {
			return nil, err
		}
		if line.Quantity < 1 || line.Quantity > sold.Quantity-already {
			return nil, fmt.Errorf("%w: product %d", ErrBadQuantity, line.ProductID)
		}
		base = base.Add(perUnit(sold).Mul(decimal.NewFromInt(line.Quantity)))
	}

	// Add the proportional tax share so a full refund returns the full total.
	taxable := sale.Subtotal.Sub(sale.DiscountAmount)
	total := base
	if taxable.IsPositive() {
		total = base.Add(sale.TaxAmount.Mul(base).Div(taxable).Round(2))
	}

	var refundID int64
	if err := tx.QueryRowxContext(ctx, `INSERT INTO refunds (sale_id, user_id, total_amount, reason) VALUES ($1, $2, $3, $4) RETURNING id`,
		in.SaleID, in.UserID, total, in.Reason).Scan(&refundID); err != nil {
		return nil, fmt.Errorf("insert refund: %w", err)
	}

	result := &RefundResult{}
	for _, line := range lines {
		sold := soldByProduct[line.ProductID]
		amount := perUnit(sold).Mul(decimal.NewFromInt(line.Quantity))
		if _, err := tx.ExecContext(ctx, `INSERT INTO refund_items (refund_id, product_id, quantity, amount) VALUES ($1, $2, $3, $4)`,
			refundID, line.ProductID, line.Quantity, amount); err != nil {
			return nil, fmt.Errorf("insert refund items: %w", err)
		}
		warning, err := s.moveStock(ctx, tx, stockMove{
			ProductID:     line.ProductID,
			LocationID:    in.LocationID,
			Delta:         line.Quantity,
			MovementType:  domain.MovementRefund,
			ReferenceType: "refund",
			ReferenceID:   refundID,
			Notes:         "Devolucion venta " + sale.SaleNumber,
		})
		if err != nil {
			return nil, err
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
	}

	if sale.ClientID != nil {
		if err := s.reverseLoyalty(ctx, tx, sale, refundID, total); err != nil {
			return nil, err
		}
	}

	fully, err := fullyRefunded(ctx, tx, in.SaleID, soldItems)
	if err != nil {
		return nil, err
	}
	if fully {
		if _, err := tx.ExecContext(ctx, `UPDATE sales SET status = $1 WHERE id = $2`, domain.SaleRefunded, in.SaleID); err != nil {
			return nil, fmt.Errorf("update sale status: %w", err)
		}
	}

	if sale.PaymentMethod == domain.PaymentCash && in.SessionID != nil {
		var status string
		err := tx.GetContext(ctx, &status, `SELECT status FROM cash_sessions WHERE id = $1`, *in.SessionID)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && status != domain.SessionOpen) {
			return nil, ErrSessionNotOpen
		}
		if err != nil {
			return nil, fmt.Errorf("read cash session: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO cash_movements (session_id, movement_type, amount, description, reference_id)
            VALUES ($1, $2, $3, $4, $5)`,
			*in.SessionID, domain.CashRefund, total.Neg(), "Devolucion venta "+sale.SaleNumber, refundID); err != nil {
			return nil, fmt.Errorf("insert cash movement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit refund: %w", err)
	}

	result.Refund = domain.Refund{
		ID:          refundID,
		SaleID:      in.SaleID,
		UserID:      in.UserID,
		TotalAmount: total,
		Reason:      in.Reason,
		CreatedAt:   time.Now().Format(time.RFC3339),
	}

	s.logger.Info("refund completed",
		zap.Int64("refund_id", refundID),
		zap.String("sale_number", sale.SaleNumber),
		zap.String("total", total.String()))

	return result, nil
}

// reverseLoyalty takes back the share of points earned on the refunded
// amount, clamped to the client's current balance so the ledger and the
// balance stay in step.
func (s *Service) reverseLoyalty(ctx context.Context, tx *sqlx.Tx, sale domain.Sale, refundID int64, refundTotal decimal.Decimal) error {
	var earned int64
	err := tx.GetContext(ctx, &earned, `SELECT points FROM loyalty_transactions
        WHERE sale_id = $1 AND transaction_type = $2`, sale.ID, domain.LoyaltyEarn)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read earn transaction: %w", err)
	}
	if errors.Is(err, sql.ErrNoRows) || earned <= 0 {
		return nil
	}

	reversed := earned
	if sale.TotalAmount.IsPositive() {
		reversed = decimal.NewFromInt(earned).Mul(refundTotal).Div(sale.TotalAmount).Floor().IntPart()
	}
	if reversed <= 0 {
		return nil
	}

	var balance int64
	if err := tx.GetContext(ctx, &balance, `SELECT loyalty_points FROM clients WHERE id = $1`, *sale.ClientID); err != nil {
		return fmt.Errorf("read client: %w", err)
	}
	if reversed > balance {
		reversed = balance
	}
	if reversed == 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO loyalty_transactions (client_id, transaction_type, points, sale_id, notes)
        VALUES ($1, $2, $3, $4, $5)`,
		*sale.ClientID, domain.LoyaltyRedeem, -reversed, sale.ID, "Reversa por devolucion"); err != nil {
		return fmt.Errorf("insert reversal transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE clients SET loyalty_points = loyalty_points - $1, total_purchases = total_purchases - $2
        WHERE id = $3`, reversed, refundTotal, *sale.ClientID); err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	return nil
}

func refundedQuantity(ctx context.Context, tx *sqlx.Tx, saleID, productID int64) (int64, error) {
	var qty int64
	err := tx.GetContext(ctx, &qty, `SELECT COALESCE(SUM(ri.quantity), 0) FROM refund_items ri
        JOIN refunds r ON r.id = ri.refund_id WHERE r.sale_id = $1 AND ri.product_id = $2`, saleID, productID)
	if err != nil {
		return 0, fmt.Errorf("read refunded quantity: %w", err)
	}
	return qty, nil
}

func fullyRefunded(ctx context.Context, tx *sqlx.Tx, saleID int64, sold []domain.SaleItem) (bool, error) {
	for _, item := range sold {
		already, err := refundedQuantity(ctx, tx, saleID, item.ProductID)
		if err != nil {
			return false, err
		}
		if already < item.Quantity {
			return false, nil
		}
	}
	return true, nil
}

func perUnit(item domain.SaleItem) decimal.Decimal {
	if item.Quantity == 0 {
		return decimal.Zero
	}
	return item.TotalPrice.Div(decimal.NewFromInt(item.Quantity)).Round(2)
}
