package pos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"farmapos/domain"
)

// ErrProductNotFound is returned when a stock operation references an unknown product.
var ErrProductNotFound = errors.New("product not found")

// stockMove is one stock delta to apply together with its audit row.
type stockMove struct {
	ProductID     int64
	LocationID    *int64 // nil selects the highest-stock record
	Delta         int64  // negative = out
	MovementType  string
	ReferenceType string
	ReferenceID   int64
	UnitCost      decimal.Decimal
	Notes         string
	SkipMissing   bool // never create a missing record, warn and skip instead
}

// moveStock applies a delta to the inventory record and appends the audit
// movement. When no record exists and the location is explicit, one is
// created unless SkipMissing is set; without an explicit location the move
// is skipped with a warning.
func (s *Service) moveStock(ctx context.Context, tx *sqlx.Tx, mv stockMove) (string, error) {
	var record struct {
		ID           int64 `db:"id"`
		LocationID   int64 `db:"location_id"`
		CurrentStock int64 `db:"current_stock"`
	}
	var err error
	if mv.LocationID != nil {
		err = tx.GetContext(ctx, &record, `SELECT id, location_id, current_stock FROM inventory
            WHERE product_id = $1 AND location_id = $2`, mv.ProductID, *mv.LocationID)
	} else {
		err = tx.GetContext(ctx, &record, `SELECT id, location_id, current_stock FROM inventory
            WHERE product_id = $1 ORDER BY current_stock DESC, id ASC LIMIT 1`, mv.ProductID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if mv.SkipMissing || mv.LocationID == nil {
			s.logger.Warn("no inventory record for stock movement",
				zap.Int64("product_id", mv.ProductID), zap.String("movement_type", mv.MovementType))
			return fmt.Sprintf("producto %d sin registro de inventario, movimiento omitido", mv.ProductID), nil
		}
		if err := tx.QueryRowxContext(ctx, `INSERT INTO inventory (product_id, location_id, current_stock)
            VALUES ($1, $2, 0) RETURNING id`, mv.ProductID, *mv.LocationID).Scan(&record.ID); err != nil {
			return "", fmt.Errorf("create inventory record: %w", err)
		}
		record.LocationID = *mv.LocationID
		record.CurrentStock = 0
	} else if err != nil {
		return "", fmt.Errorf("read inventory: %w", err)
	}

	stockAfter := record.CurrentStock + mv.Delta
	warning := ""
	if stockAfter < 0 {
		s.logger.Warn("stock went negative",
			zap.Int64("product_id", mv.ProductID),
			zap.Int64("stock_before", record.CurrentStock),
			zap.Int64("stock_after", stockAfter))
		warning = fmt.Sprintf("producto %d quedo con stock negativo (%d)", mv.ProductID, stockAfter)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE inventory SET current_stock = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		stockAfter, record.ID); err != nil {
		return "", fmt.Errorf("update inventory: %w", err)
	}

	totalCost := mv.UnitCost.Mul(decimal.NewFromInt(mv.Delta)).Abs()
	if _, err := tx.ExecContext(ctx, `INSERT INTO inventory_movements
        (product_id, location_id, movement_type, quantity, unit_cost, total_cost, stock_before, stock_after, reference_type, reference_id, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		mv.ProductID, record.LocationID, mv.MovementType, mv.Delta, mv.UnitCost, totalCost,
		record.CurrentStock, stockAfter, nullableString(mv.ReferenceType), nullableID(mv.ReferenceID), mv.Notes); err != nil {
		return "", fmt.Errorf("insert inventory movement: %w", err)
	}
	return warning, nil
}

// AdjustStock sets the absolute stock count for a (product, location) pair
// and records an adjustment movement with the implied delta.
func (s *Service) AdjustStock(ctx context.Context, productID, locationID, newStock int64, notes string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin adjustment: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID); err != nil {
		return fmt.Errorf("read product: %w", err)
	}
	if !exists {
		return ErrProductNotFound
	}

	var current int64
	err = tx.GetContext(ctx, &current, `SELECT current_stock FROM inventory WHERE product_id = $1 AND location_id = $2`,
		productID, locationID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read inventory: %w", err)
	}

	if _, err := s.moveStock(ctx, tx, stockMove{
		ProductID:    productID,
		LocationID:   &locationID,
		Delta:        newStock - current,
		MovementType: domain.MovementAdjustment,
		Notes:        notes,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// PurchaseLine is one received product on a supplier delivery.
type PurchaseLine struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// ReceivePurchase adds delivered stock at a location, records purchase
// movements and refreshes each product's cost price to the received cost.
func (s *Service) ReceivePurchase(ctx context.Context, supplierID *int64, locationID int64, lines []PurchaseLine) error {
	if len(lines) == 0 {
		return errors.New("purchase needs at least one line")
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purchase: %w", err)
	}
	defer tx.Rollback()

	for _, line := range lines {
		if line.Quantity < 1 {
			return fmt.Errorf("%w: product %d", ErrBadQuantity, line.ProductID)
		}
		notes := "Compra"
		if supplierID != nil {
			notes = fmt.Sprintf("Compra proveedor %d", *supplierID)
		}
		if _, err := s.moveStock(ctx, tx, stockMove{
			ProductID:    line.ProductID,
			LocationID:   &locationID,
			Delta:        line.Quantity,
			MovementType: domain.MovementPurchase,
			UnitCost:     line.UnitCost,
			Notes:        notes,
		}); err != nil {
			return err
		}
		if !line.UnitCost.IsZero() {
			if _, err := tx.ExecContext(ctx, `UPDATE products SET cost_price = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
				line.UnitCost, line.ProductID); err != nil {
				return fmt.Errorf("update product cost: %w", err)
			}
		}
	}
	return tx.Commit()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
