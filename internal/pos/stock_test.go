package pos

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"farmapos/domain"
)

func TestAdjustStockSetsAbsoluteCount(t *testing.T) {
	s := newTestService(t)
	locationID := seedLocation(t, s, "Bodega")
	productID := seedProduct(t, s, "Gasas", "3", "1")
	seedStock(t, s, productID, locationID, 12)

	require.NoError(t, s.AdjustStock(context.Background(), productID, locationID, 8, "conteo fisico"))
	require.EqualValues(t, 8, currentStock(t, s, productID, locationID))

	var movement domain.InventoryMovement
	require.NoError(t, s.db.Get(&movement, `SELECT id, product_id, location_id, movement_type, quantity, unit_cost,
        total_cost, stock_before, stock_after, reference_type, reference_id, notes, created_at
        FROM inventory_movements WHERE product_id = $1`, productID))
	require.Equal(t, domain.MovementAdjustment, movement.MovementType)
	require.EqualValues(t, -4, movement.Quantity)
	require.EqualValues(t, 12, movement.StockBefore)
	require.EqualValues(t, 8, movement.StockAfter)
	require.Equal(t, "conteo fisico", movement.Notes)
}

func TestAdjustStockCreatesMissingRecord(t *testing.T) {
	s := newTestService(t)
	locationID := seedLocation(t, s, "Bodega")
	productID := seedProduct(t, s, "Vendas", "4", "2")

	require.NoError(t, s.AdjustStock(context.Background(), productID, locationID, 15, "alta inicial"))
	require.EqualValues(t, 15, currentStock(t, s, productID, locationID))
}

func TestAdjustStockUnknownProduct(t *testing.T) {
	s := newTestService(t)
	locationID := seedLocation(t, s, "Bodega")

	err := s.AdjustStock(context.Background(), 999, locationID, 5, "")
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestReceivePurchaseAddsStockAndRefreshesCost(t *testing.T) {
	s := newTestService(t)
	locationID := seedLocation(t, s, "Bodega")
	productID := seedProduct(t, s, "Amoxicilina", "12", "7")
	seedStock(t, s, productID, locationID, 5)

	var supplierID int64
	require.NoError(t, s.db.QueryRowx(`INSERT INTO suppliers (name) VALUES ('Distribuidora Norte') RETURNING id`).Scan(&supplierID))

	err := s.ReceivePurchase(context.Background(), &supplierID, locationID, []PurchaseLine{
		{ProductID: productID, Quantity: 30, UnitCost: d("6.50")},
	})
	require.NoError(t, err)
	require.EqualValues(t, 35, currentStock(t, s, productID, locationID))

	var costPrice decimal.Decimal
	require.NoError(t, s.db.Get(&costPrice, `SELECT cost_price FROM products WHERE id = $1`, productID))
	require.True(t, costPrice.Equal(d("6.50")), "cost %s", costPrice)

	var movement domain.InventoryMovement
	require.NoError(t, s.db.Get(&movement, `SELECT id, product_id, location_id, movement_type, quantity, unit_cost,
        total_cost, stock_before, stock_after, reference_type, reference_id, notes, created_at
        FROM inventory_movements WHERE product_id = $1`, productID))
	require.Equal(t, domain.MovementPurchase, movement.MovementType)
	require.EqualValues(t, 30, movement.Quantity)
	require.True(t, movement.TotalCost.Equal(d("195")), "total cost %s", movement.TotalCost)
}

func TestReceivePurchaseValidation(t *testing.T) {
	s := newTestService(t)
	locationID := seedLocation(t, s, "Bodega")
	productID := seedProduct(t, s, "Curitas", "2", "1")

	require.Error(t, s.ReceivePurchase(context.Background(), nil, locationID, nil))

	err := s.ReceivePurchase(context.Background(), nil, locationID, []PurchaseLine{
		{ProductID: productID, Quantity: 0, UnitCost: d("1")},
	})
	require.ErrorIs(t, err, ErrBadQuantity)
}

func TestGenerateNumberFormat(t *testing.T) {
	ts := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)
	n := GenerateNumber("V", ts)
	require.Equal(t, fmt.Sprintf("V-%d", ts.UnixMilli()), n)
	require.Equal(t, GenerateNumber("V", ts), n)
	require.NotEqual(t, GenerateNumber("V", ts.Add(time.Millisecond)), n)
	// A day apart must never collide; the number carries the full timestamp.
	require.NotEqual(t, GenerateNumber("V", ts.AddDate(0, 0, 1)), n)
}
