package pos

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"farmapos/domain"
	"farmapos/internal/database"
	"farmapos/internal/migrations"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))
	return NewService(db, zaptest.NewLogger(t))
}

func seedProduct(t *testing.T, s *Service, name string, salePrice, costPrice string) int64 {
	t.Helper()
	var id int64
	err := s.db.QueryRowx(`INSERT INTO products (name, sale_price, cost_price) VALUES ($1, $2, $3) RETURNING id`,
		name, d(salePrice), d(costPrice)).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedLocation(t *testing.T, s *Service, name string) int64 {
	t.Helper()
	var id int64
	err := s.db.QueryRowx(`INSERT INTO locations (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedStock(t *testing.T, s *Service, productID, locationID, stock int64) {
	t.Helper()
	_, err := s.db.Exec(`INSERT INTO inventory (product_id, location_id, current_stock) VALUES ($1, $2, $3)
        ON CONFLICT(product_id, location_id) DO UPDATE SET current_stock = excluded.current_stock`,
		productID, locationID, stock)
	require.NoError(t, err)
}

func seedClient(t *testing.T, s *Service, name string, points int64) int64 {
	t.Helper()
	var id int64
	err := s.db.QueryRowx(`INSERT INTO clients (code, name, loyalty_points) VALUES ($1, $2, $3) RETURNING id`,
		name+"-code", name, points).Scan(&id)
	require.NoError(t, err)
	return id
}

func seedActivePlan(t *testing.T, s *Service, pointsPerCurrency string) {
	t.Helper()
	_, err := s.db.Exec(`INSERT INTO loyalty_plans (name, points_per_currency, active) VALUES ($1, $2, 1)`,
		"Plan base", d(pointsPerCurrency))
	require.NoError(t, err)
}

func currentStock(t *testing.T, s *Service, productID, locationID int64) int64 {
	t.Helper()
	var stock int64
	require.NoError(t, s.db.Get(&stock, `SELECT current_stock FROM inventory WHERE product_id = $1 AND location_id = $2`,
		productID, locationID))
	return stock
}

func TestProcessSaleValidation(t *testing.T) {
	s := newTestService(t)

	_, err := s.ProcessSale(context.Background(), CheckoutInput{Cart: NewCart(d("0.16")), PaymentMethod: domain.PaymentCash})
	require.ErrorIs(t, err, ErrEmptyCart)

	cart := NewCart(d("0.16"))
	cart.Add(1, "X", d("10"), false)
	_, err = s.ProcessSale(context.Background(), CheckoutInput{Cart: cart})
	require.ErrorIs(t, err, ErrNoPaymentMethod)

	_, err = s.ProcessSale(context.Background(), CheckoutInput{Cart: cart, PaymentMethod: domain.PaymentCash, PointsRedeemed: 10})
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestProcessSaleWritesAllRows(t *testing.T) {
	s := newTestService(t)
	locationID := seedLocation(t, s, "Mostrador")
	productID := seedProduct(t, s, "Paracetamol 500mg", "10", "6")
	seedStock(t, s, productID, locationID, 20)

	cart := NewCart(d("0.16"))
	cart.Add(productID, "Paracetamol 500mg", d("10"), false)
	require.NoError(t, cart.UpdateQuantity(0, 2))

	result, err := s.ProcessSale(context.Background(), CheckoutInput{
		Cart:          cart,
		LocationID:    &locationID,
		PaymentMethod: domain.PaymentDebit,
	})
	require.NoError(t, err)
	require.Empty(t, result.Warnings)
	require.True(t, result.Sale.TotalAmount.Equal(d("23.20")), "total %s", result.Sale.TotalAmount)
	require.Equal(t, domain.SaleCompleted, result.Sale.Status)
	require.Len(t, result.Items, 1)

	var itemCount, paymentCount int64
	require.NoError(t, s.db.Get(&itemCount, `SELECT COUNT(*) FROM sale_items WHERE sale_id = $1`, result.Sale.ID))
	require.NoError(t, s.db.Get(&paymentCount, `SELECT COUNT(*) FROM payments WHERE sale_id = $1`, result.Sale.ID))
	require.EqualValues(t, 1, itemCount)
	require.EqualValues(t, 1, paymentCount)

	require.EqualValues(t, 18, currentStock(t, s, productID, locationID))

	var movement domain.InventoryMovement
	require.NoError(t, s.db.Get(&movement, `SELECT id, product_id, location_id, movement_type, quantity, unit_cost,
        total_cost, stock_before, stock_after, reference_type, reference_id, notes, created_at
        FROM inventory_movements WHERE reference_id = $1`, result.Sale.ID))
	require.Equal(t, domain.MovementSale, movement.MovementType)
	require.EqualValues(t, -2, movement.Quantity)
	require.EqualValues(t, 20, movement.StockBefore)
	require.EqualValues(t, 18, movement.StockAfter)
}

func TestProcessSaleLoyaltyRedeemAndEarn(t *testing.T) {
	// client with 100 points redeems 50, plan 1 point per currency,
	// sale total 30 => balance 100 - 50 + 30 = 80 with two ledger rows
	s := newTestService(t)
	locationID := seedLocation(t, s, "Mostrador")
	productID := seedProduct(t, s, "Vitamina C", "30", "18")
	seedStock(t, s, productID, locationID, 50)
	clientID := seedClient(t, s, "Ana Torres", 100)
	seedActivePlan(t, s, "1")

	cart := NewCart(decimal.Zero)
	cart.Add(productID, "Vitamina C", d("30"), false)

	result, err := s.ProcessSale(context.Background(), CheckoutInput{
		Cart:           cart,
		ClientID:       &clientID,
		LocationID:     &locationID,
		PaymentMethod:  domain.PaymentCash,
		PointsRedeemed: 50,
	})
	require.NoError(t, err)
	require.EqualValues(t, 30, result.PointsEarned)

	var balance int64
	require.NoError(t, s.db.Get(&balance, `SELECT loyalty_points FROM clients WHERE id = $1`, clientID))
	require.EqualValues(t, 80, balance)

	var transactions []domain.LoyaltyTransaction
	require.NoError(t, s.db.Select(&transactions, `SELECT id, client_id, transaction_type, points, sale_id, notes, created_at
        FROM loyalty_transactions WHERE client_id = $1 ORDER BY id`, clientID))
	require.Len(t, transactions, 2)
	require.Equal(t, domain.LoyaltyRedeem, transactions[0].TransactionType)
	require.EqualValues(t, -50, transactions[0].Points)
	require.Equal(t, domain.LoyaltyEarn, transactions[1].TransactionType)
	require.EqualValues(t, 30, transactions[1].Points)

	// The ledger explains the balance: initial 100 plus the entry sum.
	var ledgerSum int64
	require.NoError(t, s.db.Get(&ledgerSum, `SELECT COALESCE(SUM(points), 0) FROM loyalty_transactions WHERE client_id = $1`, clientID))
	require.EqualValues(t, balance, 100+ledgerSum)
}

func TestProcessSaleInsufficientPointsRollsBackEverything(t *testing.T) {
	s := newTestService(t)
	locationID := seedLocation(t, s, "Mostrador")
	productID := seedProduct(t, s, "Jarabe", "12", "7")
	seedStock(t, s, productID, locationID, 10)
	clientID := seedClient(t, s, "Luis Mora", 10)

	cart := NewCart(d("0.16"))
	cart.Add(productID, "Jarabe", d("12"), false)

	_, err := s.ProcessSale(context.Background(), CheckoutInput{
		Cart:           cart,
		ClientID:       &clientID,
		LocationID:     &locationID,
		PaymentMethod:  domain.PaymentCash,
		PointsRedeemed: 500,
	})
	require.ErrorIs(t, err, ErrInsufficientPoints)

	// The failed checkout leaves nothing behind: no orphan sale header.
	var saleCount int64
	require.NoError(t, s.db.Get(&saleCount, `SELECT COUNT(*) FROM sales`))
	require.EqualValues(t, 0, saleCount)
	require.EqualValues(t, 10, currentStock(t, s, productID, locationID))
}

func TestProcessSaleAllowsNegativeStockWithWarning(t *testing.T) {
	// stock 5, quantity 8 => stock_after -3 is written, not rejected
	s := newTestService(t)
	locationID := seedLocation(t, s, "Mostrador")
	productID := seedProduct(t, s, "Suero oral", "4", "2")
	seedStock(t, s, productID, locationID, 5)

	cart := NewCart(d("0.16"))
	cart.Add(productID, "Suero oral", d("4"), false)
	require.NoError(t, cart.UpdateQuantity(0, 8))

	result, err := s.ProcessSale(context.Background(), CheckoutInput{
		Cart:          cart,
		LocationID:    &locationID,
		PaymentMethod: domain.PaymentCash,
	})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	require.Contains(t, result.Warnings[0], "stock negativo")
	require.EqualValues(t, -3, currentStock(t, s, productID, locationID))

	var stockAfter int64
	require.NoError(t, s.db.Get(&stockAfter, `SELECT stock_after FROM inventory_movements WHERE product_id = $1`, productID))
	require.EqualValues(t, -3, stockAfter)
}

func TestProcessSaleMissingInventorySkipsLine(t *testing.T) {
	s := newTestService(t)
	productID := seedProduct(t, s, "Sin inventario", "9", "5")

	cart := NewCart(d("0.16"))
	cart.Add(productID, "Sin inventario", d("9"), false)

	result, err := s.ProcessSale(context.Background(), CheckoutInput{
		Cart:          cart,
		PaymentMethod: domain.PaymentCash,
	})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	require.Contains(t, result.Warnings[0], "sin registro de inventario")

	var movementCount int64
	require.NoError(t, s.db.Get(&movementCount, `SELECT COUNT(*) FROM inventory_movements`))
	require.EqualValues(t, 0, movementCount)
}

func TestProcessSalePicksHighestStockLocation(t *testing.T) {
	s := newTestService(t)
	low := seedLocation(t, s, "Mostrador")
	high := seedLocation(t, s, "Bodega")
	productID := seedProduct(t, s, "Antigripal", "20", "11")
	seedStock(t, s, productID, low, 3)
	seedStock(t, s, productID, high, 40)

	cart := NewCart(d("0.16"))
	cart.Add(productID, "Antigripal", d("20"), false)

	_, err := s.ProcessSale(context.Background(), CheckoutInput{
		Cart:          cart,
		PaymentMethod: domain.PaymentCash,
	})
	require.NoError(t, err)

	require.EqualValues(t, 3, currentStock(t, s, productID, low))
	require.EqualValues(t, 39, currentStock(t, s, productID, high))
}

func TestSequentialSalesBothDecrementStock(t *testing.T) {
	// Both checkouts run inside transactions on one connection: the second
	// sale observes the first sale's decrement instead of overwriting it.
	s := newTestService(t)
	locationID := seedLocation(t, s, "Mostrador")
	productID := seedProduct(t, s, "Gasas", "3", "1")
	seedStock(t, s, productID, locationID, 10)

	for _, qty := range []int64{3, 4} {
		cart := NewCart(d("0.16"))
		cart.Add(productID, "Gasas", d("3"), false)
		require.NoError(t, cart.UpdateQuantity(0, qty))
		_, err := s.ProcessSale(context.Background(), CheckoutInput{
			Cart:          cart,
			LocationID:    &locationID,
			PaymentMethod: domain.PaymentCash,
		})
		require.NoError(t, err)
	}

	require.EqualValues(t, 3, currentStock(t, s, productID, locationID))

	var afters []int64
	require.NoError(t, s.db.Select(&afters, `SELECT stock_after FROM inventory_movements WHERE product_id = $1 ORDER BY id`, productID))
	require.Equal(t, []int64{7, 3}, afters)
}

func TestProcessSaleRecordsCashSessionMovement(t *testing.T) {
	s := newTestService(t)
	locationID := seedLocation(t, s, "Mostrador")
	productID := seedProduct(t, s, "Alcohol", "5", "3")
	seedStock(t, s, productID, locationID, 10)

	var userID int64
	require.NoError(t, s.db.QueryRowx(`INSERT INTO users (username, email, password, role) VALUES ('caja1', 'caja1@farmapos.local', 'x', 'cajero') RETURNING id`).Scan(&userID))
	session, err := s.OpenSession(context.Background(), userID, d("500"), "")
	require.NoError(t, err)

	cart := NewCart(d("0.16"))
	cart.Add(productID, "Alcohol", d("5"), false)

	result, err := s.ProcessSale(context.Background(), CheckoutInput{
		Cart:          cart,
		LocationID:    &locationID,
		SessionID:     &session.ID,
		PaymentMethod: domain.PaymentCash,
		CashReceived:  d("10"),
	})
	require.NoError(t, err)
	require.True(t, result.Change.Equal(d("4.20")), "change %s", result.Change)

	var movement domain.CashMovement
	require.NoError(t, s.db.Get(&movement, `SELECT id, session_id, movement_type, amount, description, reference_id, created_at
        FROM cash_movements WHERE session_id = $1`, session.ID))
	require.Equal(t, domain.CashSale, movement.MovementType)
	require.True(t, movement.Amount.Equal(d("5.80")), "amount %s", movement.Amount)
}
