package domain

import "github.com/shopspring/decimal"

// Movement types recorded in the inventory_movements audit log.
const (
	MovementSale       = "venta"
	MovementRefund     = "devolucion"
	MovementAdjustment = "ajuste"
	MovementPurchase   = "compra"
)

type InventoryRecord struct {
	ID           int64   `db:"id" json:"id"`
	ProductID    int64   `db:"product_id" json:"product_id"`
	LocationID   int64   `db:"location_id" json:"location_id"`
	CurrentStock int64   `db:"current_stock" json:"current_stock"`
	MinStock     int64   `db:"min_stock" json:"min_stock"`
	ExpiryDate   *string `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt    string  `db:"created_at" json:"created_at"`
	UpdatedAt    string  `db:"updated_at" json:"updated_at"`
}

// InventoryMovement is append-only: stock changes are audited, never edited.
type InventoryMovement struct {
	ID            int64           `db:"id" json:"id"`
	ProductID     int64           `db:"product_id" json:"product_id"`
	LocationID    int64           `db:"location_id" json:"location_id"`
	MovementType  string          `db:"movement_type" json:"movement_type"`
	Quantity      int64           `db:"quantity" json:"quantity"` // negative = out, positive = in
	UnitCost      decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	TotalCost     decimal.Decimal `db:"total_cost" json:"total_cost"`
	StockBefore   int64           `db:"stock_before" json:"stock_before"`
	StockAfter    int64           `db:"stock_after" json:"stock_after"`
	ReferenceType *string         `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID   *int64          `db:"reference_id" json:"reference_id,omitempty"`
	Notes         string          `db:"notes" json:"notes"`
	CreatedAt     string          `db:"created_at" json:"created_at"`
}
