package domain

import "github.com/shopspring/decimal"

type Refund struct {
	ID          int64           `db:"id" json:"id"`
	SaleID      int64           `db:"sale_id" json:"sale_id"`
	UserID      *int64          `db:"user_id" json:"user_id,omitempty"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	Reason      string          `db:"reason" json:"reason"`
	CreatedAt   string          `db:"created_at" json:"created_at"`
}

type RefundItem struct {
	ID        int64           `db:"id" json:"id"`
	RefundID  int64           `db:"refund_id" json:"refund_id"`
	ProductID int64           `db:"product_id" json:"product_id"`
	Quantity  int64           `db:"quantity" json:"quantity"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
}
