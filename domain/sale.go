package domain

import "github.com/shopspring/decimal"

const (
	SaleCompleted = "completada"
	SaleRefunded  = "devuelta"
)

const (
	PaymentCash     = "efectivo"
	PaymentDebit    = "debito"
	PaymentCredit   = "credito"
	PaymentTransfer = "transferencia"
)

type Sale struct {
	ID             int64           `db:"id" json:"id"`
	SaleNumber     string          `db:"sale_number" json:"sale_number"`
	ClientID       *int64          `db:"client_id" json:"client_id,omitempty"`
	UserID         *int64          `db:"user_id" json:"user_id,omitempty"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TaxAmount      decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaymentMethod  string          `db:"payment_method" json:"payment_method"`
	Status         string          `db:"status" json:"status"`
	Notes          string          `db:"notes" json:"notes"`
	CreatedAt      string          `db:"created_at" json:"created_at"`
}

type SaleItem struct {
	ID             int64           `db:"id" json:"id"`
	SaleID         int64           `db:"sale_id" json:"sale_id"`
	ProductID      int64           `db:"product_id" json:"product_id"`
	Quantity       int64           `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unit_price"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TotalPrice     decimal.Decimal `db:"total_price" json:"total_price"`
}

type Payment struct {
	ID            int64           `db:"id" json:"id"`
	SaleID        int64           `db:"sale_id" json:"sale_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	CreatedAt     string          `db:"created_at" json:"created_at"`
}
