package domain

import "github.com/shopspring/decimal"

const (
	QuotePending   = "pendiente"
	QuoteConverted = "convertida"
	QuoteExpired   = "vencida"
)

// Quote prices are tax inclusive: the tax column holds the portion
// extracted from the quoted prices, not an amount added on top.
type Quote struct {
	ID             int64           `db:"id" json:"id"`
	QuoteNumber    string          `db:"quote_number" json:"quote_number"`
	ClientID       *int64          `db:"client_id" json:"client_id,omitempty"`
	UserID         *int64          `db:"user_id" json:"user_id,omitempty"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TaxAmount      decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status         string          `db:"status" json:"status"`
	ValidUntil     *string         `db:"valid_until" json:"valid_until,omitempty"`
	Notes          string          `db:"notes" json:"notes"`
	CreatedAt      string          `db:"created_at" json:"created_at"`
}

type QuoteItem struct {
	ID             int64           `db:"id" json:"id"`
	QuoteID        int64           `db:"quote_id" json:"quote_id"`
	ProductID      int64           `db:"product_id" json:"product_id"`
	Quantity       int64           `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unit_price"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TotalPrice     decimal.Decimal `db:"total_price" json:"total_price"`
}
