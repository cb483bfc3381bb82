package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Barcode     *string         `db:"barcode" json:"barcode,omitempty"`
	Category    string          `db:"category" json:"category"`
	Laboratory  string          `db:"laboratory" json:"laboratory"`
	CostPrice   decimal.Decimal `db:"cost_price" json:"cost_price"`
	SalePrice   decimal.Decimal `db:"sale_price" json:"sale_price"`
	TaxExempt   bool            `db:"tax_exempt" json:"tax_exempt"`
	RequiresRx  bool            `db:"requires_rx" json:"requires_rx"`
	Active      bool            `db:"active" json:"active"`
	CreatedAt   string          `db:"created_at" json:"created_at"`
	UpdatedAt   string          `db:"updated_at" json:"updated_at"`
}

type Location struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Address   string `db:"address" json:"address"`
	Kind      string `db:"kind" json:"kind"` // sucursal | bodega
	CreatedAt string `db:"created_at" json:"created_at"`
}
