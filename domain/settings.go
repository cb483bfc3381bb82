package domain

import "github.com/shopspring/decimal"

// CompanySettings is a single-row table: identity printed on receipts
// plus the POS tax rate and paper width.
type CompanySettings struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	TaxID         string          `db:"tax_id" json:"tax_id"`
	Address       string          `db:"address" json:"address"`
	Phone         string          `db:"phone" json:"phone"`
	ReceiptFooter string          `db:"receipt_footer" json:"receipt_footer"`
	PaperWidth    int             `db:"paper_width" json:"paper_width"`
	TaxRate       decimal.Decimal `db:"tax_rate" json:"tax_rate"`
	UpdatedAt     string          `db:"updated_at" json:"updated_at"`
}
