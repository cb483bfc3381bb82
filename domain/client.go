package domain

import "github.com/shopspring/decimal"

const (
	LoyaltyEarn   = "earn"
	LoyaltyRedeem = "redeem"
)

type Client struct {
	ID               int64           `db:"id" json:"id"`
	Code             string          `db:"code" json:"code"`
	Name             string          `db:"name" json:"name"`
	Email            *string         `db:"email" json:"email,omitempty"`
	Phone            *string         `db:"phone" json:"phone,omitempty"`
	LoyaltyPoints    int64           `db:"loyalty_points" json:"loyalty_points"`
	TotalPurchases   decimal.Decimal `db:"total_purchases" json:"total_purchases"`
	LastPurchaseDate *string         `db:"last_purchase_date" json:"last_purchase_date,omitempty"`
	CreatedAt        string          `db:"created_at" json:"created_at"`
}

// LoyaltyPlan converts currency spent into points. Only one plan may be
// active at a time; activation deactivates the rest.
type LoyaltyPlan struct {
	ID                int64           `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	PointsPerCurrency decimal.Decimal `db:"points_per_currency" json:"points_per_currency"`
	Active            bool            `db:"active" json:"active"`
	CreatedAt         string          `db:"created_at" json:"created_at"`
}

// LoyaltyTransaction is an append-only ledger entry. The sum of a client's
// entries must equal Client.LoyaltyPoints.
type LoyaltyTransaction struct {
	ID              int64  `db:"id" json:"id"`
	ClientID        int64  `db:"client_id" json:"client_id"`
	TransactionType string `db:"transaction_type" json:"transaction_type"`
	Points          int64  `db:"points" json:"points"` // negative on redeem
	SaleID          *int64 `db:"sale_id" json:"sale_id,omitempty"`
	Notes           string `db:"notes" json:"notes"`
	CreatedAt       string `db:"created_at" json:"created_at"`
}
