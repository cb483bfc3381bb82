package domain

import "github.com/shopspring/decimal"

const (
	SessionOpen   = "abierta"
	SessionClosed = "cerrada"
)

// Cash movement types. Movements are never modified or deleted;
// corrections are recorded as inverse entries.
const (
	CashSale   = "venta"
	CashIn     = "ingreso"
	CashOut    = "egreso"
	CashRefund = "devolucion"
)

const (
	DeviationNormal   = "normal"
	DeviationWarning  = "advertencia"
	DeviationCritical = "critico"
)

type CashSession struct {
	ID             int64            `db:"id" json:"id"`
	Reference      string           `db:"reference" json:"reference"`
	UserID         int64            `db:"user_id" json:"user_id"`
	OpeningAmount  decimal.Decimal  `db:"opening_amount" json:"opening_amount"`
	ExpectedAmount *decimal.Decimal `db:"expected_amount" json:"expected_amount,omitempty"`
	DeclaredAmount *decimal.Decimal `db:"declared_amount" json:"declared_amount,omitempty"`
	Deviation      *decimal.Decimal `db:"deviation" json:"deviation,omitempty"`
	DeviationClass *string          `db:"deviation_class" json:"deviation_class,omitempty"`
	Status         string           `db:"status" json:"status"`
	Notes          string           `db:"notes" json:"notes"`
	OpenedAt       string           `db:"opened_at" json:"opened_at"`
	ClosedAt       *string          `db:"closed_at" json:"closed_at,omitempty"`
}

type CashMovement struct {
	ID           int64           `db:"id" json:"id"`
	SessionID    int64           `db:"session_id" json:"session_id"`
	MovementType string          `db:"movement_type" json:"movement_type"`
	Amount       decimal.Decimal `db:"amount" json:"amount"` // negative on egress
	Description  string          `db:"description" json:"description"`
	ReferenceID  *int64          `db:"reference_id" json:"reference_id,omitempty"`
	CreatedAt    string          `db:"created_at" json:"created_at"`
}
