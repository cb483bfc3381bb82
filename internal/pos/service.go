package pos

import (
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var (
	// ErrEmptyCart is returned when a checkout is attempted with no lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrNoPaymentMethod is returned when no payment method is given.
	ErrNoPaymentMethod = errors.New("payment method is required")

	// ErrClientNotFound is returned when the referenced client does not exist.
	ErrClientNotFound = errors.New("client not found")

	// ErrInsufficientPoints is returned when a client redeems more points than they hold.
	ErrInsufficientPoints = errors.New("insufficient loyalty points")

	// ErrSaleNotFound is returned when the referenced sale does not exist.
	ErrSaleNotFound = errors.New("sale not found")

	// ErrSessionNotOpen is returned when a cash operation references a session
	// that does not exist or is already closed.
	ErrSessionNotOpen = errors.New("cash session is not open")

	// ErrAlreadyRefunded is returned when refunding a sale that was fully refunded.
	ErrAlreadyRefunded = errors.New("sale already refunded")
)

// Service runs the point-of-sale operations: checkout, refunds, stock
// movements and cash-register sessions. All multi-row writes happen inside
// a single transaction.
type Service struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewService creates a Service.
func NewService(db *sqlx.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger}
}

// GenerateNumber builds a document number from a prefix and the full
// millisecond timestamp, e.g. "V-1787042045123". Numbers only repeat when
// two documents of the same kind land on the same millisecond, which the
// single write connection serializes away in practice.
func GenerateNumber(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%d", prefix, t.UnixMilli())
}
