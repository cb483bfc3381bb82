package pos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"farmapos/domain"
)

// ErrSessionAlreadyOpen is returned when a user tries to open a second session.
var ErrSessionAlreadyOpen = errors.New("user already has an open cash session")

// ErrBadAmount is returned when a cash amount is zero or negative.
var ErrBadAmount = errors.New("amount must be greater than zero")

// Deviation thresholds as a fraction of the expected amount.
var (
	deviationWarn     = decimal.NewFromFloat(0.01)
	deviationCritical = decimal.NewFromFloat(0.05)
)

// OpenSession opens a cash-register session with an opening float.
// A user can hold at most one open session.
func (s *Service) OpenSession(ctx context.Context, userID int64, opening decimal.Decimal, notes string) (*domain.CashSession, error) {
	if opening.IsNegative() {
		return nil, ErrBadAmount
	}
	var open int64
	if err := s.db.GetContext(ctx, &open, `SELECT COUNT(*) FROM cash_sessions WHERE user_id = $1 AND status = $2`,
		userID, domain.SessionOpen); err != nil {
		return nil, fmt.Errorf("read open sessions: %w", err)
	}
	if open > 0 {
		return nil, ErrSessionAlreadyOpen
	}

	reference := GenerateNumber("S", time.Now())
	var id int64
	if err := s.db.QueryRowxContext(ctx, `INSERT INTO cash_sessions (reference, user_id, opening_amount, notes)
        VALUES ($1, $2, $3, $4) RETURNING id`, reference, userID, opening, notes).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	s.logger.Info("cash session opened", zap.String("reference", reference), zap.Int64("user_id", userID))

	var session domain.CashSession
	if err := s.db.GetContext(ctx, &session, sessionQuery+` WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return &session, nil
}

// RecordMovement appends a manual ingress or egress to an open session.
// The amount is stored negative for egress so the ledger sums directly.
func (s *Service) RecordMovement(ctx context.Context, sessionID int64, movementType string, amount decimal.Decimal, description string) (*domain.CashMovement, error) {
	if movementType != domain.CashIn && movementType != domain.CashOut {
		return nil, fmt.Errorf("movement type must be %q or %q", domain.CashIn, domain.CashOut)
	}
	if !amount.IsPositive() {
		return nil, ErrBadAmount
	}

	var status string
	err := s.db.GetContext(ctx, &status, `SELECT status FROM cash_sessions WHERE id = $1`, sessionID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && status != domain.SessionOpen) {
		return nil, ErrSessionNotOpen
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	stored := amount
	if movementType == domain.CashOut {
		stored = amount.Neg()
	}
	var id int64
	if err := s.db.QueryRowxContext(ctx, `INSERT INTO cash_movements (session_id, movement_type, amount, description)
        VALUES ($1, $2, $3, $4) RETURNING id`, sessionID, movementType, stored, description).Scan(&id); err != nil {
		return nil, fmt.Errorf("insert movement: %w", err)
	}

	var movement domain.CashMovement
	if err := s.db.GetContext(ctx, &movement, `SELECT id, session_id, movement_type, amount, description, reference_id, created_at
        FROM cash_movements WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("read movement: %w", err)
	}
	return &movement, nil
}

// CloseSession computes the expected drawer amount (opening float plus the
// movement ledger), compares it against the declared count and classifies
// the deviation. Closing is final; the session cannot be reopened.
func (s *Service) CloseSession(ctx context.Context, sessionID int64, declared decimal.Decimal, notes string) (*domain.CashSession, error) {
	if declared.IsNegative() {
		return nil, ErrBadAmount
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin close: %w", err)
	}
	defer tx.Rollback()

	var session domain.CashSession
	err = tx.GetContext(ctx, &session, sessionQuery+` WHERE id = $1`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotOpen
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if session.Status != domain.SessionOpen {
		return nil, ErrSessionNotOpen
	}

	var ledger decimal.Decimal
	if err := tx.GetContext(ctx, &ledger, `SELECT COALESCE(SUM(amount), 0) FROM cash_movements WHERE session_id = $1`,
		sessionID); err != nil {
		return nil, fmt.Errorf("sum movements: %w", err)
	}

	expected := session.OpeningAmount.Add(ledger)
	deviation := declared.Sub(expected)
	class := classifyDeviation(deviation, expected)

	if _, err := tx.ExecContext(ctx, `UPDATE cash_sessions
        SET expected_amount = $1, declared_amount = $2, deviation = $3, deviation_class = $4,
            status = $5, notes = $6, closed_at = CURRENT_TIMESTAMP
        WHERE id = $7`,
		expected, declared, deviation, class, domain.SessionClosed, notes, sessionID); err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit close: %w", err)
	}

	s.logger.Info("cash session closed",
		zap.String("reference", session.Reference),
		zap.String("expected", expected.String()),
		zap.String("declared", declared.String()),
		zap.String("deviation_class", class))

	if err := s.db.GetContext(ctx, &session, sessionQuery+` WHERE id = $1`, sessionID); err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return &session, nil
}

const sessionQuery = `SELECT id, reference, user_id, opening_amount, expected_amount, declared_amount,
    deviation, deviation_class, status, notes, opened_at, closed_at FROM cash_sessions`

func classifyDeviation(deviation, expected decimal.Decimal) string {
	if deviation.IsZero() {
		return domain.DeviationNormal
	}
	if !expected.IsPositive() {
		return domain.DeviationCritical
	}
	ratio := deviation.Abs().Div(expected)
	switch {
	case ratio.LessThanOrEqual(deviationWarn):
		return domain.DeviationNormal
	case ratio.LessThanOrEqual(deviationCritical):
		return domain.DeviationWarning
	default:
		return domain.DeviationCritical
	}
}
