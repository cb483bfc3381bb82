package pos

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"farmapos/domain"
)

func seedUser(t *testing.T, s *Service, username string) int64 {
	t.Helper()
	var id int64
	err := s.db.QueryRowx(`INSERT INTO users (username, email, password, role) VALUES ($1, $2, 'x', 'cajero') RETURNING id`,
		username, username+"@farmapos.local").Scan(&id)
	require.NoError(t, err)
	return id
}

func TestOpenSessionOnePerUser(t *testing.T) {
	s := newTestService(t)
	userID := seedUser(t, s, "caja1")

	session, err := s.OpenSession(context.Background(), userID, d("500"), "turno manana")
	require.NoError(t, err)
	require.Equal(t, domain.SessionOpen, session.Status)
	require.True(t, session.OpeningAmount.Equal(d("500")))
	require.NotEmpty(t, session.Reference)

	_, err = s.OpenSession(context.Background(), userID, d("100"), "")
	require.ErrorIs(t, err, ErrSessionAlreadyOpen)

	// Another user is not blocked.
	otherID := seedUser(t, s, "caja2")
	_, err = s.OpenSession(context.Background(), otherID, d("300"), "")
	require.NoError(t, err)
}

func TestOpenSessionRejectsNegativeFloat(t *testing.T) {
	s := newTestService(t)
	userID := seedUser(t, s, "caja1")

	_, err := s.OpenSession(context.Background(), userID, d("-1"), "")
	require.ErrorIs(t, err, ErrBadAmount)
}

func TestRecordMovementStoresEgressNegative(t *testing.T) {
	s := newTestService(t)
	userID := seedUser(t, s, "caja1")
	session, err := s.OpenSession(context.Background(), userID, d("500"), "")
	require.NoError(t, err)

	in, err := s.RecordMovement(context.Background(), session.ID, domain.CashIn, d("120"), "cambio extra")
	require.NoError(t, err)
	require.True(t, in.Amount.Equal(d("120")))

	out, err := s.RecordMovement(context.Background(), session.ID, domain.CashOut, d("45.50"), "pago proveedor")
	require.NoError(t, err)
	require.True(t, out.Amount.Equal(d("-45.50")), "amount %s", out.Amount)

	_, err = s.RecordMovement(context.Background(), session.ID, domain.CashIn, d("0"), "")
	require.ErrorIs(t, err, ErrBadAmount)
	_, err = s.RecordMovement(context.Background(), session.ID, "otro", d("10"), "")
	require.Error(t, err)
	_, err = s.RecordMovement(context.Background(), 999, domain.CashIn, d("10"), "")
	require.ErrorIs(t, err, ErrSessionNotOpen)
}

func TestCloseSessionComputesExpectedAndDeviation(t *testing.T) {
	s := newTestService(t)
	userID := seedUser(t, s, "caja1")
	session, err := s.OpenSession(context.Background(), userID, d("500"), "")
	require.NoError(t, err)

	_, err = s.RecordMovement(context.Background(), session.ID, domain.CashIn, d("100"), "")
	require.NoError(t, err)
	_, err = s.RecordMovement(context.Background(), session.ID, domain.CashOut, d("40"), "")
	require.NoError(t, err)

	// expected = 500 + 100 - 40 = 560; declared 559 => deviation -1 (~0.18%)
	closed, err := s.CloseSession(context.Background(), session.ID, d("559"), "conteo final")
	require.NoError(t, err)
	require.Equal(t, domain.SessionClosed, closed.Status)
	require.NotNil(t, closed.ExpectedAmount)
	require.True(t, closed.ExpectedAmount.Equal(d("560")), "expected %s", closed.ExpectedAmount)
	require.NotNil(t, closed.Deviation)
	require.True(t, closed.Deviation.Equal(d("-1")), "deviation %s", closed.Deviation)
	require.NotNil(t, closed.DeviationClass)
	require.Equal(t, domain.DeviationNormal, *closed.DeviationClass)
	require.NotNil(t, closed.ClosedAt)

	// Closing is final.
	_, err = s.CloseSession(context.Background(), session.ID, d("560"), "")
	require.ErrorIs(t, err, ErrSessionNotOpen)
	_, err = s.RecordMovement(context.Background(), session.ID, domain.CashIn, d("10"), "")
	require.ErrorIs(t, err, ErrSessionNotOpen)
}

func TestCloseSessionDeviationClasses(t *testing.T) {
	s := newTestService(t)

	cases := []struct {
		name     string
		declared string
		class    string
	}{
		{"exact", "1000", domain.DeviationNormal},
		{"within one percent", "992", domain.DeviationNormal},
		{"within five percent", "970", domain.DeviationWarning},
		{"beyond five percent", "900", domain.DeviationCritical},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			userID := seedUser(t, s, "caja"+string(rune('a'+i)))
			session, err := s.OpenSession(context.Background(), userID, d("1000"), "")
			require.NoError(t, err)
			closed, err := s.CloseSession(context.Background(), session.ID, d(tc.declared), "")
			require.NoError(t, err)
			require.NotNil(t, closed.DeviationClass)
			require.Equal(t, tc.class, *closed.DeviationClass)
		})
	}
}
