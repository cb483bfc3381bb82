package pos

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestCartAddIncrementsExistingLine(t *testing.T) {
	cart := NewCart(d("0.16"))
	cart.Add(1, "Paracetamol 500mg", d("10"), false)
	cart.Add(1, "Paracetamol 500mg", d("10"), false)

	require.Equal(t, 1, cart.Len())
	line := cart.Lines()[0]
	require.EqualValues(t, 2, line.Quantity)
	require.True(t, line.Total.Equal(d("20")), "got %s", line.Total)
}

func TestCartTotalsExampleCase(t *testing.T) {
	// price 10, qty 2, no discount, rate 0.16 => subtotal 20, tax 3.20, total 23.20
	cart := NewCart(d("0.16"))
	cart.Add(1, "Ibuprofeno 400mg", d("10"), false)
	require.NoError(t, cart.UpdateQuantity(0, 2))

	totals := cart.Totals()
	require.True(t, totals.Subtotal.Equal(d("20")), "subtotal %s", totals.Subtotal)
	require.True(t, totals.Discount.Equal(d("0")), "discount %s", totals.Discount)
	require.True(t, totals.Tax.Equal(d("3.20")), "tax %s", totals.Tax)
	require.True(t, totals.Total.Equal(d("23.20")), "total %s", totals.Total)
}

func TestCartLineTotalInvariant(t *testing.T) {
	cart := NewCart(d("0.16"))
	cart.Add(1, "Amoxicilina 500mg", d("7.50"), false)
	require.NoError(t, cart.UpdateQuantity(0, 4))
	require.NoError(t, cart.UpdateDiscount(0, d("5")))

	line := cart.Lines()[0]
	expected := line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)).Sub(line.Discount)
	require.True(t, line.Total.Equal(expected), "total %s expected %s", line.Total, expected)
}

func TestCartTotalsOrderIndependent(t *testing.T) {
	build := func(order []int) Totals {
		products := [][2]string{{"Aspirina", "12.30"}, {"Loratadina", "8.75"}, {"Omeprazol", "15.00"}}
		cart := NewCart(d("0.16"))
		for _, i := range order {
			cart.Add(int64(i+1), products[i][0], d(products[i][1]), false)
			require.NoError(t, cart.UpdateQuantity(cart.Len()-1, int64(i+2)))
			require.NoError(t, cart.UpdateDiscount(cart.Len()-1, d("1")))
		}
		return cart.Totals()
	}

	a := build([]int{0, 1, 2})
	b := build([]int{2, 0, 1})
	require.True(t, a.Subtotal.Equal(b.Subtotal))
	require.True(t, a.Discount.Equal(b.Discount))
	require.True(t, a.Tax.Equal(b.Tax))
	require.True(t, a.Total.Equal(b.Total))
}

func TestCartClearIdempotent(t *testing.T) {
	cart := NewCart(d("0.16"))
	cart.Add(1, "Paracetamol", d("10"), false)
	cart.Clear()
	once := cart.Totals()
	cart.Clear()
	twice := cart.Totals()

	require.Equal(t, 0, cart.Len())
	require.True(t, once.Total.Equal(twice.Total))
	require.True(t, once.Total.Equal(decimal.Zero))
}

func TestCartRejectsBadQuantityAndDiscount(t *testing.T) {
	cart := NewCart(d("0.16"))
	cart.Add(1, "Paracetamol", d("10"), false)

	require.ErrorIs(t, cart.UpdateQuantity(0, 0), ErrBadQuantity)
	require.ErrorIs(t, cart.UpdateQuantity(5, 1), ErrLineIndex)
	require.ErrorIs(t, cart.UpdateDiscount(0, d("-1")), ErrBadDiscount)
	require.ErrorIs(t, cart.UpdateDiscount(0, d("10.01")), ErrBadDiscount)
	require.ErrorIs(t, cart.Remove(3), ErrLineIndex)
}

func TestCartRemoveByPosition(t *testing.T) {
	cart := NewCart(d("0.16"))
	cart.Add(1, "A", d("1"), false)
	cart.Add(2, "B", d("2"), false)
	cart.Add(3, "C", d("3"), false)

	require.NoError(t, cart.Remove(1))
	require.Equal(t, 2, cart.Len())
	require.EqualValues(t, 1, cart.Lines()[0].ProductID)
	require.EqualValues(t, 3, cart.Lines()[1].ProductID)
}

func TestEmbeddedTaxExtraction(t *testing.T) {
	// tax-inclusive 11.50 at rate 0.15: embedded tax = 11.50*0.15/1.15 = 1.50
	tax := EmbeddedTax(d("11.50"), d("0.15"))
	require.True(t, tax.Equal(d("1.50")), "tax %s", tax)

	net := d("11.50").Sub(tax)
	require.True(t, net.Equal(d("10.00")), "net %s", net)
}

func TestInclusiveTotalsForQuotes(t *testing.T) {
	cart := NewCart(d("0.15"))
	cart.Add(1, "Jarabe", d("11.50"), false)

	totals := cart.InclusiveTotals()
	require.True(t, totals.Total.Equal(d("11.50")), "total %s", totals.Total)
	require.True(t, totals.Tax.Equal(d("1.50")), "tax %s", totals.Tax)
}

func TestTaxExemptLinesExcludedFromTax(t *testing.T) {
	cart := NewCart(d("0.16"))
	cart.Add(1, "Medicamento exento", d("50"), true)
	cart.Add(2, "Perfumeria", d("10"), false)

	totals := cart.Totals()
	require.True(t, totals.Subtotal.Equal(d("60")), "subtotal %s", totals.Subtotal)
	require.True(t, totals.Tax.Equal(d("1.60")), "tax %s", totals.Tax)
	require.True(t, totals.Total.Equal(d("61.60")), "total %s", totals.Total)
}
