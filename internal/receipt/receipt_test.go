package receipt

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"farmapos/domain"
	"farmapos/internal/pos"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func sampleReceipt() Receipt {
	return Receipt{
		Sale: domain.Sale{
			SaleNumber:     "V-00012345",
			Subtotal:       d("20"),
			DiscountAmount: d("0"),
			TaxAmount:      d("3.20"),
			TotalAmount:    d("23.20"),
			PaymentMethod:  domain.PaymentCash,
			CreatedAt:      "2026-08-29 10:30:00",
		},
		Items: []pos.CartLine{
			{ProductID: 1, ProductName: "Paracetamol 500mg", Quantity: 2, UnitPrice: d("10"), Discount: d("0"), Total: d("20")},
		},
		Cashier:      "caja1",
		CashReceived: d("50"),
		Change:       d("26.80"),
	}
}

func sampleCompany() domain.CompanySettings {
	return domain.CompanySettings{
		Name:          "Farmacia San Rafael",
		TaxID:         "FSR010203XYZ",
		Address:       "Av. Juarez 123",
		Phone:         "555-0142",
		ReceiptFooter: "Gracias por su compra",
		PaperWidth:    40,
		TaxRate:       d("0.16"),
	}
}

func TestFormatContainsSaleData(t *testing.T) {
	out := Format(sampleReceipt(), sampleCompany())

	require.Contains(t, out, "Farmacia San Rafael")
	require.Contains(t, out, "RFC: FSR010203XYZ")
	require.Contains(t, out, "Ticket: V-00012345")
	require.Contains(t, out, "Cajero: caja1")
	require.Contains(t, out, "Paracetamol 500mg")
	require.Contains(t, out, "2 x 10.00")
	require.Contains(t, out, "23.20")
	require.Contains(t, out, "Pago: efectivo")
	require.Contains(t, out, "Cambio")
	require.Contains(t, out, "26.80")
	require.Contains(t, out, "Gracias por su compra")
}

func TestFormatRespectsPaperWidth(t *testing.T) {
	company := sampleCompany()
	company.PaperWidth = 48
	out := Format(sampleReceipt(), company)

	for _, line := range strings.Split(out, "\n") {
		require.LessOrEqual(t, len(line), 48, "line %q", line)
	}
	require.Contains(t, out, strings.Repeat("-", 48))
}

func TestFormatEnforcesMinimumWidth(t *testing.T) {
	company := sampleCompany()
	company.PaperWidth = 10
	out := Format(sampleReceipt(), company)

	require.Contains(t, out, strings.Repeat("-", 32))
}

func TestFormatIsPure(t *testing.T) {
	r := sampleReceipt()
	company := sampleCompany()
	require.Equal(t, Format(r, company), Format(r, company))
}

func TestFormatOmitsOptionalSections(t *testing.T) {
	r := sampleReceipt()
	r.Cashier = ""
	r.Client = nil
	r.CashReceived = decimal.Zero
	company := sampleCompany()
	company.TaxID = ""
	company.ReceiptFooter = ""

	out := Format(r, company)
	require.NotContains(t, out, "Cajero:")
	require.NotContains(t, out, "Cliente:")
	require.NotContains(t, out, "RFC:")
	require.NotContains(t, out, "Recibido")
	require.NotContains(t, out, "Cambio")
}

func TestFormatShowsDiscountLine(t *testing.T) {
	r := sampleReceipt()
	r.Sale.DiscountAmount = d("5")
	r.Items[0].Discount = d("5")
	r.Items[0].Total = d("15")

	out := Format(r, sampleCompany())
	require.Contains(t, out, "Descuento")
	require.Contains(t, out, "-5.00")
}

func TestFormatNamesClient(t *testing.T) {
	r := sampleReceipt()
	r.Client = &domain.Client{Name: "Ana Torres"}

	out := Format(r, sampleCompany())
	require.Contains(t, out, "Cliente: Ana Torres")
}

func TestFormatKeepsAccentedTextValidUTF8(t *testing.T) {
	r := sampleReceipt()
	r.Items[0].ProductName = "Jarabe Ambroxol Sabor Cereza 12ágr"
	r.Client = &domain.Client{Name: "María Muñoz Ibáñez"}
	company := sampleCompany()
	company.Name = "Farmacia Ñandú número uno, sucursal céntrica"
	company.PaperWidth = 32

	out := Format(r, company)
	require.True(t, utf8.ValidString(out), "output contains a broken rune")
	for _, line := range strings.Split(out, "\n") {
		require.LessOrEqual(t, utf8.RuneCountInString(line), 32, "line %q", line)
	}
}

func TestFormatSurvivesOversizedAmounts(t *testing.T) {
	r := sampleReceipt()
	r.Sale.TotalAmount = d("123456789012345678901234567890.99")
	company := sampleCompany()
	company.PaperWidth = 32

	require.NotPanics(t, func() { Format(r, company) })
}

func TestDrawerKickCommand(t *testing.T) {
	cmd := DrawerKickCommand()
	require.Equal(t, []byte{0x1B, 0x70, 0x00, 0x19, 0xFA}, cmd)

	// Each call returns a fresh slice; mutating one must not leak.
	cmd[0] = 0
	require.Equal(t, byte(0x1B), DrawerKickCommand()[0])
}
