package receipt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"farmapos/domain"
	"farmapos/internal/pos"
)

const minPaperWidth = 32

// Receipt is everything the formatter needs. Formatting is pure: the
// resulting string is handed to a printer collaborator elsewhere.
type Receipt struct {
	Sale         domain.Sale
	Items        []pos.CartLine
	Client       *domain.Client
	Cashier      string
	CashReceived decimal.Decimal
	Change       decimal.Decimal
}

// Format renders a fixed-width ticket sized to the configured paper width.
func Format(r Receipt, company domain.CompanySettings) string {
	width := company.PaperWidth
	if width < minPaperWidth {
		width = minPaperWidth
	}
	rule := strings.Repeat("-", width)

	var b strings.Builder
	writeCentered(&b, company.Name, width)
	if company.TaxID != "" {
		writeCentered(&b, "RFC: "+company.TaxID, width)
	}
	if company.Address != "" {
		writeCentered(&b, company.Address, width)
	}
	if company.Phone != "" {
		writeCentered(&b, "Tel: "+company.Phone, width)
	}
	b.WriteString(rule + "\n")

	b.WriteString("Ticket: " + r.Sale.SaleNumber + "\n")
	b.WriteString("Fecha:  " + r.Sale.CreatedAt + "\n")
	if r.Cashier != "" {
		b.WriteString("Cajero: " + r.Cashier + "\n")
	}
	if r.Client != nil {
		b.WriteString("Cliente: " + r.Client.Name + "\n")
	}
	b.WriteString(rule + "\n")

	for _, item := range r.Items {
		b.WriteString(truncate(item.ProductName, width) + "\n")
		detail := fmt.Sprintf("  %d x %s", item.Quantity, item.UnitPrice.StringFixed(2))
		if item.Discount.IsPositive() {
			detail += " -" + item.Discount.StringFixed(2)
		}
		writeAmountLine(&b, detail, item.Total, width)
	}
	b.WriteString(rule + "\n")

	writeAmountLine(&b, "Subtotal", r.Sale.Subtotal, width)
	if r.Sale.DiscountAmount.IsPositive() {
		writeAmountLine(&b, "Descuento", r.Sale.DiscountAmount.Neg(), width)
	}
	writeAmountLine(&b, "IVA", r.Sale.TaxAmount, width)
	writeAmountLine(&b, "TOTAL", r.Sale.TotalAmount, width)
	b.WriteString(rule + "\n")

	b.WriteString("Pago: " + r.Sale.PaymentMethod + "\n")
	if r.CashReceived.IsPositive() {
		writeAmountLine(&b, "Recibido", r.CashReceived, width)
		writeAmountLine(&b, "Cambio", r.Change, width)
	}

	if company.ReceiptFooter != "" {
		b.WriteString(rule + "\n")
		writeCentered(&b, company.ReceiptFooter, width)
	}
	return b.String()
}

// Width math counts runes, not bytes, so accented names line up and are
// never cut mid-rune.

func writeCentered(b *strings.Builder, s string, width int) {
	s = truncate(s, width)
	pad := (width - utf8.RuneCountInString(s)) / 2
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString(s + "\n")
}

func writeAmountLine(b *strings.Builder, label string, amount decimal.Decimal, width int) {
	value := amount.StringFixed(2)
	space := width - utf8.RuneCountInString(label) - len(value)
	if space < 1 {
		label = truncate(label, width-len(value)-1)
		space = width - utf8.RuneCountInString(label) - len(value)
		if space < 1 {
			space = 1
		}
	}
	b.WriteString(label + strings.Repeat(" ", space) + value + "\n")
}

func truncate(s string, width int) string {
	if width < 1 {
		return ""
	}
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width])
}
