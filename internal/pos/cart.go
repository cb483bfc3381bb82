package pos

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrLineIndex is returned when a cart operation references a line that does not exist.
	ErrLineIndex = errors.New("cart line index out of range")

	// ErrBadQuantity is returned when a quantity below 1 is given.
	ErrBadQuantity = errors.New("quantity must be at least 1")

	// ErrBadDiscount is returned when a discount is negative or exceeds the line amount.
	ErrBadDiscount = errors.New("discount must be between 0 and the line amount")
)

// CartLine is an in-progress, unpersisted product selection before checkout.
type CartLine struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	TaxExempt   bool            `json:"tax_exempt,omitempty"`
}

// Totals is the derived financial summary of a cart.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Cart accumulates sale lines and recomputes totals on demand.
// Totals are always derived from the lines, never stored.
type Cart struct {
	lines   []CartLine
	taxRate decimal.Decimal
}

// NewCart creates an empty cart using the given tax rate (e.g. 0.16).
func NewCart(taxRate decimal.Decimal) *Cart {
	return &Cart{taxRate: taxRate}
}

// Add puts a product in the cart. If the product is already present its
// quantity is incremented by one; otherwise a new line with quantity 1 and
// no discount is appended.
func (c *Cart) Add(productID int64, name string, unitPrice decimal.Decimal, taxExempt bool) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity++
			c.lines[i].Total = lineTotal(c.lines[i])
			return
		}
	}
	line := CartLine{
		ProductID:   productID,
		ProductName: name,
		Quantity:    1,
		UnitPrice:   unitPrice,
		Discount:    decimal.Zero,
		TaxExempt:   taxExempt,
	}
	line.Total = lineTotal(line)
	c.lines = append(c.lines, line)
}

// UpdateQuantity overwrites the quantity of the line at index i.
func (c *Cart) UpdateQuantity(i int, quantity int64) error {
	if i < 0 || i >= len(c.lines) {
		return ErrLineIndex
	}
	if quantity < 1 {
		return ErrBadQuantity
	}
	c.lines[i].Quantity = quantity
	if c.lines[i].Discount.GreaterThan(lineAmount(c.lines[i])) {
		return ErrBadDiscount
	}
	c.lines[i].Total = lineTotal(c.lines[i])
	return nil
}

// UpdateDiscount overwrites the discount of the line at index i.
func (c *Cart) UpdateDiscount(i int, discount decimal.Decimal) error {
	if i < 0 || i >= len(c.lines) {
		return ErrLineIndex
	}
	if discount.IsNegative() || discount.GreaterThan(lineAmount(c.lines[i])) {
		return ErrBadDiscount
	}
	c.lines[i].Discount = discount
	c.lines[i].Total = lineTotal(c.lines[i])
	return nil
}

// Remove deletes the line at index i.
func (c *Cart) Remove(i int) error {
	if i < 0 || i >= len(c.lines) {
		return ErrLineIndex
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return nil
}

// Clear empties the cart. Clearing an empty cart is a no-op.
func (c *Cart) Clear() {
	c.lines = nil
}

// Len returns the number of lines in the cart.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Totals computes subtotal, discount, tax and total for the current lines.
// Tax applies to the discounted amount of non-exempt lines and is rounded
// to two decimals.
func (c *Cart) Totals() Totals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	taxable := decimal.Zero
	for _, line := range c.lines {
		subtotal = subtotal.Add(lineAmount(line))
		discount = discount.Add(line.Discount)
		if !line.TaxExempt {
			taxable = taxable.Add(lineTotal(line))
		}
	}
	tax := taxable.Mul(c.taxRate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    subtotal.Sub(discount).Add(tax),
	}
}

// InclusiveTotals computes totals for quote flows where unit prices already
// embed the tax: the tax portion is extracted as amount*rate/(1+rate)
// instead of being added on top.
func (c *Cart) InclusiveTotals() Totals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	taxable := decimal.Zero
	for _, line := range c.lines {
		subtotal = subtotal.Add(lineAmount(line))
		discount = discount.Add(line.Discount)
		if !line.TaxExempt {
			taxable = taxable.Add(lineTotal(line))
		}
	}
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      EmbeddedTax(taxable, c.taxRate),
		Total:    subtotal.Sub(discount),
	}
}

// EmbeddedTax extracts the tax already contained in a tax-inclusive amount.
func EmbeddedTax(amount, rate decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	return amount.Mul(rate).Div(one.Add(rate)).Round(2)
}

func lineAmount(l CartLine) decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

func lineTotal(l CartLine) decimal.Decimal {
	return lineAmount(l).Sub(l.Discount)
}
