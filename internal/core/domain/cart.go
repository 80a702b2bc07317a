package domain

import "github.com/shopspring/decimal"

// CartLine is one product entry in the cart. UnitPrice is the catalog price
// captured when the line was first added, before any display scaling.
type CartLine struct {
	ProductID int             `json:"id"`
	Title     string          `json:"title,omitempty"`
	Image     string          `json:"image,omitempty"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart keeps at most one line per product, in insertion order. Lines never
// hold a quantity below one. The zero value is an empty cart.
type Cart struct {
	lines []CartLine
}

// NewCart builds a cart from persisted lines, dropping lines with a
// non-positive quantity or a negative price and merging duplicate products
// into the first occurrence.
func NewCart(lines []CartLine) Cart {
	var c Cart
	for _, l := range lines {
		if l.Quantity <= 0 || l.UnitPrice.IsNegative() {
			continue
		}
		if i := c.index(l.ProductID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c
}

func (c *Cart) index(productID int) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Line(productID int) (CartLine, bool) {
	if i := c.index(productID); i >= 0 {
		return c.lines[i], true
	}
	return CartLine{}, false
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Clone() Cart {
	return Cart{lines: c.Lines()}
}

// TotalItems is the sum of all quantities.
func (c *Cart) TotalItems() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Subtotal is Σ quantity × unit price, scaled by the display factor.
func (c *Cart) Subtotal(factor decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.LineTotal())
	}
	return sum.Mul(factor)
}

// Add increments the line for p or appends a new line with quantity 1.
func (c *Cart) Add(p Product) {
	if i := c.index(p.ID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, CartLine{
		ProductID: p.ID,
		Title:     p.Title,
		Image:     p.Image,
		UnitPrice: p.Price,
		Quantity:  1,
	})
}

// Adjust applies delta to the line quantity and removes the line once the
// quantity drops to zero or below. It reports whether the line existed.
func (c *Cart) Adjust(productID, delta int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.lines[i].Quantity += delta
	if c.lines[i].Quantity <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
	return true
}

// Remove deletes the line for productID and reports whether it was present.
func (c *Cart) Remove(productID int) bool {
	i := c.index(productID)
	if i < 0 {
		return false
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Totals are the derived cart figures handed to renderers.
type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	TotalItems int             `json:"total_items"`
}

// Payable is the total as displayed: never negative, rounded to cents.
func (t Totals) Payable() decimal.Decimal {
	if t.Total.IsNegative() {
		return decimal.Zero
	}
	return t.Total.Round(2)
}

// Snapshot is the full derived state pushed to the rendering side after a
// mutation.
type Snapshot struct {
	Lines   []CartLine      `json:"lines"`
	Totals  Totals          `json:"totals"`
	Balance decimal.Decimal `json:"balance"`
	Coupon  string          `json:"coupon,omitempty"`
	Warning string          `json:"warning,omitempty"`
}
