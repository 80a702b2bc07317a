package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

const titleLimit = 50

type ProductView struct {
	ID       int           `json:"id"`
	Title    string        `json:"title"`
	Price    string        `json:"price"`
	Category string        `json:"category,omitempty"`
	Image    string        `json:"image"`
	Rating   domain.Rating `json:"rating"`
}

type LineView struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type CartView struct {
	Lines      []LineView `json:"lines"`
	TotalItems int        `json:"total_items"`
	Subtotal   string     `json:"subtotal"`
	Discount   string     `json:"discount"`
	Total      string     `json:"total"`
	Balance    string     `json:"balance"`
	Coupon     string     `json:"coupon,omitempty"`
	Warning    string     `json:"warning,omitempty"`
}

type OrderView struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Lines        []LineView `json:"lines"`
	Subtotal     string     `json:"subtotal"`
	Discount     string     `json:"discount"`
	Total        string     `json:"total"`
	BalanceAfter string     `json:"balance_after"`
	Coupon       string     `json:"coupon,omitempty"`
	CreatedAt    string     `json:"created_at"`
}

type ReviewView struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
	Stars   string `json:"stars"`
	Date    string `json:"date"`
}

// Presenter turns core values into display strings in the display
// currency.
type Presenter struct {
	factor   decimal.Decimal
	currency string
}

func NewPresenter(factor decimal.Decimal, currency string) Presenter {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return Presenter{factor: factor, currency: currency}
}

func (p Presenter) Money(amount decimal.Decimal) string {
	return domain.FormatMoney(amount, p.currency)
}

func (p Presenter) Product(prod domain.Product) ProductView {
	return ProductView{
		ID:       prod.ID,
		Title:    shortTitle(prod.Title),
		Price:    p.Money(prod.Price.Mul(p.factor)),
		Category: prod.Category,
		Image:    prod.Image,
		Rating:   prod.Rating,
	}
}

func (p Presenter) Products(products []domain.Product) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, prod := range products {
		out = append(out, p.Product(prod))
	}
	return out
}

// Cart renders the total as payable: a discount larger than the subtotal
// never shows a negative amount.
func (p Presenter) Cart(snap domain.Snapshot) CartView {
	return CartView{
		Lines:      p.lines(snap.Lines),
		TotalItems: snap.Totals.TotalItems,
		Subtotal:   p.Money(snap.Totals.Subtotal),
		Discount:   p.Money(snap.Totals.Discount),
		Total:      p.Money(snap.Totals.Payable()),
		Balance:    p.Money(snap.Balance),
		Coupon:     snap.Coupon,
		Warning:    snap.Warning,
	}
}

func (p Presenter) Order(o domain.Order) OrderView {
	return OrderView{
		ID:           o.ID,
		Status:       string(o.Status),
		Lines:        p.lines(o.Lines),
		Subtotal:     p.Money(o.Subtotal),
		Discount:     p.Money(o.Discount),
		Total:        p.Money(o.Total),
		BalanceAfter: p.Money(o.BalanceAfter),
		Coupon:       o.CouponCode,
		CreatedAt:    o.CreatedAt.Format(time.RFC3339),
	}
}

func (p Presenter) lines(cartLines []domain.CartLine) []LineView {
	lines := make([]LineView, 0, len(cartLines))
	for _, l := range cartLines {
		lines = append(lines, LineView{
			ID:        l.ProductID,
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: p.Money(l.UnitPrice.Mul(p.factor)),
			LineTotal: p.Money(l.LineTotal().Mul(p.factor)),
		})
	}
	return lines
}

func (p Presenter) Review(r domain.Review) ReviewView {
	return ReviewView{Name: r.Name, Comment: r.Comment, Stars: r.Stars(), Date: r.Date}
}

func shortTitle(title string) string {
	r := []rune(title)
	if len(r) > titleLimit {
		r = r[:titleLimit]
	}
	return string(r) + "..."
}
