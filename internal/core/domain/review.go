package domain

import (
	"net/mail"
	"strings"
)

const maxStars = 5

type Review struct {
	Name    string `json:"name" yaml:"name"`
	Comment string `json:"comment" yaml:"comment"`
	Rating  int    `json:"rating" yaml:"rating"`
	Date    string `json:"date" yaml:"date"`
}

// Stars renders the rating as filled and empty stars out of five.
func (r Review) Stars() string {
	n := min(max(r.Rating, 0), maxStars)
	return strings.Repeat("★", n) + strings.Repeat("☆", maxStars-n)
}

// DefaultReviews seeds the review carousel when no reviews are configured.
func DefaultReviews() []Review {
	return []Review{
		{Name: "Jasim", Comment: "Amazing products and fast delivery!", Rating: 5, Date: "2025-10-01"},
		{Name: "Akbar", Comment: "Great quality, highly recommend.", Rating: 4, Date: "2025-10-05"},
		{Name: "Sokina", Comment: "Good value for money.", Rating: 4, Date: "2025-10-10"},
		{Name: "Damish", Comment: "Excellent customer service.", Rating: 5, Date: "2025-10-12"},
	}
}

type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Normalize trims surrounding whitespace from every field.
func (m ContactMessage) Normalize() ContactMessage {
	return ContactMessage{
		Name:    strings.TrimSpace(m.Name),
		Email:   strings.TrimSpace(m.Email),
		Message: strings.TrimSpace(m.Message),
	}
}

// Validate requires every field and an address with an "@".
func (m ContactMessage) Validate() error {
	n := m.Normalize()
	if n.Name == "" || n.Email == "" || n.Message == "" {
		return ErrMissingFields
	}
	if !strings.Contains(n.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// Address returns the parsed sender address when the email is RFC 5322
// formed, falling back to the raw value.
func (m ContactMessage) Address() string {
	if a, err := mail.ParseAddress(m.Email); err == nil {
		return a.Address
	}
	return m.Email
}
