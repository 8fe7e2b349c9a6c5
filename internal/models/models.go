package models

import "strings"

// Product holds the scraped data for a single product card.
type Product struct {
	Title       string
	Description string
	Price       float64
	Rating      int
	NumReviews  int
}

// SanitizeDescription replaces non-breaking spaces with ordinary ones.
func SanitizeDescription(s string) string {
	return strings.ReplaceAll(s, "\u00a0", " ")
}

// Sanitized returns a copy of p ready to be persisted.
func (p Product) Sanitized() Product {
	p.Description = SanitizeDescription(p.Description)
	return p
}
