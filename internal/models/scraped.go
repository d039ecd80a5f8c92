package models

import "github.com/shopspring/decimal"

// ScrapedProduct is a product as read from the partner site, before it is
// reconciled against the catalog
type ScrapedProduct struct {
	SourceID       string
	Name           string
	URL            string
	Description    string
	Price          decimal.Decimal
	Availability   Availability
	Images         []string
	Specifications map[string]string
	Variants       []map[string]string
}
