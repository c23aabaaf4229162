package lead

import "github.com/shopspring/decimal"

// Product is the CRM offer a lead is attributed to.
// It is fetched per submission and never cached.
type Product struct {
	SKU     string
	Price   decimal.Decimal
	Name    string
	Picture string
}
