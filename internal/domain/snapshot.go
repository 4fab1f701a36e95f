package domain

import "strings"

// StockStatus is a normalized stock state string, e.g. "in_stock".
type StockStatus string

const (
	StockInStock      StockStatus = "in_stock"
	StockLowStock     StockStatus = "low_stock"
	StockOutOfStock   StockStatus = "out_of_stock"
	StockDiscontinued StockStatus = "discontinued"
)

// NormalizeStockStatus lowercases raw and collapses whitespace runs into
// underscores, so "Out of Stock" becomes "out_of_stock". An empty value
// defaults to in_stock. Unrecognized values are kept as-is; they gate
// nothing (see Blocking).
func NormalizeStockStatus(raw string) StockStatus {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return StockInStock
	}
	return StockStatus(strings.Join(fields, "_"))
}

// Blocking reports whether the status blocks checkout.
func (s StockStatus) Blocking() bool {
	return s == StockOutOfStock || s == StockDiscontinued
}

// SizePrice is one purchasable size of a product.
type SizePrice struct {
	Size     string  `json:"size"`
	PriceEGP float64 `json:"priceEGP"`
}

// CatalogSnapshot is a read-only projection of a product fetched at
// reconciliation time. It is never persisted and never mutated.
type CatalogSnapshot struct {
	ProductID     string
	IsActive      bool
	StockStatus   StockStatus
	Sizes         []SizePrice
	NameEn        string
	NameAr        string
	BrandEn       string
	BrandAr       string
	DescriptionEn string
	DescriptionAr string
	ImageURL      string
}

// PriceFor returns the current price for the given size, or false when
// the size is no longer offered.
func (s *CatalogSnapshot) PriceFor(size string) (float64, bool) {
	for _, sp := range s.Sizes {
		if sp.Size == size {
			return sp.PriceEGP, true
		}
	}
	return 0, false
}
