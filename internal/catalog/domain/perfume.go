package domain

import "time"

// SizePrice is one purchasable size of a perfume. The JSON field names
// match the public API payloads.
type SizePrice struct {
	Size     string  `json:"size"`
	PriceEGP float64 `json:"priceEGP"`
}

// Perfume is a catalog record with bilingual display fields.
type Perfume struct {
	ID            string      `json:"id"`
	NameEn        string      `json:"nameEn"`
	NameAr        string      `json:"nameAr"`
	BrandEn       string      `json:"brandEn"`
	BrandAr       string      `json:"brandAr"`
	CategoryEn    string      `json:"categoryEn"`
	CategoryAr    string      `json:"categoryAr"`
	GenderEn      string      `json:"genderEn"`
	GenderAr      string      `json:"genderAr"`
	DescriptionEn string      `json:"descriptionEn"`
	DescriptionAr string      `json:"descriptionAr"`
	Sizes         []SizePrice `json:"sizes"`
	StockStatus   string      `json:"stockStatus"`
	ImageURL      string      `json:"imageUrl,omitempty"`
	IsNew         bool        `json:"isNew"`
	IsBestseller  bool        `json:"isBestseller"`
	IsActive      bool        `json:"isActive"`
	CreatedAt     time.Time   `json:"-"`
	UpdatedAt     time.Time   `json:"-"`
}

// ListFilter narrows a catalog listing. Empty fields are ignored.
// Language selects which localized column the text filters match.
type ListFilter struct {
	Language    string
	Search      string
	Brand       string
	Category    string
	Gender      string
	StockStatus string
	Page        int
	Limit       int
}

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}
