package domain

// MaxQuantity is the largest quantity a single cart line may hold.
const MaxQuantity = 99

// CartLine is one product+size combination held in the cart. The pair
// (ProductID, Size) is the line's identity and is unique within a cart.
// Display fields are cached so the cart can render without the catalog.
type CartLine struct {
	ProductID string  `json:"product_id"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	NameEn    string  `json:"name_en"`
	NameAr    string  `json:"name_ar"`
	BrandEn   string  `json:"brand_en"`
	BrandAr   string  `json:"brand_ar"`
	ImageURL  string  `json:"image_url,omitempty"`
}

// Matches reports whether the line has the given identity.
func (l CartLine) Matches(productID, size string) bool {
	return l.ProductID == productID && l.Size == size
}

// LineTotal is UnitPrice times Quantity.
func (l CartLine) LineTotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// ClampQuantity clamps q to [1, MaxQuantity]. Callers handle q <= 0
// (which means removal) before clamping.
func ClampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}
