package domain

import "time"

// RemovalReason explains why the reconciler deleted a cart line.
type RemovalReason string

const (
	RemovalProductInactive RemovalReason = "product_inactive"
	RemovalSizeUnavailable RemovalReason = "size_unavailable"
)

// PriceNotice describes a single price correction applied during a
// reconciliation pass. Only the last divergence found in a pass is kept.
type PriceNotice struct {
	ProductID string  `json:"product_id"`
	NameEn    string  `json:"name_en"`
	NameAr    string  `json:"name_ar"`
	OldPrice  float64 `json:"old_price"`
	NewPrice  float64 `json:"new_price"`
}

// Diagnostics is the output of one reconciliation pass. Each pass fully
// replaces the diagnostics of the previous one.
type Diagnostics struct {
	// Removals maps productID to the reason its line was deleted.
	Removals map[string]RemovalReason `json:"removals"`
	// PriceNotice holds the last price divergence found, if any.
	PriceNotice *PriceNotice `json:"price_notice,omitempty"`
	// StockStatuses maps productID to normalized status for every line
	// that survived the pass. A line whose fetch failed is absent.
	StockStatuses map[string]StockStatus `json:"stock_statuses"`
	// Complete is true when every surviving line resolved to a status.
	Complete bool `json:"complete"`
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		Removals:      make(map[string]RemovalReason),
		StockStatuses: make(map[string]StockStatus),
	}
}

// Empty reports whether the pass found nothing to correct, which is the
// expected outcome of reconciling twice against an unchanged catalog.
func (d *Diagnostics) Empty() bool {
	return len(d.Removals) == 0 && d.PriceNotice == nil
}

// CheckoutState is the state of the checkout control for one cart.
type CheckoutState string

const (
	StateIdle        CheckoutState = "idle"
	StateReconciling CheckoutState = "reconciling"
	StateReady       CheckoutState = "ready"
	StateBlocked     CheckoutState = "blocked"
)

// Readiness is derived from the latest diagnostics; it is never stored.
type Readiness struct {
	CartEmpty          bool          `json:"cart_empty"`
	StockStatusLoaded  bool          `json:"stock_status_loaded"`
	HasOutOfStockLines bool          `json:"has_out_of_stock_lines"`
	ReconcileInFlight  bool          `json:"reconcile_in_flight"`
	MayCheckout        bool          `json:"may_checkout"`
	State              CheckoutState `json:"state"`
}

// OrderSubmitted is the event published when a checkout completes.
type OrderSubmitted struct {
	DeviceID    string     `json:"device_id"`
	Lines       []CartLine `json:"lines"`
	TotalPrice  float64    `json:"total_price"`
	Notes       string     `json:"notes,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
}
