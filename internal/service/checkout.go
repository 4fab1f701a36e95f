package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ma5621/perf-working/internal/domain"
)

var (
	ErrCheckoutBlocked = errors.New("checkout is not ready")
	ErrCartEmpty       = errors.New("cart is empty")
)

// DefaultWhatsAppPhone is used when settings cannot be fetched at all.
const DefaultWhatsAppPhone = "+201234567890"

// CheckoutGate decides whether the place-order action may proceed and
// composes the outbound order message. It keeps one session per device
// holding the latest diagnostics and the checkout state machine.
type CheckoutGate struct {
	cart      *CartService
	rec       *Reconciler
	settings  *SettingsProvider
	publisher OrderPublisher // optional

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	state  domain.CheckoutState
	diag   *domain.Diagnostics
	loaded bool
	// gen counts user-driven cart mutations. A pass only marks stock
	// knowledge loaded when no mutation raced it.
	gen uint64
}

func NewCheckoutGate(cart *CartService, rec *Reconciler, settings *SettingsProvider, publisher OrderPublisher) *CheckoutGate {
	g := &CheckoutGate{
		cart:      cart,
		rec:       rec,
		settings:  settings,
		publisher: publisher,
		sessions:  make(map[string]*session),
	}
	cart.OnMutate(g.invalidate)
	return g
}

func (g *CheckoutGate) session(deviceID string) *session {
	s, ok := g.sessions[deviceID]
	if !ok {
		s = &session{state: domain.StateIdle}
		g.sessions[deviceID] = s
	}
	return s
}

// invalidate marks the device's stock knowledge stale after a cart
// mutation; checkout stays gated until the next completed pass.
func (g *CheckoutGate) invalidate(deviceID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.session(deviceID)
	s.loaded = false
	s.gen++
	if s.state != domain.StateReconciling {
		s.state = domain.StateIdle
	}
}

// TriggerReconcile runs one reconciliation pass and publishes its
// diagnostics into the device's session. The hosting application calls
// it when the cart view is shown or foregrounded; SubmitOrder calls it
// before every checkout.
func (g *CheckoutGate) TriggerReconcile(ctx context.Context, deviceID string) (*domain.Diagnostics, error) {
	diag, _, err := g.runPass(ctx, deviceID)
	return diag, err
}

func (g *CheckoutGate) runPass(ctx context.Context, deviceID string) (*domain.Diagnostics, []domain.CartLine, error) {
	g.mu.Lock()
	s := g.session(deviceID)
	startGen := s.gen
	prevState := s.state
	s.state = domain.StateReconciling
	g.mu.Unlock()

	diag, survivors, err := g.rec.Reconcile(ctx, deviceID)

	g.mu.Lock()
	defer g.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrPassInFlight) {
			// Another pass owns the session state; leave it alone.
			return nil, nil, err
		}
		s.state = prevState
		return nil, nil, err
	}

	s.diag = diag

	if len(survivors) == 0 {
		// Cart ended the pass empty (either it was empty, everything
		// was removed, or the user cleared it mid-pass). Diagnostics
		// for removals still stand, stale stock statuses do not.
		if s.gen != startGen {
			// A line added while the pass ran was never checked.
			s.state = domain.StateBlocked
			return diag, nil, nil
		}
		s.loaded = true
		s.state = domain.StateIdle
		return diag, nil, nil
	}

	if s.gen != startGen {
		// The user mutated the cart while the pass ran. The pass did
		// not see those lines, so stock knowledge stays stale.
		s.state = domain.StateBlocked
		return diag, survivors, nil
	}

	s.loaded = diag.Complete
	if diag.Complete && !hasBlockingStatus(diag) {
		s.state = domain.StateReady
	} else {
		s.state = domain.StateBlocked
	}
	return diag, survivors, nil
}

func hasBlockingStatus(diag *domain.Diagnostics) bool {
	for _, status := range diag.StockStatuses {
		if status.Blocking() {
			return true
		}
	}
	return false
}

// Readiness derives the current checkout-readiness signal. A line whose
// stock status is unknown is never treated as in stock.
func (g *CheckoutGate) Readiness(ctx context.Context, deviceID string) (domain.Readiness, error) {
	lines, err := g.cart.Lines(ctx, deviceID)
	if err != nil {
		return domain.Readiness{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.session(deviceID)

	if len(lines) == 0 {
		// The checkout control is hidden for an empty cart, not gated.
		// Drop the session so abandoned devices do not accumulate.
		if s.state != domain.StateReconciling {
			delete(g.sessions, deviceID)
		}
		return domain.Readiness{
			CartEmpty:         true,
			StockStatusLoaded: true,
			State:             domain.StateIdle,
		}, nil
	}

	hasOOS := false
	if s.diag != nil {
		for _, line := range lines {
			if status, ok := s.diag.StockStatuses[line.ProductID]; ok && status.Blocking() {
				hasOOS = true
				break
			}
		}
	}

	inFlight := s.state == domain.StateReconciling

	return domain.Readiness{
		StockStatusLoaded:  s.loaded,
		HasOutOfStockLines: hasOOS,
		ReconcileInFlight:  inFlight,
		MayCheckout:        s.loaded && !hasOOS && !inFlight,
		State:              s.state,
	}, nil
}

// SubmitOrder runs a fresh reconciliation pass, verifies readiness and
// returns the outbound WhatsApp deep link. Checkout is never attempted
// against stale diagnostics. Submitting while blocked is an error, the
// state machine never reaches Submitted without passing Reconciling.
func (g *CheckoutGate) SubmitOrder(ctx context.Context, deviceID, notes, language string) (string, error) {
	_, survivors, err := g.runPass(ctx, deviceID)
	if err != nil {
		return "", err
	}
	if len(survivors) == 0 {
		return "", ErrCartEmpty
	}

	readiness, err := g.Readiness(ctx, deviceID)
	if err != nil {
		return "", err
	}
	if !readiness.MayCheckout {
		return "", ErrCheckoutBlocked
	}

	var total float64
	for _, l := range survivors {
		total += l.LineTotal()
	}

	phone := g.whatsAppPhone(ctx)
	message := ComposeOrderMessage(survivors, total, notes, language)

	if g.publisher != nil {
		event := domain.OrderSubmitted{
			DeviceID:    deviceID,
			Lines:       survivors,
			TotalPrice:  total,
			Notes:       notes,
			SubmittedAt: time.Now().UTC(),
		}
		if err := g.publisher.PublishOrderSubmitted(ctx, event); err != nil {
			log.Printf("failed to publish order event: %v", err)
		}
	}

	return OrderURL(phone, message), nil
}

// whatsAppPhone fetches the latest configured number, falling back to
// the cached copy and finally the default. An unreachable settings API
// never blocks an otherwise ready checkout.
func (g *CheckoutGate) whatsAppPhone(ctx context.Context) string {
	if g.settings == nil {
		return DefaultWhatsAppPhone
	}
	phone, err := g.settings.WhatsAppPhone(ctx)
	if err != nil {
		log.Printf("failed to fetch settings: %v", err)
		return DefaultWhatsAppPhone
	}
	if phone == "" {
		return DefaultWhatsAppPhone
	}
	return phone
}

// ComposeOrderMessage builds the human-readable order summary: one row
// per line, the grand total and optional free-text notes. It is pure
// and must only be called once checkout readiness is established.
func ComposeOrderMessage(lines []domain.CartLine, total float64, notes, language string) string {
	var b strings.Builder
	b.WriteString("Hello! I'd like to order the following perfumes from Top Notes:\n\n")

	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "• %s (%s) - %s - Qty: %d - %s EGP",
			l.NameEn, l.BrandEn, l.Size, l.Quantity, formatPrice(l.LineTotal()))
	}

	fmt.Fprintf(&b, "\n\nTotal: %s EGP\n\nThank you!", formatPrice(total))

	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		label := "Notes:"
		if language == "ar" {
			label = "ملاحظات"
		}
		fmt.Fprintf(&b, "\n\n%s %s", label, trimmed)
	}

	return b.String()
}

// OrderURL embeds the message into a WhatsApp deep link. Opening the
// link is the caller's responsibility.
func OrderURL(phone, message string) string {
	query := url.Values{"text": {message}}
	return fmt.Sprintf("https://wa.me/%s?%s", strings.TrimPrefix(phone, "+"), query.Encode())
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
