package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ma5621/perf-working/internal/domain"
	"github.com/ma5621/perf-working/internal/service"
)

type CartHandler struct {
	cart *service.CartService
	gate *service.CheckoutGate
}

func NewCartHandler(cart *service.CartService, gate *service.CheckoutGate) *CartHandler {
	return &CartHandler{
		cart: cart,
		gate: gate,
	}
}

// Routes mounts the cart API on the given router.
func (h *CartHandler) Routes(r chi.Router) {
	r.Get("/", h.GetCart)
	r.Post("/items", h.AddItem)
	r.Put("/items", h.UpdateQuantity)
	r.Delete("/items/{productID}/{size}", h.RemoveItem)
	r.Post("/clear", h.ClearCart)
	r.Put("/notes", h.UpdateNotes)
	r.Post("/reconcile", h.Reconcile)
	r.Get("/readiness", h.Readiness)
	r.Post("/checkout", h.Checkout)
}

type AddItemRequestDTO struct {
	ProductID string  `json:"product_id"`
	Size      string  `json:"size"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	NameEn    string  `json:"name_en"`
	NameAr    string  `json:"name_ar"`
	BrandEn   string  `json:"brand_en"`
	BrandAr   string  `json:"brand_ar"`
	ImageURL  string  `json:"image_url"`
}

type UpdateQuantityRequestDTO struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

type UpdateNotesRequestDTO struct {
	Notes string `json:"notes"`
}

type CheckoutRequestDTO struct {
	Notes    string `json:"notes"`
	Language string `json:"language"`
}

type CartResponseDTO struct {
	Lines      []domain.CartLine `json:"lines"`
	TotalPrice float64           `json:"total_price"`
	TotalCount int               `json:"total_count"`
	Notes      string            `json:"notes,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := getDeviceID(ctx)

	lines, err := h.cart.Lines(ctx, deviceID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}
	if lines == nil {
		lines = []domain.CartLine{}
	}

	notes, err := h.cart.Notes(ctx, deviceID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load notes")
		return
	}

	resp := CartResponseDTO{Lines: lines, Notes: notes}
	for _, l := range lines {
		resp.TotalPrice += l.LineTotal()
		resp.TotalCount += l.Quantity
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := getDeviceID(ctx)

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Size == "" {
		respondError(w, http.StatusBadRequest, "invalid_size", "size is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > domain.MaxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	if req.UnitPrice < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "unit_price must not be negative")
		return
	}

	err := h.cart.AddLine(ctx, deviceID, domain.CartLine{
		ProductID: req.ProductID,
		Size:      req.Size,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		NameEn:    req.NameEn,
		NameAr:    req.NameAr,
		BrandEn:   req.BrandEn,
		BrandAr:   req.BrandAr,
		ImageURL:  req.ImageURL,
	})
	if err != nil {
		if errors.Is(err, service.ErrMissingProductID) {
			respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
			return
		}
		log.Printf("add item failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to add item")
		return
	}

	h.GetCart(w, r)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := getDeviceID(ctx)

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" || req.Size == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "product_id and size are required")
		return
	}

	// A quantity of zero or less deletes the line.
	if err := h.cart.SetQuantity(ctx, deviceID, req.ProductID, req.Size, req.Quantity); err != nil {
		log.Printf("update quantity failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update quantity")
		return
	}

	h.GetCart(w, r)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := getDeviceID(ctx)

	productID := chi.URLParam(r, "productID")
	size := chi.URLParam(r, "size")

	if err := h.cart.RemoveLine(ctx, deviceID, productID, size); err != nil {
		log.Printf("remove item failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to remove item")
		return
	}

	h.GetCart(w, r)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := getDeviceID(ctx)

	if err := h.cart.Clear(ctx, deviceID); err != nil {
		log.Printf("clear cart failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to clear cart")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *CartHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := getDeviceID(ctx)

	var req UpdateNotesRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.cart.SetNotes(ctx, deviceID, req.Notes); err != nil {
		log.Printf("update notes failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to save notes")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// Reconcile is the explicit trigger the hosting application fires when
// the cart view is shown or foregrounded.
func (h *CartHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := getDeviceID(ctx)

	diag, err := h.gate.TriggerReconcile(ctx, deviceID)
	if err != nil {
		if errors.Is(err, service.ErrPassInFlight) {
			respondError(w, http.StatusConflict, "pass_in_flight", "a reconciliation pass is already running")
			return
		}
		log.Printf("reconcile failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "reconciliation failed")
		return
	}

	respondJSON(w, http.StatusOK, diag)
}

func (h *CartHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := getDeviceID(ctx)

	readiness, err := h.gate.Readiness(ctx, deviceID)
	if err != nil {
		log.Printf("readiness failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to derive readiness")
		return
	}

	respondJSON(w, http.StatusOK, readiness)
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := getDeviceID(ctx)

	var req CheckoutRequestDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	// Fall back to the stored order notes when the request carries none.
	if req.Notes == "" {
		notes, err := h.cart.Notes(ctx, deviceID)
		if err == nil {
			req.Notes = notes
		}
	}

	outbound, err := h.gate.SubmitOrder(ctx, deviceID, req.Notes, req.Language)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPassInFlight):
			respondError(w, http.StatusConflict, "pass_in_flight", "a reconciliation pass is already running")
		case errors.Is(err, service.ErrCartEmpty):
			respondError(w, http.StatusUnprocessableEntity, "cart_empty", "cart is empty")
		case errors.Is(err, service.ErrCheckoutBlocked):
			respondError(w, http.StatusUnprocessableEntity, "checkout_blocked", "some items are unavailable or stock is still being checked")
		default:
			log.Printf("checkout failed: %v", err)
			respondError(w, http.StatusInternalServerError, "internal_error", "checkout failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": outbound})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, details string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Details: details,
	})
}
