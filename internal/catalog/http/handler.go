package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ma5621/perf-working/internal/catalog/domain"
	"github.com/ma5621/perf-working/internal/catalog/repository"
)

// Handler serves the public catalog API and the token-protected admin
// API. Paths keep the trailing slash the storefront clients use.
type Handler struct {
	repo repository.RepoInterface
	auth *AdminAuth
}

func NewHandler(repo repository.RepoInterface, auth *AdminAuth) *Handler {
	return &Handler{
		repo: repo,
		auth: auth,
	}
}

// Routes mounts the catalog API under the given router, expected to be
// rooted at /api.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/perfumes/", h.ListPerfumes)
	r.Get("/perfumes/{id}/", h.GetPerfume)
	r.Get("/brands/", h.ListBrands)
	r.Get("/categories/", h.ListCategories)
	r.Get("/settings/", h.GetSettings)

	r.Post("/admin/login/", h.AdminLogin)
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.auth.Middleware)
		r.Post("/logout/", h.AdminLogout)
		r.Post("/perfumes/", h.CreatePerfume)
		r.Put("/perfumes/{id}/", h.UpdatePerfume)
		r.Delete("/perfumes/{id}/", h.DeletePerfume)
		r.Put("/settings/", h.UpdateSettings)
	})
}

type ListResponse struct {
	Perfumes   []*domain.Perfume `json:"perfumes"`
	Pagination domain.Pagination `json:"pagination"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// publicSettingKeys is the subset of settings served without a token.
var publicSettingKeys = []string{"whatsapp_phone"}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) ListPerfumes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ListFilter{
		Language:    q.Get("language"),
		Search:      q.Get("searchTerm"),
		Brand:       q.Get("brandFilter"),
		Category:    q.Get("categoryFilter"),
		Gender:      q.Get("genderFilter"),
		StockStatus: q.Get("stockStatusFilter"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}

	perfumes, pagination, err := h.repo.List(r.Context(), filter)
	if err != nil {
		log.Printf("failed to list perfumes: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list perfumes")
		return
	}
	if perfumes == nil {
		perfumes = []*domain.Perfume{}
	}

	respondJSON(w, http.StatusOK, ListResponse{Perfumes: perfumes, Pagination: pagination})
}

func (h *Handler) GetPerfume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	perfume, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrPerfumeNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "perfume not found")
			return
		}
		log.Printf("failed to get perfume %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get perfume")
		return
	}

	respondJSON(w, http.StatusOK, perfume)
}

func (h *Handler) ListBrands(w http.ResponseWriter, r *http.Request) {
	h.listDistinct(w, r, h.repo.Brands)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	h.listDistinct(w, r, h.repo.Categories)
}

func (h *Handler) listDistinct(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, language string) ([]string, error)) {
	values, err := fetch(r.Context(), r.URL.Query().Get("language"))
	if err != nil {
		log.Printf("failed to list values: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list values")
		return
	}
	if values == nil {
		values = []string{}
	}
	respondJSON(w, http.StatusOK, values)
}

// GetSettings exposes the public subset of the settings table. Keys
// added by admins stay admin-only until listed here.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.GetSettings(r.Context())
	if err != nil {
		log.Printf("failed to get settings: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get settings")
		return
	}

	public := make(map[string]string)
	for _, key := range publicSettingKeys {
		if value, ok := settings[key]; ok {
			public[key] = value
		}
	}
	respondJSON(w, http.StatusOK, public)
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	token := h.auth.Login(req.Username, req.Password)
	if token == "" {
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(bearerToken(r))
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) CreatePerfume(w http.ResponseWriter, r *http.Request) {
	perfume, ok := decodePerfume(w, r)
	if !ok {
		return
	}
	perfume.ID = ""

	if err := h.repo.Create(r.Context(), perfume); err != nil {
		log.Printf("failed to create perfume: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create perfume")
		return
	}

	respondJSON(w, http.StatusCreated, perfume)
}

func (h *Handler) UpdatePerfume(w http.ResponseWriter, r *http.Request) {
	perfume, ok := decodePerfume(w, r)
	if !ok {
		return
	}
	perfume.ID = chi.URLParam(r, "id")

	if err := h.repo.Update(r.Context(), perfume); err != nil {
		if errors.Is(err, repository.ErrPerfumeNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "perfume not found")
			return
		}
		log.Printf("failed to update perfume %s: %v", perfume.ID, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update perfume")
		return
	}

	respondJSON(w, http.StatusOK, perfume)
}

func (h *Handler) DeletePerfume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrPerfumeNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "perfume not found")
			return
		}
		log.Printf("failed to delete perfume %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete perfume")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings map[string]string
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	for key, value := range settings {
		if err := h.repo.PutSetting(r.Context(), key, value); err != nil {
			log.Printf("failed to save setting %s: %v", key, err)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to save settings")
			return
		}
	}

	stored, err := h.repo.GetSettings(r.Context())
	if err != nil {
		log.Printf("failed to get settings: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get settings")
		return
	}
	respondJSON(w, http.StatusOK, stored)
}

func decodePerfume(w http.ResponseWriter, r *http.Request) (*domain.Perfume, bool) {
	var perfume domain.Perfume
	if err := json.NewDecoder(r.Body).Decode(&perfume); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return nil, false
	}
	if perfume.NameEn == "" {
		respondError(w, http.StatusBadRequest, "invalid_name", "nameEn is required")
		return nil, false
	}
	if len(perfume.Sizes) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_sizes", "at least one size is required")
		return nil, false
	}
	for _, s := range perfume.Sizes {
		if s.Size == "" || s.PriceEGP < 0 {
			respondError(w, http.StatusBadRequest, "invalid_sizes", "each size needs a label and a non-negative price")
			return nil, false
		}
	}
	return &perfume, true
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
