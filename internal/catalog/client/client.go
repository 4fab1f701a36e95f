// Package client consumes the catalog HTTP API and normalizes its
// payloads into canonical snapshots. All field-naming variants of the
// legacy API (camelCase vs snake_case, optional isActive) are resolved
// here so the cart engine never branches on them.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ma5621/perf-working/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// productPayload tolerates both current and legacy field names. Pointers
// distinguish "absent" from "false".
type productPayload struct {
	ID             string             `json:"id"`
	LegacyID       string             `json:"_id"`
	NameEn         string             `json:"nameEn"`
	NameAr         string             `json:"nameAr"`
	BrandEn        string             `json:"brandEn"`
	BrandAr        string             `json:"brandAr"`
	DescriptionEn  string             `json:"descriptionEn"`
	DescriptionAr  string             `json:"descriptionAr"`
	Sizes          []sizePayload      `json:"sizes"`
	StockStatus    string             `json:"stockStatus"`
	ImageURL       string             `json:"imageUrl"`
	IsActive       *bool              `json:"isActive"`
	LegacyIsActive *bool              `json:"is_active"`
}

type sizePayload struct {
	Size           string   `json:"size"`
	PriceEGP       *float64 `json:"priceEGP"`
	LegacyPriceEGP *float64 `json:"price_egp"`
}

func (p *productPayload) toSnapshot() *domain.CatalogSnapshot {
	id := p.ID
	if id == "" {
		id = p.LegacyID
	}

	// Missing isActive defaults to true, matching the legacy API where
	// older records never carried the flag.
	active := true
	switch {
	case p.IsActive != nil:
		active = *p.IsActive
	case p.LegacyIsActive != nil:
		active = *p.LegacyIsActive
	}

	sizes := make([]domain.SizePrice, 0, len(p.Sizes))
	for _, s := range p.Sizes {
		price := 0.0
		switch {
		case s.PriceEGP != nil:
			price = *s.PriceEGP
		case s.LegacyPriceEGP != nil:
			price = *s.LegacyPriceEGP
		}
		sizes = append(sizes, domain.SizePrice{Size: s.Size, PriceEGP: price})
	}

	return &domain.CatalogSnapshot{
		ProductID:     id,
		IsActive:      active,
		StockStatus:   domain.NormalizeStockStatus(p.StockStatus),
		Sizes:         sizes,
		NameEn:        p.NameEn,
		NameAr:        p.NameAr,
		BrandEn:       p.BrandEn,
		BrandAr:       p.BrandAr,
		DescriptionEn: p.DescriptionEn,
		DescriptionAr: p.DescriptionAr,
		ImageURL:      p.ImageURL,
	}
}

// GetProduct fetches a fresh snapshot for one product. The t query
// param busts any intermediate cache so reconciliation always sees
// current catalog truth.
func (c *Client) GetProduct(ctx context.Context, productID string) (*domain.CatalogSnapshot, error) {
	endpoint := fmt.Sprintf("%s/api/perfumes/%s/?t=%d", c.baseURL, url.PathEscape(productID), time.Now().UnixNano())

	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrProductNotFound
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d for product %s", status, productID)
	}
	if len(body) == 0 {
		return nil, ErrProductNotFound
	}

	var payload productPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode product %s: %w", productID, err)
	}

	snap := payload.toSnapshot()
	if snap.ProductID == "" {
		snap.ProductID = productID
	}
	return snap, nil
}

// ListResult is one page of the public catalog listing.
type ListResult struct {
	Perfumes   []json.RawMessage `json:"perfumes"`
	Pagination struct {
		CurrentPage int  `json:"currentPage"`
		TotalPages  int  `json:"totalPages"`
		TotalItems  int  `json:"totalItems"`
		HasNext     bool `json:"hasNext"`
		HasPrev     bool `json:"hasPrev"`
	} `json:"pagination"`
}

// ListFilters narrows ListProducts. Zero values are omitted.
type ListFilters struct {
	Language    string
	Brand       string
	Category    string
	Gender      string
	StockStatus string
	Search      string
	Limit       int
}

// ListProducts fetches one page of the catalog listing as normalized
// snapshots.
func (c *Client) ListProducts(ctx context.Context, filters ListFilters, page int) ([]*domain.CatalogSnapshot, ListResult, error) {
	query := url.Values{}
	if filters.Language != "" {
		query.Set("language", filters.Language)
	}
	if filters.Brand != "" {
		query.Set("brandFilter", filters.Brand)
	}
	if filters.Category != "" {
		query.Set("categoryFilter", filters.Category)
	}
	if filters.Gender != "" {
		query.Set("genderFilter", filters.Gender)
	}
	if filters.StockStatus != "" {
		query.Set("stockStatusFilter", filters.StockStatus)
	}
	if filters.Search != "" {
		query.Set("searchTerm", filters.Search)
	}
	if filters.Limit > 0 {
		query.Set("limit", strconv.Itoa(filters.Limit))
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}

	endpoint := fmt.Sprintf("%s/api/perfumes/?%s", c.baseURL, query.Encode())
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, ListResult{}, err
	}
	if status != http.StatusOK {
		return nil, ListResult{}, fmt.Errorf("catalog returned status %d for listing", status)
	}

	var result ListResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, ListResult{}, fmt.Errorf("failed to decode listing: %w", err)
	}

	snapshots := make([]*domain.CatalogSnapshot, 0, len(result.Perfumes))
	for _, raw := range result.Perfumes {
		var payload productPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, ListResult{}, fmt.Errorf("failed to decode listed product: %w", err)
		}
		snapshots = append(snapshots, payload.toSnapshot())
	}
	return snapshots, result, nil
}

// GetSettings fetches the public store settings (whatsapp_phone, ...).
func (c *Client) GetSettings(ctx context.Context) (map[string]string, error) {
	body, status, err := c.get(ctx, c.baseURL+"/api/settings/")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d for settings", status)
	}

	settings := make(map[string]string)
	if err := json.Unmarshal(body, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
