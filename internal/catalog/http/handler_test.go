package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ma5621/perf-working/internal/catalog/domain"
	"github.com/ma5621/perf-working/internal/catalog/repository"
)

func setupCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := repository.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.RunMigrations("../repository/migrations"))

	auth := NewAdminAuth("admin", "secret")
	handler := NewHandler(repo, auth)

	r := chi.NewRouter()
	r.Route("/api", handler.Routes)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func adminRequest(t *testing.T, srv *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := adminRequest(t, srv, http.MethodPost, "/api/admin/login/", "",
		LoginRequest{Username: "admin", Password: "secret"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotEmpty(t, result["token"])
	return result["token"]
}

func TestListPerfumes_ActiveOnly(t *testing.T) {
	srv := setupCatalogServer(t)

	var result ListResponse
	status := getJSON(t, srv, "/api/perfumes/", &result)

	require.Equal(t, http.StatusOK, status)
	assert.Len(t, result.Perfumes, 4)
	assert.Equal(t, 4, result.Pagination.TotalItems)
	for _, p := range result.Perfumes {
		assert.True(t, p.IsActive)
	}
}

func TestListPerfumes_StockStatusFilter(t *testing.T) {
	srv := setupCatalogServer(t)

	var result ListResponse
	status := getJSON(t, srv, "/api/perfumes/?stockStatusFilter=out_of_stock", &result)

	require.Equal(t, http.StatusOK, status)
	require.Len(t, result.Perfumes, 1)
	assert.Equal(t, "Citrus Veil", result.Perfumes[0].NameEn)
}

func TestListPerfumes_Pagination(t *testing.T) {
	srv := setupCatalogServer(t)

	var result ListResponse
	status := getJSON(t, srv, "/api/perfumes/?limit=2&page=2", &result)

	require.Equal(t, http.StatusOK, status)
	assert.Len(t, result.Perfumes, 2)
	assert.Equal(t, 2, result.Pagination.CurrentPage)
	assert.Equal(t, 2, result.Pagination.TotalPages)
	assert.False(t, result.Pagination.HasNext)
	assert.True(t, result.Pagination.HasPrev)
}

func TestGetPerfume_NotFound(t *testing.T) {
	srv := setupCatalogServer(t)

	status := getJSON(t, srv, "/api/perfumes/nope/", nil)

	assert.Equal(t, http.StatusNotFound, status)
}

func TestListBrands(t *testing.T) {
	srv := setupCatalogServer(t)

	var brands []string
	status := getJSON(t, srv, "/api/brands/", &brands)

	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, brands, "Top Notes")
}

func TestGetSettings_Public(t *testing.T) {
	srv := setupCatalogServer(t)

	var settings map[string]string
	status := getJSON(t, srv, "/api/settings/", &settings)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "+201234567890", settings["whatsapp_phone"])
}

func TestAdminLogin_WrongCredentials(t *testing.T) {
	srv := setupCatalogServer(t)

	resp := adminRequest(t, srv, http.MethodPost, "/api/admin/login/", "",
		LoginRequest{Username: "admin", Password: "wrong"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	srv := setupCatalogServer(t)

	resp := adminRequest(t, srv, http.MethodPost, "/api/admin/perfumes/", "", domain.Perfume{})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdmin_PerfumeLifecycle(t *testing.T) {
	srv := setupCatalogServer(t)
	token := login(t, srv)

	created := domain.Perfume{
		NameEn:      "Sandal Drift",
		NameAr:      "انسياب الصندل",
		BrandEn:     "Top Notes",
		StockStatus: "In Stock",
		IsActive:    true,
		Sizes:       []domain.SizePrice{{Size: "50ml", PriceEGP: 750}},
	}
	resp := adminRequest(t, srv, http.MethodPost, "/api/admin/perfumes/", token, created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var stored domain.Perfume
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	resp.Body.Close()
	require.NotEmpty(t, stored.ID)

	stored.Sizes[0].PriceEGP = 800
	resp = adminRequest(t, srv, http.MethodPut, "/api/admin/perfumes/"+stored.ID+"/", token, stored)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var fetched domain.Perfume
	status := getJSON(t, srv, "/api/perfumes/"+stored.ID+"/", &fetched)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(800), fetched.Sizes[0].PriceEGP)

	resp = adminRequest(t, srv, http.MethodDelete, "/api/admin/perfumes/"+stored.ID+"/", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv, "/api/perfumes/"+stored.ID+"/", nil))
}

func TestAdmin_CreateValidation(t *testing.T) {
	srv := setupCatalogServer(t)
	token := login(t, srv)

	resp := adminRequest(t, srv, http.MethodPost, "/api/admin/perfumes/", token,
		domain.Perfume{NameEn: "No Sizes"})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdmin_UpdateSettings(t *testing.T) {
	srv := setupCatalogServer(t)
	token := login(t, srv)

	resp := adminRequest(t, srv, http.MethodPut, "/api/admin/settings/", token,
		map[string]string{"whatsapp_phone": "+209999999999"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var settings map[string]string
	status := getJSON(t, srv, "/api/settings/", &settings)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "+209999999999", settings["whatsapp_phone"])
}

func TestAdmin_Logout_InvalidatesToken(t *testing.T) {
	srv := setupCatalogServer(t)
	token := login(t, srv)

	resp := adminRequest(t, srv, http.MethodPost, "/api/admin/logout/", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = adminRequest(t, srv, http.MethodPost, "/api/admin/perfumes/", token, domain.Perfume{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
