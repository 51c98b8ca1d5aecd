package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tani/internal/cache"
	"tani/internal/database"
	"tani/internal/handlers"
	"tani/internal/models"
	"tani/internal/repositories"
	"tani/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupApp sets up a Fiber app backed by in-memory SQLite and the in-process cache.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store, err := cache.NewMemoryStore(cache.MemoryConfig{Capacity: 1000, MaxTTL: time.Hour})
	require.NoError(t, err)
	pc := cache.NewProductCache(store, cache.JSONCodec(), time.Second)

	productRepo := repositories.NewGORMProductRepository(db)
	productService := services.NewProductService(productRepo, pc, cache.NewGate(pc, zerolog.Nop()), services.TTLs{
		Snapshot:        10 * time.Minute,
		Single:          time.Minute,
		SnapshotPromote: 30 * time.Second,
		Search:          time.Minute,
	}, zerolog.Nop())
	productHandler := handlers.NewProductHandler(productService, zerolog.Nop())

	app := fiber.New()
	productHandler.RegisterRoutes(app.Group("/api/v1"))
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var req *http.Request
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createProduct(t *testing.T, app *fiber.App, name string) models.Product {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/v1/products", map[string]any{
		"name":          name,
		"description":   name + " grown locally",
		"price":         2.5,
		"priceUnit":     "kg",
		"category":      "vegetables",
		"images":        []string{name + ".png"},
		"stockQuantity": 20,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	p := decode[models.Product](t, resp)
	require.NotEmpty(t, p.ID)
	return p
}

func TestProductLifecycle(t *testing.T) {
	app := setupApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Product](t, resp))

	created := createProduct(t, app, "Tomato")

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Product](t, resp), 1)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Tomato", decode[models.Product](t, resp).Name)

	resp = doJSON(t, app, http.MethodPut, "/api/v1/products/"+created.ID, map[string]any{"name": "Cherry Tomato"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Cherry Tomato", decode[models.Product](t, resp).Name)

	// The cached copy was evicted by the update.
	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, "Cherry Tomato", decode[models.Product](t, resp).Name)

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, decode[map[string]string](t, resp)["message"], "deleted successfully")

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/products/"+created.ID+"/restore", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateProductValidation(t *testing.T) {
	app := setupApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/products", map[string]any{"description": "no name"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Contains(t, body["errors"], "Name")

	resp = doJSON(t, app, http.MethodPost, "/api/v1/products", map[string]any{
		"name": "Kale", "priceUnit": "kg", "category": "vegetables", "price": -1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	raw, err := app.Test(req, -1)
	require.NoError(t, err)
	defer raw.Body.Close()
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
}

func TestCreateProductsBatchAndSearch(t *testing.T) {
	app := setupApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/v1/products/batch", []map[string]any{
		{"name": "Apple", "price": 1.2, "priceUnit": "kg", "category": "fruit"},
		{"name": "Pear", "price": 1.8, "priceUnit": "kg", "category": "fruit"},
		{"name": "Leek", "price": 0.9, "priceUnit": "piece", "category": "vegetables"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, decode[[]models.Product](t, resp), 3)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/search?category=fruit", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Product](t, resp), 2)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/search?category=fruit&maxPrice=1.5", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	found := decode[[]models.Product](t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, "Apple", found[0].Name)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/search", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/search?minPrice=cheap", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBulkUpdateEndpoint(t *testing.T) {
	app := setupApp(t)
	first := createProduct(t, app, "Carrot")
	second := createProduct(t, app, "Onion")

	// Warm the cache so the update has something to evict.
	doJSON(t, app, http.MethodGet, "/api/v1/products/"+first.ID, nil)

	resp := doJSON(t, app, http.MethodPut, "/api/v1/products/bulk/update", []map[string]any{
		{"id": first.ID, "price": 5, "images": []string{"a"}},
		{"id": second.ID, "name": "Red Onion", "images": []string{"b"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/"+first.ID, nil)
	p1 := decode[models.Product](t, resp)
	assert.True(t, decimal.NewFromInt(5).Equal(p1.Price), "price = %s", p1.Price)
	assert.Equal(t, []string{"a"}, []string(p1.Images))
	assert.Equal(t, "Carrot", p1.Name)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/"+second.ID, nil)
	p2 := decode[models.Product](t, resp)
	assert.Equal(t, "Red Onion", p2.Name)
	assert.Equal(t, []string{"b"}, []string(p2.Images))

	// One bad row rejects the whole batch.
	resp = doJSON(t, app, http.MethodPut, "/api/v1/products/bulk/update", []map[string]any{
		{"id": first.ID, "name": "Should Not Stick"},
		{"id": "does-not-exist", "name": "Ghost"},
	})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "error completing bulk updates", decode[map[string]string](t, resp)["message"])

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/"+first.ID, nil)
	assert.Equal(t, "Carrot", decode[models.Product](t, resp).Name)

	resp = doJSON(t, app, http.MethodPut, "/api/v1/products/bulk/update", []map[string]any{{"id": first.ID}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPut, "/api/v1/products/bulk/update", []map[string]any{{"name": "missing id"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateProductIgnoresStoreOwnedFields(t *testing.T) {
	app := setupApp(t)
	past := "2001-01-01T00:00:00Z"

	resp := doJSON(t, app, http.MethodPost, "/api/v1/products", map[string]any{
		"id":        "chosen-by-client",
		"name":      "Garlic",
		"price":     "3.10",
		"priceUnit": "bulb",
		"category":  "vegetables",
		"createdAt": past,
		"updatedAt": past,
		"deletedAt": past,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Product](t, resp)
	assert.NotEqual(t, "chosen-by-client", created.ID)
	assert.False(t, created.DeletedAt.Valid)
	assert.True(t, created.CreatedAt.After(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products", nil)
	listed := decode[[]models.Product](t, resp)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPriceScaleIsEnforced(t *testing.T) {
	app := setupApp(t)
	product := createProduct(t, app, "Beet")

	resp := doJSON(t, app, http.MethodPost, "/api/v1/products", map[string]any{
		"name": "Kale", "priceUnit": "kg", "category": "vegetables", "price": "1.239",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/v1/products/batch", []map[string]any{
		{"name": "Kale", "priceUnit": "kg", "category": "vegetables", "price": "1.20"},
		{"name": "Chard", "priceUnit": "kg", "category": "vegetables", "price": "0.001"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPut, "/api/v1/products/"+product.ID, map[string]any{"price": "1.239"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPut, "/api/v1/products/bulk/update", []map[string]any{
		{"id": product.ID, "price": "1.239"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/products", nil)
	listed := decode[[]models.Product](t, resp)
	require.Len(t, listed, 1)
	assert.True(t, decimal.RequireFromString("2.5").Equal(listed[0].Price), "price = %s", listed[0].Price)

	resp = doJSON(t, app, http.MethodPut, "/api/v1/products/"+product.ID, map[string]any{"price": "1.230"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decimal.RequireFromString("1.23").Equal(decode[models.Product](t, resp).Price))
}
