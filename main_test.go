package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tani/internal/cache"
	"tani/internal/config"
	"tani/internal/models"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v)
	v.Set("APP_ENV", "testing")
	v.Set("DATABASE_DRIVER", "sqlite")
	v.Set("DATABASE_DSN", "file:"+t.Name()+"?mode=memory&cache=shared")
	v.Set("CACHE_DRIVER", "memory")
	v.Set("CACHE_CODEC", "msgpack")
	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestNewApp_HealthAndRoutes(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })

	// --- Test Health Endpoint ---
	resp, err := app.Fiber.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(bodyBytes), "\"status\":\"healthy\"", "Health check response body does not contain expected status")

	// --- Test product routes are mounted ---
	resp, err = app.Fiber.Test(httptest.NewRequest(http.MethodGet, "/api/v1/products", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var products []models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	assert.Empty(t, products)
}

func TestNewApp_RejectsUnknownCacheDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.CacheDriver = "memcached"

	_, err := NewApp(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "unsupported cache driver")
}

func TestInvalidationHandler(t *testing.T) {
	ctx := context.Background()
	store, err := cache.NewMemoryStore(cache.MemoryConfig{Capacity: 10, MaxTTL: time.Minute})
	require.NoError(t, err)
	pc := cache.NewProductCache(store, nil, time.Second)
	gate := cache.NewGate(pc, zerolog.Nop(), cache.WithNotifier(nil, "self"))
	handle := invalidationHandler(gate)

	p := models.Product{ID: "p-1", Name: "Tomato"}
	require.NoError(t, pc.SetSingle(ctx, "p-1", &p, time.Minute))

	own, _ := json.Marshal(cache.Invalidation{Origin: "self", IDs: []string{"p-1"}})
	require.NoError(t, handle(amqp.Delivery{Body: own}))
	_, ok, err := pc.GetSingle(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, ok, "own events are ignored")

	remote, _ := json.Marshal(cache.Invalidation{Origin: "other", IDs: []string{"p-1"}})
	require.NoError(t, handle(amqp.Delivery{Body: remote}))
	_, ok, err = pc.GetSingle(ctx, "p-1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, handle(amqp.Delivery{Body: []byte("not json")}))
}

func TestLongest(t *testing.T) {
	assert.Equal(t, 10*time.Minute, longest(time.Second, 10*time.Minute, time.Minute))
	assert.Equal(t, time.Duration(0), longest())
}
