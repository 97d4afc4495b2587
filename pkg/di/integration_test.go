package di

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/KoduruNani/Flipkart-2/apierr"
	"github.com/KoduruNani/Flipkart-2/internal/config"
	"github.com/KoduruNani/Flipkart-2/pkg/testsupport"
	"github.com/KoduruNani/Flipkart-2/products"
)

func newTestContainer(t testing.TB, api *testsupport.FakeAPI, vars map[string]string) *Container {
	t.Helper()

	env := map[string]string{"STOREFRONT_API_URL": api.URL()}
	for k, v := range vars {
		env[k] = v
	}
	cfg, err := config.LoadFrom(env)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	container, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("failed to create DI container: %v", err)
	}
	return container
}

// TestEndToEndCachedProductFlow tests the complete flow from container to fake backend.
func TestEndToEndCachedProductFlow(t *testing.T) {
	api := testsupport.NewFakeAPI(t)
	container := newTestContainer(t, api, nil)
	repo := container.Products()
	ctx := context.Background()

	// First read misses and hits the backend.
	p1, err := repo.GetByID(ctx, 5)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if api.Hits("GET /products/{id}") != 1 {
		t.Errorf("Expected 1 backend call, got %d", api.Hits("GET /products/{id}"))
	}

	// Second read is served from cache.
	p2, err := repo.GetByID(ctx, 5)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if p1.Title != p2.Title {
		t.Errorf("Expected same product, got %q and %q", p1.Title, p2.Title)
	}
	if api.Hits("GET /products/{id}") != 1 {
		t.Errorf("Expected cached read, backend called %d times", api.Hits("GET /products/{id}"))
	}

	// A write invalidates the entity and the full list.
	if _, err := repo.List(ctx, 0); err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	draft := products.Draft{
		Title:       "Studio Headphones",
		Price:       decimal.RequireFromString("129.00"),
		Description: "Closed-back monitors.",
		Category:    "electronics",
	}
	if _, err := repo.Update(ctx, 5, draft); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	p3, err := repo.GetByID(ctx, 5)
	if err != nil {
		t.Fatalf("GetByID() after update failed: %v", err)
	}
	if p3.Title != "Studio Headphones" {
		t.Errorf("Expected updated title, got %q", p3.Title)
	}

	list, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() after update failed: %v", err)
	}
	if list[4].Title != "Studio Headphones" {
		t.Errorf("Expected list to reflect update, got %q", list[4].Title)
	}
	if api.Hits("GET /products") != 2 {
		t.Errorf("Expected list to be refetched once, got %d calls", api.Hits("GET /products"))
	}
}

func TestTTLExpiryIntegration(t *testing.T) {
	api := testsupport.NewFakeAPI(t)
	container := newTestContainer(t, api, map[string]string{"STOREFRONT_CACHE_TTL": "50ms"})
	repo := container.Products()
	ctx := context.Background()

	if _, err := repo.Categories(ctx); err != nil {
		t.Fatalf("Categories() failed: %v", err)
	}
	if _, err := repo.Categories(ctx); err != nil {
		t.Fatalf("Categories() failed: %v", err)
	}
	if api.Hits("GET /products/categories") != 1 {
		t.Fatalf("Expected cached categories, got %d calls", api.Hits("GET /products/categories"))
	}

	time.Sleep(80 * time.Millisecond)

	if _, err := repo.Categories(ctx); err != nil {
		t.Fatalf("Categories() failed: %v", err)
	}
	if api.Hits("GET /products/categories") != 2 {
		t.Errorf("Expected refetch after TTL, got %d calls", api.Hits("GET /products/categories"))
	}
}

func TestRateLimitIntegration(t *testing.T) {
	api := testsupport.NewFakeAPI(t)
	container := newTestContainer(t, api, map[string]string{"STOREFRONT_RATE_LIMIT": "2"})
	repo := container.Products()
	ctx := context.Background()

	for _, id := range []int{1, 2} {
		if _, err := repo.GetByID(ctx, id); err != nil {
			t.Fatalf("GetByID(%d) failed: %v", id, err)
		}
	}

	// Cached reads never reach the limiter.
	if _, err := repo.GetByID(ctx, 1); err != nil {
		t.Fatalf("cached GetByID() failed: %v", err)
	}

	_, err := repo.GetByID(ctx, 3)
	if !errors.Is(err, apierr.ErrRateLimited) {
		t.Fatalf("Expected rate limit error, got %v", err)
	}
	if api.TotalHits() != 2 {
		t.Errorf("Expected 2 backend calls, got %d", api.TotalHits())
	}
}

func TestErrorPropagation(t *testing.T) {
	api := testsupport.NewFakeAPI(t)
	container := newTestContainer(t, api, nil)
	repo := container.Products()
	ctx := context.Background()

	api.FailWith(http.StatusInternalServerError)
	_, err := repo.List(ctx, 0)
	if err == nil {
		t.Fatal("Expected error to be propagated")
	}
	if apierr.StatusOf(err) != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", apierr.StatusOf(err))
	}

	// Errors are not cached.
	api.FailWith(0)
	list, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() after recovery failed: %v", err)
	}
	if len(list) != 6 {
		t.Errorf("Expected 6 products, got %d", len(list))
	}
}

func TestCartWithRepository(t *testing.T) {
	api := testsupport.NewFakeAPI(t)
	container := newTestContainer(t, api, nil)
	repo := container.Products()
	store := container.Store()
	ctx := context.Background()

	found, err := repo.Search(ctx, "red shoes")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(found))
	}

	store.AddToWishlist(found[0])
	if !store.MoveWishlistItemToCart(found[0].ID) {
		t.Fatal("Expected wishlist item to move to cart")
	}
	store.AddToCart(found[0])

	if len(store.Cart()) != 1 || !store.InWishlist(found[0].ID) {
		t.Errorf("Unexpected store state: cart=%v wishlist=%v", store.Cart(), store.Wishlist())
	}
	if !store.CartTotal().Equal(decimal.RequireFromString("59.99")) {
		t.Errorf("Expected total 59.99, got %s", store.CartTotal())
	}
}

func TestMetricsIntegration(t *testing.T) {
	api := testsupport.NewFakeAPI(t)
	container := newTestContainer(t, api, nil)
	ctx := context.Background()

	if _, err := container.Products().List(ctx, 0); err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if _, err := container.Products().List(ctx, 0); err != nil {
		t.Fatalf("List() failed: %v", err)
	}

	families, err := container.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"storefront_requests_total",
		"storefront_request_duration_seconds",
		"storefront_cache_hits_total",
		"storefront_cache_misses_total",
	} {
		if !names[want] {
			t.Errorf("Expected metric %s to be registered and observed", want)
		}
	}
}
