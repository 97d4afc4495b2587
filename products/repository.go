package products

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-faster/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/KoduruNani/Flipkart-2/apierr"
	"github.com/KoduruNani/Flipkart-2/cache"
	"github.com/KoduruNani/Flipkart-2/httpclient"
	"github.com/KoduruNani/Flipkart-2/internal/metrics"
)

// Cache key operation names. Keys are built with the KeySerializer, so a key
// is either the bare name or name::arg.
const (
	opList       = "List"
	opGetByID    = "GetByID"
	opCategories = "Categories"
	opByCategory = "ByCategory"

	allProducts = "all"
)

// Caller is the subset of httpclient.Client the repository needs.
type Caller interface {
	Call(ctx context.Context, endpoint string, req httpclient.Request) (json.RawMessage, error)
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger for cache activity.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithMetrics enables cache hit/miss and invalidation counters.
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Repository) { r.metrics = m }
}

// Repository serves catalog reads through the response cache and invalidates
// the affected entries after every successful write.
type Repository struct {
	client        Caller
	cache         cache.ResponseCache
	keySerializer cache.KeySerializer
	keyRegistry   *xsync.MapOf[string, struct{}] // active cache keys, for prefix invalidation
	inflight      singleflight.Group

	// generation advances on every invalidation. A fetch only populates the
	// cache if no invalidation happened since it started; mu makes that check
	// and the store atomic with respect to bump-and-invalidate.
	mu         sync.RWMutex
	generation atomic.Uint64
	logger        zerolog.Logger
	metrics       *metrics.Collector
}

// New creates a Repository on top of client and c.
func New(client Caller, c cache.ResponseCache, keySerializer cache.KeySerializer, opts ...Option) *Repository {
	if keySerializer == nil {
		keySerializer = cache.NewDefaultKeySerializer()
	}
	r := &Repository{
		client:        client,
		cache:         c,
		keySerializer: keySerializer,
		keyRegistry:   xsync.NewMapOf[string, struct{}](),
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// List returns up to limit products, or the whole catalog when limit is 0.
func (r *Repository) List(ctx context.Context, limit int) ([]Product, error) {
	if limit < 0 {
		return nil, apierr.InvalidArgument("limit must not be negative, got %d", limit)
	}

	endpoint := "/products"
	var key string
	if limit == 0 {
		key = r.keySerializer.SerializeKey(opList, allProducts)
	} else {
		key = r.keySerializer.SerializeKey(opList, limit)
		endpoint += "?limit=" + strconv.Itoa(limit)
	}

	list, err := cached(ctx, r, opList, key, endpoint, func(ctx context.Context) ([]Product, error) {
		return fetchJSON[[]Product](ctx, r.client, endpoint, httpclient.Request{Route: "/products"})
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(list), nil
}

// GetByID returns a single product. The backend answers unknown ids with an
// empty success body; that is reported as a 404 API error.
func (r *Repository) GetByID(ctx context.Context, id int) (Product, error) {
	if id <= 0 {
		return Product{}, apierr.InvalidArgument("product id is required")
	}

	endpoint := productEndpoint(id)
	key := r.keySerializer.SerializeKey(opGetByID, id)
	return cached(ctx, r, opGetByID, key, endpoint, func(ctx context.Context) (Product, error) {
		body, err := r.client.Call(ctx, endpoint, httpclient.Request{Route: "/products/{id}"})
		if err != nil {
			return Product{}, err
		}
		if isEmpty(body) {
			return Product{}, apierr.API(endpoint, http.StatusNotFound, nil)
		}
		return decode[Product](endpoint, body)
	})
}

// Categories returns the category names known to the backend.
func (r *Repository) Categories(ctx context.Context) ([]string, error) {
	key := r.keySerializer.SerializeKey(opCategories)
	endpoint := "/products/categories"
	list, err := cached(ctx, r, opCategories, key, endpoint, func(ctx context.Context) ([]string, error) {
		return fetchJSON[[]string](ctx, r.client, endpoint, httpclient.Request{Route: endpoint})
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(list), nil
}

// ListByCategory returns the products in category.
func (r *Repository) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apierr.InvalidArgument("category is required")
	}

	endpoint := "/products/category/" + url.PathEscape(category)
	key := r.keySerializer.SerializeKey(opByCategory, category)
	list, err := cached(ctx, r, opByCategory, key, endpoint, func(ctx context.Context) ([]Product, error) {
		return fetchJSON[[]Product](ctx, r.client, endpoint, httpclient.Request{Route: "/products/category/{category}"})
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(list), nil
}

// Search returns the products whose title, description and category together
// contain every whitespace-separated term of query, case-insensitively. The
// filter runs over the cached full catalog.
func (r *Repository) Search(ctx context.Context, query string) ([]Product, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, apierr.InvalidArgument("search query is required")
	}

	all, err := r.List(ctx, 0)
	if err != nil {
		return nil, err
	}

	out := make([]Product, 0)
	for _, p := range all {
		if p.matches(terms) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Create adds a product. Write operations never read the cache.
func (r *Repository) Create(ctx context.Context, draft Draft) (Product, error) {
	if err := validateDraft(draft); err != nil {
		return Product{}, err
	}

	created, err := fetchJSON[Product](ctx, r.client, "/products", httpclient.Request{
		Method: http.MethodPost,
		Body:   draft,
		Route:  "/products",
	})
	if err != nil {
		return Product{}, err
	}
	r.invalidateAfterCreate()
	return created, nil
}

// Update replaces the product with id.
func (r *Repository) Update(ctx context.Context, id int, draft Draft) (Product, error) {
	if id <= 0 {
		return Product{}, apierr.InvalidArgument("product id is required")
	}
	if err := validateDraft(draft); err != nil {
		return Product{}, err
	}

	updated, err := fetchJSON[Product](ctx, r.client, productEndpoint(id), httpclient.Request{
		Method: http.MethodPut,
		Body:   draft,
		Route:  "/products/{id}",
	})
	if err != nil {
		return Product{}, err
	}
	r.invalidateProduct("Update", id)
	return updated, nil
}

// Delete soft-deletes the product with id by marking it deleted.
func (r *Repository) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return apierr.InvalidArgument("product id is required")
	}

	_, err := r.client.Call(ctx, productEndpoint(id), httpclient.Request{
		Method: http.MethodPatch,
		Body:   map[string]bool{"deleted": true},
		Route:  "/products/{id}",
	})
	if err != nil {
		return err
	}
	r.invalidateProduct("Delete", id)
	return nil
}

func (r *Repository) invalidateAfterCreate() {
	r.mu.Lock()
	r.generation.Add(1)
	n := r.invalidatePrefix(opList) +
		r.invalidatePrefix(opByCategory) +
		r.invalidatePrefix(opCategories)
	r.mu.Unlock()

	r.metrics.RecordInvalidations("Create", n)
	r.logger.Debug().Str("operation", "Create").Int("keys", n).Msg("cache invalidated")
}

// invalidateProduct drops the entity entry and every aggregate that may
// contain the product, including the full list used by Search.
func (r *Repository) invalidateProduct(op string, id int) {
	entityKey := r.keySerializer.SerializeKey(opGetByID, id)
	allKey := r.keySerializer.SerializeKey(opList, allProducts)

	r.mu.Lock()
	r.generation.Add(1)
	r.cache.Invalidate(entityKey)
	r.cache.Invalidate(allKey)
	r.keyRegistry.Delete(entityKey)
	r.keyRegistry.Delete(allKey)

	n := 2 + r.invalidatePrefix(opList) +
		r.invalidatePrefix(opByCategory) +
		r.invalidatePrefix(opCategories)
	r.mu.Unlock()

	r.metrics.RecordInvalidations(op, n)
	r.logger.Debug().Str("operation", op).Int("id", id).Int("keys", n).Msg("cache invalidated")
}

// invalidatePrefix removes every tracked key equal to prefix or starting with
// prefix followed by the key separator. Callers hold mu.
func (r *Repository) invalidatePrefix(prefix string) int {
	var keys []string
	r.keyRegistry.Range(func(key string, _ struct{}) bool {
		if key == prefix || strings.HasPrefix(key, prefix+cache.KeySeparator) {
			keys = append(keys, key)
		}
		return true
	})
	for _, key := range keys {
		r.cache.Invalidate(key)
		r.keyRegistry.Delete(key)
	}
	return len(keys)
}

func (r *Repository) trackKey(key string) {
	r.keyRegistry.Store(key, struct{}{})
}

// cached reads key through the response cache, recording hit or miss.
// Concurrent misses on the same key within one generation share one backend
// call. The shared call is detached from any single caller's cancellation;
// each caller stops waiting when its own ctx is done.
func cached[T any](ctx context.Context, r *Repository, op, key, endpoint string, fetch cache.FetchFn[T]) (T, error) {
	// Load the generation before tracking the key, so an invalidation that
	// misses the key in the registry also rejects this fetch's store.
	gen := r.generation.Load()
	r.trackKey(key)
	store := &generationCache{ResponseCache: r.cache, repo: r, gen: gen}
	flight := key + "@" + strconv.FormatUint(gen, 10)

	hit := true
	v, err := cache.GetOrFetch(ctx, store, key, func(ctx context.Context) (T, error) {
		hit = false
		var zero T
		ch := r.inflight.DoChan(flight, func() (any, error) {
			return fetch(context.WithoutCancel(ctx))
		})
		select {
		case res := <-ch:
			if res.Err != nil {
				return zero, res.Err
			}
			return res.Val.(T), nil
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return zero, apierr.Timeout(endpoint, ctx.Err())
			}
			return zero, apierr.Canceled(endpoint, ctx.Err())
		}
	})
	if hit {
		r.metrics.RecordCacheHit(op)
	} else {
		r.metrics.RecordCacheMiss(op)
	}
	r.logger.Debug().Str("key", key).Bool("hit", hit).Msg("cache lookup")
	return v, err
}

// generationCache drops stores from fetches that started before the latest
// invalidation.
type generationCache struct {
	cache.ResponseCache
	repo *Repository
	gen  uint64
}

func (c *generationCache) Set(key string, value any) {
	c.repo.mu.RLock()
	defer c.repo.mu.RUnlock()
	if c.repo.generation.Load() != c.gen {
		return
	}
	c.ResponseCache.Set(key, value)
}

// fetchJSON calls endpoint and decodes the JSON body. A success without a
// body is not a valid answer for these endpoints.
func fetchJSON[T any](ctx context.Context, client Caller, endpoint string, req httpclient.Request) (T, error) {
	body, err := client.Call(ctx, endpoint, req)
	if err != nil {
		var zero T
		return zero, err
	}
	if isEmpty(body) {
		var zero T
		return zero, apierr.Transport(endpoint, errors.New("empty response body"))
	}
	return decode[T](endpoint, body)
}

func decode[T any](endpoint string, body json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		var zero T
		return zero, apierr.Transport(endpoint, errors.Wrap(err, "decode response"))
	}
	return v, nil
}

func isEmpty(body json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(body))
	return trimmed == "" || trimmed == "null"
}

func validateDraft(d Draft) error {
	if err := d.Validate(); err != nil {
		e := apierr.InvalidArgument("invalid product: %v", err)
		e.Cause = err
		return e
	}
	return nil
}

func productEndpoint(id int) string {
	return "/products/" + strconv.Itoa(id)
}
