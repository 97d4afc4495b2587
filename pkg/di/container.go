package di

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/KoduruNani/Flipkart-2/accounts"
	"github.com/KoduruNani/Flipkart-2/cache"
	"github.com/KoduruNani/Flipkart-2/cart"
	"github.com/KoduruNani/Flipkart-2/httpclient"
	"github.com/KoduruNani/Flipkart-2/internal/config"
	"github.com/KoduruNani/Flipkart-2/internal/metrics"
	"github.com/KoduruNani/Flipkart-2/products"
	"github.com/KoduruNani/Flipkart-2/ratelimit"
)

const defaultShards = 64

// Container wires the storefront data-access layer from a Config. Each
// container owns its own limiter, cache, and metrics registry, so two
// containers never share state.
type Container struct {
	config        config.Config
	logger        zerolog.Logger
	httpClient    *http.Client
	registry      *prometheus.Registry
	metrics       *metrics.Collector
	limiter       *ratelimit.Limiter
	cache         cache.ResponseCache
	keySerializer cache.KeySerializer
	client        *httpclient.Client
	products      *products.Repository
	accounts      *accounts.Client
	store         *cart.Store
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger passed to every component.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Container) { c.logger = l }
}

// WithHTTPClient sets the transport used for backend calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Container) { c.httpClient = h }
}

// NewContainer builds every component from cfg.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	c := &Container{
		config:        *cfg,
		logger:        zerolog.Nop(),
		registry:      prometheus.NewRegistry(),
		keySerializer: cache.NewDefaultKeySerializer(),
		store:         cart.NewStore(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.metrics = metrics.NewCollector(c.registry)
	c.limiter = ratelimit.New(cfg.RateLimit, cfg.RateInterval)

	responseCache, err := cache.NewResponseCache(cacheConfig(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "create response cache")
	}
	c.cache = responseCache

	clientOpts := []httpclient.Option{
		httpclient.WithRateLimiter(c.limiter),
		httpclient.WithDefaultTimeout(cfg.RequestTimeout),
		httpclient.WithAPIKey(cfg.APIKey),
		httpclient.WithLogger(c.logger.With().Str("component", "httpclient").Logger()),
		httpclient.WithMetrics(c.metrics),
	}
	if c.httpClient != nil {
		clientOpts = append(clientOpts, httpclient.WithHTTPClient(c.httpClient))
	}
	client, err := httpclient.New(cfg.APIURL, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "create http client")
	}
	c.client = client

	c.products = products.New(client, c.cache, c.keySerializer,
		products.WithLogger(c.logger.With().Str("component", "products").Logger()),
		products.WithMetrics(c.metrics),
	)
	c.accounts = accounts.New(client)

	return c, nil
}

// NewContainerFromEnv loads the configuration from the environment and
// builds a Container from it.
func NewContainerFromEnv(opts ...Option) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewContainer(cfg, opts...)
}

func cacheConfig(cfg *config.Config) cache.Config {
	cc := cache.DefaultConfig()
	cc.Capacity = cfg.CacheCapacity
	cc.TTL = cfg.CacheTTL
	cc.NumShards = min(defaultShards, cfg.CacheCapacity)
	return cc
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config { return c.config }

func (c *Container) Logger() zerolog.Logger { return c.logger }

// Registry returns the container's Prometheus registry.
func (c *Container) Registry() *prometheus.Registry { return c.registry }

func (c *Container) Metrics() *metrics.Collector { return c.metrics }

func (c *Container) RateLimiter() *ratelimit.Limiter { return c.limiter }

// ResponseCache returns the cache shared by all repositories.
func (c *Container) ResponseCache() cache.ResponseCache { return c.cache }

func (c *Container) KeySerializer() cache.KeySerializer { return c.keySerializer }

func (c *Container) Client() *httpclient.Client { return c.client }

func (c *Container) Products() *products.Repository { return c.products }

func (c *Container) Accounts() *accounts.Client { return c.accounts }

// Store returns the in-memory cart and wishlist.
func (c *Container) Store() *cart.Store { return c.store }
