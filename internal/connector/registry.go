package connector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/casewarden/discoveryhub/internal/log"
	"github.com/casewarden/discoveryhub/internal/pkg/xcache"
)

// RegistryConfig bounds dispatch against external systems.
type RegistryConfig struct {
	// HealthCacheTTL is how long a health check result is reused.
	HealthCacheTTL time.Duration `conf:"health_cache_ttl" yaml:"health_cache_ttl" json:"health_cache_ttl"`
	// ProviderRPS caps collect calls per provider per second.
	ProviderRPS float64 `conf:"provider_rps" yaml:"provider_rps" json:"provider_rps"`
	// ProviderBurst is the rate limiter burst per provider.
	ProviderBurst int `conf:"provider_burst" yaml:"provider_burst" json:"provider_burst"`
}

func (c RegistryConfig) withDefaults() RegistryConfig {
	if c.HealthCacheTTL == 0 {
		c.HealthCacheTTL = 30 * time.Second
	}

	if c.ProviderRPS == 0 {
		c.ProviderRPS = 5
	}

	if c.ProviderBurst == 0 {
		c.ProviderBurst = 5
	}

	return c
}

// Registry resolves providers to connectors and owns the per-provider rate
// limiters and the health check cache.
type Registry struct {
	config RegistryConfig

	mu         sync.RWMutex
	connectors map[string]Connector
	limiters   map[string]*rate.Limiter

	healthCache xcache.Cache[HealthResult]
}

// NewRegistry builds an empty registry.
func NewRegistry(config RegistryConfig) *Registry {
	config = config.withDefaults()

	return &Registry{
		config:      config,
		connectors:  make(map[string]Connector),
		limiters:    make(map[string]*rate.Limiter),
		healthCache: xcache.NewMemoryWithOptions[HealthResult](config.HealthCacheTTL, 2*config.HealthCacheTTL),
	}
}

// Register adds a connector under its provider name. Re-registering a
// provider replaces the previous connector.
func (r *Registry) Register(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.connectors[c.Name()] = c
	r.limiters[c.Name()] = rate.NewLimiter(rate.Limit(r.config.ProviderRPS), r.config.ProviderBurst)
}

// Get resolves a provider name.
func (r *Registry) Get(provider string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.connectors[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	return c, nil
}

// Providers lists registered provider names, sorted.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		providers = append(providers, name)
	}

	sort.Strings(providers)

	return providers
}

// Wait blocks until the provider's rate limiter admits one collect call.
func (r *Registry) Wait(ctx context.Context, provider string) error {
	r.mu.RLock()
	limiter := r.limiters[provider]
	r.mu.RUnlock()

	if limiter == nil {
		return nil
	}

	return limiter.Wait(ctx)
}

// Health returns the provider's health, served from cache within the TTL so
// dashboards cannot hammer external systems.
func (r *Registry) Health(ctx context.Context, provider string, cfg Config, secretRef string) (HealthResult, error) {
	if cached, err := r.healthCache.Get(ctx, provider); err == nil {
		return cached, nil
	}

	c, err := r.Get(provider)
	if err != nil {
		return HealthResult{}, err
	}

	result, err := c.HealthCheck(ctx, cfg, secretRef)
	if err != nil {
		return HealthResult{}, fmt.Errorf("%w: health check %s: %w", ErrConnectorFailure, provider, err)
	}

	if cacheErr := r.healthCache.Set(ctx, provider, result); cacheErr != nil {
		log.Warn(ctx, "failed to cache health result",
			log.String("provider", provider),
			log.Cause(cacheErr),
		)
	}

	return result, nil
}
