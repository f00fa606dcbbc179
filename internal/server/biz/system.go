package biz

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/fx"

	"github.com/casewarden/discoveryhub/internal/authz"
	"github.com/casewarden/discoveryhub/internal/build"
	"github.com/casewarden/discoveryhub/internal/connector"
	"github.com/casewarden/discoveryhub/internal/objects"
	"github.com/casewarden/discoveryhub/internal/store"
)

type SystemServiceParams struct {
	fx.In

	Registry  *connector.Registry
	Settings  store.SettingsStore
	Providers map[string]ProviderConfig
}

// SystemService answers engine-level questions: build info, registered
// providers and their health, and tenant settings management.
type SystemService struct {
	registry  *connector.Registry
	settings  store.SettingsStore
	providers map[string]ProviderConfig
}

// NewSystemService builds the system service.
func NewSystemService(params SystemServiceParams) *SystemService {
	return &SystemService{
		registry:  params.Registry,
		settings:  params.Settings,
		providers: params.Providers,
	}
}

// Status is the system health snapshot.
type Status struct {
	BuildInfo build.Info                        `json:"buildInfo"`
	Providers map[string]connector.HealthResult `json:"providers"`
}

// Status checks every registered provider and returns the snapshot.
// Unhealthy providers are reported, not failed on.
func (s *SystemService) Status(ctx context.Context) Status {
	health := map[string]connector.HealthResult{}

	providers := s.registry.Providers()
	sort.Strings(providers)

	for _, provider := range providers {
		cfg := s.providers[provider]

		result, err := s.registry.Health(ctx, provider, cfg.Config, cfg.SecretRef)
		if err != nil {
			result = connector.HealthResult{Healthy: false, Message: err.Error()}
		}

		health[provider] = result
	}

	return Status{
		BuildInfo: build.GetBuildInfo(),
		Providers: health,
	}
}

// ProviderHealth checks one provider.
func (s *SystemService) ProviderHealth(ctx context.Context, provider string) (connector.HealthResult, error) {
	cfg, ok := s.providers[provider]
	if !ok {
		if _, err := s.registry.Get(provider); err != nil {
			return connector.HealthResult{}, err
		}
	}

	return s.registry.Health(ctx, provider, cfg.Config, cfg.SecretRef)
}

// GetSettings returns the tenant's engine settings.
func (s *SystemService) GetSettings(ctx context.Context, actor authz.Actor) (objects.TenantSettings, error) {
	if !authz.CanManageTenantSettings(actor.Role) && actor.Role != authz.RoleAuditor {
		return objects.TenantSettings{}, fmt.Errorf("%w: role %s cannot read tenant settings",
			authz.ErrPermissionDenied, actor.Role)
	}

	return s.settings.Get(actor.TenantID), nil
}

// UpdateSettings replaces the tenant's engine settings.
func (s *SystemService) UpdateSettings(ctx context.Context, actor authz.Actor, settings objects.TenantSettings) error {
	if !authz.CanManageTenantSettings(actor.Role) {
		return fmt.Errorf("%w: role %s cannot manage tenant settings",
			authz.ErrPermissionDenied, actor.Role)
	}

	settings.TenantID = actor.TenantID
	s.settings.Put(settings)

	return nil
}
