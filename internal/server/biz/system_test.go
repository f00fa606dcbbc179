package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/casewarden/discoveryhub/internal/authz"
	"github.com/casewarden/discoveryhub/internal/connector"
	"github.com/casewarden/discoveryhub/internal/connector/simulator"
	"github.com/casewarden/discoveryhub/internal/objects"
	"github.com/casewarden/discoveryhub/internal/store"
)

func newSystemService(providers map[string]ProviderConfig) (*SystemService, *store.MemorySettingsStore) {
	registry := connector.NewRegistry(connector.RegistryConfig{})
	for _, sim := range simulator.All() {
		registry.Register(sim)
	}

	settings := store.NewMemorySettingsStore()

	svc := NewSystemService(SystemServiceParams{
		Registry:  registry,
		Settings:  settings,
		Providers: providers,
	})

	return svc, settings
}

func TestSystemStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("reports every registered provider", func(t *testing.T) {
		svc, _ := newSystemService(nil)

		status := svc.Status(ctx)
		require.NotEmpty(t, status.BuildInfo.Version)
		require.Len(t, status.Providers, 4)

		for provider, health := range status.Providers {
			require.True(t, health.Healthy, "expected %s to be healthy", provider)
		}
	})

	t.Run("unhealthy providers are reported not failed on", func(t *testing.T) {
		svc, _ := newSystemService(map[string]ProviderConfig{
			simulator.ProviderCRM: {
				Config: connector.Config{simulator.KeySimulateFailure: "health"},
			},
		})

		status := svc.Status(ctx)
		require.False(t, status.Providers[simulator.ProviderCRM].Healthy)
		require.True(t, status.Providers[simulator.ProviderMailbox].Healthy)
	})
}

func TestProviderHealth(t *testing.T) {
	ctx := context.Background()

	t.Run("known provider", func(t *testing.T) {
		svc, _ := newSystemService(nil)

		health, err := svc.ProviderHealth(ctx, simulator.ProviderMailbox)
		require.NoError(t, err)
		require.True(t, health.Healthy)
	})

	t.Run("unknown provider", func(t *testing.T) {
		svc, _ := newSystemService(nil)

		_, err := svc.ProviderHealth(ctx, "sharepoint")
		require.ErrorIs(t, err, connector.ErrUnknownProvider)
	})
}

func TestTenantSettings(t *testing.T) {
	ctx := context.Background()

	actor := func(role authz.Role) authz.Actor {
		return authz.Actor{UserID: "u1", Role: role, TenantID: "t1"}
	}

	t.Run("admins and the privacy office manage settings", func(t *testing.T) {
		svc, settings := newSystemService(nil)

		require.NoError(t, svc.UpdateSettings(ctx, actor(authz.RoleDPO), objects.TenantSettings{
			RequireTwoPersonExport: true,
		}))

		// The tenant id always comes from the actor.
		stored := settings.Get("t1")
		require.Equal(t, "t1", stored.TenantID)
		require.True(t, stored.RequireTwoPersonExport)
	})

	t.Run("auditors read but never write", func(t *testing.T) {
		svc, _ := newSystemService(nil)

		_, err := svc.GetSettings(ctx, actor(authz.RoleAuditor))
		require.NoError(t, err)

		err = svc.UpdateSettings(ctx, actor(authz.RoleAuditor), objects.TenantSettings{})
		require.ErrorIs(t, err, authz.ErrPermissionDenied)
	})

	t.Run("scoped roles have no settings access", func(t *testing.T) {
		svc, _ := newSystemService(nil)

		_, err := svc.GetSettings(ctx, actor(authz.RoleAnalyst))
		require.ErrorIs(t, err, authz.ErrPermissionDenied)

		err = svc.UpdateSettings(ctx, actor(authz.RoleCaseManager), objects.TenantSettings{})
		require.ErrorIs(t, err, authz.ErrPermissionDenied)
	})
}
