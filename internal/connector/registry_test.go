package connector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/casewarden/discoveryhub/internal/objects"
)

type stubConnector struct {
	name string

	healthCalls int
	healthErr   error
}

func (s *stubConnector) Name() string { return s.name }

func (s *stubConnector) HealthCheck(ctx context.Context, cfg Config, secretRef string) (HealthResult, error) {
	s.healthCalls++

	if s.healthErr != nil {
		return HealthResult{}, s.healthErr
	}

	return HealthResult{Healthy: true, CheckedAt: time.Now().UTC()}, nil
}

func (s *stubConnector) CollectData(ctx context.Context, cfg Config, secretRef string, spec objects.QuerySpec) (CollectResult, error) {
	return CollectResult{Success: true}, nil
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("get resolves registered providers", func(t *testing.T) {
		registry := NewRegistry(RegistryConfig{})
		registry.Register(&stubConnector{name: "mailbox"})

		c, err := registry.Get("mailbox")
		require.NoError(t, err)
		require.Equal(t, "mailbox", c.Name())
	})

	t.Run("unknown provider", func(t *testing.T) {
		registry := NewRegistry(RegistryConfig{})

		_, err := registry.Get("sharepoint")
		require.ErrorIs(t, err, ErrUnknownProvider)
	})

	t.Run("providers are sorted", func(t *testing.T) {
		registry := NewRegistry(RegistryConfig{})
		registry.Register(&stubConnector{name: "hris"})
		registry.Register(&stubConnector{name: "crm"})
		registry.Register(&stubConnector{name: "mailbox"})

		require.Equal(t, []string{"crm", "hris", "mailbox"}, registry.Providers())
	})

	t.Run("wait is a no-op for unregistered providers", func(t *testing.T) {
		registry := NewRegistry(RegistryConfig{})
		require.NoError(t, registry.Wait(ctx, "sharepoint"))
	})

	t.Run("wait admits calls within the burst", func(t *testing.T) {
		registry := NewRegistry(RegistryConfig{ProviderRPS: 1, ProviderBurst: 2})
		registry.Register(&stubConnector{name: "mailbox"})

		require.NoError(t, registry.Wait(ctx, "mailbox"))
		require.NoError(t, registry.Wait(ctx, "mailbox"))
	})

	t.Run("wait honors context cancellation", func(t *testing.T) {
		registry := NewRegistry(RegistryConfig{ProviderRPS: 0.001, ProviderBurst: 1})
		registry.Register(&stubConnector{name: "mailbox"})

		require.NoError(t, registry.Wait(ctx, "mailbox"))

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		require.Error(t, registry.Wait(canceled, "mailbox"))
	})
}

func TestRegistryHealth(t *testing.T) {
	ctx := context.Background()

	t.Run("health results are cached within the ttl", func(t *testing.T) {
		registry := NewRegistry(RegistryConfig{HealthCacheTTL: time.Minute})
		stub := &stubConnector{name: "mailbox"}
		registry.Register(stub)

		first, err := registry.Health(ctx, "mailbox", nil, "")
		require.NoError(t, err)
		require.True(t, first.Healthy)

		_, err = registry.Health(ctx, "mailbox", nil, "")
		require.NoError(t, err)
		require.Equal(t, 1, stub.healthCalls)
	})

	t.Run("unknown provider", func(t *testing.T) {
		registry := NewRegistry(RegistryConfig{})

		_, err := registry.Health(ctx, "sharepoint", nil, "")
		require.ErrorIs(t, err, ErrUnknownProvider)
	})

	t.Run("check failure is wrapped and not cached", func(t *testing.T) {
		registry := NewRegistry(RegistryConfig{HealthCacheTTL: time.Minute})
		stub := &stubConnector{name: "mailbox", healthErr: errors.New("unreachable")}
		registry.Register(stub)

		_, err := registry.Health(ctx, "mailbox", nil, "")
		require.ErrorIs(t, err, ErrConnectorFailure)

		_, err = registry.Health(ctx, "mailbox", nil, "")
		require.ErrorIs(t, err, ErrConnectorFailure)
		require.Equal(t, 2, stub.healthCalls)
	})
}
