package dependencies

import (
	"github.com/casewarden/discoveryhub/internal/connector"
	"github.com/casewarden/discoveryhub/internal/connector/simulator"
)

// NewRegistry builds the connector registry with every simulated provider
// registered. Real connectors would register here as well.
func NewRegistry(config connector.RegistryConfig) *connector.Registry {
	registry := connector.NewRegistry(config)

	for _, sim := range simulator.All() {
		registry.Register(sim)
	}

	return registry
}
