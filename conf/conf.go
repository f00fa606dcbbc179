// Package conf loads the engine configuration from file and environment.
// Files are YAML; every key can be overridden with a DISCOVERYHUB_
// environment variable, dots replaced by underscores.
package conf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/casewarden/discoveryhub/internal/audit"
	"github.com/casewarden/discoveryhub/internal/connector"
	"github.com/casewarden/discoveryhub/internal/log"
	"github.com/casewarden/discoveryhub/internal/metrics"
	"github.com/casewarden/discoveryhub/internal/server"
	"github.com/casewarden/discoveryhub/internal/server/biz"
)

// Config is the whole engine configuration tree.
type Config struct {
	APIServer server.Config                 `conf:"server" yaml:"server" json:"server"`
	Log       log.Config                    `conf:"log" yaml:"log" json:"log"`
	Auth      biz.AuthConfig                `conf:"auth" yaml:"auth" json:"auth"`
	Engine    biz.EngineConfig              `conf:"engine" yaml:"engine" json:"engine"`
	Registry  connector.RegistryConfig      `conf:"registry" yaml:"registry" json:"registry"`
	Audit     audit.Config                  `conf:"audit" yaml:"audit" json:"audit"`
	Metrics   metrics.Config                `conf:"metrics" yaml:"metrics" json:"metrics"`
	Providers map[string]biz.ProviderConfig `conf:"providers" yaml:"providers" json:"providers"`
}

// Load reads the configuration. A missing config file is not an error; the
// defaults plus environment variables still make a runnable engine.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigName("discoveryhub")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./conf")
	v.AddConfigPath("/etc/discoveryhub")

	v.SetEnvPrefix("DISCOVERYHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("conf: read config: %w", err)
		}
	}

	var config Config

	err := v.Unmarshal(&config, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "conf"
	})
	if err != nil {
		return Config{}, fmt.Errorf("conf: unmarshal config: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.name", "discoveryhub")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("audit.path", "discoveryhub_audit.db")
	v.SetDefault("metrics.exporter", "none")
}

// Module provides the loaded config and its per-concern slices.
var Module = fx.Options(
	fx.Provide(Load),
	fx.Provide(func(cfg Config) server.Config { return cfg.APIServer }),
	fx.Provide(func(cfg Config) log.Config { return cfg.Log }),
	fx.Provide(func(cfg Config) biz.AuthConfig { return cfg.Auth }),
	fx.Provide(func(cfg Config) biz.EngineConfig { return cfg.Engine }),
	fx.Provide(func(cfg Config) connector.RegistryConfig { return cfg.Registry }),
	fx.Provide(func(cfg Config) audit.Config { return cfg.Audit }),
	fx.Provide(func(cfg Config) metrics.Config { return cfg.Metrics }),
	fx.Provide(func(cfg Config) map[string]biz.ProviderConfig { return cfg.Providers }),
)
