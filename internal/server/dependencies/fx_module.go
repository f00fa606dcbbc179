package dependencies

import (
	"context"

	"github.com/zhenzou/executors"
	"go.uber.org/fx"

	"github.com/casewarden/discoveryhub/internal/audit"
	"github.com/casewarden/discoveryhub/internal/authz"
	"github.com/casewarden/discoveryhub/internal/detector"
	"github.com/casewarden/discoveryhub/internal/log"
)

var Module = fx.Module("dependencies",
	fx.Provide(log.New),
	fx.Provide(NewExecutors),
	fx.Provide(NewRunStore),
	fx.Provide(NewEvidenceStore),
	fx.Provide(NewDetectorResultStore),
	fx.Provide(NewFindingStore),
	fx.Provide(NewArtifactStore),
	fx.Provide(NewSettingsStore),
	fx.Provide(NewTeamStore),
	fx.Provide(authz.NewChecker),
	fx.Provide(detector.NewEngine),
	fx.Provide(NewRegistry),
	fx.Provide(NewAuditSink),
	fx.Invoke(func(lc fx.Lifecycle, executor executors.ScheduledExecutor) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return executor.Shutdown(ctx)
			},
		})
	}),
	fx.Invoke(func(lc fx.Lifecycle, sink audit.Sink) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if closer, ok := sink.(*audit.SQLiteSink); ok {
					return closer.Close()
				}

				return nil
			},
		})
	}),
)

// NewAuditSink opens the durable audit trail.
func NewAuditSink(cfg audit.Config) (audit.Sink, error) {
	return audit.NewSQLiteSink(cfg)
}
