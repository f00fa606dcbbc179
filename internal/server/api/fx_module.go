package api

import (
	"go.uber.org/fx"
)

var Module = fx.Module("api",
	fx.Provide(NewRunHandlers),
	fx.Provide(NewGateHandlers),
	fx.Provide(NewExportHandlers),
	fx.Provide(NewTeamHandlers),
	fx.Provide(NewSystemHandlers),
)
