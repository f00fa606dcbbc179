package biz

import (
	"go.uber.org/fx"
)

var Module = fx.Module("biz",
	fx.Provide(NewAuthService),
	fx.Provide(NewRunService),
	fx.Provide(NewGateService),
	fx.Provide(NewTeamService),
	fx.Provide(NewSystemService),
)
