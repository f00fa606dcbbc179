package server

import (
	"github.com/gin-contrib/cors"
	"go.uber.org/fx"

	"github.com/casewarden/discoveryhub/internal/server/api"
	"github.com/casewarden/discoveryhub/internal/server/biz"
	"github.com/casewarden/discoveryhub/internal/server/middleware"
)

type Handlers struct {
	fx.In

	Runs    *api.RunHandlers
	Gate    *api.GateHandlers
	Exports *api.ExportHandlers
	Team    *api.TeamHandlers
	System  *api.SystemHandlers
}

type Services struct {
	fx.In

	AuthService *biz.AuthService
}

func SetupRoutes(server *Server, handlers Handlers, services Services) {
	server.Use(middleware.AccessLog())
	server.Use(middleware.WithLoggingTracing(server.Config.Trace))

	if server.Config.CORS.Enabled {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = server.Config.CORS.AllowedOrigins
		corsConfig.AllowMethods = server.Config.CORS.AllowedMethods
		corsConfig.AllowHeaders = server.Config.CORS.AllowedHeaders
		corsConfig.ExposeHeaders = server.Config.CORS.ExposedHeaders
		corsConfig.AllowCredentials = server.Config.CORS.AllowCredentials
		corsConfig.MaxAge = server.Config.CORS.MaxAge

		corsHandler := cors.New(corsConfig)
		server.Use(corsHandler)
		server.OPTIONS("*any", corsHandler)
	}

	publicGroup := server.Group("", middleware.WithTimeout(server.Config.RequestTimeout))
	{
		// Health check endpoint - no authentication required
		publicGroup.GET("/health", handlers.System.Health)
	}

	apiGroup := server.Group("/api/v1",
		middleware.WithTimeout(server.Config.RequestTimeout),
		middleware.WithJWTAuth(services.AuthService),
	)

	{
		systemGroup := apiGroup.Group("/system")
		systemGroup.GET("/status", handlers.System.Status)
		systemGroup.GET("/providers/:provider/health", handlers.System.ProviderHealth)
	}

	{
		settingsGroup := apiGroup.Group("/settings")
		settingsGroup.GET("", handlers.System.GetSettings)
		settingsGroup.PUT("", handlers.System.UpdateSettings)
	}

	{
		caseGroup := apiGroup.Group("/cases/:caseID")

		caseGroup.GET("/team", handlers.Team.ListMembers)
		caseGroup.POST("/team", handlers.Team.AddMember)
		caseGroup.DELETE("/team/:userID", handlers.Team.RemoveMember)

		caseGroup.POST("/runs", handlers.Runs.CreateRun)
		caseGroup.GET("/runs", handlers.Runs.ListRuns)

		runGroup := caseGroup.Group("/runs/:runID")
		runGroup.GET("", handlers.Runs.GetRun)
		runGroup.POST("/submit", handlers.Runs.SubmitRun)
		runGroup.POST("/cancel", handlers.Runs.CancelRun)
		runGroup.GET("/queries", handlers.Runs.ListQueries)
		runGroup.GET("/findings", handlers.Runs.ListFindings)

		runGroup.GET("/gate", handlers.Gate.CheckGate)
		runGroup.POST("/gate/request-review", handlers.Gate.RequestReview)
		runGroup.POST("/gate/approve", handlers.Gate.Approve)
		runGroup.POST("/gate/reject", handlers.Gate.Reject)

		runGroup.POST("/exports/approvals", handlers.Exports.ApproveStep)
		runGroup.POST("/exports", handlers.Exports.Generate)
		runGroup.GET("/exports", handlers.Exports.ListExports)
	}
}
