package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/casewarden/discoveryhub/internal/build"
	"github.com/casewarden/discoveryhub/internal/objects"
	"github.com/casewarden/discoveryhub/internal/server/biz"
)

type SystemHandlersParams struct {
	fx.In

	SystemService *biz.SystemService
}

func NewSystemHandlers(params SystemHandlersParams) *SystemHandlers {
	return &SystemHandlers{
		SystemService: params.SystemService,
	}
}

type SystemHandlers struct {
	SystemService *biz.SystemService
}

// Health is the liveness probe.
func (h *SystemHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": build.GetBuildInfo().Version,
	})
}

// Status reports build info and provider health.
func (h *SystemHandlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.SystemService.Status(c.Request.Context()))
}

// ProviderHealth checks one provider.
func (h *SystemHandlers) ProviderHealth(c *gin.Context) {
	result, err := h.SystemService.ProviderHealth(c.Request.Context(), c.Param("provider"))
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSettings returns the tenant's engine settings.
func (h *SystemHandlers) GetSettings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	settings, err := h.SystemService.GetSettings(c.Request.Context(), actor)
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings replaces the tenant's engine settings.
func (h *SystemHandlers) UpdateSettings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var settings objects.TenantSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		JSONError(c, http.StatusBadRequest, err)
		return
	}

	if err := h.SystemService.UpdateSettings(c.Request.Context(), actor, settings); err != nil {
		BizError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
