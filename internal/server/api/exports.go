package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/casewarden/discoveryhub/internal/objects"
	"github.com/casewarden/discoveryhub/internal/server/biz"
)

type ExportHandlersParams struct {
	fx.In

	GateService *biz.GateService
}

func NewExportHandlers(params ExportHandlersParams) *ExportHandlers {
	return &ExportHandlers{
		GateService: params.GateService,
	}
}

type ExportHandlers struct {
	GateService *biz.GateService
}

// ApproveStepRequest selects which of the two export approvals to record.
type ApproveStepRequest struct {
	Step int `json:"step" binding:"required"`
}

// ApproveStep records one export approval.
func (h *ExportHandlers) ApproveStep(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	var req ApproveStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, errors.New("approval step is required"))
		return
	}

	run, err := h.GateService.ApproveExportStep(c.Request.Context(), access, c.Param("runID"), req.Step)
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// GenerateResponse pairs the artifact with the index payload. Data is null
// when the gate blocked the attempt.
type GenerateResponse struct {
	Artifact *objects.ExportArtifact    `json:"artifact"`
	Data     *objects.EvidenceIndexData `json:"data,omitempty"`
}

// Generate attempts to produce the evidence index. A blocked gate yields a
// 200 with a BLOCKED artifact and no data; the attempt is not an error.
func (h *ExportHandlers) Generate(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	artifact, data, err := h.GateService.GenerateExport(c.Request.Context(), access, c.Param("runID"))
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{Artifact: artifact, Data: data})
}

// ListExports returns every export attempt for the run.
func (h *ExportHandlers) ListExports(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	artifacts, err := h.GateService.ListExports(c.Request.Context(), access, c.Param("runID"))
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exports": artifacts})
}
