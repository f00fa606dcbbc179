package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/casewarden/discoveryhub/internal/server/biz"
)

type RunHandlersParams struct {
	fx.In

	RunService *biz.RunService
}

func NewRunHandlers(params RunHandlersParams) *RunHandlers {
	return &RunHandlers{
		RunService: params.RunService,
	}
}

type RunHandlers struct {
	RunService *biz.RunService
}

// CreateRun creates a DRAFT run with its queries.
func (h *RunHandlers) CreateRun(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	var input biz.CreateRunInput
	if err := c.ShouldBindJSON(&input); err != nil {
		JSONError(c, http.StatusBadRequest, errors.New("invalid request format"))
		return
	}

	input.CaseID = access.CaseID

	run, err := h.RunService.CreateRun(c.Request.Context(), access, input)
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusCreated, run)
}

// ListRuns lists the case's runs.
func (h *RunHandlers) ListRuns(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	runs, err := h.RunService.ListRuns(c.Request.Context(), access)
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun returns one run.
func (h *RunHandlers) GetRun(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	run, err := h.RunService.GetRun(c.Request.Context(), access, c.Param("runID"))
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// SubmitRun queues a DRAFT run for execution.
func (h *RunHandlers) SubmitRun(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	run, err := h.RunService.SubmitRun(c.Request.Context(), access, c.Param("runID"))
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, run)
}

// CancelRun cancels a non-terminal run.
func (h *RunHandlers) CancelRun(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	run, err := h.RunService.CancelRun(c.Request.Context(), access, c.Param("runID"))
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListQueries returns the run's queries with their dispatch status.
func (h *RunHandlers) ListQueries(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	queries, err := h.RunService.ListQueries(c.Request.Context(), access, c.Param("runID"))
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"queries": queries})
}

// ListFindings returns the run's aggregated findings.
func (h *RunHandlers) ListFindings(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	findings, err := h.RunService.ListFindings(c.Request.Context(), access, c.Param("runID"))
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"findings": findings})
}
