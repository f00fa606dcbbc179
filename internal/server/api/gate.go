package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/casewarden/discoveryhub/internal/server/biz"
)

type GateHandlersParams struct {
	fx.In

	GateService *biz.GateService
}

func NewGateHandlers(params GateHandlersParams) *GateHandlers {
	return &GateHandlers{
		GateService: params.GateService,
	}
}

type GateHandlers struct {
	GateService *biz.GateService
}

// CheckGate evaluates the export gate without mutating anything.
func (h *GateHandlers) CheckGate(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	decision, err := h.GateService.CheckLegalGate(c.Request.Context(), access, c.Param("runID"))
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

// RequestReview moves the legal gate from REQUIRED to PENDING.
func (h *GateHandlers) RequestReview(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	run, err := h.GateService.RequestLegalReview(c.Request.Context(), access, c.Param("runID"))
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// Approve records the Art. 9 approval.
func (h *GateHandlers) Approve(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	run, err := h.GateService.ApproveLegalGate(c.Request.Context(), access, c.Param("runID"))
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

// RejectGateRequest carries the mandatory rejection reason.
type RejectGateRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Reject records the Art. 9 rejection.
func (h *GateHandlers) Reject(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	var req RejectGateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, errors.New("rejection reason is required"))
		return
	}

	run, err := h.GateService.RejectLegalGate(c.Request.Context(), access, c.Param("runID"), req.Reason)
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}
