package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/casewarden/discoveryhub/internal/server/biz"
)

type TeamHandlersParams struct {
	fx.In

	TeamService *biz.TeamService
}

func NewTeamHandlers(params TeamHandlersParams) *TeamHandlers {
	return &TeamHandlers{
		TeamService: params.TeamService,
	}
}

type TeamHandlers struct {
	TeamService *biz.TeamService
}

// MemberRequest names the user being added or removed.
type MemberRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// AddMember adds a user to the case team.
func (h *TeamHandlers) AddMember(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, errors.New("user id is required"))
		return
	}

	if err := h.TeamService.AddMember(c.Request.Context(), access, req.UserID); err != nil {
		BizError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RemoveMember removes a user from the case team.
func (h *TeamHandlers) RemoveMember(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	userID := c.Param("userID")
	if userID == "" {
		JSONError(c, http.StatusBadRequest, errors.New("user id is required"))
		return
	}

	if err := h.TeamService.RemoveMember(c.Request.Context(), access, userID); err != nil {
		BizError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListMembers returns the case team.
func (h *TeamHandlers) ListMembers(c *gin.Context) {
	access, ok := caseAccess(c)
	if !ok {
		return
	}

	members, err := h.TeamService.ListMembers(c.Request.Context(), access)
	if err != nil {
		BizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}
