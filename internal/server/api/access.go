package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casewarden/discoveryhub/internal/authz"
	"github.com/casewarden/discoveryhub/internal/contexts"
)

// caseAccess assembles the access context for a case-scoped handler. The
// actor comes from the auth middleware, the case from the route.
func caseAccess(c *gin.Context) (authz.AccessContext, bool) {
	actor, ok := contexts.GetActor(c.Request.Context())
	if !ok {
		JSONError(c, http.StatusUnauthorized, errors.New("no authenticated actor"))
		return authz.AccessContext{}, false
	}

	caseID := c.Param("caseID")
	if caseID == "" {
		JSONError(c, http.StatusBadRequest, errors.New("case id is required"))
		return authz.AccessContext{}, false
	}

	return authz.AccessContext{Actor: actor, CaseID: caseID}, true
}

// currentActor resolves the actor for handlers that are not case scoped.
func currentActor(c *gin.Context) (authz.Actor, bool) {
	actor, ok := contexts.GetActor(c.Request.Context())
	if !ok {
		JSONError(c, http.StatusUnauthorized, errors.New("no authenticated actor"))
		return authz.Actor{}, false
	}

	return actor, true
}
