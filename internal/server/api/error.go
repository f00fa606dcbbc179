package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/casewarden/discoveryhub/internal/authz"
	"github.com/casewarden/discoveryhub/internal/objects"
	"github.com/casewarden/discoveryhub/internal/server/biz"
	"github.com/casewarden/discoveryhub/internal/store"
)

// JSONError returns a JSON error response and adds the error to gin context for access logging.
func JSONError(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.JSON(status, objects.ErrorResponse{
		Error: objects.Error{
			Type:    http.StatusText(status),
			Message: err.Error(),
		},
	})
}

// BizError maps the engine error taxonomy onto HTTP statuses.
func BizError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authz.ErrPermissionDenied):
		JSONError(c, http.StatusForbidden, err)
	case errors.Is(err, store.ErrNotFound):
		JSONError(c, http.StatusNotFound, err)
	case errors.Is(err, biz.ErrInvalidTransition):
		JSONError(c, http.StatusConflict, err)
	case errors.Is(err, biz.ErrValidation):
		JSONError(c, http.StatusUnprocessableEntity, err)
	case errors.Is(err, biz.ErrConcurrencyLimitExceeded):
		JSONError(c, http.StatusTooManyRequests, err)
	default:
		JSONError(c, http.StatusInternalServerError, err)
	}
}
