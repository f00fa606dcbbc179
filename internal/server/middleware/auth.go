package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/casewarden/discoveryhub/internal/contexts"
	"github.com/casewarden/discoveryhub/internal/server/biz"
)

// ExtractBearerToken pulls the bearer token from the Authorization header.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", errors.New("authorization header must be a bearer token")
	}

	return token, nil
}

// WithJWTAuth verifies the bearer token and stores the resolved actor in
// the request context. Every case-scoped handler depends on it.
func WithJWTAuth(auth *biz.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := ExtractBearerToken(c.Request)
		if err != nil {
			AbortWithError(c, http.StatusUnauthorized, err)
			return
		}

		actor, err := auth.AuthenticateToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, biz.ErrInvalidJWT) {
				AbortWithError(c, http.StatusUnauthorized, fmt.Errorf("invalid token"))
			} else {
				AbortWithError(c, http.StatusInternalServerError, fmt.Errorf("failed to validate token"))
			}

			return
		}

		c.Request = c.Request.WithContext(contexts.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}
