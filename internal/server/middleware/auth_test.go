package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casewarden/discoveryhub/internal/authz"
	"github.com/casewarden/discoveryhub/internal/contexts"
	"github.com/casewarden/discoveryhub/internal/server/biz"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid bearer token", header: "Bearer abc123", want: "abc123"},
		{name: "missing header", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic abc123", wantErr: true},
		{name: "empty token", header: "Bearer ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			token, err := ExtractBearerToken(req)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, token)
		})
	}
}

func TestWithJWTAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	auth := biz.NewAuthService(biz.AuthConfig{SecretKey: "test-secret"})
	actor := authz.Actor{UserID: "u1", Role: authz.RoleAnalyst, TenantID: "t1"}

	newEngine := func() *gin.Engine {
		engine := gin.New()
		engine.Use(WithJWTAuth(auth))
		engine.GET("/", func(c *gin.Context) {
			resolved, ok := contexts.GetActor(c.Request.Context())
			assert.True(t, ok)
			assert.Equal(t, actor, resolved)
			c.Status(http.StatusOK)
		})

		return engine
	}

	t.Run("valid token resolves the actor", func(t *testing.T) {
		token, err := auth.IssueToken(context.Background(), actor)
		require.NoError(t, err)

		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		newEngine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		newEngine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()

		newEngine().ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
