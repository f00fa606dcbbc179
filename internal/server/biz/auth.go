package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/casewarden/discoveryhub/internal/authz"
)

// ErrInvalidJWT marks an unusable bearer token.
var ErrInvalidJWT = errors.New("invalid jwt token")

// AuthConfig holds the token signing settings.
type AuthConfig struct {
	SecretKey string        `conf:"secret_key" yaml:"secret_key" json:"secret_key"`
	TokenTTL  time.Duration `conf:"token_ttl" yaml:"token_ttl" json:"token_ttl"`
}

func (c AuthConfig) withDefaults() AuthConfig {
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}

	return c
}

// AuthService issues and verifies the bearer tokens the API runs under.
// Tokens carry the actor identity: subject, role, and tenant.
type AuthService struct {
	config AuthConfig
}

// NewAuthService builds the auth service.
func NewAuthService(config AuthConfig) *AuthService {
	return &AuthService{config: config.withDefaults()}
}

// IssueToken signs a token for the actor.
func (s *AuthService) IssueToken(ctx context.Context, actor authz.Actor) (string, error) {
	if s.config.SecretKey == "" {
		return "", fmt.Errorf("auth secret key is not configured")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    actor.UserID,
		"role":   actor.Role.String(),
		"tenant": actor.TenantID,
		"exp":    time.Now().Add(s.config.TokenTTL).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// AuthenticateToken verifies a token and resolves the actor it carries.
func (s *AuthService) AuthenticateToken(ctx context.Context, tokenString string) (authz.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method: %v", ErrInvalidJWT, token.Header["alg"])
		}

		return []byte(s.config.SecretKey), nil
	})
	if err != nil {
		return authz.Actor{}, fmt.Errorf("%w: failed to parse jwt token: %w", ErrInvalidJWT, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return authz.Actor{}, fmt.Errorf("%w: invalid token", ErrInvalidJWT)
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return authz.Actor{}, fmt.Errorf("%w: missing subject claim", ErrInvalidJWT)
	}

	roleName, ok := claims["role"].(string)
	if !ok {
		return authz.Actor{}, fmt.Errorf("%w: missing role claim", ErrInvalidJWT)
	}

	role, err := authz.ParseRole(roleName)
	if err != nil {
		return authz.Actor{}, fmt.Errorf("%w: %w", ErrInvalidJWT, err)
	}

	tenant, ok := claims["tenant"].(string)
	if !ok || tenant == "" {
		return authz.Actor{}, fmt.Errorf("%w: missing tenant claim", ErrInvalidJWT)
	}

	return authz.Actor{UserID: sub, Role: role, TenantID: tenant}, nil
}
