// Package auth validates Auth0 access tokens and checks permission scopes.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"furniture-erp/config"
	"furniture-erp/internal/util"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Permission scopes
const (
	ScopeApproveOrders = "approve:orders"
	ScopeManageCatalog = "manage:catalog"
)

// AllScopes is granted to every caller when authentication is disabled
var AllScopes = []string{ScopeApproveOrders, ScopeManageCatalog}

const (
	userIDKey = "user_id"
	claimsKey = "validated_claims"
	scopesKey = "granted_scopes"
)

// CustomClaims contains the custom data read from the token
type CustomClaims struct {
	Scope string `json:"scope"`
	Name  string `json:"name"`
}

// Validate satisfies validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// HasScope checks whether the claims carry a specific scope
func (c CustomClaims) HasScope(expectedScope string) bool {
	for _, s := range strings.Split(c.Scope, " ") {
		if s == expectedScope {
			return true
		}
	}
	return false
}

// Middleware picks the token validator when Auth0 is configured and the
// development pass-through otherwise.
func Middleware(cfg config.AuthConfig) (gin.HandlerFunc, error) {
	if !cfg.Enabled() {
		util.GetLogger().Warn("Authentication disabled, all callers receive every scope")
		return AllowAll(), nil
	}
	return EnsureValidToken(cfg)
}

// AllowAll grants every scope to an anonymous developer identity
func AllowAll() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(userIDKey, "dev")
		c.Set(scopesKey, AllScopes)
		c.Next()
	}
}

// EnsureValidToken checks the bearer JWT against the tenant JWKS
func EnsureValidToken(cfg config.AuthConfig) (gin.HandlerFunc, error) {
	issuerURL, err := url.Parse("https://" + cfg.Domain + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse the issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Audience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set up the jwt validator: %w", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		util.GetLogger().Warn("Encountered error while validating JWT", zap.Error(err))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid token","details":"Failed to validate JWT."}`))
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		passed := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			passed = true
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			c.Request = r
			c.Set(userIDKey, token.RegisteredClaims.Subject)
			c.Set(claimsKey, token)
			if custom, ok := token.CustomClaims.(*CustomClaims); ok {
				c.Set(scopesKey, strings.Fields(custom.Scope))
			}

			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !passed {
			c.Abort()
		}
	}, nil
}

// UserID returns the caller subject, empty when unauthenticated
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// UserName returns the display name claim when present
func UserName(c *gin.Context) string {
	v, ok := c.Get(claimsKey)
	if !ok {
		return ""
	}
	claims, ok := v.(*validator.ValidatedClaims)
	if !ok {
		return ""
	}
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok {
		return custom.Name
	}
	return ""
}

// HasScope reports whether the caller was granted scope
func HasScope(c *gin.Context, scope string) bool {
	v, ok := c.Get(scopesKey)
	if !ok {
		return false
	}
	scopes, ok := v.([]string)
	if !ok {
		return false
	}
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// RequireScope rejects callers missing the given scope
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(scopesKey); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Missing credentials",
				"details": "could not retrieve token claims",
			})
			return
		}

		if !HasScope(c, scope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Insufficient permissions",
				"details": fmt.Sprintf("scope %s required", scope),
			})
			return
		}

		c.Next()
	}
}
