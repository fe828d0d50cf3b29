package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furniture-erp/config"
)

func TestCustomClaims_HasScope(t *testing.T) {
	tests := []struct {
		name          string
		scope         string
		expectedScope string
		want          bool
	}{
		{name: "has exact scope", scope: "approve:orders", expectedScope: "approve:orders", want: true},
		{name: "has scope in multiple scopes", scope: "read:orders approve:orders", expectedScope: "approve:orders", want: true},
		{name: "does not have scope", scope: "read:orders", expectedScope: "approve:orders", want: false},
		{name: "empty scope", scope: "", expectedScope: "approve:orders", want: false},
		{name: "partial match should not work", scope: "approve:orders", expectedScope: "approve", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := CustomClaims{Scope: tt.scope}
			assert.Equal(t, tt.want, claims.HasScope(tt.expectedScope))
		})
	}
}

func TestRequireScope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		setupFunc  func(*gin.Context)
		wantStatus int
	}{
		{
			name:       "no credentials",
			setupFunc:  func(c *gin.Context) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "missing scope",
			setupFunc: func(c *gin.Context) {
				c.Set(scopesKey, []string{"read:orders"})
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "has scope",
			setupFunc: func(c *gin.Context) {
				c.Set(scopesKey, []string{ScopeApproveOrders})
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(func(c *gin.Context) {
				tt.setupFunc(c)
				c.Next()
			})
			router.POST("/approve", RequireScope(ScopeApproveOrders), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/approve", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestMiddleware_DisabledGrantsAllScopes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mw, err := Middleware(config.AuthConfig{})
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw)
	router.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user":    UserID(c),
			"approve": HasScope(c, ScopeApproveOrders),
			"catalog": HasScope(c, ScopeManageCatalog),
		})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"dev","approve":true,"catalog":true}`, w.Body.String())
}

func TestEnsureValidToken_RejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mw, err := EnsureValidToken(config.AuthConfig{Domain: "example.auth0.com", Audience: "https://api.example.com"})
	require.NoError(t, err)

	called := false
	router := gin.New()
	router.Use(mw)
	router.GET("/orders", func(c *gin.Context) {
		called = true
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}
