package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/equipped-com/platform-api/internal/database/testutil"
	"github.com/equipped-com/platform-api/internal/models"
	"github.com/equipped-com/platform-api/internal/rbac"
	"github.com/equipped-com/platform-api/internal/tenant"
)

func seedMembership(t *testing.T, db *gorm.DB, slug string, role rbac.Role) *models.User {
	t.Helper()

	account := &models.Account{Name: slug, Slug: slug}
	require.NoError(t, db.Create(account).Error)

	user := &models.User{Email: "member@" + slug + ".example", Password: "hashed"}
	require.NoError(t, db.Create(user).Error)

	require.NoError(t, db.Create(&models.AccountAccess{
		AccountID: account.ID,
		UserID:    user.ID,
		Role:      role,
	}).Error)

	return user
}

func withUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

func TestTenantMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)
	user := seedMembership(t, db, "acme", rbac.RoleAdmin)

	resolver, err := tenant.NewResolver(db)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/scoped", withUser(user.ID), Tenant(resolver), func(c *gin.Context) {
		tc, ok := TenantFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"slug": tc.Account.Slug, "role": string(tc.Role)})
	})

	// Header present and membership exists -> resolved
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/scoped", nil)
	req.Header.Set(AccountHeader, "ACME")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"slug":"acme"`)
	require.Contains(t, w.Body.String(), `"role":"admin"`)

	// Missing header -> rejected before the handler
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/scoped", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "TENANT_CONTEXT_MISSING")

	// Unknown slug -> rejected
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/scoped", nil)
	req.Header.Set(AccountHeader, "ghost")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantOptionalMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db := testutil.MustOpenTestDB(t)
	user := seedMembership(t, db, "acme", rbac.RoleMember)

	outsider := &models.User{Email: "outsider@example.com", Password: "hashed"}
	require.NoError(t, db.Create(outsider).Error)

	resolver, err := tenant.NewResolver(db)
	require.NoError(t, err)

	handler := func(c *gin.Context) {
		_, ok := TenantFromContext(c)
		c.JSON(http.StatusOK, gin.H{"resolved": ok})
	}

	r := gin.New()
	r.GET("/member", withUser(user.ID), TenantOptional(resolver), handler)
	r.GET("/outsider", withUser(outsider.ID), TenantOptional(resolver), handler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/member", nil)
	req.Header.Set(AccountHeader, "acme")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"resolved":true`)

	// A non-member still reaches the handler, just without a tenant context.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/outsider", nil)
	req.Header.Set(AccountHeader, "acme")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"resolved":false`)
}
