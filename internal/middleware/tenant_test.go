package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/reportcard-api/internal/models"
)

type schoolResolverMock struct {
	schools map[string]*models.School
}

func (m *schoolResolverMock) FindBySlug(ctx context.Context, slug string) (*models.School, error) {
	if school, ok := m.schools[slug]; ok {
		return school, nil
	}
	return nil, sql.ErrNoRows
}

func newTenantRouter(resolver schoolResolver, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{Tenant(resolver)}, extra...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/:school/ping", handlers...)
	return r
}

func TestTenantResolvesSchool(t *testing.T) {
	resolver := &schoolResolverMock{schools: map[string]*models.School{
		"greenfield": {ID: "sch1", Slug: "greenfield", Active: true},
	}}
	var resolved *models.School
	r := newTenantRouter(resolver, func(c *gin.Context) {
		value, _ := c.Get(ContextSchoolKey)
		resolved = value.(*models.School)
		c.Next()
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/greenfield/ping", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resolved)
	require.Equal(t, "sch1", resolved.ID)
}

func TestTenantUnknownSchool(t *testing.T) {
	r := newTenantRouter(&schoolResolverMock{schools: map[string]*models.School{}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/nowhere/ping", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTenantDeactivatedSchool(t *testing.T) {
	resolver := &schoolResolverMock{schools: map[string]*models.School{
		"closed": {ID: "sch2", Slug: "closed", Active: false},
	}}
	r := newTenantRouter(resolver)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/closed/ping", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func tenantGuardContext(claims *models.JWTClaims, school *models.School) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	c.Request = req
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	if school != nil {
		c.Set(ContextSchoolKey, school)
	}
	return c, w
}

func TestTenantGuardMatchingSchool(t *testing.T) {
	gin.SetMode(gin.TestMode)
	schoolID := "sch1"
	c, w := tenantGuardContext(
		&models.JWTClaims{UserID: "usr-1", Role: models.RoleTeacher, SchoolID: &schoolID},
		&models.School{ID: "sch1", Active: true},
	)

	TenantGuard()(c)
	require.False(t, c.IsAborted())
	require.Equal(t, http.StatusOK, w.Code)
}

func TestTenantGuardForeignSchool(t *testing.T) {
	gin.SetMode(gin.TestMode)
	schoolID := "sch2"
	c, w := tenantGuardContext(
		&models.JWTClaims{UserID: "usr-1", Role: models.RoleTeacher, SchoolID: &schoolID},
		&models.School{ID: "sch1", Active: true},
	)

	TenantGuard()(c)
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestTenantGuardSuperAdminBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := tenantGuardContext(
		&models.JWTClaims{UserID: "usr-root", Role: models.RoleSuperAdmin},
		&models.School{ID: "sch1", Active: true},
	)

	TenantGuard()(c)
	require.False(t, c.IsAborted())
}

func TestTenantGuardMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, w := tenantGuardContext(nil, &models.School{ID: "sch1", Active: true})

	TenantGuard()(c)
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
