package middleware

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/classbridge/reportcard-api/internal/models"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
	"github.com/classbridge/reportcard-api/pkg/response"
)

// ContextSchoolKey is the gin context key storing the resolved school.
const ContextSchoolKey = "currentSchool"

type schoolResolver interface {
	FindBySlug(ctx context.Context, slug string) (*models.School, error)
}

// Tenant resolves the :school path slug into a School record and rejects
// requests for unknown or deactivated schools. Every school-scoped route
// sits behind this.
func Tenant(schools schoolResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("school")
		if slug == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "school not specified"))
			c.Abort()
			return
		}
		school, err := schools.FindBySlug(c.Request.Context(), slug)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "school not found"))
			} else {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve school"))
			}
			c.Abort()
			return
		}
		if !school.Active {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "school is deactivated"))
			c.Abort()
			return
		}
		c.Set(ContextSchoolKey, school)
		c.Next()
	}
}

// TenantGuard verifies the authenticated user belongs to the resolved
// school. SUPER_ADMIN accounts bypass the check.
func TenantGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, hasClaims := c.Get(ContextUserKey)
		schoolValue, hasSchool := c.Get(ContextSchoolKey)
		if !hasClaims || !hasSchool {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)
		school := schoolValue.(*models.School)
		if claims.Role == models.RoleSuperAdmin {
			c.Next()
			return
		}
		if claims.SchoolID == nil || *claims.SchoolID != school.ID {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account does not belong to this school"))
			c.Abort()
			return
		}
		c.Next()
	}
}
