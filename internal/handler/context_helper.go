package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hallpasshq/hallpass-api/internal/middleware"
	"github.com/hallpasshq/hallpass-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextClaimsKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func tenantFromContext(c *gin.Context) *models.Tenant {
	value, exists := c.Get(middleware.ContextTenantKey)
	if !exists {
		return nil
	}
	tenant, ok := value.(*models.Tenant)
	if !ok {
		return nil
	}
	return tenant
}

// adminTenantID returns the tenant scope of the authenticated admin.
func adminTenantID(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	return claims.TenantID
}
