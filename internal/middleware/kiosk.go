package middleware

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/hallpasshq/hallpass-api/internal/models"
	appErrors "github.com/hallpasshq/hallpass-api/pkg/errors"
	"github.com/hallpasshq/hallpass-api/pkg/response"
)

// ContextTenantKey is the gin context key storing the resolved tenant.
const ContextTenantKey = "currentTenant"

// KioskTokenHeader carries the opaque per-room token kiosks authenticate with.
const KioskTokenHeader = "X-Kiosk-Token"

type kioskTenantResolver interface {
	FindByKioskToken(ctx context.Context, token string) (*models.Tenant, error)
}

// KioskAuth resolves the kiosk token header to its tenant. Kiosks are
// low-trust devices: the token grants scan and status access only, never
// admin operations.
func KioskAuth(tenants kioskTenantResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(KioskTokenHeader)
		if token == "" {
			token = c.Query("kiosk_token")
		}
		if token == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "kiosk token required"))
			c.Abort()
			return
		}

		tenant, err := tenants.FindByKioskToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "unknown kiosk token"))
			} else {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve kiosk token"))
			}
			c.Abort()
			return
		}

		c.Set(ContextTenantKey, tenant)
		c.Next()
	}
}
