package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/hallpasshq/hallpass-api/internal/middleware"
	"github.com/hallpasshq/hallpass-api/internal/models"
	"github.com/hallpasshq/hallpass-api/internal/service"
)

// Deps bundles everything route registration needs.
type Deps struct {
	Auth      *AuthHandler
	Scan      *ScanHandler
	Queue     *QueueHandler
	Schedule  *ScheduleHandler
	Session   *SessionHandler
	Settings  *SettingsHandler
	Roster    *RosterHandler
	Stats     *StatsHandler
	AuthSvc   *service.AuthService
	Metrics   *service.MetricsService
	KioskRepo interface {
		FindByKioskToken(ctx context.Context, token string) (*models.Tenant, error)
	}
}

// Register wires all API routes onto the engine under the given prefix.
func Register(r *gin.Engine, prefix string, deps Deps) {
	api := r.Group(prefix)

	api.POST("/auth/login", deps.Auth.Login)

	kiosk := api.Group("/kiosk")
	kiosk.Use(middleware.KioskAuth(deps.KioskRepo))
	{
		kiosk.POST("/scan", deps.Scan.Scan)
		kiosk.GET("/status", deps.Scan.Status)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(deps.AuthSvc))
	{
		admin.GET("/stats", deps.Stats.Dashboard)
		admin.POST("/overdue/ban-all", deps.Stats.BanOverdue)

		admin.GET("/settings", deps.Settings.Get)
		admin.PATCH("/settings", deps.Settings.Update)
		admin.POST("/suspend", deps.Settings.Suspend)

		admin.GET("/schedules", deps.Schedule.List)
		admin.POST("/schedules", deps.Schedule.Create)
		admin.PUT("/schedules/:id", deps.Schedule.Update)
		admin.DELETE("/schedules/:id", deps.Schedule.Delete)
		admin.GET("/availability", deps.Schedule.Availability)

		admin.GET("/queue", deps.Queue.List)
		admin.PUT("/queue/order", deps.Queue.Reorder)
		admin.DELETE("/queue/:studentRef", deps.Queue.Remove)

		admin.GET("/logs", deps.Session.Logs)
		admin.DELETE("/logs", deps.Session.Purge)
		admin.GET("/logs/export", deps.Session.Export)
		admin.POST("/sessions/:id/end", deps.Session.End)

		admin.GET("/roster", deps.Roster.List)
		admin.POST("/roster/:studentRef/ban", deps.Roster.SetBan)
	}

	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
}
