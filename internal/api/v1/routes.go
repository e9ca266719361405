package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bantaydalan/bantaydalan-api/internal/pkg/middleware"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/permission"
)

// Limits are the per-route rate limiters. A nil handler disables that limit.
type Limits struct {
	Login  fiber.Handler
	Submit fiber.Handler
}

func (l Limits) login() []fiber.Handler {
	if l.Login == nil {
		return nil
	}
	return []fiber.Handler{l.Login}
}

func (l Limits) submit() []fiber.Handler {
	if l.Submit == nil {
		return nil
	}
	return []fiber.Handler{l.Submit}
}

func chain(pre []fiber.Handler, h ...fiber.Handler) []fiber.Handler {
	return append(append([]fiber.Handler{}, pre...), h...)
}

// RegisterHandlers installs the public, reporter and admin routes under router.
func RegisterHandlers(router fiber.Router, s *APIServer, auth *middleware.Auth, limits Limits) {
	router.Get("/ping", s.GetPing)

	// public and reporter
	router.Post("/auth/register", chain(limits.login(), s.HandleUserRegister)...)
	router.Post("/auth/login", chain(limits.login(), s.HandleUserLogin)...)
	router.Post("/auth/logout", auth.RequireUser(), s.HandleUserLogout)

	router.Get("/reports/map", s.HandlePublicMap)
	router.Get("/reports/mine", auth.RequireUser(), s.HandleMyReports)
	router.Post("/reports", chain(limits.submit(), auth.RequireUser(), s.HandleSubmitReport)...)
	router.Get("/track/:code", s.HandleTrackReport)

	router.Get("/news", s.HandleNewsList)
	router.Get("/news/:slug", s.HandleNewsShow)

	// admin
	admin := router.Group("/admin")
	// login is registered ahead of the guard below, which covers the rest of the group
	admin.Post("/auth/login", chain(limits.login(), s.HandleAdminLogin)...)

	secured := admin.Group("", auth.RequireAdmin())
	secured.Post("/auth/logout", s.HandleAdminLogout)
	secured.Get("/auth/me", s.HandleAdminMe)

	secured.Get("/reports", middleware.RequirePermission(permission.ReportView), s.HandleAdminListReports)
	secured.Get("/reports/:id", middleware.RequirePermission(permission.ReportView), s.HandleAdminGetReport)
	// per-target permissions are checked by the lifecycle gate
	secured.Patch("/reports/:id/status", s.HandleAdminChangeStatus)
	secured.Patch("/reports/:id", s.HandleAdminUpdateReport)
	secured.Delete("/reports/:id", s.HandleAdminDeleteReport)

	secured.Get("/stats", middleware.RequirePermission(permission.AnalyticsView), s.HandleAdminStats)

	secured.Get("/admins", middleware.RequirePermission(permission.AdminManage), s.HandleAdminListAdmins)
	secured.Post("/admins", middleware.RequirePermission(permission.AdminManage), s.HandleAdminCreateAdmin)
	secured.Patch("/admins/:id", middleware.RequirePermission(permission.AdminManage), s.HandleAdminUpdateAdmin)
	secured.Delete("/admins/:id", middleware.RequirePermission(permission.AdminDelete), s.HandleAdminDeleteAdmin)

	secured.Get("/news", middleware.RequireAnyPermission(permission.NewsCreate, permission.NewsUpdate, permission.NewsDelete), s.HandleAdminNewsList)
	secured.Post("/news", middleware.RequirePermission(permission.NewsCreate), s.HandleAdminNewsCreate)
	secured.Patch("/news/:id", middleware.RequirePermission(permission.NewsUpdate), s.HandleAdminNewsUpdate)
	secured.Delete("/news/:id", middleware.RequirePermission(permission.NewsDelete), s.HandleAdminNewsDelete)

	secured.Get("/settings", middleware.RequirePermission(permission.SettingsManage), s.HandleAdminGetSettings)
	secured.Put("/settings", middleware.RequirePermission(permission.SettingsManage), s.HandleAdminUpdateSettings)

	secured.Get("/activity-logs", middleware.RequirePermission(permission.AuditView), s.HandleAdminActivityLogs)
}
