package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sep-portal-api/internal/middleware"
	"github.com/noah-isme/sep-portal-api/internal/models"
)

// Handlers groups every HTTP handler mounted by RegisterRoutes. Realtime may
// be nil when the change feed is disabled.
type Handlers struct {
	Auth          *AuthHandler
	Registrations *RegistrationHandler
	Transfers     *TransferHandler
	Verifications *VerificationHandler
	Alerts        *AlertHandler
	Reports       *ReportHandler
	Categories    *CategoryHandler
	Panchayaths   *PanchayathHandler
	Content       *ContentHandler
	Cash          *CashHandler
	AdminUsers    *AdminUserHandler
	Directory     *DirectoryHandler
	Realtime      *RealtimeHandler
}

// RegisterRoutes mounts the public and admin surfaces under prefix.
func RegisterRoutes(r gin.IRouter, prefix string, h Handlers, sessions middleware.SessionResolver) {
	api := r.Group(prefix)

	api.GET("/categories", h.Categories.ListActive)
	api.GET("/categories/job-card", h.Categories.JobCard)
	api.GET("/panchayaths", h.Panchayaths.ListActive)
	api.GET("/announcements", h.Content.LatestAnnouncements)
	api.GET("/utilities", h.Content.ActiveUtilities)
	api.POST("/registrations", h.Registrations.Create)
	api.GET("/registrations/status", h.Registrations.CheckStatus)
	api.POST("/registrations/:id/transfer-requests", h.Transfers.Request)
	api.GET("/directory/panchayaths", h.Directory.Panchayaths)
	api.GET("/directory/panchayaths/:id/wards", h.Directory.Wards)
	api.GET("/directory/agents", h.Directory.Agents)
	api.GET("/exports/:token", h.Reports.Download)
	api.POST("/auth/login", h.Auth.Login)

	admin := api.Group("/admin")
	if h.Realtime != nil {
		admin.GET("/ws", middleware.JWTWithQuery(sessions), h.Realtime.Connect)
	}
	admin.Use(middleware.JWT(sessions))
	admin.GET("/auth/me", h.Auth.Me)

	regRead := middleware.RequirePermission(models.PermManageRegistrations, models.PermUsersRead)
	regWrite := middleware.RequirePermission(models.PermManageRegistrations)

	registrations := admin.Group("/registrations")
	registrations.GET("", regRead, h.Registrations.List)
	registrations.POST("/bulk-approve", regWrite, h.Registrations.BulkApprove)
	registrations.GET("/:id", regRead, h.Registrations.Get)
	registrations.PUT("/:id", regWrite, h.Registrations.Update)
	registrations.DELETE("/:id", regWrite, h.Registrations.Delete)
	registrations.POST("/:id/approve", regWrite, h.Registrations.Approve)
	registrations.POST("/:id/reject", regWrite, h.Registrations.Reject)
	registrations.POST("/:id/restore", regWrite, h.Registrations.Restore)
	registrations.POST("/:id/verify", regWrite, h.Verifications.Verify)
	registrations.POST("/:id/unverify", regWrite, h.Verifications.Unverify)

	admin.GET("/alerts/expiry", regRead, h.Alerts.Expiry)
	admin.POST("/alerts/expiry/refresh", regWrite, h.Alerts.Refresh)

	admin.GET("/transfer-requests", regRead, h.Transfers.List)
	admin.POST("/transfer-requests/:id/approve", regWrite, h.Transfers.Approve)
	admin.POST("/transfer-requests/:id/reject", regWrite, h.Transfers.Reject)

	admin.GET("/verifications", regRead, h.Verifications.List)
	admin.GET("/verifications/summary", middleware.RequirePermission(models.PermManageRegistrations, models.PermUsersRead, models.PermReportsRead, models.PermManageReports), h.Verifications.Summary)

	reportRead := middleware.RequirePermission(models.PermManageReports, models.PermReportsRead)
	reports := admin.Group("/reports")
	reports.GET("/summary", reportRead, h.Reports.Summary)
	reports.POST("/exports", reportRead, h.Reports.CreateExport)
	reports.GET("/exports/:id", reportRead, h.Reports.ExportStatus)

	catRead := middleware.RequirePermission(models.PermManageCategories, models.PermCategoriesRead)
	catWrite := middleware.RequirePermission(models.PermManageCategories)
	categories := admin.Group("/categories")
	categories.GET("", catRead, h.Categories.ListAll)
	categories.POST("", catWrite, h.Categories.Create)
	categories.GET("/:id", catRead, h.Categories.Get)
	categories.PUT("/:id", catWrite, h.Categories.Update)
	categories.PATCH("/:id/active", catWrite, h.Categories.SetActive)
	categories.POST("/:id/qr", catWrite, h.Categories.UploadQR)

	panRead := middleware.RequirePermission(models.PermPanchayathsWrite, models.PermPanchayathsRead)
	panWrite := middleware.RequirePermission(models.PermPanchayathsWrite)
	panchayaths := admin.Group("/panchayaths")
	panchayaths.GET("", panRead, h.Panchayaths.ListAll)
	panchayaths.POST("", panWrite, h.Panchayaths.Create)
	panchayaths.PUT("/:id", panWrite, h.Panchayaths.Update)
	panchayaths.PATCH("/:id/active", panWrite, h.Panchayaths.SetActive)

	annRead := middleware.RequirePermission(models.PermAnnouncementsWrite, models.PermAnnouncementsRead)
	annWrite := middleware.RequirePermission(models.PermAnnouncementsWrite)
	admin.GET("/announcements", annRead, h.Content.ListAnnouncements)
	admin.POST("/announcements", annWrite, h.Content.CreateAnnouncement)
	admin.PUT("/announcements/:id", annWrite, h.Content.UpdateAnnouncement)
	admin.DELETE("/announcements/:id", annWrite, h.Content.DeleteAnnouncement)

	utilRead := middleware.RequirePermission(models.PermManageUtilities, models.PermUtilitiesRead)
	utilWrite := middleware.RequirePermission(models.PermManageUtilities)
	admin.GET("/utilities", utilRead, h.Content.ListUtilities)
	admin.POST("/utilities", utilWrite, h.Content.CreateUtility)
	admin.PUT("/utilities/:id", utilWrite, h.Content.UpdateUtility)
	admin.DELETE("/utilities/:id", utilWrite, h.Content.DeleteUtility)

	cashRead := middleware.RequirePermission(models.PermAccountsWrite, models.PermAccountsRead)
	cashWrite := middleware.RequirePermission(models.PermAccountsWrite)
	cash := admin.Group("/cash")
	cash.GET("/accounts", cashRead, h.Cash.ListAccounts)
	cash.POST("/accounts", cashWrite, h.Cash.CreateAccount)
	cash.PUT("/accounts/:id", cashWrite, h.Cash.UpdateAccount)
	cash.GET("/transactions", cashRead, h.Cash.ListTransactions)
	cash.POST("/transactions", cashWrite, h.Cash.CreateTransaction)
	cash.PUT("/transactions/:id", cashWrite, h.Cash.UpdateTransaction)
	cash.DELETE("/transactions/:id", cashWrite, h.Cash.DeleteTransaction)
	cash.POST("/transfers", cashWrite, h.Cash.Transfer)
	cash.POST("/expenses", cashWrite, h.Cash.RecordExpense)
	cash.POST("/sync", cashWrite, h.Cash.Sync)

	usersRead := middleware.RequirePermission(models.PermManageUsers, models.PermAdminUsersRead)
	usersWrite := middleware.RequirePermission(models.PermManageUsers)
	admin.GET("/permissions", usersRead, h.AdminUsers.Permissions)
	users := admin.Group("/users")
	users.GET("", usersRead, h.AdminUsers.List)
	users.POST("", usersWrite, h.AdminUsers.Create)
	users.GET("/:id", usersRead, h.AdminUsers.Get)
	users.PUT("/:id", usersWrite, h.AdminUsers.Update)
	users.DELETE("/:id", usersWrite, h.AdminUsers.Delete)
	users.PUT("/:id/permissions", usersWrite, h.AdminUsers.ReplacePermissions)
}
