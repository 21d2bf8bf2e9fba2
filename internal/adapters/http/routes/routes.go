package routes

import (
	"smpc-microfin/internal/adapters/http/handlers"
	"smpc-microfin/internal/adapters/http/middleware"
	"smpc-microfin/internal/adapters/persistence/repositories"
	"smpc-microfin/internal/config"
	"smpc-microfin/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	groupRepo := repositories.NewGroupRepository(db)
	memberRepo := repositories.NewMemberRepository(db)
	balanceRepo := repositories.NewBalanceAdjustmentRepository(db)
	savingsRepo := repositories.NewSavingsAdjustmentRepository(db)
	accrualRepo := repositories.NewSavingsAccrualRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)

	// Initialize services
	auditService := services.NewAuditService(auditRepo)
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg.JWT)
	userService := services.NewUserService(userRepo)
	groupService := services.NewGroupService(groupRepo)
	memberService := services.NewMemberService(memberRepo, groupRepo, accrualRepo)
	adjustmentService := services.NewAdjustmentService(db, memberRepo, balanceRepo, savingsRepo, auditService, cfg.Ledger)
	bulkService := services.NewBulkUpdateService(db, memberRepo, adjustmentService, auditService, cfg.Ledger)
	reversalService := services.NewReversalService(db, memberRepo, balanceRepo, savingsRepo, auditService)
	accrualService := services.NewAccrualService(db, memberRepo, accrualRepo, auditService, cfg.Ledger)
	reportService := services.NewReportService(memberRepo, balanceRepo, savingsRepo, cfg.Ledger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, userService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	groupHandler := handlers.NewGroupHandler(groupService)
	memberHandler := handlers.NewMemberHandler(memberService, accrualService)
	adjustmentHandler := handlers.NewAdjustmentHandler(adjustmentService, bulkService, reversalService)
	reportHandler := handlers.NewReportHandler(reportService, accrualService)
	auditHandler := handlers.NewAuditHandler(auditService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	// Auth routes (public with rate limit)
	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// User management routes (super admin only)
	userRoutes := apiV1.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	userRoutes.Use(middleware.SuperAdminOnly())
	setupUserRoutes(userRoutes, userHandler)

	// Group routes
	groupRoutes := apiV1.Group("/groups")
	groupRoutes.Use(middleware.AuthMiddleware(cfg))
	setupGroupRoutes(groupRoutes, groupHandler)

	// Member routes
	memberRoutes := apiV1.Group("/members")
	memberRoutes.Use(middleware.AuthMiddleware(cfg))
	setupMemberRoutes(memberRoutes, memberHandler, adjustmentHandler)

	// Adjustment routes (encoder or super admin)
	adjustmentRoutes := apiV1.Group("/adjustments")
	adjustmentRoutes.Use(middleware.AuthMiddleware(cfg))
	adjustmentRoutes.Use(middleware.EncoderOrAdmin())
	setupAdjustmentRoutes(adjustmentRoutes, adjustmentHandler)

	// Report routes
	reportRoutes := apiV1.Group("/reports")
	reportRoutes.Use(middleware.AuthMiddleware(cfg))
	setupReportRoutes(reportRoutes, reportHandler)

	// Audit routes (super admin only)
	auditRoutes := apiV1.Group("/audit")
	auditRoutes.Use(middleware.AuthMiddleware(cfg))
	auditRoutes.Use(middleware.SuperAdminOnly())
	setupAuditRoutes(auditRoutes, auditHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes (5 req/min/IP)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupUserRoutes configures staff administration routes
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Post("/", handler.Create)
	router.Get("/", handler.List)
	router.Patch("/:id/active", handler.SetActive)
	router.Patch("/:id/role", handler.ChangeRole)
}

// setupGroupRoutes configures lending group routes
func setupGroupRoutes(router fiber.Router, handler *handlers.GroupHandler) {
	router.Get("/", handler.List)
	router.Get("/:id", handler.Get)
	router.Post("/", middleware.EncoderOrAdmin(), handler.Create)
}

// setupMemberRoutes configures member routes
func setupMemberRoutes(router fiber.Router, handler *handlers.MemberHandler, adjustments *handlers.AdjustmentHandler) {
	router.Get("/", handler.List)
	router.Get("/:id", handler.Get)
	router.Get("/:id/summary", handler.Summary)
	router.Get("/:id/accruals", handler.ListAccruals)
	router.Get("/:id/adjustments/balance", adjustments.ListBalance)
	router.Get("/:id/adjustments/savings", adjustments.ListSavings)

	// Mutations require encoding rights
	router.Post("/", middleware.EncoderOrAdmin(), handler.Onboard)
	router.Patch("/:id/active", middleware.EncoderOrAdmin(), handler.SetActive)
}

// setupAdjustmentRoutes configures ledger mutation routes
func setupAdjustmentRoutes(router fiber.Router, handler *handlers.AdjustmentHandler) {
	router.Post("/balance", handler.ApplyBalance)
	router.Post("/savings", handler.ApplySavings)
	router.Post("/batch", middleware.BulkRateLimiter(), handler.ApplyBatch)
	router.Post("/revert", middleware.SuperAdminOnly(), handler.Revert)
}

// setupReportRoutes configures reporting routes
func setupReportRoutes(router fiber.Router, handler *handlers.ReportHandler) {
	router.Get("/portfolio", handler.Portfolio)
	router.Post("/accrual", middleware.SuperAdminOnly(), handler.RunAccrual)
}

// setupAuditRoutes configures audit browsing routes
func setupAuditRoutes(router fiber.Router, handler *handlers.AuditHandler) {
	router.Get("/", handler.List)
	router.Get("/:type/:id", handler.ListByEntity)
}
