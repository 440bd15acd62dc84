package routes

import (
	"cardpool/internal/adapters/http/handlers"
	"cardpool/internal/adapters/http/middleware"
	"cardpool/internal/adapters/persistence/repositories"
	"cardpool/internal/config"
	"cardpool/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Initialize repositories
	memberRepo := repositories.NewMemberRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	expenseRepo := repositories.NewExpenseRepository(db)
	requestRepo := repositories.NewLimitRequestRepository(db)

	// Initialize services
	limitService := services.NewLimitService(db, cfg.Limit)
	authService := services.NewAuthService(memberRepo, refreshTokenRepo, cfg)
	expenseService := services.NewExpenseService(expenseRepo, limitService)
	requestService := services.NewRequestService(db, requestRepo, limitService)
	adminService := services.NewAdminService(memberRepo, limitService)
	dashboardService := services.NewDashboardService(memberRepo, limitService)
	exportService := services.NewExportService(expenseRepo)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	expenseHandler := handlers.NewExpenseHandler(expenseService)
	requestHandler := handlers.NewRequestHandler(requestService)
	adminHandler := handlers.NewAdminHandler(adminService, exportService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, limitService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")

	// Auth routes (public, stricter rate limit)
	authRoutes := apiV1.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// Everything below requires authentication
	protected := apiV1.Group("", middleware.AuthMiddleware(cfg))

	// My limit
	protected.Get("/me/limit", dashboardHandler.GetMyLimit)

	// Dashboard
	protected.Get("/dashboard/summary", dashboardHandler.GetSummary)

	// Expense ledger
	expenseRoutes := protected.Group("/expenses")
	expenseRoutes.Get("/", expenseHandler.List)
	expenseRoutes.Post("/", expenseHandler.Create)
	expenseRoutes.Put("/:id", expenseHandler.Update)
	expenseRoutes.Delete("/:id", expenseHandler.Delete)

	// Limit request workflow
	requestRoutes := protected.Group("/limit-requests")
	requestRoutes.Get("/", requestHandler.List)
	requestRoutes.Post("/", requestHandler.Open)
	requestRoutes.Post("/:id/cancel", requestHandler.Cancel)
	requestRoutes.Post("/:id/confirm", requestHandler.Confirm)
	requestRoutes.Post("/:id/return", requestHandler.Return)

	protected.Post("/limit-approvals", requestHandler.Approve)

	// Admin routes
	adminRoutes := protected.Group("/admin", middleware.AdminOnly())
	adminRoutes.Get("/members", adminHandler.ListMembers)
	adminRoutes.Patch("/members/:id", adminHandler.PatchMember)
	adminRoutes.Get("/export", adminHandler.Export)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes (5 req/min/IP)
	router.Post("/signup", middleware.AuthRateLimiter(), handler.Signup)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}
