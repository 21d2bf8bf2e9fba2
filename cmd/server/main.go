package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"smpc-microfin/internal/adapters/http/middleware"
	"smpc-microfin/internal/adapters/http/routes"
	"smpc-microfin/internal/adapters/persistence/models"
	"smpc-microfin/internal/adapters/persistence/repositories"
	"smpc-microfin/internal/config"
	"smpc-microfin/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

// @title SMPC MicroFin API
// @version 1.0
// @description Microfinance back-office ledger API

// @contact.name API Support
// @contact.email support@smpc-microfin.ph

// @host api.smpc-microfin.ph
// @BasePath /api/v1
// @schemes https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed the default super admin
	if err := config.NewSeeder(db).Run(); err != nil {
		log.Printf("⚠️ Warning: Failed to seed database: %v", err)
	}

	// Start cron service for the monthly savings accrual
	memberRepo := repositories.NewMemberRepository(db)
	accrualRepo := repositories.NewSavingsAccrualRepository(db)
	auditService := services.NewAuditService(repositories.NewAuditLogRepository(db))
	accrualService := services.NewAccrualService(db, memberRepo, accrualRepo, auditService, cfg.Ledger)
	cronService := services.NewCronService(accrualService, cfg.Ledger)
	if err := cronService.Start(); err != nil {
		log.Fatalf("❌ Failed to start cron: %v", err)
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "SMPC MicroFin API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	routes.Setup(app, db, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
