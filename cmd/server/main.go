package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentledger-backend/internal/archive"
	"rentledger-backend/internal/auth"
	"rentledger-backend/internal/cache"
	"rentledger-backend/internal/config"
	"rentledger-backend/internal/database"
	"rentledger-backend/internal/db"
	"rentledger-backend/internal/handlers"
	"rentledger-backend/internal/health"
	h "rentledger-backend/internal/http"
	"rentledger-backend/internal/jobs"
	"rentledger-backend/internal/middleware"
	"rentledger-backend/internal/monitoring"
	"rentledger-backend/internal/repositories"
	"rentledger-backend/internal/repositories/memory"
	"rentledger-backend/internal/repositories/postgres"
	"rentledger-backend/internal/scheduler"
	"rentledger-backend/internal/services"
	"rentledger-backend/internal/sms"
	"rentledger-backend/internal/whatsapp"
)

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Connect to Postgres; fall back to the in-memory store so the ledger
	// stays usable for demos and local work without a database
	pool, poolErr := db.TryConnect(cfg)
	var store *repositories.Store
	if poolErr != nil {
		log.Printf("[DB] Postgres unavailable: %v", poolErr)
		log.Println("[DB] Running on the in-memory store, data will not survive a restart")
		store = memory.NewStore()
	} else {
		defer pool.Close()
		log.Printf("[DB] Connected to %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

		// Run database migrations
		migrator := database.NewMigrator(pool, "migrations")
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := migrator.RunMigrations(migrateCtx); err != nil {
			cancel()
			log.Fatalf("Failed to run migrations: %v", err)
		}
		cancel()

		store = postgres.NewStore(pool)
	}

	// Initialize Redis cache (optional - graceful fallback if unavailable)
	if err := cache.Init(); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (reads go straight to the store)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
	}

	// Initialize health checker
	healthChecker := health.NewHealthChecker(pool)

	// Start monitoring dashboard server in background
	go monitoring.NewMonitoringServer(pool, store, 9090).Start()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg)

	// Archive bucket for receipt and report artifacts (optional)
	var archiver *archive.Uploader
	if cfg.Archive.Enabled {
		uploader, err := archive.NewUploader(context.Background(), cfg)
		if err != nil {
			log.Printf("[Archive] Bucket unavailable: %v (artifacts stay local)", err)
		} else {
			archiver = uploader
			log.Println("[Archive] Object storage connected")
		}
	}

	// Message providers: WhatsApp first when configured, SMS as fallback,
	// the mock when neither is set up
	var primary, fallback sms.Provider
	if cfg.WhatsApp.Enabled {
		primary = whatsapp.NewService(cfg.WhatsApp.APIKey, cfg.WhatsApp.PhoneNumberID)
		log.Println("[Notify] WhatsApp Cloud API enabled as primary channel")
	}
	if cfg.SMS.Enabled {
		fast2sms := sms.NewFast2SMS(cfg.SMS.APIKey)
		if cfg.SMS.SenderID != "" {
			fast2sms.SetConfig(&sms.Config{
				Route:      "v3",
				SenderID:   cfg.SMS.SenderID,
				EntityID:   cfg.SMS.DLTEntity,
				CostPerSMS: 0.25,
			})
		}
		fallback = fast2sms
		log.Println("[Notify] Fast2SMS enabled")
	}
	if primary == nil && fallback == nil {
		log.Println("[Notify] No message provider configured, messages will print to the log")
	}

	// Initialize services
	directoryService := services.NewDirectoryService(store)
	receiptService := services.NewReceiptService(store, directoryService)
	paymentService := services.NewPaymentService(store, receiptService)
	depositService := services.NewDepositService(store, directoryService)
	reportService := services.NewReportService(store)
	exportService := services.NewExportService(store, archiver)
	notificationService := services.NewNotificationService(store, primary, fallback)
	paymentService.SetNotifier(notificationService)
	depositService.SetNotifier(notificationService)
	razorpayService := services.NewRazorpayService(store, paymentService, cfg)
	userService := services.NewUserService(store, jwtManager)
	systemSettingService := services.NewSystemSettingService(store)
	totpService := services.NewTOTPService(store)
	portalService := services.NewTenantPortalService(store, jwtManager, primary, fallback)

	// Seed operator-tunable settings so the settings screen has rows to edit
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := systemSettingService.SeedDefaults(seedCtx); err != nil {
		log.Printf("[Settings] Seeding defaults failed: %v", err)
	}
	seedCancel()

	// Keep the Prometheus gauges in step with the ledger
	gaugeCollector := services.NewGaugeCollector(store)
	gaugeCollector.Start()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, totpService, jwtManager)
	totpHandler := handlers.NewTOTPHandler(totpService)
	userHandler := handlers.NewUserHandler(userService)
	tenantHandler := handlers.NewTenantHandler(directoryService, depositService)
	propertyHandler := handlers.NewPropertyHandler(directoryService)
	rentPaymentHandler := handlers.NewRentPaymentHandler(paymentService)
	receiptHandler := handlers.NewReceiptHandler(receiptService, exportService)
	depositHandler := handlers.NewDepositHandler(depositService)
	reportHandler := handlers.NewReportHandler(reportService, exportService)
	razorpayHandler := handlers.NewRazorpayHandler(razorpayService)
	portalHandler := handlers.NewPortalHandler(portalService, paymentService, razorpayService, exportService)
	systemSettingHandler := handlers.NewSystemSettingHandler(systemSettingService)
	smsHandler := handlers.NewSMSHandler(notificationService)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, store.Users)
	tenantAuthMiddleware := middleware.NewTenantAuthMiddleware(jwtManager, store.Tenants)
	corsMiddleware := middleware.NewCORS(cfg)
	apiLogging := middleware.NewAPILoggingMiddleware()
	defer apiLogging.Close()

	// Create router
	router := h.NewRouter(
		authHandler,
		totpHandler,
		userHandler,
		tenantHandler,
		propertyHandler,
		rentPaymentHandler,
		receiptHandler,
		depositHandler,
		reportHandler,
		razorpayHandler,
		portalHandler,
		systemSettingHandler,
		smsHandler,
		healthHandler,
		authMiddleware,
		tenantAuthMiddleware,
	)

	// Wrap with panic recovery, metrics and CORS middleware
	handler := middleware.PanicRecovery(middleware.MetricsMiddleware(corsMiddleware(apiLogging.Handler(router))))

	// Background jobs: overdue sweep, monthly generation, reminders, reconcile
	var cronScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobRunner := jobs.NewJobRunner(store, paymentService, razorpayService, notificationService, systemSettingService, cfg)
		cronScheduler = scheduler.NewScheduler(jobRunner, cfg)
		cronScheduler.Start()
	} else {
		log.Println("[Scheduler] Disabled by config")
	}

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}
	go func() {
		log.Printf("Server running on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown: stop taking requests, then stop the background work
	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if cronScheduler != nil {
		cronScheduler.Stop()
	}
	gaugeCollector.Stop()
	log.Println("Server stopped")
}
