package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "selfstore-backend/internal/api/http"
	"selfstore-backend/internal/config"
	"selfstore-backend/internal/logger"
	"selfstore-backend/internal/repository/postgres"
	"selfstore-backend/internal/security"
	"selfstore-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Selfstore Billing Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Initialize Signature Provider
	signatureSvc, err := service.NewSignatureService(cfg.Signature.Provider, cfg.Signature.Endpoint, cfg.SignatureTimeout())
	if err != nil {
		logger.Error("Failed to initialize signature provider", "error", err)
		log.Fatalf("Failed to initialize signature provider: %v", err)
	}
	logger.Info("Signature provider configured", "provider", cfg.Signature.Provider)

	// Initialize Email Service
	var emailSvc service.EmailService
	if cfg.Email.APIKey == "" {
		logger.Info("No SendGrid key configured, email notices disabled")
		emailSvc = service.NewNoopEmailService()
	} else {
		emailSvc = service.NewSendGridEmailService(
			cfg.Email.APIKey,
			cfg.Email.FromEmail,
			cfg.Email.FromName,
			cfg.Email.OpsEmail,
		)
	}

	// Initialize Services
	locks := service.NewRentalLocks()
	ledgerSvc := service.NewLedgerService(store.LedgerRepository)
	invoiceSvc := service.NewInvoiceService(store, store.InvoiceRepository, ledgerSvc, locks)
	paymentSvc := service.NewPaymentService(store, store.PaymentRepository, store.InvoiceRepository, ledgerSvc)
	rentalSvc := service.NewRentalService(store, store.RentalRepository, store.InvoiceRepository, invoiceSvc, signatureSvc, locks)
	billingSvc := service.NewBillingService(
		store,
		store.RentalRepository,
		store.InvoiceRepository,
		store.PaymentRepository,
		invoiceSvc,
		paymentSvc,
		ledgerSvc,
		emailSvc,
		locks,
		cfg.Billing.SendLeadDays,
	)

	// Set up HTTP server
	router := httpapi.NewRouter(tokenManager, rentalSvc, invoiceSvc, billingSvc)
	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
