package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stockflow/stockflow-backend/internal/warehouse/consumers"
	"github.com/stockflow/stockflow-backend/internal/warehouse/events"
	"github.com/stockflow/stockflow-backend/internal/warehouse/handler"
	"github.com/stockflow/stockflow-backend/internal/warehouse/repository"
	"github.com/stockflow/stockflow-backend/internal/warehouse/service"
	"github.com/stockflow/stockflow-backend/pkg/config"
	"github.com/stockflow/stockflow-backend/pkg/database"
	"github.com/stockflow/stockflow-backend/pkg/httputil"
	"github.com/stockflow/stockflow-backend/pkg/logger"
	"github.com/stockflow/stockflow-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("warehouse-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("warehouse-service", cfg.Server.Environment)
	log.Info().Msg("starting Warehouse Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewWarehouseEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize store and services
	store := repository.NewStore(db)

	receiptService := service.NewReceiptService(store, publisher, log)
	issueService := service.NewIssueService(store, publisher, log)
	transferService := service.NewTransferService(store, publisher, log)
	warehouseTransferService := service.NewWarehouseTransferService(store, publisher, log)
	returnService := service.NewReturnService(store, publisher, log)
	stocktakeService := service.NewStocktakeService(store, publisher, log)
	inventoryService := service.NewInventoryService(store, log)
	alertService := service.NewAlertService(store, log)

	// Alert evaluation runs on workflow completions for the touched
	// products, plus a periodic full sweep.
	scanner := service.NewAlertScanner(store, publisher, cfg.Alerts, log)
	receiptService.AttachAlertScanner(scanner)
	issueService.AttachAlertScanner(scanner)
	transferService.AttachAlertScanner(scanner)
	warehouseTransferService.AttachAlertScanner(scanner)
	returnService.AttachAlertScanner(scanner)
	stocktakeService.AttachAlertScanner(scanner)

	// Initialize handlers
	receiptHandler := handler.NewReceiptHandler(receiptService, log)
	issueHandler := handler.NewIssueHandler(issueService, log)
	transferHandler := handler.NewTransferHandler(transferService, log)
	warehouseTransferHandler := handler.NewWarehouseTransferHandler(warehouseTransferService, log)
	returnHandler := handler.NewReturnHandler(returnService, log)
	stocktakeHandler := handler.NewStocktakeHandler(stocktakeService, log)
	inventoryHandler := handler.NewInventoryHandler(inventoryService, log)
	alertHandler := handler.NewAlertHandler(alertService, log)

	// Start catalog event consumer
	catalogConsumer, err := consumers.NewCatalogEventConsumer(rmq, store.Repos().MasterData, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create catalog event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := catalogConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start catalog event consumer")
	}

	// Periodic full sweep backstopping the per-completion evaluation
	scheduler := service.NewAlertScheduler(scanner, cfg.Alerts.ScanInterval, log)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(httputil.BearerActor(cfg.JWT.Secret, cfg.JWT.Issuer))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "warehouse-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/warehouse", func(r chi.Router) {
		// Goods receipts
		r.Route("/receipts", func(r chi.Router) {
			r.Get("/", receiptHandler.List)
			r.Post("/", receiptHandler.Create)
			r.Get("/{id}", receiptHandler.Get)
			r.Put("/{id}", receiptHandler.Update)
			r.Post("/{id}/complete", receiptHandler.Complete)
			r.Post("/{id}/cancel", receiptHandler.Cancel)
		})

		// Goods issues
		r.Route("/issues", func(r chi.Router) {
			r.Get("/", issueHandler.List)
			r.Post("/", issueHandler.Create)
			r.Get("/{id}", issueHandler.Get)
			r.Put("/{id}", issueHandler.Update)
			r.Post("/{id}/complete", issueHandler.Complete)
			r.Post("/{id}/cancel", issueHandler.Cancel)
		})

		// Intra-warehouse transfers
		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", transferHandler.List)
			r.Post("/", transferHandler.Create)
			r.Get("/{id}", transferHandler.Get)
			r.Put("/{id}", transferHandler.Update)
			r.Post("/{id}/complete", transferHandler.Complete)
			r.Post("/{id}/cancel", transferHandler.Cancel)
		})

		// Inter-warehouse transfers
		r.Route("/warehouse-transfers", func(r chi.Router) {
			r.Get("/", warehouseTransferHandler.List)
			r.Post("/", warehouseTransferHandler.Create)
			r.Get("/{id}", warehouseTransferHandler.Get)
			r.Post("/{id}/dispatch", warehouseTransferHandler.Dispatch)
			r.Post("/{id}/receive", warehouseTransferHandler.Receive)
			r.Post("/{id}/cancel", warehouseTransferHandler.Cancel)
		})

		// Return orders
		r.Route("/returns", func(r chi.Router) {
			r.Get("/", returnHandler.List)
			r.Post("/", returnHandler.Create)
			r.Get("/{id}", returnHandler.Get)
			r.Post("/{id}/submit-review", returnHandler.SubmitForReview)
			r.Put("/{id}/items/{itemID}/decision", returnHandler.SetDecision)
			r.Post("/{id}/process", returnHandler.Process)
			r.Post("/{id}/items/{itemID}/repair/dispatch", returnHandler.DispatchRepair)
			r.Post("/{id}/items/{itemID}/repair/receive", returnHandler.ReceiveRepair)
			r.Post("/{id}/cancel", returnHandler.Cancel)
		})

		// Stocktakes
		r.Route("/stocktakes", func(r chi.Router) {
			r.Get("/", stocktakeHandler.List)
			r.Post("/", stocktakeHandler.Create)
			r.Get("/{id}", stocktakeHandler.Get)
			r.Post("/{id}/start", stocktakeHandler.Start)
			r.Put("/{id}/counts", stocktakeHandler.UpdateCounts)
			r.Get("/{id}/discrepancies", stocktakeHandler.Discrepancies)
			r.Post("/{id}/complete", stocktakeHandler.Complete)
			r.Post("/{id}/cancel", stocktakeHandler.Cancel)
		})

		// Stock queries
		r.Route("/stock", func(r chi.Router) {
			r.Get("/products/{productID}", inventoryHandler.ProductStock)
			r.Get("/bins/{binID}", inventoryHandler.BinStock)
			r.Get("/products/{productID}/serials", inventoryHandler.ListSerials)
			r.Get("/products/{productID}/serials/{serial}", inventoryHandler.LookupSerial)
		})

		// Movement log
		r.Get("/movements", inventoryHandler.ListMovements)
		r.Get("/movements/{refType}/{number}", inventoryHandler.MovementsByReference)

		// Alert rules and alerts
		r.Route("/alert-rules", func(r chi.Router) {
			r.Post("/", alertHandler.CreateRule)
			r.Get("/{id}", alertHandler.GetRule)
			r.Put("/{id}", alertHandler.UpdateRule)
		})
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", alertHandler.ListAlerts)
			r.Get("/{id}", alertHandler.GetAlert)
			r.Put("/{id}/acknowledge", alertHandler.Acknowledge)
			r.Put("/{id}/resolve", alertHandler.Resolve)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop the consumer and the alert scheduler
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
