package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bizbooks/bizbooks/internal/api/handlers"
	"github.com/bizbooks/bizbooks/internal/api/middleware"
	"github.com/bizbooks/bizbooks/internal/archive"
	"github.com/bizbooks/bizbooks/internal/config"
	"github.com/bizbooks/bizbooks/internal/events"
	eventskafka "github.com/bizbooks/bizbooks/internal/events/kafka"
	"github.com/bizbooks/bizbooks/internal/jobs"
	"github.com/bizbooks/bizbooks/internal/jobs/inmemory"
	"github.com/bizbooks/bizbooks/internal/ledger"
	"github.com/bizbooks/bizbooks/internal/logger"
	"github.com/bizbooks/bizbooks/internal/reconcile"
	"github.com/bizbooks/bizbooks/internal/report"
	"github.com/bizbooks/bizbooks/internal/store"
	memorystore "github.com/bizbooks/bizbooks/internal/store/memory"
	"github.com/bizbooks/bizbooks/internal/store/postgres"
)

func main() {
	// Parse command-line flags
	port := flag.String("port", "", "HTTP server port (overrides PORT env)")
	flag.Parse()

	// Initialize logger
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}

	ctx := context.Background()

	// Initialize the ledger store
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to postgres")
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate schema")
		}
		st = pg
		log.Info().Msg("Using postgres store")
	} else {
		st = memorystore.New()
		log.Warn().Msg("No DATABASE_URL configured - using in-memory store, data will not persist")
	}

	// Initialize the audit event publisher
	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := eventskafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
		log.Info().Str("brokers", strings.Join(cfg.KafkaBrokers, ",")).Msg("Publishing audit events to Kafka")
	}

	// Initialize report archival (optional)
	var archivePublisher jobs.Publisher
	var jobQueue *inmemory.Queue
	if cfg.ArchiveBucket != "" {
		objects, err := archive.NewGCS(ctx, cfg.ArchiveBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create archive object store")
		}
		defer objects.Close()

		jobStore := inmemory.NewStore()
		jobQueue = inmemory.NewQueue(100, jobStore)
		archivePublisher = jobQueue

		workerCtx, cancelWorker := context.WithCancel(ctx)
		defer cancelWorker()

		jobHandler := func(ctx context.Context, job jobs.Job) error {
			archiveJob, ok := job.(*jobs.ArchiveReportJob)
			if !ok {
				return fmt.Errorf("unexpected job type: %T", job)
			}

			if err := objects.Put(ctx, archiveJob.ObjectName, archiveJob.ContentType, archiveJob.Data); err != nil {
				log.Error().Err(err).Str("object", archiveJob.ObjectName).Msg("Report archival failed")
				return err
			}

			log.Info().Str("object", archiveJob.ObjectName).Msg("Report archived")
			return nil
		}

		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Fatal().Err(err).Msg("Failed to start archive worker")
		}
		log.Info().Str("bucket", cfg.ArchiveBucket).Msg("Report archival enabled")
	}

	// Initialize services
	poster := ledger.NewPoster(st, publisher, log)
	reports := report.NewService(st, cfg.ReportLocation, cfg.ReportCurrency, log)
	checker := reconcile.NewChecker(st, log)

	// Initialize handlers
	accountsHandler := handlers.NewAccountsHandler(st, log)
	entriesHandler := handlers.NewEntriesHandler(poster, st, log)
	reportsHandler := handlers.NewReportsHandler(reports, archivePublisher, log)
	reconcileHandler := handlers.NewReconcileHandler(checker, log)

	// Create router
	mux := http.NewServeMux()

	// Accounts endpoints
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			accountsHandler.CreateAccount(w, r)
		case http.MethodGet:
			accountsHandler.ListAccounts(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			accountsHandler.GetBalance(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Entries endpoints
	mux.HandleFunc("/api/entries", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			entriesHandler.CreateEntry(w, r)
		case http.MethodGet:
			entriesHandler.ListEntries(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/entries/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/api/entries/")
		entryID, ok := strings.CutSuffix(rest, "/reverse")
		if !ok || entryID == "" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		entriesHandler.ReverseEntry(w, r, entryID)
	})

	mux.HandleFunc("/api/transfers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			entriesHandler.CreateTransfer(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Report endpoints
	mux.HandleFunc("/api/reports/csv", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reportsHandler.CSV(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/reports/excel", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reportsHandler.Excel(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/reports/pdf", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			reportsHandler.PDF(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Reconcile endpoint
	mux.HandleFunc("/api/reconcile", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			reconcileHandler.Check(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop the archive queue and wait for in-flight jobs
	if jobQueue != nil {
		if err := jobQueue.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping archive queue")
		}
	}

	log.Info().Msg("Server exited")
}
