package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudgovern/policyaudit/internal/api/handlers"
	"github.com/cloudgovern/policyaudit/internal/api/router"
	"github.com/cloudgovern/policyaudit/internal/catalog"
	"github.com/cloudgovern/policyaudit/internal/config"
	"github.com/cloudgovern/policyaudit/internal/normalizer"
	"github.com/cloudgovern/policyaudit/internal/pkg/logger"
	"github.com/cloudgovern/policyaudit/internal/pkg/validator"
	"github.com/cloudgovern/policyaudit/internal/providers"
	"github.com/cloudgovern/policyaudit/internal/repository/sqlite"
	"github.com/cloudgovern/policyaudit/internal/services"
	"github.com/cloudgovern/policyaudit/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	db, err := sqlite.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	defer db.Close()

	if err := sqlite.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate snapshot store: %v", err)
	}

	repo := sqlite.NewSnapshotRepository(db)
	cat := catalog.LoadOrFallback(cfg.Assessment.CatalogPath, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Resolve definitions through the governance API when credentials are
	// configured, otherwise through definitions submitted with each request.
	var (
		resolver    normalizer.DefinitionResolver
		static      *normalizer.StaticResolver
		azureClient *providers.AzureClient
	)
	if cfg.Azure.TenantID != "" && cfg.Azure.ClientID != "" {
		azureClient, err = providers.NewAzureClient(cfg.Azure, log)
		if err != nil {
			log.Fatalf("Failed to create governance API client: %v", err)
		}
		resolver = azureClient.Resolver(ctx)
		log.Info("Definition resolution through governance API")
	} else {
		static = normalizer.NewStaticResolver(nil)
		resolver = static
		log.Info("Definition resolution from request-supplied metadata")
	}

	norm := normalizer.New(resolver, log)
	svc := services.NewAssessmentService(norm, repo, cat, log)

	if cfg.Assessment.Schedule != "" {
		if azureClient == nil {
			log.Warn("Assessment schedule configured without governance API credentials; scheduler disabled")
		} else {
			sched := worker.NewScheduler(svc, azureClient, cfg.Assessment, log)
			if err := sched.Start(ctx); err != nil {
				log.Fatalf("Failed to start assessment scheduler: %v", err)
			}
			defer sched.Stop()
		}
	}

	h := &router.Handlers{
		Health:     handlers.NewHealthHandler(db, log),
		Assessment: handlers.NewAssessmentHandler(svc, static, log, validator.New()),
		Snapshot:   handlers.NewSnapshotHandler(svc, repo, log),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Graceful shutdown failed: %v", err)
	}
}
