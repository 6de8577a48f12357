package cli

import (
	"database/sql"
	"fmt"

	"github.com/cloudgovern/policyaudit/internal/catalog"
	"github.com/cloudgovern/policyaudit/internal/config"
	"github.com/cloudgovern/policyaudit/internal/domain/snapshot"
	"github.com/cloudgovern/policyaudit/internal/normalizer"
	"github.com/cloudgovern/policyaudit/internal/pkg/logger"
	"github.com/cloudgovern/policyaudit/internal/repository/sqlite"
	"github.com/cloudgovern/policyaudit/internal/services"
)

// runtime bundles the wired components a command needs.
type runtime struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *sql.DB
	repo    snapshot.Repository
	service *services.AssessmentService
}

// loadConfig loads configuration for a command.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the command logger from configuration.
func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}

// newRuntime loads configuration and wires the snapshot store and assessment
// service around the given resolver. The resolver may be nil for commands
// that only read stored snapshots.
func newRuntime(resolver normalizer.DefinitionResolver, catalogPath string) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg)

	db, err := sqlite.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	if err := sqlite.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate snapshot store: %w", err)
	}

	if catalogPath == "" {
		catalogPath = cfg.Assessment.CatalogPath
	}
	cat := catalog.LoadOrFallback(catalogPath, log)

	repo := sqlite.NewSnapshotRepository(db)
	norm := normalizer.New(resolver, log)
	svc := services.NewAssessmentService(norm, repo, cat, log)

	return &runtime{
		cfg:     cfg,
		log:     log,
		db:      db,
		repo:    repo,
		service: svc,
	}, nil
}

// Close releases the runtime's resources.
func (rt *runtime) Close() {
	if rt.db != nil {
		rt.db.Close()
	}
}
