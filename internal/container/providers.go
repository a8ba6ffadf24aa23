// Package container provides dependency injection and lifecycle management
// for the claims service following Clean Architecture principles.
package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/garyjia/tpa-claims/internal/application/dispatcher"
	"github.com/garyjia/tpa-claims/internal/application/port"
	"github.com/garyjia/tpa-claims/internal/application/service"
	"github.com/garyjia/tpa-claims/internal/application/workflow"
	"github.com/garyjia/tpa-claims/internal/config"
	"github.com/garyjia/tpa-claims/internal/infrastructure/clock"
	"github.com/garyjia/tpa-claims/internal/infrastructure/document"
	"github.com/garyjia/tpa-claims/internal/infrastructure/persistence/repository"
	"github.com/garyjia/tpa-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/tpa-claims/internal/infrastructure/report"
	"github.com/garyjia/tpa-claims/internal/infrastructure/storage"
	"github.com/garyjia/tpa-claims/internal/metrics"
	"github.com/garyjia/tpa-claims/migrations"
	"github.com/garyjia/tpa-claims/pkg/database"
	"github.com/garyjia/tpa-claims/pkg/utils"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Handle         *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the SQLite database, creating its directory, and
// applies pending migrations when migrate is set.
func ProvideDatabase(ctx context.Context, cfg *config.DatabaseConfig, migrate bool, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if migrate {
		applied, err := database.NewMigrator(db, logger).RunMigrations(ctx, migrations.FS)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("Migrations checked", zap.Int("applied", applied))
	}

	return &DatabaseBundle{
		Handle:         db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*service.ClaimRepositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &service.ClaimRepositories{
		Claims:        repository.NewClaimRepository(db.DB, logger),
		Notes:         repository.NewClaimNoteRepository(db.DB, logger),
		Attachments:   repository.NewClaimAttachmentRepository(db.DB, logger),
		Invoices:      repository.NewInvoiceRepository(db.DB, logger),
		Employees:     repository.NewEmployeeRepository(db.DB, logger),
		Users:         repository.NewUserRepository(db.DB, logger),
		DocumentTypes: repository.NewDocumentTypeRepository(db.DB, logger),
	}, nil
}

// ProvideStorage creates the attachment store selected by cfg.Driver.
func ProvideStorage(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}

	switch cfg.Driver {
	case config.StorageLocal:
		if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		return storage.NewLocalFileStorage(cfg.BaseDir, logger), nil

	case config.StorageS3:
		s3cfg := storage.S3Config{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
			Prefix:   cfg.S3.Prefix,
		}
		client, err := storage.NewS3Client(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		return storage.NewS3FileStorage(client, s3cfg, logger), nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// ProvideDispatcher creates the event dispatcher and subscribes the metrics
// recorder when one is given.
func ProvideDispatcher(m *metrics.Metrics, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	d := dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher"))),
	)
	if m != nil {
		m.Subscribe(d)
	}
	return d, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *service.ClaimRepositories
	TxManager  port.TransactionManager
	Storage    port.FileStorage
	Dispatcher dispatcher.Dispatcher
	Claims     config.ClaimsConfig
	Logger     *zap.Logger
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Claims   service.ClaimService
	Registry service.RegistryService
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	clk, err := clock.Load(deps.Claims.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to load claims location: %w", err)
	}

	serviceLogger := utils.NewKVLogger(deps.Logger.Named("service"))
	repos := deps.Repos

	opts := []service.ClaimServiceOption{
		service.WithDocumentInspector(document.NewInspector(deps.Logger)),
		service.WithSettlementRenderer(report.NewSettlementRenderer(deps.Claims.CompanyName, deps.Logger)),
	}
	if deps.Dispatcher != nil {
		opts = append(opts, service.WithDispatcher(deps.Dispatcher))
	}

	return &ServiceBundle{
		Claims: service.NewClaimService(
			*repos,
			deps.TxManager,
			workflow.NewClaimStateMachine(),
			service.NewDeductionService(repos.Claims, repos.Invoices, clk, serviceLogger),
			deps.Storage,
			clk,
			serviceLogger,
			opts...,
		),
		Registry: service.NewRegistryService(
			repos.Employees,
			repos.Invoices,
			repos.Users,
			repos.DocumentTypes,
			deps.TxManager,
			clk,
			serviceLogger,
		),
	}, nil
}
