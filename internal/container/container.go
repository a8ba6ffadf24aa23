package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/tpa-claims/internal/application/dispatcher"
	"github.com/garyjia/tpa-claims/internal/application/port"
	"github.com/garyjia/tpa-claims/internal/application/service"
	"github.com/garyjia/tpa-claims/internal/config"
	"github.com/garyjia/tpa-claims/internal/infrastructure/persistence/sqlite"
	httpapi "github.com/garyjia/tpa-claims/internal/interfaces/http"
	"github.com/garyjia/tpa-claims/internal/metrics"
	"github.com/garyjia/tpa-claims/pkg/utils"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config  *config.Config
	logger  *zap.Logger
	migrate bool

	// Infrastructure - Data
	database     *DatabaseBundle
	repositories *service.ClaimRepositories

	// Infrastructure - Storage
	fileStorage port.FileStorage

	// Application
	metrics    *metrics.Metrics
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Interfaces
	server *httpapi.Server

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// Option configures the container
type Option func(*Container)

// WithAutoMigrate applies pending migrations during Start
func WithAutoMigrate(migrate bool) Option {
	return func(c *Container) {
		c.migrate = migrate
	}
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Container{
		config:  cfg,
		logger:  logger,
		migrate: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start initializes all components:
// 1. Database and repositories
// 2. Storage
// 3. Metrics and event dispatcher
// 4. Application services
// 5. HTTP server (not yet listening)
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initStorage(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.logger.Info("Storage initialized", zap.String("driver", c.config.Storage.Driver))

	if err := c.initDispatcher(); err != nil {
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	c.initServer()

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Run serves HTTP until ctx is cancelled
func (c *Container) Run(ctx context.Context) error {
	if !c.ready.Load() {
		return fmt.Errorf("container not started")
	}
	return c.server.Start(ctx)
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop server: %w", err))
		}
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
	}

	if c.database != nil {
		if err := c.database.Handle.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	if c.database != nil {
		if err := c.database.Handle.PingContext(ctx); err != nil {
			status.Components["database"] = ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{Message: "not initialized"}
		status.Overall = false
	}

	if c.fileStorage != nil {
		status.Components["storage"] = ComponentHealth{Healthy: true, Message: c.config.Storage.Driver}
	} else {
		status.Components["storage"] = ComponentHealth{Message: "not initialized"}
		status.Overall = false
	}

	if c.services != nil {
		status.Components["services"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["services"] = ComponentHealth{Message: "not initialized"}
		status.Overall = false
	}

	return status
}

func (c *Container) initDatabase(ctx context.Context) error {
	dbBundle, err := ProvideDatabase(ctx, &c.config.Database, c.migrate, c.logger)
	if err != nil {
		return err
	}
	c.database = dbBundle

	repos, err := ProvideRepositories(dbBundle.TransactionMgr, c.logger)
	if err != nil {
		return err
	}
	c.repositories = repos

	return nil
}

func (c *Container) initStorage(ctx context.Context) error {
	fs, err := ProvideStorage(ctx, &c.config.Storage, c.logger)
	if err != nil {
		return err
	}
	c.fileStorage = fs
	return nil
}

func (c *Container) initDispatcher() error {
	if c.config.Metrics.Enabled {
		c.metrics = metrics.New()
		c.metrics.RegisterDBStats(c.database.Handle.DB, "claims")
	}

	d, err := ProvideDispatcher(c.metrics, c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = d
	return nil
}

func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.database.TransactionMgr,
		Storage:    c.fileStorage,
		Dispatcher: c.dispatcher,
		Claims:     c.config.Claims,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) initServer() {
	sc := c.config.Server
	opts := []httpapi.ServerOption{
		httpapi.WithHealthCheck(func(ctx context.Context) error {
			return c.database.Handle.PingContext(ctx)
		}),
	}
	if c.metrics != nil {
		opts = append(opts, httpapi.WithMetrics(c.metrics))
	}

	c.server = httpapi.NewServer(httpapi.ServerConfig{
		Host:            sc.Host,
		Port:            sc.Port,
		ReadTimeout:     sc.ReadTimeout,
		WriteTimeout:    sc.WriteTimeout,
		ShutdownTimeout: sc.ShutdownTimeout,
		MaxUploadBytes:  sc.MaxUploadBytes,
		MetricsPath:     c.config.Metrics.Path,
	}, c.services.Claims, c.services.Registry, utils.NewKVLogger(c.logger.Named("http")), opts...)
}

// DB returns the transaction manager.
func (c *Container) DB() *sqlite.DB {
	return c.database.TransactionMgr
}

// Repositories returns the repository bundle.
func (c *Container) Repositories() *service.ClaimRepositories {
	return c.repositories
}

// FileStorage returns the attachment store.
func (c *Container) FileStorage() port.FileStorage {
	return c.fileStorage
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns the application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Server returns the HTTP server.
func (c *Container) Server() *httpapi.Server {
	return c.server
}

// Metrics returns the metrics recorder, nil when disabled.
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
