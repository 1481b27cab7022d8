// Package registry builds the invoice number registry selected by configuration.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/gst/internal/domain/tax"
	"github.com/erp/gst/internal/infrastructure/cache"
	"github.com/erp/gst/internal/infrastructure/config"
	"github.com/erp/gst/internal/infrastructure/persistence"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Factory creates invoice number registries
type Factory struct {
	cfg                   *config.Config
	logger                *zap.Logger
	allowInMemoryFallback bool
	dialector             gorm.Dialector
	plugins               []persistence.Plugin
}

// Option configures a Factory
type Option func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithInMemoryFallback allows falling back to the in-memory registry when the
// configured shared backend is unavailable. Numbers issued by different instances
// may then collide unnoticed.
func WithInMemoryFallback(allow bool) Option {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// WithDialector overrides the database dialector (PostgreSQL by default).
func WithDialector(dialector gorm.Dialector) Option {
	return func(f *Factory) {
		f.dialector = dialector
	}
}

// WithDatabasePlugins installs gorm plugins on the database registry's connection.
func WithDatabasePlugins(plugins ...persistence.Plugin) Option {
	return func(f *Factory) {
		f.plugins = append(f.plugins, plugins...)
	}
}

// NewFactory creates a new registry factory
func NewFactory(cfg *config.Config, opts ...Option) *Factory {
	f := &Factory{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// New is shorthand for NewFactory(cfg, opts...).Create().
func New(cfg *config.Config, opts ...Option) (tax.InvoiceNumberRegistry, error) {
	return NewFactory(cfg, opts...).Create()
}

// Create builds the registry named by invoice.registry.
func (f *Factory) Create() (tax.InvoiceNumberRegistry, error) {
	var (
		r   tax.InvoiceNumberRegistry
		err error
	)

	switch f.cfg.Invoice.Registry {
	case config.RegistryMemory, "":
		f.logger.Info("using in-memory invoice number registry")
		return f.CreateInMemory(), nil
	case config.RegistryRedis:
		r, err = f.CreateRedis()
	case config.RegistryDatabase:
		r, err = f.CreateDatabase()
	default:
		return nil, fmt.Errorf("unknown invoice number registry %q", f.cfg.Invoice.Registry)
	}

	if err == nil {
		f.logger.Info("using shared invoice number registry", zap.String("registry", f.cfg.Invoice.Registry))
		return r, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("%s invoice number registry unavailable: %w", f.cfg.Invoice.Registry, err)
	}

	f.logger.Warn("Invoice number registry unavailable, falling back to in-memory registry. "+
		"Invoice numbers are only unique within this instance.",
		zap.String("registry", f.cfg.Invoice.Registry),
		zap.Error(err),
	)
	return f.CreateInMemory(), nil
}

// CreateInMemory creates a process-local registry.
func (f *Factory) CreateInMemory() *cache.InMemoryInvoiceNumberRegistry {
	return cache.NewInMemoryInvoiceNumberRegistry(f.cfg.Invoice.ReservationTTL)
}

// CreateRedis creates a Redis-backed registry.
func (f *Factory) CreateRedis() (*cache.RedisInvoiceNumberRegistry, error) {
	return cache.NewRedisInvoiceNumberRegistry(cache.RedisConfig{
		Addr:     f.cfg.Redis.Addr(),
		Password: f.cfg.Redis.Password,
		DB:       f.cfg.Redis.DB,
	}, f.cfg.Invoice.ReservationTTL)
}

// CreateDatabase opens the database, migrates the reservations table and
// returns a registry that closes the connection on Close.
func (f *Factory) CreateDatabase() (tax.InvoiceNumberRegistry, error) {
	dialector := f.dialector
	if dialector == nil {
		dialector = postgres.Open(f.cfg.Database.DSN())
	}

	db, err := persistence.Open(dialector, &f.cfg.Database, f.logger, f.plugins...)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	return &databaseRegistry{
		GormInvoiceNumberRegistry: persistence.NewGormInvoiceNumberRegistry(db.DB, f.cfg.Invoice.ReservationTTL),
		db:                        db,
	}, nil
}

// databaseRegistry owns the connection behind a GormInvoiceNumberRegistry.
type databaseRegistry struct {
	*persistence.GormInvoiceNumberRegistry
	db *persistence.Database
}

func (r *databaseRegistry) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *databaseRegistry) Close() error {
	return r.db.Close()
}
