package magic

import (
	"sync"

	"gorm.io/gorm"
)

// Factory lazily builds and caches one engine and one session factory per
// mode. The sync mode serves blocking call sites; the async mode threads a
// context.Context through session work so requests can be cancelled.
//
// Engines and session factories are shared, read-mostly singletons per
// factory instance. First access is serialized with a mutex, so concurrent
// callers always observe the same cached object.
type Factory struct {
	opts   Options
	logger Logger

	mu            sync.Mutex
	syncEngine    *gorm.DB
	asyncEngine   *gorm.DB
	syncSessions  *SessionFactory
	asyncSessions *AsyncSessionFactory
}

// New creates a Factory from opts. At least one DSN is required; everything
// else is optional and lazily constructed on first use.
func New(opts *Options) (*Factory, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.SyncDSN == "" && opts.AsyncDSN == "" {
		return nil, NewError(ErrCodeConfig, "provide at least one of SyncDSN or AsyncDSN", nil)
	}

	logger := opts.Logger
	if logger == nil {
		logger = NewDefaultLogger(LogInfo)
	}

	return &Factory{opts: *opts, logger: logger}, nil
}

// Logger returns the logger the factory and its sessions write to.
func (f *Factory) Logger() Logger {
	return f.logger
}

// SyncEngine returns the cached synchronous engine, constructing it on first
// call. Fails with a CONFIG error when SyncDSN was never supplied.
func (f *Factory) SyncEngine() (*gorm.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.syncEngineLocked()
}

// AsyncEngine returns the cached asynchronous engine, constructing it on
// first call. Fails with a CONFIG error when AsyncDSN was never supplied.
func (f *Factory) AsyncEngine() (*gorm.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.asyncEngineLocked()
}

func (f *Factory) syncEngineLocked() (*gorm.DB, error) {
	if f.syncEngine != nil {
		return f.syncEngine, nil
	}
	if f.opts.SyncDSN == "" {
		return nil, NewError(ErrCodeConfig, "synchronous DSN is not configured", nil)
	}

	engine, err := f.openEngine(f.opts.SyncDSN, f.opts.SyncEngine)
	if err != nil {
		return nil, err
	}
	f.syncEngine = engine
	f.logger.Debug("sync engine opened")
	return engine, nil
}

func (f *Factory) asyncEngineLocked() (*gorm.DB, error) {
	if f.asyncEngine != nil {
		return f.asyncEngine, nil
	}
	if f.opts.AsyncDSN == "" {
		return nil, NewError(ErrCodeConfig, "asynchronous DSN is not configured", nil)
	}

	engine, err := f.openEngine(f.opts.AsyncDSN, f.opts.AsyncEngine)
	if err != nil {
		return nil, err
	}
	f.asyncEngine = engine
	f.logger.Debug("async engine opened")
	return engine, nil
}

func (f *Factory) openEngine(dsn string, opts EngineOptions) (*gorm.DB, error) {
	dialector, err := openDialector(opts.Driver, dsn)
	if err != nil {
		return nil, err
	}

	engine, err := gorm.Open(dialector, &gorm.Config{
		PrepareStmt:            opts.PrepareStmt,
		SkipDefaultTransaction: opts.SkipDefaultTransaction,
		Logger:                 newGormLogBridge(f.logger),
	})
	if err != nil {
		return nil, WrapError(err, ErrCodeConfig, "failed to open engine")
	}

	sqlDB, err := engine.DB()
	if err != nil {
		return nil, WrapError(err, ErrCodeInternal, "failed to obtain sql.DB handle")
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if opts.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}

	return engine, nil
}

// SyncSessions returns the cached synchronous session factory, building the
// sync engine first if needed.
func (f *Factory) SyncSessions() (*SessionFactory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.syncSessions != nil {
		return f.syncSessions, nil
	}

	engine, err := f.syncEngineLocked()
	if err != nil {
		return nil, err
	}
	f.syncSessions = &SessionFactory{
		engine: engine,
		opts:   f.opts.SyncSession,
		logger: f.logger,
	}
	return f.syncSessions, nil
}

// AsyncSessions returns the cached asynchronous session factory, building the
// async engine first if needed.
func (f *Factory) AsyncSessions() (*AsyncSessionFactory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.asyncSessions != nil {
		return f.asyncSessions, nil
	}

	engine, err := f.asyncEngineLocked()
	if err != nil {
		return nil, err
	}
	f.asyncSessions = &AsyncSessionFactory{
		engine: engine,
		opts:   f.opts.AsyncSession,
		logger: f.logger,
	}
	return f.asyncSessions, nil
}

// AutoMigrate runs GORM schema migration for the given models against the
// sync engine.
func (f *Factory) AutoMigrate(models ...interface{}) error {
	engine, err := f.SyncEngine()
	if err != nil {
		return err
	}
	if err := engine.AutoMigrate(models...); err != nil {
		return WrapError(err, ErrCodeInternal, "auto migration failed")
	}
	return nil
}

// Close closes the connection pools of every engine that was constructed.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var lastErr error
	for _, engine := range []*gorm.DB{f.syncEngine, f.asyncEngine} {
		if engine == nil {
			continue
		}
		sqlDB, err := engine.DB()
		if err != nil {
			lastErr = err
			continue
		}
		if err := sqlDB.Close(); err != nil {
			lastErr = err
			f.logger.Error("error closing engine: %v", err)
		}
	}
	return lastErr
}
