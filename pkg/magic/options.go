package magic

import (
	"database/sql"
	"time"
)

// IsolationLevel selects the transaction isolation level for new sessions.
type IsolationLevel int

const (
	IsolationDefault IsolationLevel = iota
	IsolationReadUncommitted
	IsolationReadCommitted
	IsolationRepeatableRead
	IsolationSerializable
)

// String returns the SQL spelling of the isolation level.
func (l IsolationLevel) String() string {
	switch l {
	case IsolationReadUncommitted:
		return "READ UNCOMMITTED"
	case IsolationReadCommitted:
		return "READ COMMITTED"
	case IsolationRepeatableRead:
		return "REPEATABLE READ"
	case IsolationSerializable:
		return "SERIALIZABLE"
	default:
		return "DEFAULT"
	}
}

func (l IsolationLevel) sqlLevel() sql.IsolationLevel {
	switch l {
	case IsolationReadUncommitted:
		return sql.LevelReadUncommitted
	case IsolationReadCommitted:
		return sql.LevelReadCommitted
	case IsolationRepeatableRead:
		return sql.LevelRepeatableRead
	case IsolationSerializable:
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

// EngineOptions configures how one mode's engine is constructed.
type EngineOptions struct {
	// Driver forces a dialector ("mysql", "postgres", "sqlite"). When empty
	// the driver is detected from the DSN.
	Driver string

	// Connection pool settings applied to the underlying sql.DB.
	// Zero values leave the driver defaults in place.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// GORM behavior toggles.
	PrepareStmt            bool
	SkipDefaultTransaction bool
}

// SessionOptions configures the sessions a mode hands out.
type SessionOptions struct {
	// ReadOnly makes scoped sessions skip the commit on normal exit; the
	// session is rolled back at close instead.
	ReadOnly bool

	// Isolation is passed to the transaction that backs each session.
	// IsolationDefault defers to the driver.
	Isolation IsolationLevel
}

// Options configures a Factory. At least one of SyncDSN and AsyncDSN must be
// set. The value is copied at construction time and never mutated afterwards.
type Options struct {
	SyncDSN  string
	AsyncDSN string

	SyncEngine  EngineOptions
	AsyncEngine EngineOptions

	SyncSession  SessionOptions
	AsyncSession SessionOptions

	// Logger defaults to a DefaultLogger at INFO.
	Logger Logger
}
