package magic

import (
	"strings"

	"github.com/glebarez/sqlite"
	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Driver names accepted by EngineOptions.Driver and as DSN scheme prefixes.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// openDialector resolves a DSN to a GORM dialector. An explicit driver name
// wins over detection.
func openDialector(driver, dsn string) (gorm.Dialector, error) {
	name := driver
	if name == "" {
		name = detectDriver(dsn)
	}

	switch name {
	case DriverMySQL:
		clean := strings.TrimPrefix(dsn, "mysql://")
		if _, err := gomysql.ParseDSN(clean); err != nil {
			return nil, WrapError(err, ErrCodeConfig, "invalid MySQL DSN")
		}
		return mysql.Open(clean), nil
	case DriverPostgres, "postgresql":
		return postgres.Open(dsn), nil
	case DriverSQLite, "sqlite3":
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), nil
	default:
		return nil, NewError(ErrCodeConfig,
			"cannot determine database driver for DSN '"+dsn+"'; set EngineOptions.Driver", nil)
	}
}

// detectDriver guesses the driver from the DSN shape. MySQL DSNs in the
// go-sql-driver format carry an "@tcp(" or "@unix(" network segment.
func detectDriver(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "mysql://"),
		strings.Contains(dsn, "@tcp("),
		strings.Contains(dsn, "@unix("):
		return DriverMySQL
	case strings.HasPrefix(dsn, "postgres://"),
		strings.HasPrefix(dsn, "postgresql://"),
		strings.Contains(dsn, "host="):
		return DriverPostgres
	case strings.HasPrefix(dsn, "sqlite://"),
		strings.HasPrefix(dsn, "file:"),
		dsn == ":memory:",
		strings.HasSuffix(dsn, ".db"),
		strings.HasSuffix(dsn, ".sqlite"):
		return DriverSQLite
	}
	return ""
}
