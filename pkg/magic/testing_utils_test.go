package magic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testUser is the model used across the package tests.
type testUser struct {
	SessionHolder `gorm:"-"`

	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:64"`
}

// newSyncFactory builds a factory backed by a single-connection in-memory
// SQLite engine so every session observes the same database.
func newSyncFactory(t *testing.T, session SessionOptions) *Factory {
	t.Helper()

	factory, err := New(&Options{
		SyncDSN:     ":memory:",
		SyncEngine:  EngineOptions{MaxOpenConns: 1},
		SyncSession: session,
		Logger:      NewNoOpLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, factory.AutoMigrate(&testUser{}))
	t.Cleanup(func() { _ = factory.Close() })
	return factory
}

// newAsyncFactory is the async-mode counterpart of newSyncFactory.
func newAsyncFactory(t *testing.T, session SessionOptions) *Factory {
	t.Helper()

	factory, err := New(&Options{
		AsyncDSN:     ":memory:",
		AsyncEngine:  EngineOptions{MaxOpenConns: 1},
		AsyncSession: session,
		Logger:       NewNoOpLogger(),
	})
	require.NoError(t, err)

	engine, err := factory.AsyncEngine()
	require.NoError(t, err)
	require.NoError(t, engine.AutoMigrate(&testUser{}))
	t.Cleanup(func() { _ = factory.Close() })
	return factory
}

// countUsers reads the row count straight through the engine, outside any
// session.
func countUsers(t *testing.T, factory *Factory, async bool) int64 {
	t.Helper()

	var count int64
	if async {
		db, err := factory.AsyncEngine()
		require.NoError(t, err)
		require.NoError(t, db.Model(&testUser{}).Count(&count).Error)
	} else {
		db, err := factory.SyncEngine()
		require.NoError(t, err)
		require.NoError(t, db.Model(&testUser{}).Count(&count).Error)
	}
	return count
}
