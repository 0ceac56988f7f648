package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/dbmagic/pkg/magic"
)

type apiNote struct {
	magic.SessionHolder `gorm:"-" json:"-"`

	ID   uint   `gorm:"primaryKey" json:"id"`
	Body string `gorm:"size:255" json:"body"`
}

// newAsyncFactory builds a factory backed by a single-connection in-memory
// database, so every session sees the same schema and data.
func newAsyncFactory(t *testing.T) *magic.Factory {
	t.Helper()

	factory, err := magic.New(&magic.Options{
		AsyncDSN:    ":memory:",
		AsyncEngine: magic.EngineOptions{MaxOpenConns: 1},
		Logger:      magic.NewNoOpLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })

	engine, err := factory.AsyncEngine()
	require.NoError(t, err)
	require.NoError(t, engine.AutoMigrate(&apiNote{}))
	return factory
}

func countNotes(t *testing.T, factory *magic.Factory) int64 {
	t.Helper()

	engine, err := factory.AsyncEngine()
	require.NoError(t, err)

	var count int64
	require.NoError(t, engine.Model(&apiNote{}).Count(&count).Error)
	return count
}

func TestSessionMiddleware_ScopeVisibleToHandler(t *testing.T) {
	factory := newAsyncFactory(t)

	var seen *Scope
	handler := SessionMiddleware(factory)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ScopeFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes", nil))

	require.NotNil(t, seen)
	assert.Same(t, factory, seen.Factory)
	require.NotNil(t, seen.Session)
	require.NotNil(t, seen.Registry)
	assert.Same(t, seen.Session, seen.Registry.Session())
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSessionMiddleware_SessionClosedAfterRequest(t *testing.T) {
	factory := newAsyncFactory(t)

	var sess *magic.AsyncSession
	handler := SessionMiddleware(factory)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess = SessionFromContext(r.Context())
		assert.True(t, sess.IsActive())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/notes", nil))

	require.NotNil(t, sess)
	assert.False(t, sess.IsActive())
}

func TestSessionMiddleware_WritesAreRolledBack(t *testing.T) {
	factory := newAsyncFactory(t)

	handler := SessionMiddleware(factory)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		registry := RegistryFromContext(r.Context())
		notes := magic.Register[apiNote](registry)
		require.NoError(t, notes.Create(&apiNote{Body: "draft"}))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/notes", nil))

	// The request session never commits.
	assert.Equal(t, int64(0), countNotes(t, factory))
}

func TestSessionMiddleware_SessionClosedOnPanic(t *testing.T) {
	factory := newAsyncFactory(t)
	logger := magic.NewNoOpLogger()

	var sess *magic.AsyncSession
	inner := SessionMiddleware(factory)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess = SessionFromContext(r.Context())
		panic("handler exploded")
	}))
	handler := RecoveryMiddleware(logger)(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, sess)
	assert.False(t, sess.IsActive())
}

func TestSessionMiddleware_NoAsyncDSN(t *testing.T) {
	factory, err := magic.New(&magic.Options{
		SyncDSN: ":memory:",
		Logger:  magic.NewNoOpLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = factory.Close() })

	handler := SessionMiddleware(factory)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a session")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/notes", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is not configured")
}

func TestContextAccessors_OutsideMiddleware(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, ScopeFromContext(ctx))
	assert.Nil(t, SessionFromContext(ctx))
	assert.Nil(t, RegistryFromContext(ctx))
}
