package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/kasuganosora/dbmagic/pkg/magic"
)

type contextKey string

const ctxKeyScope contextKey = "dbmagic_scope"

// Scope pairs the factory with the per-request session and a registry built
// around it. One scope exists per request while SessionMiddleware is
// installed.
type Scope struct {
	Factory  *magic.Factory
	Session  *magic.AsyncSession
	Registry *magic.Registry
}

// ScopeFromContext returns the request scope, or nil outside the middleware.
func ScopeFromContext(ctx context.Context) *Scope {
	scope, _ := ctx.Value(ctxKeyScope).(*Scope)
	return scope
}

// SessionFromContext returns the per-request session, or nil outside the
// middleware.
func SessionFromContext(ctx context.Context) *magic.AsyncSession {
	if scope := ScopeFromContext(ctx); scope != nil {
		return scope.Session
	}
	return nil
}

// RegistryFromContext returns the per-request model registry, or nil outside
// the middleware.
func RegistryFromContext(ctx context.Context) *magic.Registry {
	if scope := ScopeFromContext(ctx); scope != nil {
		return scope.Registry
	}
	return nil
}

// SessionMiddleware opens an async session per request, exposes it through
// the request context and closes it after the handler returns. The request
// session never commits; handlers that need durable writes go through
// Factory.WithAsyncSession themselves. Teardown runs on panic and on client
// disconnect as well.
func SessionMiddleware(f *magic.Factory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessions, err := f.AsyncSessions()
			if err != nil {
				writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
					Error: "database is not configured",
					Code:  http.StatusServiceUnavailable,
				})
				return
			}

			sess, err := sessions.NewSession(r.Context())
			if err != nil {
				writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
					Error: "failed to open database session",
					Code:  http.StatusServiceUnavailable,
				})
				return
			}

			scope := &Scope{
				Factory:  f,
				Session:  sess,
				Registry: magic.NewRegistry(sess),
			}
			ctx := context.WithValue(r.Context(), ctxKeyScope, scope)

			// Close must run even when the request context is already
			// cancelled or the handler panics.
			defer func() {
				if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
					f.Logger().Warn("request session %s: close failed: %v", sess.ID(), err)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RecoveryMiddleware recovers from panics and returns a 500 error.
func RecoveryMiddleware(logger magic.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("[HTTP] panic recovered: %v", err)
					writeJSON(w, http.StatusInternalServerError, ErrorResponse{
						Error: "internal server error",
						Code:  http.StatusInternalServerError,
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware logs HTTP requests.
func LoggingMiddleware(logger magic.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			logger.Info("[HTTP] %s %s %d %s", r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
		})
	}
}
