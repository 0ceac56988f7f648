package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kasuganosora/dbmagic/pkg/config"
	"github.com/kasuganosora/dbmagic/pkg/magic"
	"github.com/kasuganosora/dbmagic/server/httpapi"
)

// User is the demo model served by this binary.
type User struct {
	magic.SessionHolder `gorm:"-" json:"-"`

	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:255" json:"name"`
}

func main() {
	cfg := config.LoadConfigOrDefault()

	level, _ := config.ParseLogLevel(cfg.Log.Level)
	logger := magic.NewDefaultLogger(level)
	logger.Info("loaded config: address=%s sync_dsn=%q async_dsn=%q",
		cfg.GetListenAddress(), cfg.Database.SyncDSN, cfg.Database.AsyncDSN)

	// The factory is built once here and passed by reference; there is no
	// package-level singleton to configure.
	factory, err := magic.New(cfg.MagicOptions(logger))
	if err != nil {
		logger.Error("failed to build session factory: %v", err)
		os.Exit(1)
	}
	defer factory.Close()

	if cfg.Database.SyncDSN != "" {
		if err := factory.AutoMigrate(&User{}); err != nil {
			logger.Error("migration failed: %v", err)
			os.Exit(1)
		}
	}

	srv := httpapi.NewServer(factory, &cfg.Server)
	srv.HandleFunc("/api/v1/users", listUsers)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server exited: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed: %v", err)
	}
	logger.Info("server stopped")
}

// listUsers reads users through the per-request session scope installed by
// the middleware.
func listUsers(w http.ResponseWriter, r *http.Request) {
	registry := httpapi.RegistryFromContext(r.Context())
	users := magic.Model[User](registry)

	var result []User
	if err := users.Find(&result); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if result == nil {
		result = []User{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string][]User{"users": result})
}
