package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grammarhour/bookbot/internal/book"
	"github.com/grammarhour/bookbot/internal/dedup"
	"github.com/grammarhour/bookbot/internal/engine"
	"github.com/grammarhour/bookbot/internal/platform/cache"
	"github.com/grammarhour/bookbot/internal/platform/config"
	"github.com/grammarhour/bookbot/internal/platform/database"
	"github.com/grammarhour/bookbot/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// The catalog is built once here and shared read-only for the life of
	// the process. Degraded empty-catalog mode is a startup decision, never
	// a per-request one.
	var catalog *book.Catalog
	if cfg.Book.AllowEmpty {
		catalog = book.LoadOrEmpty(cfg.Book.Path)
	} else {
		catalog, err = book.Load(cfg.Book.Path)
		if err != nil {
			slog.Error("failed to load book", "path", cfg.Book.Path, "error", err)
			os.Exit(1)
		}
	}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	stores, err := store.NewPostgres(db.Pool)
	if err != nil {
		slog.Error("failed to create store", "error", err)
		os.Exit(1)
	}
	if err := stores.Migrate(ctx); err != nil {
		slog.Error("failed to migrate store", "error", err)
		os.Exit(1)
	}

	var guard dedup.Guard
	var cch *cache.Cache
	if cfg.Cache.URL != "" {
		cch, err = cache.New(ctx, cfg.Cache)
		if err != nil {
			slog.Warn("cache unavailable, using in-memory dedup guard", "error", err)
			guard = dedup.NewMemoryGuard(nil)
		} else {
			defer cch.Close()
			guard = dedup.NewRedisGuard(cch.Client)
		}
	} else {
		guard = dedup.NewMemoryGuard(nil)
	}

	core := engine.New(engine.Config{
		Catalog:     catalog,
		Progress:    stores,
		Bookmarks:   stores,
		Attempts:    stores,
		Guard:       guard,
		DedupWindow: time.Duration(cfg.Dedup.WindowSeconds) * time.Second,
	})
	slog.Info("engine ready", "chapters", catalog.Len())

	mux := newMux(core, catalog, db, cch)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newMux creates the HTTP router with the action endpoint and health checks.
func newMux(core *engine.Engine, catalog *book.Catalog, db *database.DB, cch *cache.Cache) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/actions", handleAction(core))
	mux.HandleFunc("GET /v1/reports/{user_id}", handleReport(core))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","chapters":%d}`, catalog.Len())
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"database unavailable"}`))
				return
			}
		}
		if cch != nil {
			if err := cch.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"cache unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	return mux
}
