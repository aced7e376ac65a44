package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/paperatlas/internal/api"
	"github.com/gyaneshwarpardhi/paperatlas/internal/classify"
	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/engine"
	"github.com/gyaneshwarpardhi/paperatlas/internal/explorer"
	"github.com/gyaneshwarpardhi/paperatlas/internal/source"
	"github.com/gyaneshwarpardhi/paperatlas/internal/store"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/atlas.yaml", "Path to YAML config")
	debug := flag.Bool("debug", false, "Log at debug level")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Graph Data Service ───────────────────────────────────────────────────
	var (
		src    source.Source
		graphs api.GraphService
		local  *source.Local
	)
	if cfg.Store.RemoteURL != "" {
		src = source.NewClient(cfg.Store.RemoteURL, time.Duration(cfg.Expansion.TimeoutMs)*time.Millisecond)
		slog.Info("using remote graph service", "url", cfg.Store.RemoteURL)
	} else {
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			slog.Error("failed to open store", "path", cfg.Store.Path, "err", err)
			os.Exit(1)
		}
		defer db.Close()
		papers, citations, err := db.Stats(ctx)
		if err != nil {
			slog.Error("store unreadable", "err", err)
			os.Exit(1)
		}
		slog.Info("store opened", "path", db.Path(), "papers", papers, "citations", citations)

		c, err := classify.New(cfg.Classify)
		if err != nil {
			slog.Error("invalid classify rules", "err", err)
			os.Exit(1)
		}
		local = source.NewLocal(db, c, cfg.Store.LatestN)
		src, graphs = local, local
	}

	// ── Expansion engine and sessions ────────────────────────────────────────
	eng := engine.New(ctx, src, cfg.Expansion)
	mgr := explorer.NewManager(ctx, src, eng, cfg)
	go mgr.Reap(ctx, 30*time.Second)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		if local != nil {
			c, err := classify.New(newCfg.Classify)
			if err != nil {
				slog.Warn("hot-reload kept old classify rules", "err", err)
			} else {
				local.SetClassifier(c)
			}
		}
		mgr.ApplyConfig(newCfg)
		slog.Info("config hot-reloaded", "version", newCfg.Version, "sessions", mgr.Count())
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:        *addr,
		Handler:     api.New(mgr, graphs, eng, loader),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	mgr.Shutdown()
	cancel() // stop worker pools
	eng.Shutdown()
	slog.Info("goodbye")
}
