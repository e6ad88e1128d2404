// cmd/timeline-feed — 时间线 feed 服务主入口。
//
// ingest (POST content / tool 事件) → 控制器 → 落库 + bus → SSE/WS 推送。
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/multi-agent/timeline-engine/internal/bus"
	"github.com/multi-agent/timeline-engine/internal/config"
	"github.com/multi-agent/timeline-engine/internal/database"
	"github.com/multi-agent/timeline-engine/internal/feed"
	"github.com/multi-agent/timeline-engine/internal/store"
	"github.com/multi-agent/timeline-engine/pkg/logger"
	"github.com/multi-agent/timeline-engine/pkg/util"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	if cfg.LogDir != "" {
		if err := logger.InitWithFile(cfg.LogDir); err != nil {
			logger.Warn("file logging unavailable", logger.FieldError, err)
		}
		defer logger.ShutdownFileHandler()
	}

	stores := &feed.Stores{}
	if cfg.PostgresConnStr != "" {
		pool, err := database.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("database init failed", logger.Any(logger.FieldError, err))
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool, "./migrations"); err != nil {
			logger.Fatal("migration failed", logger.Any(logger.FieldError, err))
		}

		stores.Events = store.NewTimelineEventStore(pool)
		stores.Tools = store.NewToolCallStore(pool)
	} else {
		logger.Warn("POSTGRES_CONNECTION_STRING not set, running without persistence")
	}

	srv := feed.NewServer(feed.Deps{
		Config: cfg,
		Bus:    bus.NewMessageBus(),
		Stores: stores,
	})
	defer srv.Close()

	logger.Infow("timeline feed starting", logger.FieldListen, cfg.ListenAddr)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: time.Duration(cfg.ReadTimeoutSec) * time.Second,
	}
	util.SafeGo(func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.Any(logger.FieldError, err))
		}
	})

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}
