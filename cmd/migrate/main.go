// cmd/migrate — 独立执行数据库迁移 (schema_version 追踪, 可重复运行)。
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/multi-agent/timeline-engine/internal/config"
	"github.com/multi-agent/timeline-engine/internal/database"
	"github.com/multi-agent/timeline-engine/pkg/logger"
)

func main() {
	ctx := context.Background()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	if cfg.PostgresConnStr == "" {
		fmt.Fprintln(os.Stderr, "POSTGRES_CONNECTION_STRING not set")
		os.Exit(1)
	}

	pool, err := database.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	dir := "./migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	if err := database.Migrate(ctx, pool, dir); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Migration complete.")
}
