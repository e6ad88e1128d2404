package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ListenAddr != ":8090" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.PostgresPoolMaxSize != 10 {
		t.Errorf("PostgresPoolMaxSize = %d", cfg.PostgresPoolMaxSize)
	}
	if cfg.SkipBatchingTools != "task_planning" {
		t.Errorf("SkipBatchingTools = %q", cfg.SkipBatchingTools)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadOverridesAndMin(t *testing.T) {
	t.Setenv("TIMELINE_LISTEN_ADDR", ":9000")
	t.Setenv("INGEST_QUEUE_SIZE", "4") // 低于 min:16, 被抬到 16
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Load()
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.IngestQueueSize != 16 {
		t.Errorf("IngestQueueSize = %d, want 16", cfg.IngestQueueSize)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}
