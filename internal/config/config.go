// Package config 全局配置加载与管理。
//
// 所有字段通过 struct tag 声明环境变量映射:
//
//	`env:"VAR_NAME" default:"value" min:"0"`
//
// Load() 使用反射自动填充，无需手动逐行赋值。
package config

import (
	"github.com/multi-agent/timeline-engine/pkg/util"
)

// Config 应用全局配置，字段名与 .env 变量一一对应。
type Config struct {
	// HTTP。SSE/WS 为长连接, 只限制请求头读取, 不设写超时。
	ListenAddr     string `env:"TIMELINE_LISTEN_ADDR" default:":8090"`
	ReadTimeoutSec int    `env:"TIMELINE_READ_TIMEOUT_SEC" default:"30" min:"1"`

	// PostgreSQL
	PostgresConnStr        string `env:"POSTGRES_CONNECTION_STRING"`
	PostgresSchema         string `env:"POSTGRES_SCHEMA" default:"public"`
	PostgresPoolMinSize    int    `env:"POSTGRES_POOL_MIN_SIZE" default:"1" min:"1"`
	PostgresPoolMaxSize    int    `env:"POSTGRES_POOL_MAX_SIZE" default:"10" min:"1"`
	PostgresPoolTimeoutSec int    `env:"POSTGRES_POOL_TIMEOUT_SEC" default:"10" min:"1"`

	// 入队
	IngestQueueSize int `env:"INGEST_QUEUE_SIZE" default:"256" min:"16"`

	// Feed
	SSEHeartbeatSec int `env:"FEED_SSE_HEARTBEAT_SEC" default:"15" min:"1"`
	EventQueryLimit int `env:"FEED_EVENT_QUERY_LIMIT" default:"500" min:"1"`

	// 跳过批组的工具名子串 (逗号分隔)
	SkipBatchingTools string `env:"SKIP_BATCHING_TOOLS" default:"task_planning"`

	// 日志
	LogLevel string `env:"LOG_LEVEL" default:"INFO"`
	LogDir   string `env:"LOG_DIR"`
}

// Load 从环境变量加载配置 (通过反射读取 struct tag)。
func Load() *Config {
	var cfg Config
	util.LoadFromEnv(&cfg)
	return &cfg
}
