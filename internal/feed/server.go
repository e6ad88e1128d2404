// Package feed 提供时间线 HTTP 服务 (ingest + 查询 + SSE/WS 推送)。
package feed

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/multi-agent/timeline-engine/internal/bus"
	"github.com/multi-agent/timeline-engine/internal/config"
	"github.com/multi-agent/timeline-engine/internal/store"
	"github.com/multi-agent/timeline-engine/internal/taskplan"
	"github.com/multi-agent/timeline-engine/internal/timeline"
	"github.com/multi-agent/timeline-engine/pkg/logger"
)

// Stores 聚合 store 依赖。字段可为 nil (纯内存模式)。
type Stores struct {
	Events *store.TimelineEventStore
	Tools  *store.ToolCallStore
}

// Deps 服务依赖注入。
type Deps struct {
	Config *config.Config
	Bus    *bus.MessageBus
	Stores *Stores
}

// Server 时间线 HTTP 服务。
type Server struct {
	router *gin.Engine
	cfg    *config.Config
	msgBus *bus.MessageBus
	stores *Stores
	ingest *bus.AgentIngest

	mu          sync.Mutex
	controllers map[string]*timeline.Controller
	plans       map[string][]taskplan.Task // agent → 最近一版任务计划

	skipSubstrings []string
	upgrader       websocket.Upgrader
}

// NewServer 创建服务。
func NewServer(deps Deps) *Server {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Load()
	}
	msgBus := deps.Bus
	if msgBus == nil {
		msgBus = bus.NewMessageBus()
	}
	stores := deps.Stores
	if stores == nil {
		stores = &Stores{}
	}

	s := &Server{
		router:      gin.Default(),
		cfg:         cfg,
		msgBus:      msgBus,
		stores:      stores,
		controllers: make(map[string]*timeline.Controller),
		plans:       make(map[string][]taskplan.Task),
		upgrader: websocket.Upgrader{
			CheckOrigin: checkLocalOrigin,
		},
	}
	for _, sub := range strings.Split(cfg.SkipBatchingTools, ",") {
		if sub = strings.TrimSpace(sub); sub != "" {
			s.skipSubstrings = append(s.skipSubstrings, sub)
		}
	}
	s.ingest = bus.NewAgentIngestSized(s.handleChunk, cfg.IngestQueueSize)
	s.registerRoutes()
	return s
}

// Engine 返回 Gin 引擎。
func (s *Server) Engine() *gin.Engine { return s.router }

// Bus 返回消息总线。
func (s *Server) Bus() *bus.MessageBus { return s.msgBus }

// Close 排空入队并停止接收。
func (s *Server) Close() {
	s.ingest.Close()

	// Flush 会进控制器锁, 控制器钩子又会进 s.mu, 不能持锁调用
	s.mu.Lock()
	ctrls := make([]*timeline.Controller, 0, len(s.controllers))
	for _, c := range s.controllers {
		ctrls = append(ctrls, c)
	}
	s.mu.Unlock()
	for _, c := range ctrls {
		c.Flush()
	}
}

// handleChunk 入队 worker 回调: 路由到对应 agent 的控制器。
func (s *Server) handleChunk(chunk bus.ContentChunk) {
	s.controller(chunk.AgentID).HandleContent(chunk.Content, chunk.RawType, chunk.ToolCallID)
}

// controller 返回 agent 的控制器, 首次访问时创建并接好 sink。
func (s *Server) controller(agentID string) *timeline.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.controllers[agentID]; ok {
		return c
	}

	c := timeline.NewController(timeline.Config{
		AgentID:      agentID,
		Timeline:     NewStoreSink(agentID, s.msgBus, s.stores.Events, s.stores.Tools),
		Ribbon:       NewRibbonBridge(agentID, s.msgBus),
		SkipBatching: s.skipBatching,
		OnToolDone: func(tool *timeline.ToolDisplayData) {
			s.onToolDone(agentID, tool)
		},
	})
	s.controllers[agentID] = c
	logger.Info("controller created", logger.FieldAgentID, agentID)
	return c
}

// skipBatching 按配置的工具名子串判定绕过批组。
func (s *Server) skipBatching(tool *timeline.ToolDisplayData) bool {
	for _, sub := range s.skipSubstrings {
		if strings.Contains(tool.ToolName, sub) {
			return true
		}
	}
	return false
}

// onToolDone 工具终态钩子: 规划工具的结果解析成任务计划并广播增量。
func (s *Server) onToolDone(agentID string, tool *timeline.ToolDisplayData) {
	if tool.Status != timeline.ToolStatusSuccess || tool.ResultFull == "" {
		return
	}
	if !s.skipBatching(tool) {
		return
	}
	tasks := taskplan.Parse(tool.ResultFull)
	if tasks == nil {
		return
	}

	s.mu.Lock()
	prev := s.plans[agentID]
	s.plans[agentID] = tasks
	s.mu.Unlock()

	changes := taskplan.Diff(prev, tasks)
	if len(changes) == 0 {
		return
	}
	s.msgBus.Publish(bus.Message{
		Topic:   bus.AgentTopic(agentID, "plan"),
		AgentID: agentID,
		Type:    bus.MsgPlanUpdate,
		Payload: marshalPayload(map[string]any{"tasks": tasks, "changes": changes}),
	})
}

// Plan 返回 agent 最近一版任务计划。
func (s *Server) Plan(agentID string) []taskplan.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plans[agentID]
}
