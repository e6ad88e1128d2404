// handler.go — feed REST API handlers。
package feed

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/multi-agent/timeline-engine/internal/bus"
	"github.com/multi-agent/timeline-engine/internal/timeline"
)

// registerRoutes 注册 API 路由。
func (s *Server) registerRoutes() {
	api := s.router.Group("/api")

	agents := api.Group("/agents/:id")
	agents.POST("/content", s.postContent)
	agents.POST("/tool", s.postToolEvent)
	agents.POST("/flush", s.postFlush)
	agents.GET("/events", s.listEvents)
	agents.GET("/tools", s.listToolCalls)
	agents.GET("/tools/batch/:batchId", s.listBatchMembers)
	agents.GET("/rounds", s.listRounds)
	agents.GET("/plan", s.getPlan)
	agents.GET("/context", s.listContextSources)
	agents.POST("/context", s.addContextSource)

	api.GET("/events", s.sseHandler)
	api.GET("/ws", s.wsHandler)
	api.GET("/health", s.health)
}

// ========================================
// ingest
// ========================================

type contentRequest struct {
	Content    string `json:"content"`
	Type       string `json:"type"`
	ToolCallID string `json:"toolCallId"`
}

// postContent 接收一个流式内容块, 经 ingest 队列异步处理。
func (s *Server) postContent(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", err.Error())
		return
	}
	err := s.ingest.Push(bus.ContentChunk{
		AgentID:    c.Param("id"),
		Content:    req.Content,
		RawType:    req.Type,
		ToolCallID: req.ToolCallID,
	})
	if err != nil {
		serverError(c, err)
		return
	}
	accepted(c)
}

// postToolEvent 接收一个结构化工具生命周期事件。
func (s *Server) postToolEvent(c *gin.Context) {
	var tool timeline.ToolDisplayData
	if err := c.ShouldBindJSON(&tool); err != nil {
		badRequest(c, "invalid_body", err.Error())
		return
	}
	if tool.ToolID == "" {
		badRequest(c, "invalid_body", "toolId is required")
		return
	}
	s.controller(c.Param("id")).ProcessToolEvent(&tool)
	accepted(c)
}

// postFlush 冲刷 agent 的行缓冲残段 (流结束时调用)。
func (s *Server) postFlush(c *gin.Context) {
	s.controller(c.Param("id")).Flush()
	accepted(c)
}

// ========================================
// 查询
// ========================================

func (s *Server) listEvents(c *gin.Context) {
	if s.stores.Events == nil {
		success(c, []any{})
		return
	}
	events, err := s.stores.Events.ListByAgent(c.Request.Context(),
		c.Param("id"), queryInt(c, "round", 0), queryLimit(c, s.cfg.EventQueryLimit))
	if err != nil {
		serverError(c, err)
		return
	}
	success(c, events)
}

func (s *Server) listToolCalls(c *gin.Context) {
	if s.stores.Tools == nil {
		success(c, []any{})
		return
	}
	calls, err := s.stores.Tools.List(c.Request.Context(),
		c.Param("id"), queryInt(c, "round", 0),
		c.Query("status"), c.Query("keyword"), queryLimit(c, s.cfg.EventQueryLimit))
	if err != nil {
		serverError(c, err)
		return
	}
	success(c, calls)
}

func (s *Server) listBatchMembers(c *gin.Context) {
	if s.stores.Tools == nil {
		success(c, []any{})
		return
	}
	calls, err := s.stores.Tools.ListByBatch(c.Request.Context(), c.Param("id"), c.Param("batchId"))
	if err != nil {
		serverError(c, err)
		return
	}
	if len(calls) == 0 {
		notFound(c, "batch not found")
		return
	}
	success(c, calls)
}

func (s *Server) listRounds(c *gin.Context) {
	if s.stores.Events == nil {
		success(c, []int{})
		return
	}
	rounds, err := s.stores.Events.Rounds(c.Request.Context(), c.Param("id"))
	if err != nil {
		serverError(c, err)
		return
	}
	success(c, rounds)
}

func (s *Server) getPlan(c *gin.Context) {
	success(c, s.Plan(c.Param("id")))
}

func (s *Server) listContextSources(c *gin.Context) {
	ctrl := s.controller(c.Param("id"))
	round := queryInt(c, "round", ctrl.CurrentRound())
	success(c, gin.H{"round": round, "sources": ctrl.ContextSources(round)})
}

type contextRequest struct {
	Label string `json:"label"`
}

func (s *Server) addContextSource(c *gin.Context) {
	var req contextRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Label == "" {
		badRequest(c, "invalid_body", "label is required")
		return
	}
	s.controller(c.Param("id")).AddContextSource(req.Label)
	accepted(c)
}

func (s *Server) health(c *gin.Context) {
	success(c, gin.H{
		"status":      "ok",
		"time":        time.Now().UTC(),
		"subscribers": s.msgBus.SubscriberCount(),
		"queues":      s.ingest.QueueCount(),
	})
}

// ========================================
// 辅助: query 参数读取
// ========================================

func queryLimit(c *gin.Context, def int) int {
	v, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if v < 1 {
		return def
	}
	return v
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}
