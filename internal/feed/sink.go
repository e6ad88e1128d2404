// sink.go — timeline.TimelineSink / RibbonSink 的 feed 侧实现。
//
// StoreSink 把控制器发射的时间线单元落库 (timeline_events / tool_calls)
// 并发布到 bus, SSE/WS 订阅者由 bus fan-out 喂饱。落库是尽力而为:
// 写失败记日志不回传 (展示流不因存储抖动中断)。
package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/multi-agent/timeline-engine/internal/batch"
	"github.com/multi-agent/timeline-engine/internal/bus"
	"github.com/multi-agent/timeline-engine/internal/normalize"
	"github.com/multi-agent/timeline-engine/internal/store"
	"github.com/multi-agent/timeline-engine/internal/timeline"
	"github.com/multi-agent/timeline-engine/pkg/logger"
)

const storeOpTimeout = 5 * time.Second

// toolMeta sink 侧的工具索引 (查询 + 批组归属 + 回合)。
type toolMeta struct {
	data    *timeline.ToolDisplayData
	batchID string
	round   int
}

// StoreSink 单 agent 的持久化 + bus 桥接 sink。
type StoreSink struct {
	agentID string
	msgBus  *bus.MessageBus
	events  *store.TimelineEventStore
	tools   *store.ToolCallStore

	mu   sync.Mutex
	meta map[string]*toolMeta
}

// NewStoreSink 创建。events/tools 可为 nil (纯 bus 模式, 不落库)。
func NewStoreSink(agentID string, msgBus *bus.MessageBus, events *store.TimelineEventStore, tools *store.ToolCallStore) *StoreSink {
	return &StoreSink{
		agentID: agentID,
		msgBus:  msgBus,
		events:  events,
		tools:   tools,
		meta:    make(map[string]*toolMeta),
	}
}

var _ timeline.TimelineSink = (*StoreSink)(nil)

// ========================================
// 工具卡片
// ========================================

func (s *StoreSink) AddTool(tool *timeline.ToolDisplayData, round int) {
	s.mu.Lock()
	s.meta[tool.ToolID] = &toolMeta{data: tool, round: round}
	s.mu.Unlock()

	s.persistTool(tool, round, "")
	seq := s.publish("timeline", bus.MsgTimelineTool, tool)
	s.insertEvent(&store.TimelineEvent{
		AgentID: s.agentID, Round: round, Kind: store.EventKindTool,
		Content: tool.ToolName, Payload: marshalPayload(tool), Seq: seq,
	})
}

func (s *StoreSink) UpdateTool(toolID string, tool *timeline.ToolDisplayData) {
	round, batchID := s.touch(toolID, tool, "")
	s.persistTool(tool, round, batchID)
	s.publish("timeline", bus.MsgTimelineToolUpdate, tool)
}

func (s *StoreSink) ConvertToolToBatch(pendingID string, tool *timeline.ToolDisplayData, batchID, serverName string, round int) {
	s.mu.Lock()
	if m, ok := s.meta[pendingID]; ok {
		m.batchID = batchID
	}
	s.meta[tool.ToolID] = &toolMeta{data: tool, batchID: batchID, round: round}
	pendingData := s.dataOf(pendingID)
	s.mu.Unlock()

	if pendingData != nil {
		s.persistTool(pendingData, round, batchID)
	}
	s.persistTool(tool, round, batchID)
	payload := map[string]any{
		"batchId": batchID, "server": serverName,
		"pendingToolId": pendingID, "tool": tool,
	}
	seq := s.publish("timeline", bus.MsgTimelineBatch, payload)
	s.insertEvent(&store.TimelineEvent{
		AgentID: s.agentID, Round: round, Kind: store.EventKindBatch,
		Content: serverName, Payload: marshalPayload(payload), Seq: seq,
	})
}

func (s *StoreSink) AddToolToBatch(batchID string, tool *timeline.ToolDisplayData) {
	round, _ := s.touch(tool.ToolID, tool, batchID)
	s.persistTool(tool, round, batchID)
	s.publish("timeline", bus.MsgTimelineBatchAdd, map[string]any{
		"batchId": batchID, "tool": tool,
	})
}

func (s *StoreSink) UpdateToolInBatch(toolID string, tool *timeline.ToolDisplayData) {
	round, batchID := s.touch(toolID, tool, "")
	s.persistTool(tool, round, batchID)
	s.publish("timeline", bus.MsgTimelineToolUpdate, tool)
}

// ========================================
// 文本 / 分隔 / 回合
// ========================================

func (s *StoreSink) AddText(text, style, textClass string, round int) {
	seq := s.publish("timeline", bus.MsgTimelineText, map[string]any{
		"text": text, "style": style, "textClass": textClass, "round": round,
	})
	s.insertEvent(&store.TimelineEvent{
		AgentID: s.agentID, Round: round, Kind: store.EventKindText,
		TextClass: textClass, Style: style, Content: text, Seq: seq,
	})
}

func (s *StoreSink) AddSeparator(label string, round int, subtitle string) {
	seq := s.publish("timeline", bus.MsgTimelineSeparator, map[string]any{
		"label": label, "subtitle": subtitle, "round": round,
	})
	s.insertEvent(&store.TimelineEvent{
		AgentID: s.agentID, Round: round, Kind: store.EventKindSeparator,
		Content: label, Style: subtitle, Seq: seq,
	})
}

func (s *StoreSink) SwitchToRound(round int) {
	s.publish("round", bus.MsgRoundChanged, map[string]any{"round": round})
}

// ClearToolsTracking 清空 sink 侧工具索引 (回合重启)。历史已落库, 不回收。
func (s *StoreSink) ClearToolsTracking() {
	s.mu.Lock()
	s.meta = make(map[string]*toolMeta)
	s.mu.Unlock()
}

// ========================================
// 查询
// ========================================

func (s *StoreSink) GetTool(toolID string) (*timeline.ToolDisplayData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[toolID]
	if !ok {
		return nil, false
	}
	return m.data, true
}

func (s *StoreSink) GetToolBatch(toolID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[toolID]
	if !ok || m.batchID == "" {
		return "", false
	}
	return m.batchID, true
}

// ========================================
// 内部
// ========================================

// touch 更新索引并返回 (round, batchID)。batchID 传空则保留已有值。
func (s *StoreSink) touch(toolID string, tool *timeline.ToolDisplayData, batchID string) (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[toolID]
	if !ok {
		m = &toolMeta{round: 1}
		s.meta[toolID] = m
	}
	m.data = tool
	if batchID != "" {
		m.batchID = batchID
	}
	return m.round, m.batchID
}

func (s *StoreSink) dataOf(toolID string) *timeline.ToolDisplayData {
	if m, ok := s.meta[toolID]; ok {
		return m.data
	}
	return nil
}

func (s *StoreSink) persistTool(tool *timeline.ToolDisplayData, round int, batchID string) {
	if s.tools == nil || tool == nil {
		return
	}
	tc := &store.ToolCall{
		ToolID:        tool.ToolID,
		AgentID:       s.agentID,
		Round:         round,
		ToolName:      tool.ToolName,
		Server:        batch.MCPServerName(tool.ToolName),
		BatchID:       batchID,
		Status:        tool.Status,
		ArgsSummary:   tool.ArgsSummary,
		ResultSummary: tool.ResultSummary,
		ErrorText:     tool.Error,
		StartedAt:     tool.StartTime,
		ElapsedMS:     tool.ElapsedMS,
	}
	if !tool.EndTime.IsZero() {
		end := tool.EndTime
		tc.EndedAt = &end
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()
	if err := s.tools.Upsert(ctx, tc); err != nil {
		logger.Error("tool call persist failed",
			logger.FieldAgentID, s.agentID,
			logger.FieldToolID, tool.ToolID,
			logger.FieldError, err)
	}
}

// insertEvent 落库一条时间线事件。ev.Seq 由调用方填入对应 bus 消息
// 分配到的 seq, 行与推送消息一一对应。
func (s *StoreSink) insertEvent(ev *store.TimelineEvent) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()
	if err := s.events.Insert(ctx, ev); err != nil {
		logger.Error("timeline event persist failed",
			logger.FieldAgentID, s.agentID,
			logger.FieldError, err)
	}
}

// publish 发布到 agent 子 topic, 返回 bus 分配的 seq (无 bus 时为 0)。
func (s *StoreSink) publish(subtopic, msgType string, payload any) int64 {
	if s.msgBus == nil {
		return 0
	}
	return s.msgBus.Publish(bus.Message{
		Topic:   bus.AgentTopic(s.agentID, subtopic),
		AgentID: s.agentID,
		Type:    msgType,
		Payload: marshalPayload(payload),
	})
}

func marshalPayload(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

// ========================================
// RibbonBridge
// ========================================

// RibbonBridge 把 ribbon 变化发布到 bus。
type RibbonBridge struct {
	agentID string
	msgBus  *bus.MessageBus
}

// NewRibbonBridge 创建。
func NewRibbonBridge(agentID string, msgBus *bus.MessageBus) *RibbonBridge {
	return &RibbonBridge{agentID: agentID, msgBus: msgBus}
}

var _ timeline.RibbonSink = (*RibbonBridge)(nil)

func (r *RibbonBridge) SetStatus(badge normalize.StatusBadge) {
	if r.msgBus == nil {
		return
	}
	r.msgBus.Publish(bus.Message{
		Topic:   bus.AgentTopic(r.agentID, "ribbon"),
		AgentID: r.agentID,
		Type:    bus.MsgRibbonStatus,
		Payload: marshalPayload(map[string]string{
			"icon": badge.Icon, "color": badge.Color, "label": badge.Label,
		}),
	})
}

func (r *RibbonBridge) SetRound(round int) {
	if r.msgBus == nil {
		return
	}
	r.msgBus.Publish(bus.Message{
		Topic:   bus.AgentTopic(r.agentID, "ribbon"),
		AgentID: r.agentID,
		Type:    bus.MsgRoundChanged,
		Payload: marshalPayload(map[string]int{"round": round}),
	})
}
