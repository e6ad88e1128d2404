// controller.go — 回合/时间线生命周期控制器。
//
// 每个 agent 一个 Controller 实例, 串起归一化 → 批组决策 → sink 落点:
// 流式文本走行缓冲, 工具事件走 batch.Tracker, restart 信号推进回合。
// 入口方法内部加锁; 跨 agent 的顺序由上游 ingest 队列保证。
package timeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/multi-agent/timeline-engine/internal/batch"
	"github.com/multi-agent/timeline-engine/internal/normalize"
	"github.com/multi-agent/timeline-engine/pkg/logger"
)

// 行缓冲文本的展示类别 (lane)。类别切换时先冲刷旧 lane 的残段。
const (
	ClassThinkingInline = "thinking-inline"
	ClassContentInline  = "content-inline"
	ClassPresentation   = "presentation"
	ClassInjection      = "injection"
	ClassReminder       = "reminder"
	ClassToolInfo       = "tool-info"
)

// 摘要截断长度 (工具 args/result 的单行摘要)。
const summaryRuneLimit = 120

// Config 控制器构造参数。Timeline/Ribbon 允许为 nil (静默降级)。
type Config struct {
	AgentID  string
	Timeline TimelineSink
	Ribbon   RibbonSink

	// SkipBatching 返回 true 的工具绕过批组, 永远独立成卡。
	SkipBatching func(tool *ToolDisplayData) bool
	// OnToolDone 在工具首次到达终态后回调 (锁内调用, 勿重入控制器)。
	OnToolDone func(tool *ToolDisplayData)
	// Clock 仅测试注入; 缺省 time.Now。
	Clock func() time.Time
}

// Controller 单 agent 的时间线状态机。
type Controller struct {
	mu sync.Mutex

	agentID  string
	timeline TimelineSink
	ribbon   RibbonSink

	tracker      *batch.Tracker
	thinking     *normalize.ThinkingHandler
	status       *normalize.StatusHandler
	presentation *normalize.PresentationHandler

	buf       LineBuffer
	lastClass string
	lastStyle string

	currentRound   int
	viewedRound    int
	contextByRound map[int][]string

	// 工具注册表。按 ToolID 只增不删 — 旧回合工具的迟到更新仍要能路由。
	tools map[string]*ToolDisplayData

	skipBatching func(tool *ToolDisplayData) bool
	onToolDone   func(tool *ToolDisplayData)
	now          func() time.Time
}

// NewController 创建控制器, 初始回合为 1。
func NewController(cfg Config) *Controller {
	c := &Controller{
		agentID:        cfg.AgentID,
		timeline:       cfg.Timeline,
		ribbon:         cfg.Ribbon,
		tracker:        batch.NewTracker(),
		thinking:       normalize.NewThinkingHandler(),
		status:         normalize.NewStatusHandler(),
		presentation:   normalize.NewPresentationHandler(),
		currentRound:   1,
		viewedRound:    1,
		contextByRound: make(map[int][]string),
		tools:          make(map[string]*ToolDisplayData),
		skipBatching:   cfg.SkipBatching,
		onToolDone:     cfg.OnToolDone,
		now:            cfg.Clock,
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// ========================================
// 入口: 文本内容
// ========================================

// restart 信号在归一化之前按原始类型识别, 不参与内容分类。
var attemptPattern = regexp.MustCompile(`attempt[:\s]*(\d+)`)

// HandleContent 处理一个流式内容块。content 可为任意片段,
// rawType 为上游给出的原始类型提示, toolCallID 可为空。
func (c *Controller) HandleContent(content, rawType, toolCallID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if strings.EqualFold(strings.TrimSpace(rawType), "restart") {
		c.handleRestart(content)
		return
	}

	nc := normalize.Normalize(content, rawType, toolCallID)
	style := ""
	if nc.IsCoordination {
		style = "coordination"
	}

	switch {
	case nc.Type.IsTool():
		c.handleToolText(nc)

	case nc.Type == normalize.TypeStatus:
		c.tracker.MarkContent()
		if badge := c.status.Process(nc); badge != nil {
			c.ribbonSetStatus(*badge)
		}

	case nc.Type == normalize.TypePresentation:
		c.tracker.MarkContent()
		if text, ok := c.presentation.Process(nc); ok {
			c.flushLineBuffer()
			c.sinkAddText(text, style, ClassPresentation, c.currentRound)
		}

	case nc.Type == normalize.TypeInjection:
		c.tracker.MarkContent()
		if nc.ShouldDisplay {
			c.flushLineBuffer()
			c.sinkAddText(nc.Cleaned, style, ClassInjection, c.currentRound)
		}

	case nc.Type == normalize.TypeReminder:
		c.tracker.MarkContent()
		if nc.ShouldDisplay {
			c.flushLineBuffer()
			c.sinkAddText(nc.Cleaned, style, ClassReminder, c.currentRound)
		}

	case nc.Type == normalize.TypeContent || nc.Type == normalize.TypeText:
		if nc.ShouldDisplay {
			c.tracker.MarkContent()
			c.pushText(nc.Cleaned, style, ClassContentInline)
		}

	default:
		// thinking 及未知类型兜底走思考 lane
		if text, ok := c.thinking.Process(nc); ok {
			c.tracker.MarkContent()
			c.pushText(text, style, ClassThinkingInline)
		}
	}
}

// Flush 冲刷行缓冲中的残段 (流结束 / agent 停止时调用)。
func (c *Controller) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushLineBuffer()
}

// ========================================
// 入口: 结构化工具事件
// ========================================

// ProcessToolEvent 处理一个结构化工具生命周期事件。
// 同一 ToolID 的后续事件增量合并到首次创建的记录上。
func (c *Controller) ProcessToolEvent(data *ToolDisplayData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processToolEvent(data)
}

func (c *Controller) processToolEvent(data *ToolDisplayData) {
	if data == nil || data.ToolID == "" {
		return
	}
	if data.Status == "" {
		data.Status = ToolStatusRunning
	}

	existing, known := c.tools[data.ToolID]
	if known {
		wasTerminal := existing.Terminal()
		c.mergeTool(existing, data)
		data = existing
		// 重复 running 按刷新处理, 不再新建卡片
		status := data.Status
		if status == ToolStatusRunning {
			status = "refresh"
		}
		c.routeTool(data, status)
		if !wasTerminal && data.Terminal() && c.onToolDone != nil {
			c.onToolDone(data)
		}
		return
	}

	if data.StartTime.IsZero() {
		data.StartTime = c.now()
	}
	c.tools[data.ToolID] = data
	c.routeTool(data, data.Status)
	if data.Terminal() && c.onToolDone != nil {
		c.onToolDone(data)
	}
}

// routeTool 将工具事件经批组决策分发到 sink。status 为本次事件的
// 生命周期状态 (running 开新卡, 其余走更新路由)。
func (c *Controller) routeTool(data *ToolDisplayData, status string) {
	if status == ToolStatusRunning {
		// 工具卡片中断流式文本, 先冲残段保时序
		c.flushLineBuffer()
	}

	if c.skipBatching != nil && c.skipBatching(data) {
		if status == ToolStatusRunning {
			c.sinkAddTool(data, c.currentRound)
		} else {
			c.sinkUpdateTool(data.ToolID, data)
		}
		return
	}

	d := c.tracker.ProcessTool(batch.ToolEvent{
		ToolID:   data.ToolID,
		ToolName: data.ToolName,
		Status:   status,
	})
	switch d.Action {
	case batch.ActionStandalone, batch.ActionPending:
		c.sinkAddTool(data, c.currentRound)
	case batch.ActionConvertToBatch:
		c.sinkConvertToolToBatch(d.PendingToolID, data, d.BatchID, d.Server, c.currentRound)
	case batch.ActionAddToBatch:
		c.sinkAddToolToBatch(d.BatchID, data)
	case batch.ActionUpdateBatch:
		c.sinkUpdateToolInBatch(data.ToolID, data)
	case batch.ActionUpdateStandalone:
		c.sinkUpdateTool(data.ToolID, data)
	}
	logger.Debug("tool routed",
		logger.FieldAgentID, c.agentID,
		logger.FieldToolID, data.ToolID,
		logger.FieldAction, string(d.Action),
		logger.FieldBatchID, d.BatchID)
}

// mergeTool 将增量事件合并到已有记录。终态不回退到 running。
func (c *Controller) mergeTool(dst, src *ToolDisplayData) {
	if src.ToolName != "" {
		dst.ToolName = src.ToolName
	}
	if src.DisplayName != "" {
		dst.DisplayName = src.DisplayName
	}
	if src.ArgsSummary != "" {
		dst.ArgsSummary = src.ArgsSummary
	}
	if src.ArgsFull != "" {
		dst.ArgsFull = src.ArgsFull
	}
	if src.ResultSummary != "" {
		dst.ResultSummary = src.ResultSummary
	}
	if src.ResultFull != "" {
		dst.ResultFull = src.ResultFull
	}
	if src.Error != "" {
		dst.Error = src.Error
	}
	if src.AsyncID != "" {
		dst.AsyncID = src.AsyncID
	}
	switch src.Status {
	case ToolStatusSuccess, ToolStatusError, ToolStatusBackground:
		at := src.EndTime
		if at.IsZero() {
			at = c.now()
		}
		dst.Finish(src.Status, at)
	}
}

// GetTool 返回已注册的工具记录。
func (c *Controller) GetTool(toolID string) (*ToolDisplayData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.tools[toolID]
	return d, ok
}

// ========================================
// 文本归一化后的 tool_* 路径
// ========================================

// handleToolText 处理文本形态的工具提示 (无结构化事件时的兜底)。
func (c *Controller) handleToolText(nc normalize.NormalizedContent) {
	id := nc.ToolCallID
	switch nc.Type {
	case normalize.TypeToolInfo:
		if nc.ShouldDisplay {
			c.sinkAddText(nc.Cleaned, "", ClassToolInfo, c.currentRound)
		}

	case normalize.TypeToolStart:
		if id == "" {
			if nc.ShouldDisplay {
				c.sinkAddText(nc.Cleaned, "", ClassToolInfo, c.currentRound)
			}
			return
		}
		c.processToolEvent(&ToolDisplayData{
			ToolID:   id,
			ToolName: toolNameFromText(nc.Cleaned),
			Status:   ToolStatusRunning,
		})

	case normalize.TypeToolArgs:
		if id == "" {
			return
		}
		c.processToolEvent(&ToolDisplayData{
			ToolID:      id,
			Status:      "args",
			ArgsSummary: summarize(nc.Cleaned),
			ArgsFull:    nc.Cleaned,
		})

	case normalize.TypeToolComplete:
		if id == "" {
			return
		}
		c.processToolEvent(&ToolDisplayData{
			ToolID:        id,
			Status:        ToolStatusSuccess,
			ResultSummary: summarize(nc.Cleaned),
			ResultFull:    nc.Cleaned,
		})

	case normalize.TypeToolFailed:
		if id == "" {
			return
		}
		c.processToolEvent(&ToolDisplayData{
			ToolID: id,
			Status: ToolStatusError,
			Error:  summarize(nc.Cleaned),
		})
	}
}

// ========================================
// 回合生命周期
// ========================================

func (c *Controller) handleRestart(content string) {
	// 重启前的残段归属旧回合
	c.flushLineBuffer()

	attempt := 1
	lower := strings.ToLower(content)
	if m := attemptPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			attempt = n
		}
	}
	contextCleared := strings.Contains(lower, "context") ||
		strings.Contains(lower, "reset")

	c.currentRound = attempt
	c.viewedRound = attempt
	c.sinkSwitchToRound(attempt)
	c.sinkClearToolsTracking()

	if attempt > 1 {
		subtitle := "Restart"
		if contextCleared {
			subtitle += " • Context cleared"
		}
		c.sinkAddSeparator(fmt.Sprintf("Round %d", attempt), attempt, subtitle)
	}

	c.tracker.Reset()
	c.thinking.Reset()
	c.lastClass = ""
	c.lastStyle = ""
	c.ribbonSetRound(attempt)

	logger.Info("round restart",
		logger.FieldAgentID, c.agentID,
		logger.FieldAttempt, attempt,
		"context_cleared", contextCleared)
}

// CurrentRound 返回当前发射回合。
func (c *Controller) CurrentRound() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentRound
}

// ViewedRound 返回当前查看回合。
func (c *Controller) ViewedRound() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewedRound
}

// SetViewedRound 切换查看回合 (不影响发射回合)。
func (c *Controller) SetViewedRound(round int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if round < 1 {
		return
	}
	c.viewedRound = round
	c.sinkSwitchToRound(round)
}

// AddContextSource 记录当前回合的一个上下文来源。只追加, 不截断。
func (c *Controller) AddContextSource(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.TrimSpace(label) == "" {
		return
	}
	c.contextByRound[c.currentRound] = append(c.contextByRound[c.currentRound], label)
}

// ContextSources 返回指定回合的上下文来源副本。
func (c *Controller) ContextSources(round int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.contextByRound[round]
	if len(src) == 0 {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// ========================================
// 行缓冲 lane
// ========================================

func (c *Controller) pushText(text, style, class string) {
	if class != c.lastClass && c.buf.HasContent() {
		c.flushLineBuffer()
	}
	c.lastClass = class
	c.lastStyle = style
	for _, line := range c.buf.Push(text) {
		c.sinkAddText(line, style, class, c.currentRound)
	}
}

func (c *Controller) flushLineBuffer() {
	if rest, ok := c.buf.Flush(); ok {
		class := c.lastClass
		if class == "" {
			class = ClassThinkingInline
		}
		c.sinkAddText(rest, c.lastStyle, class, c.currentRound)
	}
}

// ========================================
// nil 容忍的 sink 包装
// ========================================

func (c *Controller) sinkAddTool(tool *ToolDisplayData, round int) {
	if c.timeline != nil {
		c.timeline.AddTool(tool, round)
	}
}

func (c *Controller) sinkUpdateTool(toolID string, tool *ToolDisplayData) {
	if c.timeline != nil {
		c.timeline.UpdateTool(toolID, tool)
	}
}

func (c *Controller) sinkConvertToolToBatch(pendingID string, tool *ToolDisplayData, batchID, server string, round int) {
	if c.timeline != nil {
		c.timeline.ConvertToolToBatch(pendingID, tool, batchID, server, round)
	}
}

func (c *Controller) sinkAddToolToBatch(batchID string, tool *ToolDisplayData) {
	if c.timeline != nil {
		c.timeline.AddToolToBatch(batchID, tool)
	}
}

func (c *Controller) sinkUpdateToolInBatch(toolID string, tool *ToolDisplayData) {
	if c.timeline != nil {
		c.timeline.UpdateToolInBatch(toolID, tool)
	}
}

func (c *Controller) sinkAddText(text, style, class string, round int) {
	if c.timeline != nil {
		c.timeline.AddText(text, style, class, round)
	}
}

func (c *Controller) sinkAddSeparator(label string, round int, subtitle string) {
	if c.timeline != nil {
		c.timeline.AddSeparator(label, round, subtitle)
	}
}

func (c *Controller) sinkSwitchToRound(round int) {
	if c.timeline != nil {
		c.timeline.SwitchToRound(round)
	}
}

func (c *Controller) sinkClearToolsTracking() {
	if c.timeline != nil {
		c.timeline.ClearToolsTracking()
	}
}

func (c *Controller) ribbonSetStatus(badge normalize.StatusBadge) {
	if c.ribbon != nil {
		c.ribbon.SetStatus(badge)
	}
}

func (c *Controller) ribbonSetRound(round int) {
	if c.ribbon != nil {
		c.ribbon.SetRound(round)
	}
}

// ========================================
// 小工具
// ========================================

// toolNameFromText 从提示文本里提取工具名 (优先 mcp__ 形态)。
func toolNameFromText(s string) string {
	for _, f := range strings.Fields(s) {
		t := strings.Trim(f, ":,.()[]\"'")
		if strings.HasPrefix(t, "mcp__") {
			return t
		}
	}
	lower := strings.ToLower(s)
	for _, marker := range []string{"calling ", "executing "} {
		if i := strings.Index(lower, marker); i >= 0 {
			rest := strings.Fields(s[i+len(marker):])
			if len(rest) > 0 {
				return strings.Trim(rest[0], ":,.\"'")
			}
		}
	}
	return ""
}

// summarize 取首行并截断为单行摘要。
func summarize(s string) string {
	line := s
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	r := []rune(line)
	if len(r) > summaryRuneLimit {
		return string(r[:summaryRuneLimit]) + "…"
	}
	return line
}
