// Package batch 实现工具调用批组状态机。
//
// 时序规则: 批组只在 2+ 个连续同服务器 MCP 调用且中间无可见内容时形成;
// 任何非工具内容到达都会终结当前批组 — 批组绝不跨越插入的内容事件。
//
// 状态用显式标记表示 (Idle / Pending / Batching), 单一转移函数,
// 避免多个可选字段隐式编码状态机导致的不一致组合。
package batch

import (
	"fmt"
	"strings"
)

// Action 批组决策动作。
type Action string

const (
	// ActionStandalone 非 MCP 工具, 独立展示, 永不入批。
	ActionStandalone Action = "standalone"
	// ActionPending 同服务器首个调用, 先独立展示, 等待第二个调用成批。
	ActionPending Action = "pending"
	// ActionConvertToBatch 同服务器第二个连续调用, pending 转为批组。
	ActionConvertToBatch Action = "convert_to_batch"
	// ActionAddToBatch 追加到已激活批组。
	ActionAddToBatch Action = "add_to_batch"
	// ActionUpdateBatch 批组成员的状态更新。
	ActionUpdateBatch Action = "update_batch"
	// ActionUpdateStandalone 非批组成员的状态更新。
	ActionUpdateStandalone Action = "update_standalone"
)

// StatusRunning 新调用的初始状态; 其余均视为更新。
const StatusRunning = "running"

// ToolEvent 进入状态机的工具事件 (最小字段集)。
type ToolEvent struct {
	ToolID   string
	ToolName string
	Status   string // running | success | error | background
}

// Decision 状态机输出。
type Decision struct {
	Action        Action
	Server        string
	BatchID       string
	PendingToolID string // convert_to_batch 时为原 pending 工具 id
}

// ─── 显式状态 ───

type trackerState int

const (
	stateIdle trackerState = iota
	statePending
	stateBatching
)

// Tracker 每 agent-round 一个实例, 回合边界 Reset()。
type Tracker struct {
	state   trackerState
	server  string
	pending string // statePending 时的工具 id
	batchID string

	batchCounter int
	// 已入批工具 id → 所属批组 id。用于把状态更新路由到批组而非独立卡片。
	memberBatch map[string]string

	contentSinceLastTool bool
}

// NewTracker 创建空闲状态的追踪器。
func NewTracker() *Tracker {
	return &Tracker{memberBatch: map[string]string{}}
}

// MarkContent 记录"上个工具事件之后出现了非工具内容"。
// 下一个 running 工具到达时会先终结当前批组, 保证时序正确。
func (t *Tracker) MarkContent() {
	t.contentSinceLastTool = true
}

// Reset 清空全部状态 (回合边界调用; 同时清 memberBatch 约束内存增长)。
func (t *Tracker) Reset() {
	t.state = stateIdle
	t.server = ""
	t.pending = ""
	t.batchID = ""
	t.contentSinceLastTool = false
	t.memberBatch = map[string]string{}
}

// CurrentServer 返回当前批组/待定的服务器名 (空闲时 "")。
func (t *Tracker) CurrentServer() string { return t.server }

// CurrentBatchID 返回激活中的批组 id (非 Batching 状态时 "")。
func (t *Tracker) CurrentBatchID() string {
	if t.state != stateBatching {
		return ""
	}
	return t.batchID
}

// finalize 关闭 pending/批组状态, 回到 Idle。不清 memberBatch —
// 已入批成员的后续状态更新仍要路由到其批组。
func (t *Tracker) finalize() {
	t.state = stateIdle
	t.server = ""
	t.pending = ""
	t.batchID = ""
}

// ProcessTool 状态机唯一转移函数。
func (t *Tracker) ProcessTool(ev ToolEvent) Decision {
	running := strings.EqualFold(ev.Status, StatusRunning)

	// 1. 时序保持规则: 有内容插入且新调用到达 → 先终结旧批组
	if t.contentSinceLastTool && running {
		t.finalize()
		t.contentSinceLastTool = false
	}

	server := MCPServerName(ev.ToolName)

	// 2. 非 MCP 工具: 终结 pending, 独立展示
	if server == "" {
		t.finalize()
		return Decision{Action: ActionStandalone}
	}

	// 3. 已有调用的状态更新: 按成员关系路由
	if !running {
		if batchID, ok := t.memberBatch[ev.ToolID]; ok {
			return Decision{Action: ActionUpdateBatch, Server: server, BatchID: batchID}
		}
		return Decision{Action: ActionUpdateStandalone, Server: server}
	}

	// 4. 新调用
	switch {
	case t.state == stateBatching && t.server == server:
		t.memberBatch[ev.ToolID] = t.batchID
		return Decision{Action: ActionAddToBatch, Server: server, BatchID: t.batchID}

	case t.state == statePending && t.server == server:
		// 第二个连续同服务器调用 → pending 升级为批组
		t.batchCounter++
		t.batchID = fmt.Sprintf("batch_%d", t.batchCounter)
		oldPending := t.pending
		t.memberBatch[oldPending] = t.batchID
		t.memberBatch[ev.ToolID] = t.batchID
		t.pending = ""
		t.state = stateBatching
		return Decision{
			Action:        ActionConvertToBatch,
			Server:        server,
			BatchID:       t.batchID,
			PendingToolID: oldPending,
		}

	default:
		// 换服务器或无 pending: 终结旧状态, 本调用成为新 pending
		t.finalize()
		t.state = statePending
		t.server = server
		t.pending = ev.ToolID
		return Decision{Action: ActionPending, Server: server}
	}
}
