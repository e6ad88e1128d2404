// tooldata.go — 工具卡片数据 (一次工具调用生命周期一条, 按 ToolID 索引)。
package timeline

import "time"

// 工具状态。running → success|error 单调推进; background 为
// 脱离式异步操作的备用终态 (如后台 shell 会话)。
const (
	ToolStatusRunning    = "running"
	ToolStatusSuccess    = "success"
	ToolStatusError      = "error"
	ToolStatusBackground = "background"
)

// ToolDisplayData 工具调用的可变展示记录。
//
// tool_start 时创建; tool_args 附加参数; tool_complete/tool_failed
// 推进到终态。本层从不删除 — 移除归外部 timeline sink 管 (如回合重置)。
type ToolDisplayData struct {
	ToolID      string `json:"toolId"`
	ToolName    string `json:"toolName"`
	DisplayName string `json:"displayName,omitempty"`
	ToolType    string `json:"toolType,omitempty"`
	Category    string `json:"category,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Color       string `json:"color,omitempty"`

	Status    string    `json:"status"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime,omitzero"`
	ElapsedMS int64     `json:"elapsedMs,omitempty"`

	ArgsSummary   string `json:"argsSummary,omitempty"`
	ArgsFull      string `json:"argsFull,omitempty"`
	ResultSummary string `json:"resultSummary,omitempty"`
	ResultFull    string `json:"resultFull,omitempty"`
	Error         string `json:"error,omitempty"`

	// AsyncID 关联带外后台操作 (如 shell 会话)。
	AsyncID string `json:"asyncId,omitempty"`
}

// Terminal 判断是否已到终态。
func (d *ToolDisplayData) Terminal() bool {
	switch d.Status {
	case ToolStatusSuccess, ToolStatusError, ToolStatusBackground:
		return true
	default:
		return false
	}
}

// Finish 推进到终态并记录耗时。终态不回退到 running。
func (d *ToolDisplayData) Finish(status string, at time.Time) {
	if status == ToolStatusRunning {
		return
	}
	d.Status = status
	d.EndTime = at
	if !d.StartTime.IsZero() && at.After(d.StartTime) {
		d.ElapsedMS = at.Sub(d.StartTime).Milliseconds()
	}
}
