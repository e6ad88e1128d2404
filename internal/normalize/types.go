// types.go — 归一化内容类型定义。
package normalize

// ContentType 内容块的语义分类 (13 种)。
type ContentType string

const (
	TypeToolStart    ContentType = "tool_start"
	TypeToolArgs     ContentType = "tool_args"
	TypeToolComplete ContentType = "tool_complete"
	TypeToolFailed   ContentType = "tool_failed"
	TypeToolInfo     ContentType = "tool_info"
	TypeThinking     ContentType = "thinking"
	TypeContent      ContentType = "content"
	TypeStatus       ContentType = "status"
	TypePresentation ContentType = "presentation"
	TypeInjection    ContentType = "injection"
	TypeReminder     ContentType = "reminder"
	TypeText         ContentType = "text"
	TypeCoordination ContentType = "coordination"
)

// IsTool 判断是否为工具生命周期类型 (tool_*)。
func (t ContentType) IsTool() bool {
	switch t {
	case TypeToolStart, TypeToolArgs, TypeToolComplete, TypeToolFailed, TypeToolInfo:
		return true
	default:
		return false
	}
}

// ToolMetadata 结构化工具信息 (由结构化事件填充, 文本归一化路径通常为空)。
type ToolMetadata struct {
	ToolID   string `json:"toolId,omitempty"`
	ToolName string `json:"toolName,omitempty"`
	Server   string `json:"server,omitempty"`
	Status   string `json:"status,omitempty"`
}

// NormalizedContent 归一化结果。值对象, 创建后不再修改。
//
// 完整记录所有字段 — 下游不做 duck-typing 兜底。
type NormalizedContent struct {
	Type           ContentType       `json:"type"`
	Cleaned        string            `json:"cleaned"`
	Original       string            `json:"original"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	ToolMeta       *ToolMetadata     `json:"toolMeta,omitempty"`
	ShouldDisplay  bool              `json:"shouldDisplay"`
	IsCoordination bool              `json:"isCoordination"`
	ToolCallID     string            `json:"toolCallId,omitempty"`
}
