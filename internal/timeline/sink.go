// sink.go — 下游展示接口。
//
// 控制器通过构造注入的接口与外部 timeline/ribbon 解耦 (不做 mixin 继承);
// sink 为 nil 时所有调用静默降级为 no-op — 控制器必须容忍在展示层
// 挂载之前/之后被调用而不崩溃。
package timeline

import "github.com/multi-agent/timeline-engine/internal/normalize"

// TimelineSink 外部时间线的契约。方法名即本核心的全部约定, 实现随意。
type TimelineSink interface {
	// 独立工具卡片生命周期
	AddTool(tool *ToolDisplayData, round int)
	UpdateTool(toolID string, tool *ToolDisplayData)

	// 批组生命周期
	ConvertToolToBatch(pendingID string, tool *ToolDisplayData, batchID, serverName string, round int)
	AddToolToBatch(batchID string, tool *ToolDisplayData)
	UpdateToolInBatch(toolID string, tool *ToolDisplayData)

	// 行缓冲文本 / 回合分隔
	AddText(text, style, textClass string, round int)
	AddSeparator(label string, round int, subtitle string)

	// 回合切换副作用
	SwitchToRound(round int)
	ClearToolsTracking()

	// 存在性查询。控制器自身靠内部注册表路由, 不调用这两个方法;
	// 它们给宿主侧留的查询口 (feed API / 测试断言批组归属)。
	GetTool(toolID string) (*ToolDisplayData, bool)
	GetToolBatch(toolID string) (string, bool)
}

// RibbonSink 回合感知状态条的契约。
type RibbonSink interface {
	SetStatus(badge normalize.StatusBadge)
	SetRound(round int)
}
