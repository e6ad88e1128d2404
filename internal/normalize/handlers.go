// handlers.go — 类型专属内容处理器 (thinking / status / presentation)。
//
// 共同契约: 幂等, 无副作用, 畸形输入最差返回"丢弃", 绝不 panic。
package normalize

import (
	"regexp"
	"strings"
)

// ========================================
// ThinkingHandler
// ========================================

// ThinkingHandler 在归一化结果之上对思考文本做二次过滤。
type ThinkingHandler struct {
	filters []*regexp.Regexp
}

// NewThinkingHandler 创建思考内容处理器。
func NewThinkingHandler() *ThinkingHandler {
	return &ThinkingHandler{
		filters: []*regexp.Regexp{
			regexp.MustCompile(`^\s*[{}\[\]]+\s*$`),          // 孤立括号
			regexp.MustCompile(`^\s*"[^"]*"\s*:\s*$`),        // 裸 JSON 键行
			regexp.MustCompile(`^\s*"[^"]*"\s*:\s*[,{\[]\s*$`), // JSON 键 + 开括号
			regexp.MustCompile(`^\s*,+\s*$`),                 // 孤立逗号
		},
	}
}

// Process 返回可展示的思考文本; 返回 ("", false) 表示整块丢弃。
func (h *ThinkingHandler) Process(nc NormalizedContent) (string, bool) {
	if !nc.ShouldDisplay {
		return "", false
	}
	content := nc.Cleaned
	for _, f := range h.filters {
		if f.MatchString(content) {
			return "", false
		}
	}
	// 只剩一个列表符号的块 (流式边界伪影)
	stripped := strings.TrimSpace(content)
	switch stripped {
	case "•", "-", "*", "·":
		return "", false
	}
	if stripped == "" {
		return "", false
	}
	return content, true
}

// Reset 清除回合内部状态。新回合开始时由控制器调用。
func (h *ThinkingHandler) Reset() {}

// ========================================
// StatusHandler
// ========================================

// StatusBadge 状态徽标 (icon/颜色/标签)。
type StatusBadge struct {
	Icon  string
	Color string
	Label string
}

// statusKeywords 固定优先级: completed 先于 working, error/failed 并列。
var statusKeywords = []struct {
	keyword string
	badge   StatusBadge
}{
	{"completed", StatusBadge{Icon: "✅", Color: "green", Label: "Completed"}},
	{"working", StatusBadge{Icon: "⚙️", Color: "yellow", Label: "Working"}},
	{"streaming", StatusBadge{Icon: "💬", Color: "blue", Label: "Streaming"}},
	{"error", StatusBadge{Icon: "❌", Color: "red", Label: "Error"}},
	{"failed", StatusBadge{Icon: "❌", Color: "red", Label: "Error"}},
	{"connected", StatusBadge{Icon: "🔌", Color: "cyan", Label: "Connected"}},
	{"waiting", StatusBadge{Icon: "⏳", Color: "gray", Label: "Waiting"}},
}

// StatusHandler 将状态文本映射为徽标。
type StatusHandler struct{}

// NewStatusHandler 创建状态处理器。
func NewStatusHandler() *StatusHandler { return &StatusHandler{} }

// Process 按关键词优先级扫描, 无命中返回 nil。
func (h *StatusHandler) Process(nc NormalizedContent) *StatusBadge {
	if !nc.ShouldDisplay {
		return nil
	}
	lower := strings.ToLower(nc.Cleaned)
	for _, entry := range statusKeywords {
		if strings.Contains(lower, entry.keyword) {
			badge := entry.badge
			return &badge
		}
	}
	return nil
}

// ========================================
// PresentationHandler
// ========================================

// PresentationHandler 演示文本直通, 仅拦截已知内部前导伪影。
type PresentationHandler struct{}

// NewPresentationHandler 创建演示处理器。
func NewPresentationHandler() *PresentationHandler { return &PresentationHandler{} }

// Process 返回可展示文本; ("", false) 表示丢弃。
func (h *PresentationHandler) Process(nc NormalizedContent) (string, bool) {
	if !nc.ShouldDisplay {
		return "", false
	}
	if strings.Contains(nc.Cleaned, "Providing answer:") {
		return "", false
	}
	return nc.Cleaned, true
}
