// Package normalize 将 agent 原始内容块归一化为可路由的语义事件。
//
// Normalize 为纯函数: 前缀剥离 → 类型判定 → 协调标记 → 展示过滤 → 轻清洗。
// 无状态, 无锁, 热路径安全; 任何分类歧义降级为 text, 绝不 panic。
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// ========================================
// 前缀剥离
// ========================================

// 顺序敏感: 带标记的前缀必须先于通用 emoji 剥离执行,
// 否则以 emoji 开头的正文会被误截。
var prefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*\[MCP\]\s*`),
	regexp.MustCompile(`^\s*\[Custom Tool\]\s*`),
	regexp.MustCompile(`^\s*\[INJECTION\]\s*`),
	regexp.MustCompile(`^\s*\[REMINDER\]\s*`),
	regexp.MustCompile(`^\s*MCP:\s*`),
	regexp.MustCompile(`^\s*Custom Tool:\s*`),
}

var leadingEmojiPattern = regexp.MustCompile(`^[\x{1F000}-\x{1FAFF}\x{2600}-\x{27BF}\x{2190}-\x{21FF}\x{2B00}-\x{2BFF}\x{FE0F}]+\s*`)

// stripPrefixes 去除后端噪音前缀: 括号标记 → MCP:/Custom Tool: → 重复 emoji → 头部 emoji。
func stripPrefixes(s string) string {
	for _, p := range prefixPatterns {
		s = p.ReplaceAllString(s, "")
	}
	s = collapseDoubledEmoji(s)
	return leadingEmojiPattern.ReplaceAllString(s, "")
}

// collapseDoubledEmoji 折叠头部重复的 emoji 伪影 ("🔧🔧 call" → "🔧 call")。
// RE2 不支持反向引用, 以 rune 扫描实现。
func collapseDoubledEmoji(s string) string {
	runes := []rune(s)
	if len(runes) < 2 {
		return s
	}
	if runes[0] == runes[1] && isEmojiRune(runes[0]) {
		i := 1
		for i < len(runes) && runes[i] == runes[0] {
			i++
		}
		return string(runes[0]) + string(runes[i:])
	}
	return s
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r == 0xFE0F:
		return true
	default:
		return false
	}
}

// ========================================
// 类型判定
// ========================================

// detectType 按 rawType 提示优先判定类型; rawType == "tool" 时按内容细分。
// 无提示匹配时回退扫描原始内容中的注入/提醒标记, 默认 text。
func detectType(cleaned, original, rawType string) ContentType {
	switch rawType {
	case "tool":
		return refineToolType(cleaned)
	case "status":
		return TypeStatus
	case "presentation":
		return TypePresentation
	case "thinking", "reasoning", "reasoning_delta", "reasoning_raw":
		return TypeThinking
	case "content":
		return TypeContent
	case "injection":
		return TypeInjection
	case "reminder":
		return TypeReminder
	}

	// 回退: 在剥离前的原文和 rawType 里找标记
	lowerRaw := strings.ToLower(rawType)
	switch {
	case strings.Contains(original, "[INJECTION]") || strings.Contains(lowerRaw, "injection"):
		return TypeInjection
	case strings.Contains(original, "[REMINDER]") || strings.Contains(lowerRaw, "reminder"):
		return TypeReminder
	default:
		return TypeText
	}
}

// refineToolType 按内容文本细分 tool 事件 (大小写不敏感, 顺序即优先级)。
func refineToolType(content string) ContentType {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "arguments for"):
		return TypeToolArgs
	case strings.Contains(lower, "results for"):
		return TypeToolComplete
	case strings.Contains(lower, "calling"), strings.Contains(lower, "executing"):
		return TypeToolStart
	case strings.Contains(lower, "completed"), strings.Contains(lower, "finished"):
		return TypeToolComplete
	case strings.Contains(lower, "failed"), strings.Contains(lower, "error"):
		return TypeToolFailed
	case strings.Contains(lower, "registered"), strings.Contains(lower, "connected"):
		return TypeToolInfo
	default:
		return TypeToolInfo
	}
}

// ========================================
// 协调标记
// ========================================

// 投票/共识类措辞。命中只置 IsCoordination, 不影响展示过滤。
var coordinationPhrases = []string{
	"voting for [",
	"i will vote for",
	"i vote for",
	"restarting due to new answers",
	"consensus reached",
	"waiting for other agents",
}

func isCoordination(content string) bool {
	lower := strings.ToLower(content)
	for _, phrase := range coordinationPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ========================================
// 展示过滤
// ========================================

// isJSONNoise 判定纯 JSON 噪音: 空括号、孤立标点、裸代码栏标记。
func isJSONNoise(s string) bool {
	trimmed := strings.TrimSpace(s)
	switch trimmed {
	case "{}", "[]", "{", "}", "[", "]", ",", ":", "```", "```json", "{},", "},", "],":
		return true
	}
	// 仅由括号/逗号/空白组成
	if trimmed != "" {
		onlyPunct := true
		for _, r := range trimmed {
			if !strings.ContainsRune("{}[],:", r) && !unicode.IsSpace(r) {
				onlyPunct = false
				break
			}
		}
		if onlyPunct {
			return true
		}
	}
	return false
}

// workspace 动作 JSON 签名。
var workspaceJSONSignatures = []string{
	`"action_type"`,
	`"answer_data"`,
	`"action":"vote"`,
	`"action": "vote"`,
	`"target_agent_id"`,
}

// primarilyJSONPrefixLimit — JSON 前缀文本阈值: 前置文字短于该值视为"主要是 JSON"。
// 经验值, 保持与上游行为兼容, 无原则性边界含义。
const primarilyJSONPrefixLimit = 20

// isWorkspaceToolJSON 判定内容是否为 workspace 动作 JSON (应整块隐藏)。
//
// 四种输入形态: 裸 JSON / 代码栏 JSON / 前置文字+代码栏 / 无栏内嵌 JSON。
// 仅当 JSON 前的文字短于 primarilyJSONPrefixLimit 时才算"主要是 JSON"。
func isWorkspaceToolJSON(content string) bool {
	jsonBody, prefix, ok := extractEmbeddedJSON(content)
	if !ok {
		return false
	}
	matched := false
	for _, sig := range workspaceJSONSignatures {
		if strings.Contains(jsonBody, sig) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	return len(strings.TrimSpace(prefix)) < primarilyJSONPrefixLimit
}

var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractEmbeddedJSON 从内容中定位 JSON 对象, 返回 (JSON 体, 前置文字, 是否找到)。
func extractEmbeddedJSON(content string) (string, string, bool) {
	trimmed := strings.TrimSpace(content)

	// 形态 1: 裸 JSON
	if strings.HasPrefix(trimmed, "{") {
		if body, ok := matchBraces(trimmed, 0); ok {
			return body, "", true
		}
	}

	// 形态 2/3: 代码栏 JSON (可带前置文字)
	if loc := fencedJSONPattern.FindStringSubmatchIndex(content); loc != nil {
		body := content[loc[2]:loc[3]]
		prefix := content[:loc[0]]
		return body, prefix, true
	}

	// 形态 4: 无栏内嵌 — 以 "action_type" 锚点回溯到开括号再配对
	anchor := strings.Index(content, `"action_type"`)
	if anchor < 0 {
		return "", "", false
	}
	start := strings.LastIndex(content[:anchor], "{")
	if start < 0 {
		return "", "", false
	}
	body, ok := matchBraces(content, start)
	if !ok {
		return "", "", false
	}
	return body, content[:start], true
}

// matchBraces 从 s[start] ('{') 开始做嵌套花括号配对, 跳过字符串字面量。
func matchBraces(s string, start int) (string, bool) {
	if start >= len(s) || s[start] != '{' {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// workspace 状态噪音 (CWD/文件变更/重复答案/泛型状态行)。
var workspaceStatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*CWD:\s`),
	regexp.MustCompile(`(?i)^\s*File (created|modified|deleted):`),
	regexp.MustCompile(`(?i)duplicate answer`),
	regexp.MustCompile(`(?i)^\s*Status changed to \S+\s*$`),
	regexp.MustCompile(`(?i)^\s*Workspace state (saved|updated)`),
}

func isWorkspaceStateNoise(content string) bool {
	for _, p := range workspaceStatePatterns {
		if p.MatchString(content) {
			return true
		}
	}
	return false
}

// MCP 连接类状态噪音 (服务器数/工具数播报, 任务规划内部碎碎念)。
var statusNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)connected to \d+ MCP server`),
	regexp.MustCompile(`(?i)\d+ tools? (registered|available|loaded)`),
	regexp.MustCompile(`(?i)MCP server\s+\S+\s+(connected|ready)`),
	regexp.MustCompile(`(?i)task.planning (tool|internal|update)`),
}

func isStatusNoise(content string) bool {
	for _, p := range statusNoisePatterns {
		if p.MatchString(content) {
			return true
		}
	}
	return false
}

// ========================================
// 轻清洗
// ========================================

var blankRunPattern = regexp.MustCompile(`\n{3,}`)

// cleanLines 去掉头部空行与 JSON 噪音行, 折叠 3+ 连续空行为 2。
func cleanLines(content string) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	leading := true
	for _, line := range lines {
		if leading && strings.TrimSpace(line) == "" {
			continue
		}
		if isJSONNoise(line) && strings.TrimSpace(line) != "" {
			continue
		}
		leading = false
		out = append(out, line)
	}
	return blankRunPattern.ReplaceAllString(strings.Join(out, "\n"), "\n\n")
}

// ========================================
// Normalize
// ========================================

// Normalize 将原始 (content, rawType) 对归一化为 NormalizedContent。
//
// 纯函数, 确定性, 无副作用; 分类歧义默认 text, 不抛出错误。
func Normalize(content, rawType, toolCallID string) NormalizedContent {
	cleaned := stripPrefixes(content)
	ctype := detectType(cleaned, content, rawType)

	nc := NormalizedContent{
		Type:           ctype,
		Cleaned:        cleaned,
		Original:       content,
		IsCoordination: isCoordination(content),
		ToolCallID:     toolCallID,
	}

	// presentation 永远展示 (除非清洗后为空), 跳过全部过滤
	if ctype == TypePresentation {
		nc.Cleaned = cleanLines(cleaned)
		nc.ShouldDisplay = strings.TrimSpace(nc.Cleaned) != ""
		return nc
	}

	if isJSONNoise(cleaned) {
		nc.ShouldDisplay = false
		return nc
	}
	if isWorkspaceToolJSON(cleaned) {
		nc.ShouldDisplay = false
		return nc
	}
	// tool_* 的参数/结果可能长得像 workspace 状态行, 必须保留
	if !ctype.IsTool() && isWorkspaceStateNoise(cleaned) {
		nc.ShouldDisplay = false
		return nc
	}
	if ctype == TypeStatus && isStatusNoise(cleaned) {
		nc.ShouldDisplay = false
		return nc
	}

	nc.Cleaned = cleanLines(cleaned)
	nc.ShouldDisplay = strings.TrimSpace(nc.Cleaned) != ""
	return nc
}
