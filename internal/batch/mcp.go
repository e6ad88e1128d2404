// mcp.go — MCP 工具命名约定解析。
//
// 约定: mcp__{server}__{tool} 以及 mcp__{server}__custom_tool__{name}
// (name 内部允许继续包含 "__")。
package batch

import "strings"

const (
	mcpPrefix        = "mcp__"
	customToolMarker = "custom_tool__"
)

// MCPServerName 从工具名解析 MCP 服务器名; 非 MCP 工具返回 ""。
func MCPServerName(toolName string) string {
	if !strings.HasPrefix(toolName, mcpPrefix) {
		return ""
	}
	rest := toolName[len(mcpPrefix):]
	idx := strings.Index(rest, "__")
	if idx <= 0 {
		return ""
	}
	return rest[:idx]
}

// MCPToolName 从工具名解析工具短名; 非 MCP 工具返回原名。
//
// custom_tool 变体保留剩余部分的内部 "__":
//
//	mcp__linear__custom_tool__triage__issue → triage__issue
func MCPToolName(toolName string) string {
	if !strings.HasPrefix(toolName, mcpPrefix) {
		return toolName
	}
	rest := toolName[len(mcpPrefix):]
	idx := strings.Index(rest, "__")
	if idx <= 0 {
		return toolName
	}
	tool := rest[idx+2:]
	if strings.HasPrefix(tool, customToolMarker) {
		return tool[len(customToolMarker):]
	}
	return tool
}
