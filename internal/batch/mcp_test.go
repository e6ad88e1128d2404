package batch

import "testing"

func TestMCPServerName(t *testing.T) {
	cases := []struct {
		toolName string
		want     string
	}{
		{"mcp__filesystem__write_file", "filesystem"},
		{"mcp__linear__custom_tool__triage__issue", "linear"},
		{"mcp__fs__read", "fs"},
		{"shell", ""},
		{"mcp__", ""},
		{"mcp__noserver", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := MCPServerName(tc.toolName); got != tc.want {
			t.Errorf("MCPServerName(%q) = %q, want %q", tc.toolName, got, tc.want)
		}
	}
}

func TestMCPToolName(t *testing.T) {
	cases := []struct {
		toolName string
		want     string
	}{
		{"mcp__filesystem__write_file", "write_file"},
		{"mcp__linear__custom_tool__triage__issue", "triage__issue"},
		{"mcp__fs__read", "read"},
		{"shell", "shell"},
		{"mcp__noserver", "mcp__noserver"},
	}
	for _, tc := range cases {
		if got := MCPToolName(tc.toolName); got != tc.want {
			t.Errorf("MCPToolName(%q) = %q, want %q", tc.toolName, got, tc.want)
		}
	}
}
