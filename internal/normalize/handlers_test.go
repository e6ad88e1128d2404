package normalize

import "testing"

// ─── ThinkingHandler ───

func TestThinkingHandler_Filters(t *testing.T) {
	h := NewThinkingHandler()
	cases := []struct {
		name    string
		content string
		wantOK  bool
	}{
		{"normal text", "Let me read the config first.", true},
		{"lone braces", "  {}  ", false},
		{"lone brackets", "[", false},
		{"bare json key", `"answer_data":`, false},
		{"json key with open brace", `"plan": {`, false},
		{"lone comma", " , ", false},
		{"single bullet", "•", false},
		{"dash bullet", "-", false},
		{"bullet with text", "- read the file", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nc := Normalize(tc.content, "thinking", "")
			// 部分噪音在归一化阶段已被过滤; handler 必须同样拒绝
			got, ok := h.Process(nc)
			if ok != tc.wantOK {
				t.Errorf("Process(%q) ok = %v, want %v (got %q)", tc.content, ok, tc.wantOK, got)
			}
		})
	}
}

func TestThinkingHandler_RespectsDisplayFlag(t *testing.T) {
	h := NewThinkingHandler()
	nc := NormalizedContent{Type: TypeThinking, Cleaned: "visible text", ShouldDisplay: false}
	if _, ok := h.Process(nc); ok {
		t.Error("Process must drop content with ShouldDisplay=false")
	}
}

func TestThinkingHandler_Idempotent(t *testing.T) {
	h := NewThinkingHandler()
	nc := Normalize("thinking about the plan", "thinking", "")
	first, ok1 := h.Process(nc)
	second, ok2 := h.Process(nc)
	if first != second || ok1 != ok2 {
		t.Error("Process is not idempotent")
	}
	h.Reset()
	third, ok3 := h.Process(nc)
	if third != first || ok3 != ok1 {
		t.Error("Reset changed pure filtering behavior")
	}
}

// ─── StatusHandler ───

func TestStatusHandler_KeywordPriority(t *testing.T) {
	h := NewStatusHandler()
	cases := []struct {
		name      string
		content   string
		wantLabel string
	}{
		{"completed", "Task completed successfully", "Completed"},
		{"completed beats working", "completed while working", "Completed"},
		{"working", "Working on subtask 2", "Working"},
		{"streaming", "streaming tokens", "Streaming"},
		{"error", "an error occurred", "Error"},
		{"failed", "request failed", "Error"},
		{"connected", "agent connected", "Connected"},
		{"waiting", "waiting for input", "Waiting"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nc := Normalize(tc.content, "status", "")
			badge := h.Process(nc)
			if badge == nil {
				t.Fatalf("Process(%q) = nil", tc.content)
			}
			if badge.Label != tc.wantLabel {
				t.Errorf("label = %q, want %q", badge.Label, tc.wantLabel)
			}
		})
	}
}

func TestStatusHandler_NoMatch(t *testing.T) {
	h := NewStatusHandler()
	nc := Normalize("nothing to report", "status", "")
	if badge := h.Process(nc); badge != nil {
		t.Errorf("Process(no keyword) = %+v, want nil", badge)
	}
}

// ─── PresentationHandler ───

func TestPresentationHandler(t *testing.T) {
	h := NewPresentationHandler()

	nc := Normalize("Here is the final summary.", "presentation", "")
	if got, ok := h.Process(nc); !ok || got != "Here is the final summary." {
		t.Errorf("Process = (%q, %v)", got, ok)
	}

	nc = Normalize("Providing answer: the result is 42", "presentation", "")
	if _, ok := h.Process(nc); ok {
		t.Error("internal preamble artifact must be dropped")
	}

	nc = NormalizedContent{Type: TypePresentation, Cleaned: "x", ShouldDisplay: false}
	if _, ok := h.Process(nc); ok {
		t.Error("hidden content must not pass through")
	}
}
