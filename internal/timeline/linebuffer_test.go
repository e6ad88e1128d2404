package timeline

import (
	"reflect"
	"testing"
)

// feed 以给定块大小灌入文本, 返回发射的行与最终残段
func feed(t *testing.T, text string, chunk int) ([]string, string) {
	t.Helper()
	var b LineBuffer
	var lines []string
	for i := 0; i < len(text); i += chunk {
		end := i + chunk
		if end > len(text) {
			end = len(text)
		}
		lines = append(lines, b.Push(text[i:end])...)
	}
	rest, _ := b.Flush()
	return lines, rest
}

func TestLineBuffer_ChunkInvariance(t *testing.T) {
	// 任意切块方式产出的行序列必须一致
	text := "alpha beta\ngamma  \n\ndelta epsilon\nfinal tail"
	wantLines := []string{"alpha beta", "gamma", "delta epsilon"}
	wantRest := "final tail"

	for _, chunk := range []int{1, 2, 3, 7, len(text)} {
		lines, rest := feed(t, text, chunk)
		if !reflect.DeepEqual(lines, wantLines) {
			t.Errorf("chunk=%d lines = %v, want %v", chunk, lines, wantLines)
		}
		if rest != wantRest {
			t.Errorf("chunk=%d rest = %q, want %q", chunk, rest, wantRest)
		}
	}
}

func TestLineBuffer_RstripAndBlankDrop(t *testing.T) {
	var b LineBuffer
	lines := b.Push("  keep me \r\n   \n")
	if len(lines) != 1 || lines[0] != "  keep me" {
		t.Errorf("lines = %v, want [\"  keep me\"]", lines)
	}
	if _, ok := b.Flush(); ok {
		t.Error("expected empty flush after blank-only remainder")
	}
}

func TestLineBuffer_FlushWhitespaceOnly(t *testing.T) {
	var b LineBuffer
	b.Push("   \t ")
	if b.HasContent() {
		t.Error("whitespace-only buffer reports content")
	}
	if rest, ok := b.Flush(); ok {
		t.Errorf("Flush returned %q, want none", rest)
	}
}

func TestLineBuffer_PartialAccumulation(t *testing.T) {
	var b LineBuffer
	if lines := b.Push("hello wo"); lines != nil {
		t.Fatalf("premature emit: %v", lines)
	}
	if b.Pending() != "hello wo" {
		t.Errorf("pending = %q", b.Pending())
	}
	lines := b.Push("rld\n")
	if len(lines) != 1 || lines[0] != "hello world" {
		t.Errorf("lines = %v, want [hello world]", lines)
	}
}
