// linebuffer.go — 流式文本行缓冲。
//
// 只在拿到完整行时向外发射, 避免流式中途按词切断;
// 未以换行结尾的残段留在缓冲区等下一个 chunk。
package timeline

import "strings"

// LineBuffer 累积部分行的流式文本缓冲区。
type LineBuffer struct {
	buf string
}

// Push 追加文本并返回所有完整行 (右侧去空白, 空行丢弃)。
func (b *LineBuffer) Push(text string) []string {
	b.buf += text
	var lines []string
	for {
		idx := strings.IndexByte(b.buf, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(b.buf[:idx], " \t\r")
		b.buf = b.buf[idx+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Flush 取出并清空残留缓冲。返回 ("", false) 表示无实质内容。
func (b *LineBuffer) Flush() (string, bool) {
	rest := strings.TrimRight(b.buf, " \t\r")
	b.buf = ""
	if strings.TrimSpace(rest) == "" {
		return "", false
	}
	return rest, true
}

// HasContent 判断缓冲中是否有非空白内容。
func (b *LineBuffer) HasContent() bool {
	return strings.TrimSpace(b.buf) != ""
}

// Pending 返回当前缓冲内容 (测试/诊断用)。
func (b *LineBuffer) Pending() string { return b.buf }
