package feed

import (
	"testing"
	"time"

	"github.com/multi-agent/timeline-engine/internal/bus"
	"github.com/multi-agent/timeline-engine/internal/normalize"
	"github.com/multi-agent/timeline-engine/internal/timeline"
)

// drainType 在超时前等待指定类型的 bus 消息。
func drainType(t *testing.T, ch chan bus.Message, msgType string) bus.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-ch:
			if msg.Type == msgType {
				return msg
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s", msgType)
		}
	}
}

func TestStoreSink_PublishesWithoutStores(t *testing.T) {
	// 纯 bus 模式: events/tools 为 nil, 只广播不落库
	b := bus.NewMessageBus()
	sub := b.Subscribe("test", "agent.a0")
	sink := NewStoreSink("a0", b, nil, nil)

	t1 := &timeline.ToolDisplayData{ToolID: "t1", ToolName: "mcp__fs__read", Status: timeline.ToolStatusRunning}
	sink.AddTool(t1, 1)
	msg := drainType(t, sub.Ch, bus.MsgTimelineTool)
	if msg.AgentID != "a0" || msg.Topic != "agent.a0.timeline" {
		t.Errorf("msg = %+v", msg)
	}

	t2 := &timeline.ToolDisplayData{ToolID: "t2", ToolName: "mcp__fs__write", Status: timeline.ToolStatusRunning}
	sink.ConvertToolToBatch("t1", t2, "batch_1", "fs", 1)
	drainType(t, sub.Ch, bus.MsgTimelineBatch)

	if batchID, ok := sink.GetToolBatch("t1"); !ok || batchID != "batch_1" {
		t.Errorf("GetToolBatch(t1) = %q, %v", batchID, ok)
	}
	if batchID, ok := sink.GetToolBatch("t2"); !ok || batchID != "batch_1" {
		t.Errorf("GetToolBatch(t2) = %q, %v", batchID, ok)
	}
	if _, ok := sink.GetTool("t1"); !ok {
		t.Error("GetTool(t1) missing")
	}
}

func TestStoreSink_ClearToolsTracking(t *testing.T) {
	sink := NewStoreSink("a0", bus.NewMessageBus(), nil, nil)
	sink.AddTool(&timeline.ToolDisplayData{ToolID: "t1", ToolName: "shell"}, 1)

	sink.ClearToolsTracking()
	if _, ok := sink.GetTool("t1"); ok {
		t.Error("tracking not cleared")
	}
}

func TestStoreSink_TextAndSeparator(t *testing.T) {
	b := bus.NewMessageBus()
	sub := b.Subscribe("test", "*")
	sink := NewStoreSink("a0", b, nil, nil)

	sink.AddText("hello", "", "thinking-inline", 1)
	msg := drainType(t, sub.Ch, bus.MsgTimelineText)
	if msg.Topic != "agent.a0.timeline" {
		t.Errorf("topic = %q", msg.Topic)
	}

	sink.AddSeparator("Round 2", 2, "Restart")
	drainType(t, sub.Ch, bus.MsgTimelineSeparator)

	sink.SwitchToRound(2)
	msg = drainType(t, sub.Ch, bus.MsgRoundChanged)
	if msg.Topic != "agent.a0.round" {
		t.Errorf("round topic = %q", msg.Topic)
	}
}

func TestRibbonBridge(t *testing.T) {
	b := bus.NewMessageBus()
	sub := b.Subscribe("test", "agent.a0.ribbon")
	ribbon := NewRibbonBridge("a0", b)

	ribbon.SetStatus(normalize.StatusBadge{Icon: "⚙️", Color: "yellow", Label: "Working"})
	drainType(t, sub.Ch, bus.MsgRibbonStatus)

	ribbon.SetRound(3)
	drainType(t, sub.Ch, bus.MsgRoundChanged)
}
