package batch

import "testing"

func running(id, name string) ToolEvent {
	return ToolEvent{ToolID: id, ToolName: name, Status: StatusRunning}
}

func done(id, name string) ToolEvent {
	return ToolEvent{ToolID: id, ToolName: name, Status: "success"}
}

func TestTracker_SingleCallNeverBatched(t *testing.T) {
	// P1: 单个 MCP 调用后接非 MCP 或不同服务器调用, 首个调用绝不入批
	tr := NewTracker()

	d1 := tr.ProcessTool(running("t1", "mcp__fs__read"))
	if d1.Action != ActionPending {
		t.Fatalf("first call action = %q, want pending", d1.Action)
	}

	d2 := tr.ProcessTool(running("t2", "shell"))
	if d2.Action != ActionStandalone {
		t.Fatalf("non-MCP action = %q, want standalone", d2.Action)
	}

	tr.Reset()
	tr.ProcessTool(running("t1", "mcp__fs__read"))
	d3 := tr.ProcessTool(running("t2", "mcp__linear__create"))
	if d3.Action != ActionPending {
		t.Fatalf("differing-server action = %q, want pending", d3.Action)
	}
}

func TestTracker_ContentBreaksRun(t *testing.T) {
	// P2: A(running) → 非工具内容 → B(running, 同服务器) ⇒ B 必须是 pending
	tr := NewTracker()

	tr.ProcessTool(running("a", "mcp__fs__read"))
	tr.MarkContent()
	d := tr.ProcessTool(running("b", "mcp__fs__write"))
	if d.Action != ActionPending {
		t.Errorf("action after content break = %q, want pending", d.Action)
	}
	if d.Server != "fs" {
		t.Errorf("server = %q, want fs", d.Server)
	}
}

func TestTracker_BatchGrowth(t *testing.T) {
	// P3: 三个连续同服务器调用 → pending, convert_to_batch, add_to_batch;
	// 之后中间工具的状态更新 → update_batch
	tr := NewTracker()

	d1 := tr.ProcessTool(running("t1", "mcp__fs__read"))
	d2 := tr.ProcessTool(running("t2", "mcp__fs__write"))
	d3 := tr.ProcessTool(running("t3", "mcp__fs__list"))

	if d1.Action != ActionPending || d2.Action != ActionConvertToBatch || d3.Action != ActionAddToBatch {
		t.Fatalf("actions = %q, %q, %q", d1.Action, d2.Action, d3.Action)
	}
	if d2.PendingToolID != "t1" {
		t.Errorf("converted pending id = %q, want t1", d2.PendingToolID)
	}
	if d2.BatchID != d3.BatchID {
		t.Errorf("batch ids differ: %q vs %q", d2.BatchID, d3.BatchID)
	}

	d4 := tr.ProcessTool(done("t2", "mcp__fs__write"))
	if d4.Action != ActionUpdateBatch {
		t.Errorf("mid-tool update action = %q, want update_batch", d4.Action)
	}
	if d4.BatchID != d2.BatchID {
		t.Errorf("update routed to %q, want %q", d4.BatchID, d2.BatchID)
	}
}

func TestTracker_ResetIdempotent(t *testing.T) {
	// P4: Reset 后 server/batch 归零, 同服务器调用重新从 pending 开始
	tr := NewTracker()
	tr.ProcessTool(running("t1", "mcp__fs__read"))
	tr.ProcessTool(running("t2", "mcp__fs__write"))

	tr.Reset()
	if tr.CurrentServer() != "" || tr.CurrentBatchID() != "" {
		t.Error("Reset did not clear server/batch state")
	}

	d := tr.ProcessTool(running("t3", "mcp__fs__read"))
	if d.Action != ActionPending {
		t.Errorf("post-reset action = %q, want pending", d.Action)
	}
}

func TestTracker_ScenarioB(t *testing.T) {
	// 场景 B: t1 (mcp__fs__read), t2 (mcp__fs__write) → pending, convert ("batch_1", "t1")
	tr := NewTracker()

	d1 := tr.ProcessTool(running("t1", "mcp__fs__read"))
	if d1.Action != ActionPending || d1.Server != "fs" || d1.BatchID != "" || d1.PendingToolID != "" {
		t.Fatalf("d1 = %+v", d1)
	}

	d2 := tr.ProcessTool(running("t2", "mcp__fs__write"))
	if d2.Action != ActionConvertToBatch || d2.Server != "fs" || d2.BatchID != "batch_1" || d2.PendingToolID != "t1" {
		t.Fatalf("d2 = %+v", d2)
	}
}

func TestTracker_UpdateStandalone(t *testing.T) {
	tr := NewTracker()
	tr.ProcessTool(running("t1", "mcp__fs__read"))
	// t1 仍是 pending (未成批), 其完成事件走 standalone 路由
	d := tr.ProcessTool(done("t1", "mcp__fs__read"))
	if d.Action != ActionUpdateStandalone {
		t.Errorf("action = %q, want update_standalone", d.Action)
	}
}

func TestTracker_UpdateBatchAfterContentBreak(t *testing.T) {
	// 成批后内容插入: 旧成员的更新仍路由到原批组
	tr := NewTracker()
	tr.ProcessTool(running("t1", "mcp__fs__read"))
	d2 := tr.ProcessTool(running("t2", "mcp__fs__write"))
	tr.MarkContent()

	d3 := tr.ProcessTool(running("t3", "mcp__fs__list"))
	if d3.Action != ActionPending {
		t.Fatalf("post-break action = %q, want pending", d3.Action)
	}

	d4 := tr.ProcessTool(done("t1", "mcp__fs__read"))
	if d4.Action != ActionUpdateBatch || d4.BatchID != d2.BatchID {
		t.Errorf("old member update = %+v, want update_batch in %q", d4, d2.BatchID)
	}
}

func TestTracker_BatchCounterMonotonic(t *testing.T) {
	tr := NewTracker()
	tr.ProcessTool(running("t1", "mcp__fs__a"))
	first := tr.ProcessTool(running("t2", "mcp__fs__b"))
	tr.MarkContent()
	tr.ProcessTool(running("t3", "mcp__linear__a"))
	second := tr.ProcessTool(running("t4", "mcp__linear__b"))

	if first.BatchID != "batch_1" || second.BatchID != "batch_2" {
		t.Errorf("batch ids = %q, %q, want batch_1, batch_2", first.BatchID, second.BatchID)
	}
}

func TestTracker_BackgroundStatusIsUpdate(t *testing.T) {
	tr := NewTracker()
	tr.ProcessTool(running("t1", "mcp__shell__exec"))
	d := tr.ProcessTool(ToolEvent{ToolID: "t1", ToolName: "mcp__shell__exec", Status: "background"})
	if d.Action != ActionUpdateStandalone {
		t.Errorf("background status action = %q, want update_standalone", d.Action)
	}
}
