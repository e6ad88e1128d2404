package taskplan

import (
	"reflect"
	"testing"
)

func TestParse_WrapperAndBareArray(t *testing.T) {
	wrapped := `{"tasks": [{"id": "a", "title": "design schema", "status": "In_Progress"}]}`
	bare := `[{"id": "a", "title": "design schema", "status": "in_progress"}]`

	want := []Task{{ID: "a", Title: "design schema", Status: "in_progress"}}
	if got := Parse(wrapped); !reflect.DeepEqual(got, want) {
		t.Errorf("wrapped = %+v", got)
	}
	if got := Parse(bare); !reflect.DeepEqual(got, want) {
		t.Errorf("bare = %+v", got)
	}
}

func TestParse_FieldAliases(t *testing.T) {
	raw := `[
		{"task_id": 3, "content": "write tests"},
		{"name": "ship it", "status": "COMPLETED"}
	]`
	got := Parse(raw)
	if len(got) != 2 {
		t.Fatalf("tasks = %+v", got)
	}
	if got[0].ID != "3" || got[0].Title != "write tests" || got[0].Status != StatusPending {
		t.Errorf("task[0] = %+v", got[0])
	}
	// 无 id 时按位置合成
	if got[1].ID != "task_2" || got[1].Status != StatusCompleted {
		t.Errorf("task[1] = %+v", got[1])
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, raw := range []string{"", "not json", `{"tasks": "nope"}`, `{"result": 42}`} {
		if got := Parse(raw); got != nil {
			t.Errorf("Parse(%q) = %+v, want nil", raw, got)
		}
	}
}

func TestDiff(t *testing.T) {
	old := []Task{
		{ID: "a", Title: "design", Status: StatusInProgress},
		{ID: "b", Title: "implement", Status: StatusPending},
		{ID: "c", Title: "docs", Status: StatusPending},
	}
	cur := []Task{
		{ID: "a", Title: "design", Status: StatusCompleted},
		{ID: "b", Title: "implement core", Status: StatusPending},
		{ID: "d", Title: "review", Status: StatusPending},
	}

	got := Diff(old, cur)
	want := []Change{
		{Type: ChangeStatusChanged, Task: cur[0], OldStatus: StatusInProgress},
		{Type: ChangeRetitled, Task: cur[1], OldTitle: "implement"},
		{Type: ChangeAdded, Task: cur[2]},
		{Type: ChangeRemoved, Task: old[2]},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Diff = %+v\nwant %+v", got, want)
	}
}

func TestDiff_NoChanges(t *testing.T) {
	tasks := []Task{{ID: "a", Title: "x", Status: StatusPending}}
	if got := Diff(tasks, tasks); got != nil {
		t.Errorf("Diff(same, same) = %+v, want nil", got)
	}
}

func TestCounts(t *testing.T) {
	tasks := []Task{
		{ID: "a", Status: StatusCompleted},
		{ID: "b", Status: StatusCompleted},
		{ID: "c", Status: StatusInProgress},
	}
	got := Counts(tasks)
	if got[StatusCompleted] != 2 || got[StatusInProgress] != 1 {
		t.Errorf("Counts = %v", got)
	}
}
