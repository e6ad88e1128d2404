// taskplan.go — 规划工具结果解析与计划 diff。
//
// 规划类工具 (task_planning 等) 的结果是 JSON 任务清单; 这里把它
// 解析成稳定的 Task 列表, 并计算两版计划之间的增量。
// 畸形 JSON 返回 nil 并记日志, 绝不让坏结果拖垮时间线。
package taskplan

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/multi-agent/timeline-engine/pkg/logger"
)

// 任务状态取值 (上游不保证, 解析时归一到小写)。
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Task 计划中的一项任务。
type Task struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// rawTask 兼容上游字段别名: id/task_id 可为字符串或数字,
// 标题可能叫 title/content/description/name。
type rawTask struct {
	ID          any    `json:"id"`
	TaskID      any    `json:"task_id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Description string `json:"description"`
	Name        string `json:"name"`
	Status      string `json:"status"`
}

func (r rawTask) normalize(index int) Task {
	id := stringifyID(r.ID)
	if id == "" {
		id = stringifyID(r.TaskID)
	}
	if id == "" {
		id = fmt.Sprintf("task_%d", index+1)
	}

	title := r.Title
	for _, alt := range []string{r.Content, r.Description, r.Name} {
		if title == "" {
			title = alt
		}
	}

	status := strings.ToLower(strings.TrimSpace(r.Status))
	if status == "" {
		status = StatusPending
	}
	return Task{ID: id, Title: title, Status: status}
}

func stringifyID(v any) string {
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		// encoding/json 的数字默认形态
		if id == float64(int64(id)) {
			return fmt.Sprintf("%d", int64(id))
		}
		return fmt.Sprintf("%v", id)
	default:
		return ""
	}
}

// Parse 解析规划工具的 JSON 结果。接受 {"tasks": [...]} 包装或裸数组;
// 解析失败返回 nil。
func Parse(raw string) []Task {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var rawTasks []rawTask
	var wrapper struct {
		Tasks []rawTask `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapper); err == nil && wrapper.Tasks != nil {
		rawTasks = wrapper.Tasks
	} else if err := json.Unmarshal([]byte(raw), &rawTasks); err != nil {
		logger.Debug("task plan parse failed",
			logger.FieldError, err.Error(),
			logger.FieldLen, len(raw))
		return nil
	}

	tasks := make([]Task, 0, len(rawTasks))
	for i, rt := range rawTasks {
		tasks = append(tasks, rt.normalize(i))
	}
	return tasks
}

// ========================================
// Diff
// ========================================

// 变更类型。
const (
	ChangeAdded         = "added"
	ChangeRemoved       = "removed"
	ChangeStatusChanged = "status_changed"
	ChangeRetitled      = "retitled"
)

// Change 两版计划之间的一个增量。
type Change struct {
	Type      string `json:"type"`
	Task      Task   `json:"task"`
	OldStatus string `json:"oldStatus,omitempty"`
	OldTitle  string `json:"oldTitle,omitempty"`
}

// Diff 按任务 ID 计算 old → new 的增量。新增/变更按 new 的顺序,
// 移除按 old 的顺序排在最后。
func Diff(old, new []Task) []Change {
	oldByID := make(map[string]Task, len(old))
	for _, t := range old {
		oldByID[t.ID] = t
	}
	newIDs := make(map[string]struct{}, len(new))

	var changes []Change
	for _, t := range new {
		newIDs[t.ID] = struct{}{}
		prev, ok := oldByID[t.ID]
		if !ok {
			changes = append(changes, Change{Type: ChangeAdded, Task: t})
			continue
		}
		if prev.Status != t.Status {
			changes = append(changes, Change{Type: ChangeStatusChanged, Task: t, OldStatus: prev.Status})
		}
		if prev.Title != t.Title {
			changes = append(changes, Change{Type: ChangeRetitled, Task: t, OldTitle: prev.Title})
		}
	}
	for _, t := range old {
		if _, ok := newIDs[t.ID]; !ok {
			changes = append(changes, Change{Type: ChangeRemoved, Task: t})
		}
	}
	return changes
}

// Counts 按状态统计任务数 (ribbon 汇总用)。
func Counts(tasks []Task) map[string]int {
	counts := make(map[string]int, 4)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}
