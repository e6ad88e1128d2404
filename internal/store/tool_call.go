// tool_call.go — tool_calls 表 CRUD (工具调用生命周期持久化)。
//
// tool_id 唯一; 生命周期事件按 Upsert 增量合并, 同一调用的
// start → args → complete 落成一行。
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/multi-agent/timeline-engine/pkg/errors"
)

// ToolCall 工具调用记录。
type ToolCall struct {
	ID            int64      `db:"id" json:"id"`
	ToolID        string     `db:"tool_id" json:"toolId"`
	AgentID       string     `db:"agent_id" json:"agentId"`
	Round         int        `db:"round" json:"round"`
	ToolName      string     `db:"tool_name" json:"toolName"`
	Server        string     `db:"server" json:"server,omitempty"`
	BatchID       string     `db:"batch_id" json:"batchId,omitempty"`
	Status        string     `db:"status" json:"status"`
	ArgsSummary   string     `db:"args_summary" json:"argsSummary,omitempty"`
	ResultSummary string     `db:"result_summary" json:"resultSummary,omitempty"`
	ErrorText     string     `db:"error_text" json:"errorText,omitempty"`
	StartedAt     time.Time  `db:"started_at" json:"startedAt"`
	EndedAt       *time.Time `db:"ended_at" json:"endedAt,omitempty"`
	ElapsedMS     int64      `db:"elapsed_ms" json:"elapsedMs,omitempty"`
}

// ToolCallStore tool_calls 存储。
type ToolCallStore struct{ BaseStore }

// NewToolCallStore 创建。
func NewToolCallStore(pool *pgxpool.Pool) *ToolCallStore {
	return &ToolCallStore{NewBaseStore(pool)}
}

const tcCols = "id, tool_id, agent_id, round, tool_name, server, batch_id, status, args_summary, result_summary, error_text, started_at, ended_at, elapsed_ms"

// Upsert 按 tool_id 写入或增量更新。空字段不覆盖已有值。
func (s *ToolCallStore) Upsert(ctx context.Context, tc *ToolCall) error {
	if tc.StartedAt.IsZero() {
		tc.StartedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tool_calls (tool_id, agent_id, round, tool_name, server, batch_id, status,
		                        args_summary, result_summary, error_text, started_at, ended_at, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (tool_id) DO UPDATE SET
			status         = EXCLUDED.status,
			batch_id       = COALESCE(NULLIF(EXCLUDED.batch_id, ''), tool_calls.batch_id),
			args_summary   = COALESCE(NULLIF(EXCLUDED.args_summary, ''), tool_calls.args_summary),
			result_summary = COALESCE(NULLIF(EXCLUDED.result_summary, ''), tool_calls.result_summary),
			error_text     = COALESCE(NULLIF(EXCLUDED.error_text, ''), tool_calls.error_text),
			ended_at       = COALESCE(EXCLUDED.ended_at, tool_calls.ended_at),
			elapsed_ms     = GREATEST(EXCLUDED.elapsed_ms, tool_calls.elapsed_ms)`,
		tc.ToolID, tc.AgentID, tc.Round, tc.ToolName, tc.Server, tc.BatchID, tc.Status,
		tc.ArgsSummary, tc.ResultSummary, tc.ErrorText, tc.StartedAt, tc.EndedAt, tc.ElapsedMS)
	return err
}

// GetByToolID 按 tool_id 查询, 不存在返回 ErrNotFound。
func (s *ToolCallStore) GetByToolID(ctx context.Context, toolID string) (*ToolCall, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+tcCols+" FROM tool_calls WHERE tool_id=$1", toolID)
	if err != nil {
		return nil, err
	}
	tc, err := collectOne[ToolCall](rows)
	if err != nil {
		return nil, err
	}
	if tc == nil {
		return nil, apperrors.Wrapf(apperrors.ErrNotFound, "Store.GetToolCall", "tool call %s", toolID)
	}
	return tc, nil
}

// List 查询工具调用。round <= 0 不过滤回合; keyword 在 tool_name/server 上搜索。
func (s *ToolCallStore) List(ctx context.Context, agentID string, round int, status, keyword string, limit int) ([]ToolCall, error) {
	qb := NewQueryBuilder().
		Eq("agent_id", agentID).
		Eq("status", status).
		KeywordLike(keyword, "tool_name", "server")
	if round > 0 {
		qb.EqInt("round", round)
	}
	sql, params := qb.Build("SELECT "+tcCols+" FROM tool_calls", "id ASC", limit)

	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	return collectRows[ToolCall](rows)
}

// ListByBatch 返回某批组的成员 (按 id 升序)。
func (s *ToolCallStore) ListByBatch(ctx context.Context, agentID, batchID string) ([]ToolCall, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+tcCols+" FROM tool_calls WHERE agent_id=$1 AND batch_id=$2 ORDER BY id ASC",
		agentID, batchID)
	if err != nil {
		return nil, err
	}
	return collectRows[ToolCall](rows)
}

// CountByStatus 按状态统计某 agent 的工具调用数。
func (s *ToolCallStore) CountByStatus(ctx context.Context, agentID string) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT status, COUNT(*) FROM tool_calls WHERE agent_id=$1 GROUP BY status", agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// DeleteByAgent 删除某 agent 的所有工具调用。
func (s *ToolCallStore) DeleteByAgent(ctx context.Context, agentID string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM tool_calls WHERE agent_id=$1", agentID)
	return err
}
