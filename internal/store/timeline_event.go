// timeline_event.go — timeline_events 表 CRUD (时间线单元持久化)。
//
// 每条记录是一个已发射的时间线单元 (文本行 / 分隔条 / 工具卡引用),
// 前端重连后按 agentID + round 回放历史。
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// 时间线单元种类。
const (
	EventKindText      = "text"
	EventKindSeparator = "separator"
	EventKindTool      = "tool"
	EventKindBatch     = "batch"
)

// TimelineEvent 时间线单元记录。
type TimelineEvent struct {
	ID        int64           `db:"id" json:"id"`
	AgentID   string          `db:"agent_id" json:"agentId"`
	Round     int             `db:"round" json:"round"`
	Kind      string          `db:"kind" json:"kind"`
	TextClass string          `db:"text_class" json:"textClass,omitempty"`
	Style     string          `db:"style" json:"style,omitempty"`
	Content   string          `db:"content" json:"content"`
	Payload   json.RawMessage `db:"payload" json:"payload,omitempty"`
	Seq       int64           `db:"seq" json:"seq"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// TimelineEventStore timeline_events 存储。
type TimelineEventStore struct{ BaseStore }

// NewTimelineEventStore 创建。
func NewTimelineEventStore(pool *pgxpool.Pool) *TimelineEventStore {
	return &TimelineEventStore{NewBaseStore(pool)}
}

const teCols = "id, agent_id, round, kind, text_class, style, content, payload, seq, created_at"

// Insert 写入单条时间线单元。
func (s *TimelineEventStore) Insert(ctx context.Context, ev *TimelineEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO timeline_events (agent_id, round, kind, text_class, style, content, payload, seq, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.AgentID, ev.Round, ev.Kind, ev.TextClass, ev.Style, ev.Content, ev.Payload, ev.Seq, ev.CreatedAt)
	return err
}

// ListByAgent 按 agentID 查询时间线单元 (按 id 升序回放)。
// round <= 0 表示不过滤回合。
func (s *TimelineEventStore) ListByAgent(ctx context.Context, agentID string, round, limit int) ([]TimelineEvent, error) {
	qb := NewQueryBuilder().Eq("agent_id", agentID)
	if round > 0 {
		qb.EqInt("round", round)
	}
	sql, params := qb.Build("SELECT "+teCols+" FROM timeline_events", "id ASC", limit)

	rows, err := s.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	return collectRows[TimelineEvent](rows)
}

// Rounds 返回某 agent 出现过的回合号 (升序)。
func (s *TimelineEventStore) Rounds(ctx context.Context, agentID string) ([]int, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT round FROM timeline_events WHERE agent_id=$1 ORDER BY round", agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []int
	for rows.Next() {
		var r int
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

// CountByAgent 统计某 agent 的时间线单元总数。
func (s *TimelineEventStore) CountByAgent(ctx context.Context, agentID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM timeline_events WHERE agent_id=$1", agentID).Scan(&count)
	return count, err
}

// DeleteByAgent 删除某 agent 的所有时间线单元。
func (s *TimelineEventStore) DeleteByAgent(ctx context.Context, agentID string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM timeline_events WHERE agent_id=$1", agentID)
	return err
}
