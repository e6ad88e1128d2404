package store

import (
	"strings"
	"testing"
)

func TestQueryBuilder_Empty(t *testing.T) {
	sql, params := NewQueryBuilder().Build("SELECT * FROM tool_calls", "id ASC", 100)
	if sql != "SELECT * FROM tool_calls ORDER BY id ASC LIMIT $1" {
		t.Errorf("sql = %q", sql)
	}
	if len(params) != 1 || params[0] != 100 {
		t.Errorf("params = %v", params)
	}
}

func TestQueryBuilder_EqSkipsEmpty(t *testing.T) {
	qb := NewQueryBuilder().Eq("agent_id", "a0").Eq("status", "")
	sql, params := qb.Build("SELECT * FROM tool_calls", "", 50)
	if !strings.Contains(sql, "agent_id = $1") {
		t.Errorf("sql = %q", sql)
	}
	if strings.Contains(sql, "status") {
		t.Errorf("empty value should be skipped: %q", sql)
	}
	if len(params) != 2 {
		t.Errorf("params = %v", params)
	}
}

func TestQueryBuilder_EqIntAndKeyword(t *testing.T) {
	qb := NewQueryBuilder().
		Eq("agent_id", "a0").
		KeywordLike("Read", "tool_name", "server")
	qb.EqInt("round", 2)
	sql, params := qb.Build("SELECT * FROM tool_calls", "id ASC", 10)

	if !strings.Contains(sql, "(LOWER(tool_name) LIKE $2 ESCAPE E'\\\\' OR LOWER(server) LIKE $3 ESCAPE E'\\\\')") {
		t.Errorf("sql = %q", sql)
	}
	if !strings.Contains(sql, "round = $4") {
		t.Errorf("sql = %q", sql)
	}
	if params[1] != "%read%" {
		t.Errorf("keyword param = %v, want lowered %%read%%", params[1])
	}
	if len(params) != 5 {
		t.Errorf("params = %v", params)
	}
}

func TestQueryBuilder_KeywordEscaping(t *testing.T) {
	qb := NewQueryBuilder().KeywordLike("50%_off", "tool_name")
	params := qb.Params()
	if params[0] != `%50\%\_off%` {
		t.Errorf("escaped keyword = %q", params[0])
	}
}

func TestQueryBuilder_LimitClamped(t *testing.T) {
	_, params := NewQueryBuilder().Build("SELECT 1", "", 999999)
	if params[0] != 2000 {
		t.Errorf("limit = %v, want clamped 2000", params[0])
	}
	_, params = NewQueryBuilder().Build("SELECT 1", "", -5)
	if params[0] != 1 {
		t.Errorf("limit = %v, want clamped 1", params[0])
	}
}

func TestQueryBuilder_WhereClause(t *testing.T) {
	if got := NewQueryBuilder().WhereClause(); got != "" {
		t.Errorf("empty WhereClause = %q", got)
	}
	qb := NewQueryBuilder().Eq("agent_id", "a0").EqInt("round", 1)
	if got := qb.WhereClause(); got != " WHERE agent_id = $1 AND round = $2" {
		t.Errorf("WhereClause = %q", got)
	}
}
