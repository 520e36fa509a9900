package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonsql/internal/ir"
	"github.com/roach88/jsonsql/internal/policy"
	"github.com/roach88/jsonsql/internal/querysql"
)

func TestExecute_CompiledStatement(t *testing.T) {
	s := createTestStore(t)
	seedImages(t, s)

	p := policy.MustNew(policy.Config{
		Queries:     []string{"SELECT"},
		Items:       []string{"*"},
		Tables:      []policy.TableEntry{{Name: "images"}},
		Connections: []string{"WHERE"},
		Columns: map[string]policy.ValueKind{
			"id":       policy.KindInteger,
			"creature": policy.KindString,
			"userID":   policy.KindInteger,
		},
	})
	stmt, err := querysql.NewCompiler(p).CompileJSON([]byte(`{
		"query": "SELECT", "items": ["id", "creature"], "table": "images", "connection": "WHERE",
		"logic": {"AND": [{"creature": {"=": "owlbear"}}, {"OR": [{"userID": {"=": 555}}, {"userID": {"=": 111}}]}]}
	}`))
	require.NoError(t, err)

	rows, err := s.Execute(context.Background(), stmt)
	require.NoError(t, err)

	assert.Equal(t, []ir.IRObject{
		{"id": ir.IRInt(1), "creature": ir.IRString("owlbear")},
		{"id": ir.IRInt(3), "creature": ir.IRString("owlbear")},
	}, rows)
}

func TestExecute_Values(t *testing.T) {
	s := createTestStore(t)
	seedImages(t, s)

	rows, err := s.Execute(context.Background(), querysql.Statement{
		SQL:    "SELECT score, active FROM images WHERE id IN (?,?) ORDER BY id",
		Params: []any{int64(2), int64(4)},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, ir.IRNull{}, rows[0]["score"])
	assert.Equal(t, ir.IRFloat(3.25), rows[1]["score"])
}

func TestExecute_NoRows(t *testing.T) {
	s := createTestStore(t)
	seedImages(t, s)

	rows, err := s.Execute(context.Background(), querysql.Statement{
		SQL:    "SELECT * FROM images WHERE userID = ?",
		Params: []any{int64(0)},
	})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestExecute_PlaceholderMismatch(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Execute(context.Background(), querysql.Statement{
		SQL:    "SELECT * FROM audit_log WHERE id = ?",
		Params: []any{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 placeholders but 0 params")
}

func TestScanValue(t *testing.T) {
	tests := []struct {
		in   any
		want ir.IRValue
	}{
		{nil, ir.IRNull{}},
		{[]byte("abc"), ir.IRString("abc")},
		{"abc", ir.IRString("abc")},
		{int64(7), ir.IRInt(7)},
		{int32(7), ir.IRInt(7)},
		{float64(1.5), ir.IRFloat(1.5)},
		{true, ir.IRBool(true)},
	}
	for _, tt := range tests {
		got, err := scanValue(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
