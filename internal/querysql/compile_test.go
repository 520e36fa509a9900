package querysql

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonsql/internal/ir"
	"github.com/roach88/jsonsql/internal/policy"
	"github.com/roach88/jsonsql/internal/queryir"
)

func imagesPolicy(t *testing.T) *policy.Policy {
	t.Helper()
	p, err := policy.New(policy.Config{
		Queries:     []string{"SELECT"},
		Items:       []string{"*"},
		Tables:      []policy.TableEntry{{Name: "images"}, {Name: "users", Columns: []string{"userID", "name"}}},
		Connections: []string{"WHERE"},
		Columns: map[string]policy.ValueKind{
			"creature": policy.KindString,
			"userID":   policy.KindInteger,
			"otherID":  policy.KindInteger,
			"name":     policy.KindString,
			"score":    policy.KindFloat,
			"active":   policy.KindBoolean,
		},
	})
	require.NoError(t, err)
	return p
}

func compileJSON(t *testing.T, request string) (Statement, error) {
	t.Helper()
	return NewCompiler(imagesPolicy(t)).CompileJSON([]byte(request))
}

func assertInvariants(t *testing.T, stmt Statement) {
	t.Helper()
	assert.Equal(t, len(stmt.Params), CountPlaceholders(stmt.SQL), "placeholders vs params in %q", stmt.SQL)
	for _, p := range stmt.Params {
		if s, ok := p.(string); ok {
			assert.NotContains(t, stmt.SQL, s, "literal leaked into SQL")
		}
	}
}

func TestCompile_NestedLogic(t *testing.T) {
	stmt, err := compileJSON(t, `{
		"query": "SELECT", "items": ["*"], "table": "images", "connection": "WHERE",
		"logic": {"AND": [
			{"creature": {"=": "owlbear"}},
			{"OR": [{"userID": {"=": 555}}, {"userID": {"=": 111}}]}
		]}
	}`)
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM images WHERE (creature = ? AND (userID = ? OR userID = ?))", stmt.SQL)
	assert.Equal(t, []any{"owlbear", int64(555), int64(111)}, stmt.Params)
	assertInvariants(t, stmt)
}

func TestCompile_DisallowedQuery(t *testing.T) {
	_, err := compileJSON(t, `{"query": "DROP", "items": ["*"], "table": "images"}`)
	require.Error(t, err)

	assert.True(t, IsCode(err, ErrCodeDisallowedQuery))
	assert.Contains(t, Reason(err), "DROP")
}

func TestCompile_BetweenArity(t *testing.T) {
	_, err := compileJSON(t, `{"query": "SELECT", "items": ["*"], "table": "images",
		"connection": "WHERE", "logic": {"creature": {"BETWEEN": ["a"]}}}`)
	require.Error(t, err)

	assert.True(t, IsCode(err, ErrCodeInvalidComparisonValue))
	assert.Contains(t, Reason(err), "BETWEEN on creature")
}

func TestCompile_In(t *testing.T) {
	stmt, err := compileJSON(t, `{"query": "SELECT", "items": ["*"], "table": "images",
		"connection": "WHERE", "logic": {"userID": {"IN": [1, 2, 3]}}}`)
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM images WHERE userID IN (?,?,?)", stmt.SQL)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, stmt.Params)
}

func TestCompile_NothingToCompute(t *testing.T) {
	tests := []struct {
		name  string
		logic string
	}{
		{"top level", `{}`},
		{"empty comparison", `{"creature": {}}`},
		{"nested", `{"AND": [{"creature": {"=": "x"}}, {}]}`},
		{"deeply nested", `{"OR": [{"userID": {"=": 1}}, {"AND": [{}, {"userID": {"=": 2}}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileJSON(t, `{"query": "SELECT", "items": ["*"], "table": "images",
				"connection": "WHERE", "logic": `+tt.logic+`}`)
			require.Error(t, err)
			assert.True(t, IsCode(err, ErrCodeInvalidLogicShape))
			assert.Contains(t, Reason(err), ReasonNothingToCompute)
		})
	}
}

func TestCompile_NoLogic(t *testing.T) {
	tests := []struct {
		name    string
		request string
		wantSQL string
	}{
		{
			name:    "absent",
			request: `{"query": "SELECT", "items": ["*"], "table": "images"}`,
			wantSQL: "SELECT * FROM images",
		},
		{
			name:    "null logic with connection",
			request: `{"query": "SELECT", "items": ["*"], "table": "images", "connection": "WHERE", "logic": null}`,
			wantSQL: "SELECT * FROM images",
		},
		{
			name:    "items joined without spaces",
			request: `{"query": "SELECT", "items": ["userID", "name"], "table": "users"}`,
			wantSQL: "SELECT userID,name FROM users",
		},
		{
			name:    "aggregate item",
			request: `{"query": "SELECT", "items": [{"MAX": "userID"}, {"count": "name"}], "table": "users"}`,
			wantSQL: "SELECT MAX(userID),COUNT(name) FROM users",
		},
		{
			name:    "declared column on unrestricted table",
			request: `{"query": "SELECT", "items": ["creature"], "table": "images"}`,
			wantSQL: "SELECT creature FROM images",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := compileJSON(t, tt.request)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, stmt.SQL)
			assert.NotNil(t, stmt.Params)
			assert.Empty(t, stmt.Params)
		})
	}
}

func TestCompile_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		request    string
		wantCode   ErrorCode
		wantReason string
	}{
		{
			name:       "missing query",
			request:    `{"items": ["*"], "table": "images"}`,
			wantCode:   ErrCodeMissingField,
			wantReason: "missing argument query",
		},
		{
			name:       "missing items",
			request:    `{"query": "SELECT", "table": "images"}`,
			wantCode:   ErrCodeMissingField,
			wantReason: "missing argument items",
		},
		{
			name:       "empty items",
			request:    `{"query": "SELECT", "items": [], "table": "images"}`,
			wantCode:   ErrCodeMissingField,
			wantReason: "missing argument items",
		},
		{
			name:       "missing table",
			request:    `{"query": "SELECT", "items": ["*"]}`,
			wantCode:   ErrCodeMissingField,
			wantReason: "missing argument table",
		},
		{
			name:       "query not a string",
			request:    `{"query": 1, "items": ["*"], "table": "images"}`,
			wantCode:   ErrCodeWrongType,
			wantReason: "query not right type",
		},
		{
			name:       "items not a list",
			request:    `{"query": "SELECT", "items": "*", "table": "images"}`,
			wantCode:   ErrCodeWrongType,
			wantReason: "items not right type",
		},
		{
			name:       "unknown field",
			request:    `{"query": "SELECT", "items": ["*"], "table": "images", "filter": {}}`,
			wantCode:   ErrCodeWrongType,
			wantReason: "unknown field filter",
		},
		{
			name:       "not an object",
			request:    `["SELECT"]`,
			wantCode:   ErrCodeWrongType,
			wantReason: "expected object",
		},
		{
			name:       "malformed JSON",
			request:    `{"query": `,
			wantCode:   ErrCodeWrongType,
			wantReason: "not valid JSON",
		},
		{
			name:       "disallowed table",
			request:    `{"query": "SELECT", "items": ["*"], "table": "secrets"}`,
			wantCode:   ErrCodeDisallowedTable,
			wantReason: "table not allowed - secrets",
		},
		{
			name:       "disallowed item",
			request:    `{"query": "SELECT", "items": ["*", "password"], "table": "images"}`,
			wantCode:   ErrCodeDisallowedItem,
			wantReason: "item not allowed - password",
		},
		{
			name:       "column outside restricted table",
			request:    `{"query": "SELECT", "items": ["creature"], "table": "users"}`,
			wantCode:   ErrCodeDisallowedItem,
			wantReason: "item not allowed - creature",
		},
		{
			name:       "aggregate over disallowed column",
			request:    `{"query": "SELECT", "items": [{"SUM": "creature"}], "table": "users"}`,
			wantCode:   ErrCodeDisallowedItem,
			wantReason: "item not allowed - creature",
		},
		{
			name:       "unknown aggregate item",
			request:    `{"query": "SELECT", "items": [{"MEDIAN": "userID"}], "table": "users"}`,
			wantCode:   ErrCodeDisallowedItem,
			wantReason: "unknown aggregate MEDIAN",
		},
		{
			name:       "disallowed connection",
			request:    `{"query": "SELECT", "items": ["*"], "table": "images", "connection": "JOIN"}`,
			wantCode:   ErrCodeDisallowedConnection,
			wantReason: "connection not allowed - JOIN",
		},
		{
			name:       "logic without connection",
			request:    `{"query": "SELECT", "items": ["*"], "table": "images", "logic": {"userID": {"=": 1}}}`,
			wantCode:   ErrCodeMissingField,
			wantReason: "missing argument connection",
		},
		{
			name:       "unknown column",
			request:    `{"query": "SELECT", "items": ["*"], "table": "images", "connection": "WHERE", "logic": {"password": {"=": "x"}}}`,
			wantCode:   ErrCodeDisallowedColumn,
			wantReason: "logic fail - invalid input - password",
		},
		{
			name:       "unknown comparator",
			request:    `{"query": "SELECT", "items": ["*"], "table": "images", "connection": "WHERE", "logic": {"userID": {"LIKE": 1}}}`,
			wantCode:   ErrCodeInvalidComparator,
			wantReason: "logic fail - non valid comparator - LIKE",
		},
		{
			name:       "kind mismatch",
			request:    `{"query": "SELECT", "items": ["*"], "table": "images", "connection": "WHERE", "logic": {"userID": {"=": "five"}}}`,
			wantCode:   ErrCodeInvalidComparisonValue,
			wantReason: "expected integer, got string",
		},
		{
			name:       "single child connector",
			request:    `{"query": "SELECT", "items": ["*"], "table": "images", "connection": "WHERE", "logic": {"OR": [{"userID": {"=": 1}}]}}`,
			wantCode:   ErrCodeInvalidLogicShape,
			wantReason: "invalid boolean length",
		},
		{
			name:       "multi-key node",
			request:    `{"query": "SELECT", "items": ["*"], "table": "images", "connection": "WHERE", "logic": {"userID": {"=": 1}, "creature": {"=": "x"}}}`,
			wantCode:   ErrCodeInvalidLogicShape,
			wantReason: "expected exactly one",
		},
		{
			name:       "multi-key comparison",
			request:    `{"query": "SELECT", "items": ["*"], "table": "images", "connection": "WHERE", "logic": {"userID": {"=": 1, ">": 0}}}`,
			wantCode:   ErrCodeInvalidLogicShape,
			wantReason: "expected exactly one",
		},
		{
			name:       "connector not a list",
			request:    `{"query": "SELECT", "items": ["*"], "table": "images", "connection": "WHERE", "logic": {"AND": {"userID": {"=": 1}}}}`,
			wantCode:   ErrCodeInvalidLogicShape,
			wantReason: "bad AND, non list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := compileJSON(t, tt.request)
			require.Error(t, err)
			assert.Equal(t, Statement{}, stmt, "no partial SQL on failure")
			assert.Equal(t, tt.wantCode, CodeOf(err))
			assert.Contains(t, Reason(err), tt.wantReason)
		})
	}
}

func TestCompile_ReasonsOmitLiterals(t *testing.T) {
	_, err := compileJSON(t, `{"query": "SELECT", "items": ["*"], "table": "images",
		"connection": "WHERE", "logic": {"userID": {"=": "hunter2"}}}`)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestCompile_HeadChecksBeforeLogic(t *testing.T) {
	_, err := compileJSON(t, `{"query": "DROP", "items": ["*"], "table": "images",
		"connection": "WHERE", "logic": {}}`)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeDisallowedQuery))
}

func TestCompile_LogicFailureKeepsInnerError(t *testing.T) {
	_, err := compileJSON(t, `{"query": "SELECT", "items": ["*"], "table": "images",
		"connection": "WHERE", "logic": {"AND": [{"userID": {"=": 1}}, {"nope": {"=": 1}}]}}`)
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	require.NotNil(t, ce.Err)
	assert.Equal(t, "invalid input - nope", Reason(ce.Err))
	assert.Equal(t, ErrCodeDisallowedColumn, CodeOf(ce.Err))
}

func TestCompile_DecodedRequest(t *testing.T) {
	c := NewCompiler(imagesPolicy(t))

	req := queryir.Request{
		Query:      "SELECT",
		Items:      []queryir.Item{queryir.ItemName("*")},
		Table:      "images",
		Connection: "WHERE",
		Logic: &queryir.Logical{
			Connector: queryir.Or,
			Children: []queryir.Node{
				&queryir.Comparison{Column: "userID", Comparator: queryir.Greater, Operand: queryir.Literal{Value: ir.IRInt(10)}},
				queryir.Comparison{Column: "creature", Comparator: queryir.NotEqual, Operand: &queryir.Literal{Value: ir.IRString("owl")}},
			},
		},
	}

	stmt, err := c.Compile(req)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM images WHERE (userID > ? OR creature <> ?)", stmt.SQL)
	assert.Equal(t, []any{int64(10), "owl"}, stmt.Params)
}

func TestCompile_ConcurrentUse(t *testing.T) {
	c := NewCompiler(imagesPolicy(t))
	request := []byte(`{"query": "SELECT", "items": ["*"], "table": "images",
		"connection": "WHERE", "logic": {"userID": {"IN": [1, 2]}}}`)

	done := make(chan Statement, 8)
	for range 8 {
		go func() {
			stmt, err := c.CompileJSON(request)
			if err != nil {
				stmt = Statement{SQL: err.Error()}
			}
			done <- stmt
		}()
	}
	for range 8 {
		stmt := <-done
		assert.Equal(t, "SELECT * FROM images WHERE userID IN (?,?)", stmt.SQL)
	}
}

func TestCompile_DepthLimit(t *testing.T) {
	p, err := policy.New(policy.Config{
		Queries:     []string{"SELECT"},
		Items:       []string{"*"},
		Tables:      []policy.TableEntry{{Name: "t"}},
		Connections: []string{"WHERE"},
		Columns:     map[string]policy.ValueKind{"a": policy.KindInteger},
		MaxDepth:    3,
	})
	require.NoError(t, err)
	c := NewCompiler(p)

	nest := func(levels int) string {
		logic := `{"a": {"=": 1}}`
		for range levels {
			logic = `{"AND": [` + logic + `, {"a": {"=": 1}}]}`
		}
		return `{"query": "SELECT", "items": ["*"], "table": "t", "connection": "WHERE", "logic": ` + logic + `}`
	}

	stmt, err := c.CompileJSON([]byte(nest(2)))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(stmt.SQL, "?"))

	_, err = c.CompileJSON([]byte(nest(3)))
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeInvalidLogicShape))
	assert.Contains(t, Reason(err), "deeper than 3")

	// Trees built in Go bypass the decoder and hit the compiler's own limit.
	var node queryir.Node = queryir.Comparison{Column: "a", Comparator: queryir.Equal, Operand: queryir.Literal{Value: ir.IRInt(1)}}
	for range 3 {
		node = queryir.Logical{Connector: queryir.And, Children: []queryir.Node{node, node}}
	}
	_, err = c.CompileLogic(node)
	assert.True(t, IsCode(err, ErrCodeInvalidLogicShape))
}
