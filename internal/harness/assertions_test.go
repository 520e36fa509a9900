package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/jsonsql/internal/querysql"
)

func TestCheckInvariants(t *testing.T) {
	tests := []struct {
		name     string
		stmt     querysql.Statement
		wantErrs int
	}{
		{"clean", querysql.Statement{SQL: "SELECT * FROM t WHERE a = ?", Params: []any{"owlbear"}}, 0},
		{"column compare", querysql.Statement{SQL: "SELECT * FROM t WHERE a = b", Params: []any{}}, 0},
		{"count mismatch", querysql.Statement{SQL: "SELECT * FROM t WHERE a = ?", Params: []any{}}, 1},
		{"quoted literal", querysql.Statement{SQL: "SELECT * FROM t WHERE a = 'x'", Params: []any{}}, 1},
		{"leaked string", querysql.Statement{SQL: "SELECT * FROM t WHERE a = owlbear AND b = ?", Params: []any{"owlbear"}}, 1},
		{"leaked int", querysql.Statement{SQL: "SELECT * FROM t WHERE a = 555 AND b = ?", Params: []any{int64(555)}}, 1},
		{"substring is not a token", querysql.Statement{SQL: "SELECT * FROM images WHERE a = ?", Params: []any{"image"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, CheckInvariants(tt.stmt), tt.wantErrs)
		})
	}
}

func TestCheckCase_Params(t *testing.T) {
	c := Case{Expect: Expect{OK: true, Params: []any{"owlbear", 555, 1.5, true}}}

	ok := CaseResult{OK: true, SQL: "a = ? b = ? c = ? d = ?", Params: []any{"owlbear", int64(555), 1.5, true}}
	assert.Empty(t, CheckCase(c, ok))

	bad := CaseResult{OK: true, SQL: "a = ? b = ? c = ? d = ?", Params: []any{"owlbear", int64(556), 1.5, true}}
	errs := CheckCase(c, bad)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], `params: expected ["owlbear",555,1.5,true], got ["owlbear",556,1.5,true]`)
}

func TestCheckCase_Rows(t *testing.T) {
	two, three := 2, 3
	c := Case{Expect: Expect{OK: true, Rows: &two}}

	assert.Empty(t, CheckCase(c, CaseResult{OK: true, SQL: "x", Params: []any{}, Rows: &two}))
	assert.Equal(t, []string{"rows: expected 2, got 3"}, CheckCase(c, CaseResult{OK: true, SQL: "x", Params: []any{}, Rows: &three}))
	assert.Equal(t, []string{"rows: statement was not executed"}, CheckCase(c, CaseResult{OK: true, SQL: "x", Params: []any{}}))
}

func TestCheckCase_Reason(t *testing.T) {
	c := Case{Expect: Expect{Code: "DISALLOWED_QUERY", ReasonContains: "DROP"}}

	assert.Empty(t, CheckCase(c, CaseResult{Code: "DISALLOWED_QUERY", Reason: "query not allowed - DROP"}))
	errs := CheckCase(c, CaseResult{Code: "DISALLOWED_QUERY", Reason: "query not allowed - TRUNCATE"})
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "does not contain")
}
