package harness

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/roach88/jsonsql/internal/ir"
	"github.com/roach88/jsonsql/internal/querysql"
)

// CheckCase compares an observed outcome with the case's expectation and,
// for accepted cases, checks the statement invariants.
// Returns one message per failed check.
func CheckCase(c Case, cr CaseResult) []string {
	var errs []string
	want := c.Expect

	if want.OK != cr.OK {
		if cr.OK {
			return []string{fmt.Sprintf("expected rejection %s, got SQL %q", want.Code, cr.SQL)}
		}
		return []string{fmt.Sprintf("expected success, got %s: %s", cr.Code, cr.Reason)}
	}

	if !cr.OK {
		if cr.Code != want.Code {
			errs = append(errs, fmt.Sprintf("code: expected %s, got %s", want.Code, cr.Code))
		}
		if want.ReasonContains != "" && !strings.Contains(cr.Reason, want.ReasonContains) {
			errs = append(errs, fmt.Sprintf("reason: %q does not contain %q", cr.Reason, want.ReasonContains))
		}
		return errs
	}

	if want.SQL != "" && want.SQL != cr.SQL {
		errs = append(errs, fmt.Sprintf("sql: expected %q, got %q", want.SQL, cr.SQL))
	}
	if want.Params != nil {
		if msg := compareParams(want.Params, cr.Params); msg != "" {
			errs = append(errs, "params: "+msg)
		}
	}
	if want.Rows != nil {
		switch {
		case cr.Rows == nil:
			errs = append(errs, "rows: statement was not executed")
		case *cr.Rows != *want.Rows:
			errs = append(errs, fmt.Sprintf("rows: expected %d, got %d", *want.Rows, *cr.Rows))
		}
	}

	return append(errs, CheckInvariants(querysql.Statement{SQL: cr.SQL, Params: cr.Params})...)
}

// compareParams compares by canonical JSON so YAML ints match int64 params.
func compareParams(want, got []any) string {
	w, err := canonicalList(want)
	if err != nil {
		return "expected: " + err.Error()
	}
	g, err := canonicalList(got)
	if err != nil {
		return "actual: " + err.Error()
	}
	if w != g {
		return fmt.Sprintf("expected %s, got %s", w, g)
	}
	return ""
}

func canonicalList(vals []any) (string, error) {
	arr := make(ir.IRArray, len(vals))
	for i, v := range vals {
		iv, err := ir.FromGo(v)
		if err != nil {
			return "", fmt.Errorf("[%d]: %w", i, err)
		}
		arr[i] = iv
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// CheckInvariants verifies a compiled statement:
//   - the `?` count equals len(Params)
//   - the SQL text has no quote characters
//   - no parameter value appears as a token of the SQL text
func CheckInvariants(stmt querysql.Statement) []string {
	var errs []string

	if n := querysql.CountPlaceholders(stmt.SQL); n != len(stmt.Params) {
		errs = append(errs, fmt.Sprintf("invariant: %d placeholders but %d params", n, len(stmt.Params)))
	}
	if strings.ContainsAny(stmt.SQL, `'"`) {
		errs = append(errs, "invariant: quote character in SQL text")
	}

	tokens := map[string]bool{}
	for _, tok := range sqlTokens(stmt.SQL) {
		tokens[tok] = true
	}
	for i, p := range stmt.Params {
		if lit := paramText(p); lit != "" && tokens[lit] {
			errs = append(errs, fmt.Sprintf("invariant: params[%d] appears in SQL text", i))
		}
	}
	return errs
}

// sqlTokens splits SQL into identifier-like and numeric tokens.
func sqlTokens(sql string) []string {
	return strings.FieldsFunc(sql, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-')
	})
}

func paramText(p any) string {
	switch v := p.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return ""
	}
}
