package policy

import (
	"fmt"
	"strings"

	"github.com/roach88/jsonsql/internal/ir"
)

// ValueKind is the scalar kind a column expects its literal operands to have.
type ValueKind string

const (
	KindString  ValueKind = "string"
	KindInteger ValueKind = "integer"
	KindFloat   ValueKind = "float"
	KindBoolean ValueKind = "boolean"
)

// kindAliases maps accepted config spellings to canonical kinds.
var kindAliases = map[string]ValueKind{
	"string":  KindString,
	"str":     KindString,
	"text":    KindString,
	"integer": KindInteger,
	"int":     KindInteger,
	"float":   KindFloat,
	"number":  KindFloat,
	"boolean": KindBoolean,
	"bool":    KindBoolean,
}

// ParseValueKind resolves a config spelling ("int", "str", ...) to a ValueKind.
func ParseValueKind(s string) (ValueKind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown value kind %q: must be one of string, integer, float, boolean", s)
	}
	return k, nil
}

// Matches reports whether a literal's runtime kind satisfies k.
//
// Float columns also accept integral literals, since JSON does not
// distinguish 5 from 5.0 at the source. Booleans never match numeric kinds.
func (k ValueKind) Matches(v ir.IRValue) bool {
	switch v.(type) {
	case ir.IRString:
		return k == KindString
	case ir.IRInt:
		return k == KindInteger || k == KindFloat
	case ir.IRFloat:
		return k == KindFloat
	case ir.IRBool:
		return k == KindBoolean
	default:
		return false
	}
}

func (k ValueKind) String() string { return string(k) }

// KindForSQLType maps a declared SQL column type to a ValueKind using
// SQLite's type-affinity rules, which also cover the common Postgres names.
// ok is false when the declared type has no scalar mapping (blobs, json, ...).
func KindForSQLType(declType string) (ValueKind, bool) {
	t := strings.ToUpper(declType)
	switch {
	case strings.Contains(t, "BOOL"):
		return KindBoolean, true
	case strings.Contains(t, "INT") || t == "SERIAL" || t == "BIGSERIAL":
		return KindInteger, true
	case strings.Contains(t, "CHAR") || strings.Contains(t, "CLOB") ||
		strings.Contains(t, "TEXT") || t == "UUID":
		return KindString, true
	case strings.Contains(t, "REAL") || strings.Contains(t, "FLOA") ||
		strings.Contains(t, "DOUB") || strings.Contains(t, "NUMERIC") ||
		strings.Contains(t, "DECIMAL"):
		return KindFloat, true
	}
	return "", false
}
