package querysql

import (
	"strconv"

	"github.com/roach88/jsonsql/internal/ir"
	"github.com/roach88/jsonsql/internal/policy"
	"github.com/roach88/jsonsql/internal/queryir"
)

// Validator answers whitelist questions about logic-tree leaves.
// It only reads its Policy and is safe for concurrent use.
type Validator struct {
	policy *policy.Policy
}

// NewValidator returns a Validator over p.
func NewValidator(p *policy.Policy) Validator {
	return Validator{policy: p}
}

// operandClass is the shape of an operand, decided once before comparator
// dispatch.
type operandClass int

const (
	classInvalid operandClass = iota
	classScalar
	classColumn
	classAggregate
	classList
)

func (c operandClass) String() string {
	switch c {
	case classScalar:
		return "scalar"
	case classColumn:
		return "column"
	case classAggregate:
		return "aggregate"
	case classList:
		return "list"
	default:
		return "invalid"
	}
}

// classify sorts an operand into scalar, column reference, aggregate or
// list. A string literal naming a known column is a column reference.
func (v Validator) classify(op queryir.Operand) operandClass {
	switch o := op.(type) {
	case queryir.Literal:
		return v.classifyLiteral(o)
	case *queryir.Literal:
		if o == nil {
			return classInvalid
		}
		return v.classifyLiteral(*o)
	case queryir.Aggregate:
		return classAggregate
	case *queryir.Aggregate:
		if o == nil {
			return classInvalid
		}
		return classAggregate
	case queryir.List:
		return classList
	case *queryir.List:
		if o == nil {
			return classInvalid
		}
		return classList
	default:
		return classInvalid
	}
}

func (v Validator) classifyLiteral(l queryir.Literal) operandClass {
	if s, ok := l.Value.(ir.IRString); ok && v.IsKnownColumn(string(s)) {
		return classColumn
	}
	if l.Value == nil || !ir.IsScalar(l.Value) {
		return classInvalid
	}
	return classScalar
}

// IsKnownColumn reports whether name is a declared column.
func (v Validator) IsKnownColumn(name string) bool {
	return v.policy.IsKnownColumn(name)
}

// IsValidAggregate reports whether agg has a known function and a known
// column argument.
func (v Validator) IsValidAggregate(agg queryir.Aggregate) bool {
	return agg.Func >= queryir.Min && agg.Func <= queryir.Count && v.IsKnownColumn(agg.Column)
}

// IsValidValue reports whether a non-list operand may be compared against a
// column of the given kind. Column references and valid aggregates are
// accepted regardless of kind.
func (v Validator) IsValidValue(op queryir.Operand, kind policy.ValueKind) bool {
	return v.checkValue(op, kind) == ""
}

// checkValue is IsValidValue returning the reason for rejection, or "".
func (v Validator) checkValue(op queryir.Operand, kind policy.ValueKind) string {
	switch v.classify(op) {
	case classColumn:
		return ""
	case classAggregate:
		agg := aggregateOf(op)
		if !v.IsValidAggregate(agg) {
			return "invalid aggregate argument - " + agg.Column
		}
		return ""
	case classScalar:
		val := literalOf(op).Value
		if !kind.Matches(val) {
			return "expected " + kind.String() + ", got " + ir.KindName(val)
		}
		return ""
	case classList:
		return "unexpected list"
	default:
		return "unsupported operand"
	}
}

// IsSpecialComparison reports whether op is a valid operand for BETWEEN
// (exactly two values) or IN (at least one value). It is false for every
// other comparator.
func (v Validator) IsSpecialComparison(cmp queryir.Comparator, op queryir.Operand, kind policy.ValueKind) bool {
	return v.checkSpecial(cmp, op, kind) == ""
}

func (v Validator) checkSpecial(cmp queryir.Comparator, op queryir.Operand, kind policy.ValueKind) string {
	if !cmp.IsSpecial() {
		return cmp.String() + " is not a list comparator"
	}
	if v.classify(op) != classList {
		return "expects a list"
	}
	elems := listOf(op).Elems
	switch {
	case cmp == queryir.Between && len(elems) != 2:
		return "expects 2 values"
	case cmp == queryir.In && len(elems) == 0:
		return "expects at least 1 value"
	}
	for i, e := range elems {
		if reason := v.checkValue(e, kind); reason != "" {
			return "element " + strconv.Itoa(i) + ": " + reason
		}
	}
	return ""
}

// IsValidComparison reports whether c may be compiled with c.Column as its
// left-hand side.
func (v Validator) IsValidComparison(column string, c queryir.Comparison) bool {
	return v.checkComparison(column, c) == nil
}

// checkComparison is IsValidComparison with a CompileError for the caller.
func (v Validator) checkComparison(column string, c queryir.Comparison) *CompileError {
	kind, ok := v.policy.ColumnKind(column)
	if !ok {
		return newError(ErrCodeDisallowedColumn, "invalid input - %s", column)
	}
	switch {
	case c.Comparator.IsSimple():
		if reason := v.checkValue(c.Operand, kind); reason != "" {
			return newError(ErrCodeInvalidComparisonValue, "bad %s %s, %s", column, c.Comparator, reason)
		}
	case c.Comparator.IsSpecial():
		if reason := v.checkSpecial(c.Comparator, c.Operand, kind); reason != "" {
			return newError(ErrCodeInvalidComparisonValue, "%s on %s %s", c.Comparator, column, reason)
		}
	default:
		return newError(ErrCodeInvalidComparator, "non valid comparator - %s", c.Comparator)
	}
	return nil
}

// NormalizeComparator maps "!=" to "<>" and returns every other tag unchanged.
func NormalizeComparator(tag string) string {
	if tag == "!=" {
		return "<>"
	}
	return tag
}

func literalOf(op queryir.Operand) queryir.Literal {
	if p, ok := op.(*queryir.Literal); ok {
		return *p
	}
	return op.(queryir.Literal)
}

func aggregateOf(op queryir.Operand) queryir.Aggregate {
	if p, ok := op.(*queryir.Aggregate); ok {
		return *p
	}
	return op.(queryir.Aggregate)
}

func listOf(op queryir.Operand) queryir.List {
	if p, ok := op.(*queryir.List); ok {
		return *p
	}
	return op.(queryir.List)
}
