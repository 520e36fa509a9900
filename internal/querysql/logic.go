package querysql

import (
	"strings"

	"github.com/roach88/jsonsql/internal/ir"
	"github.com/roach88/jsonsql/internal/queryir"
)

// CompileLogic compiles a logic tree into a boolean SQL fragment.
// Statement.SQL holds the fragment only, without the connection keyword.
//
// The first failing child aborts compilation and its error is returned
// unchanged.
func (c *Compiler) CompileLogic(node queryir.Node) (Statement, error) {
	frag, params, cerr := c.compileNode(node, 1)
	if cerr != nil {
		return Statement{}, cerr
	}
	return Statement{SQL: frag, Params: params}, nil
}

func (c *Compiler) compileNode(node queryir.Node, depth int) (string, []any, *CompileError) {
	if limit := c.policy.MaxDepth(); limit > 0 && depth > limit {
		return "", nil, newError(ErrCodeInvalidLogicShape, "logic nested deeper than %d", limit)
	}

	switch n := node.(type) {
	case queryir.Comparison:
		return c.compileComparison(n)
	case *queryir.Comparison:
		if n == nil {
			return "", nil, newError(ErrCodeInvalidLogicShape, ReasonNothingToCompute)
		}
		return c.compileComparison(*n)
	case queryir.Logical:
		return c.compileLogical(n, depth)
	case *queryir.Logical:
		if n == nil {
			return "", nil, newError(ErrCodeInvalidLogicShape, ReasonNothingToCompute)
		}
		return c.compileLogical(*n, depth)
	case nil:
		return "", nil, newError(ErrCodeInvalidLogicShape, ReasonNothingToCompute)
	default:
		return "", nil, newError(ErrCodeInternal, "unhandled logic node %T", node)
	}
}

func (c *Compiler) compileLogical(n queryir.Logical, depth int) (string, []any, *CompileError) {
	var sep string
	switch n.Connector {
	case queryir.And, queryir.Or:
		sep = " " + n.Connector.String() + " "
	default:
		return "", nil, newError(ErrCodeInvalidLogicShape, "unknown connector")
	}
	if len(n.Children) < 2 {
		return "", nil, newError(ErrCodeInvalidLogicShape,
			"invalid boolean length, must be >= 2, got %d", len(n.Children))
	}

	frags := make([]string, 0, len(n.Children))
	params := []any{}
	for _, child := range n.Children {
		frag, p, err := c.compileNode(child, depth+1)
		if err != nil {
			return "", nil, err
		}
		frags = append(frags, frag)
		params = append(params, p...)
	}
	return "(" + strings.Join(frags, sep) + ")", params, nil
}

func (c *Compiler) compileComparison(n queryir.Comparison) (string, []any, *CompileError) {
	if err := c.validator.checkComparison(n.Column, n); err != nil {
		return "", nil, err
	}

	cmp := NormalizeComparator(n.Comparator.SQL())
	head := n.Column + " " + cmp + " "
	class := c.validator.classify(n.Operand)

	switch {
	case n.Comparator.IsSimple() && class == classScalar:
		return head + "?", []any{ir.ToGo(literalOf(n.Operand).Value)}, nil

	case n.Comparator.IsSimple() && class == classColumn:
		return head + string(literalOf(n.Operand).Value.(ir.IRString)), []any{}, nil

	case n.Comparator.IsSimple() && class == classAggregate:
		return head + aggregateOf(n.Operand).SQL(), []any{}, nil

	case n.Comparator == queryir.Between && class == classList:
		elems := listOf(n.Operand).Elems
		lo, p1 := c.renderElem(elems[0])
		hi, p2 := c.renderElem(elems[1])
		params := append(append([]any{}, p1...), p2...)
		return head + lo + " AND " + hi, params, nil

	case n.Comparator == queryir.In && class == classList:
		elems := listOf(n.Operand).Elems
		parts := make([]string, len(elems))
		params := []any{}
		for i, e := range elems {
			frag, p := c.renderElem(e)
			parts[i] = frag
			params = append(params, p...)
		}
		return head + "(" + strings.Join(parts, ",") + ")", params, nil

	default:
		return "", nil, newError(ErrCodeInternal, "comparator error - %s", n.Comparator)
	}
}

// renderElem renders one validated list element: a placeholder for a
// scalar, the name for a column reference, FUNC(col) for an aggregate.
func (c *Compiler) renderElem(op queryir.Operand) (string, []any) {
	switch c.validator.classify(op) {
	case classColumn:
		return string(literalOf(op).Value.(ir.IRString)), nil
	case classAggregate:
		return aggregateOf(op).SQL(), nil
	default:
		return "?", []any{ir.ToGo(literalOf(op).Value)}
	}
}
