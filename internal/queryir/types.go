package queryir

import (
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/jsonsql/internal/ir"
)

// fold upper-cases keyword tags so "and", "between" and "max" are accepted.
// Tags with non-ASCII bytes are returned unchanged: every keyword is ASCII,
// and Unicode case mapping would turn a long s (U+017F) into S.
// A Caser holds state, so each call gets its own.
func fold(tag string) string {
	for i := 0; i < len(tag); i++ {
		if tag[i] >= utf8.RuneSelf {
			return tag
		}
	}
	return cases.Upper(language.Und).String(tag)
}

// Comparator is a comparison operator.
type Comparator int

const (
	Equal Comparator = iota + 1
	Greater
	Less
	GreaterEq
	LessEq
	NotEqual
	Between
	In
)

var comparatorTags = map[string]Comparator{
	"=":       Equal,
	">":       Greater,
	"<":       Less,
	">=":      GreaterEq,
	"<=":      LessEq,
	"<>":      NotEqual,
	"!=":      NotEqual,
	"BETWEEN": Between,
	"IN":      In,
}

// ParseComparator resolves a wire tag to a Comparator.
// Both "<>" and "!=" spell NotEqual.
func ParseComparator(tag string) (Comparator, bool) {
	c, ok := comparatorTags[fold(tag)]
	return c, ok
}

// SQL returns the comparator token emitted into SQL text.
func (c Comparator) SQL() string {
	switch c {
	case Equal:
		return "="
	case Greater:
		return ">"
	case Less:
		return "<"
	case GreaterEq:
		return ">="
	case LessEq:
		return "<="
	case NotEqual:
		return "<>"
	case Between:
		return "BETWEEN"
	case In:
		return "IN"
	default:
		return ""
	}
}

func (c Comparator) String() string {
	if s := c.SQL(); s != "" {
		return s
	}
	return "Comparator(?)"
}

// IsSpecial reports whether c takes a list operand (BETWEEN, IN).
func (c Comparator) IsSpecial() bool { return c == Between || c == In }

// IsSimple reports whether c takes a single operand.
func (c Comparator) IsSimple() bool { return c >= Equal && c <= NotEqual }

// Connector joins the children of a Logical node.
type Connector int

const (
	And Connector = iota + 1
	Or
)

// ParseConnector resolves "AND"/"OR" in any letter case.
func ParseConnector(tag string) (Connector, bool) {
	switch fold(tag) {
	case "AND":
		return And, true
	case "OR":
		return Or, true
	}
	return 0, false
}

func (c Connector) String() string {
	switch c {
	case And:
		return "AND"
	case Or:
		return "OR"
	default:
		return "Connector(?)"
	}
}

// AggregateFunc is an SQL aggregate function.
type AggregateFunc int

const (
	Min AggregateFunc = iota + 1
	Max
	Sum
	Avg
	Count
)

// ParseAggregateFunc resolves MIN/MAX/SUM/AVG/COUNT in any letter case.
func ParseAggregateFunc(tag string) (AggregateFunc, bool) {
	switch fold(tag) {
	case "MIN":
		return Min, true
	case "MAX":
		return Max, true
	case "SUM":
		return Sum, true
	case "AVG":
		return Avg, true
	case "COUNT":
		return Count, true
	}
	return 0, false
}

func (f AggregateFunc) String() string {
	switch f {
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	case Sum:
		return "SUM"
	case Avg:
		return "AVG"
	case Count:
		return "COUNT"
	default:
		return "AggregateFunc(?)"
	}
}

// Node is a logic-tree node: Comparison or Logical.
type Node interface {
	logicNode() // Marker method - seals interface to this package
}

// Comparison is a leaf: <Column> <Comparator> <Operand>.
type Comparison struct {
	Column     string
	Comparator Comparator
	Operand    Operand
}

func (Comparison) logicNode() {}

// Logical combines two or more children with AND or OR.
type Logical struct {
	Connector Connector
	Children  []Node
}

func (Logical) logicNode() {}

// Operand is the right-hand side of a Comparison.
type Operand interface {
	operand() // Marker method - seals interface to this package
}

// Literal is a scalar operand. A string literal that names a known column
// is compiled as a column reference.
type Literal struct {
	Value ir.IRValue
}

func (Literal) operand() {}

// Aggregate is FUNC(column). It is both an operand and a select item.
type Aggregate struct {
	Func   AggregateFunc
	Column string
}

func (Aggregate) operand()    {}
func (Aggregate) selectItem() {}

// SQL renders the aggregate as FUNC(column).
func (a Aggregate) SQL() string { return a.Func.String() + "(" + a.Column + ")" }

// List is the operand of BETWEEN and IN.
type List struct {
	Elems []Operand
}

func (List) operand() {}

// Item is one entry of the select list: ItemName or Aggregate.
type Item interface {
	selectItem() // Marker method - seals interface to this package
}

// ItemName is a literal select item: a column name or an allowed item like "*".
type ItemName string

func (ItemName) selectItem() {}

// Request is a decoded top-level query request.
//
// Semantics:
//
//	<Query> <Items...> FROM <Table> [<Connection> <Logic>]
type Request struct {
	Query      string
	Items      []Item
	Table      string
	Connection string // empty = absent
	Logic      Node   // nil = no filter
}
