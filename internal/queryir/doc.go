// Package queryir defines the typed query tree that request JSON decodes into.
//
// Every operator in the wire format is a single-key object ({"AND": [...]},
// {"=": 5}, {"MAX": "col"}). Here each of those becomes an explicit variant,
// so the compiler switches on Go types instead of peeking at map keys.
//
// SEALED INTERFACES:
//
// Node, Operand and Item are sealed interfaces using the marker method
// pattern. Only types in this package implement them, which keeps type
// switches in the compiler exhaustive:
//
//	switch n := node.(type) {
//	case Comparison:
//	    // leaf: column, comparator, operand
//	case Logical:
//	    // AND/OR over two or more children
//	default:
//	    // unreachable for trees built by this package
//	}
//
// The tree carries no policy knowledge. Whether a string literal names a
// column, or whether a column exists at all, is decided at compile time.
package queryir
