package querysql

import (
	"errors"
	"fmt"

	"github.com/roach88/jsonsql/internal/ir"
	"github.com/roach88/jsonsql/internal/queryir"
)

// Request field names.
const (
	fieldQuery      = "query"
	fieldItems      = "items"
	fieldTable      = "table"
	fieldConnection = "connection"
	fieldLogic      = "logic"
)

// DecodeRequest parses request JSON into a queryir.Request.
//
// Only structure is checked here. Whitelist membership is the compiler's job.
// Logic trees nested deeper than maxDepth are rejected; maxDepth <= 0 means
// no limit.
func DecodeRequest(data []byte, maxDepth int) (queryir.Request, error) {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return queryir.Request{}, parseError(err)
	}
	return DecodeRequestValue(v, maxDepth)
}

// parseError classifies a failure to read request JSON. A key repeated
// inside logic is a logic shape failure; one elsewhere is a type failure.
// Out-of-range integers are reported without their digits.
func parseError(err error) *CompileError {
	var dup *ir.DuplicateKeyError
	switch {
	case errors.As(err, &dup):
		if len(dup.Path) > 0 && dup.Path[0] == fieldLogic {
			return wrapLogic(&CompileError{
				Code:    ErrCodeInvalidLogicShape,
				Message: fmt.Sprintf("duplicate key %s", dup.Key),
				Err:     err,
			})
		}
		return &CompileError{
			Code:    ErrCodeWrongType,
			Message: fmt.Sprintf("duplicate key %s", dup.Key),
			Err:     err,
		}
	case errors.Is(err, ir.ErrNumberRange):
		return &CompileError{Code: ErrCodeWrongType, Message: ir.ErrNumberRange.Error(), Err: err}
	default:
		return &CompileError{Code: ErrCodeWrongType, Message: "request is not valid JSON", Err: err}
	}
}

// DecodeRequestValue is DecodeRequest for an already parsed value.
func DecodeRequestValue(v ir.IRValue, maxDepth int) (queryir.Request, error) {
	req, logic, err := decodeHead(v)
	if err != nil {
		return queryir.Request{}, err
	}
	if logic != nil {
		node, err := DecodeLogic(logic, maxDepth)
		if err != nil {
			return queryir.Request{}, err
		}
		req.Logic = node
	}
	return req, nil
}

// decodeHead decodes every field except logic, which is returned raw.
// A null or absent logic yields a nil raw value.
func decodeHead(v ir.IRValue) (queryir.Request, ir.IRValue, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return queryir.Request{}, nil, newError(ErrCodeWrongType,
			"request not right type, expected object, got %s", ir.KindName(v))
	}

	for _, key := range obj.SortedKeys() {
		switch key {
		case fieldQuery, fieldItems, fieldTable, fieldConnection, fieldLogic:
		default:
			return queryir.Request{}, nil, newError(ErrCodeWrongType, "unknown field %s", key)
		}
	}

	var req queryir.Request
	var err error

	if req.Query, err = requiredString(obj, fieldQuery); err != nil {
		return queryir.Request{}, nil, err
	}
	if req.Items, err = decodeItems(obj); err != nil {
		return queryir.Request{}, nil, err
	}
	if req.Table, err = requiredString(obj, fieldTable); err != nil {
		return queryir.Request{}, nil, err
	}

	switch conn := obj[fieldConnection].(type) {
	case nil, ir.IRNull:
	case ir.IRString:
		req.Connection = string(conn)
	default:
		return queryir.Request{}, nil, newError(ErrCodeWrongType,
			"connection not right type, expected string, got %s", ir.KindName(conn))
	}

	var logic ir.IRValue
	switch raw := obj[fieldLogic].(type) {
	case nil, ir.IRNull:
	case ir.IRObject:
		logic = raw
	default:
		return queryir.Request{}, nil, newError(ErrCodeWrongType,
			"logic not right type, expected object, got %s", ir.KindName(raw))
	}

	return req, logic, nil
}

func requiredString(obj ir.IRObject, field string) (string, error) {
	raw, ok := obj[field]
	if !ok {
		return "", newError(ErrCodeMissingField, "missing argument %s", field)
	}
	s, ok := raw.(ir.IRString)
	if !ok {
		return "", newError(ErrCodeWrongType,
			"%s not right type, expected string, got %s", field, ir.KindName(raw))
	}
	if s == "" {
		return "", newError(ErrCodeMissingField, "missing argument %s", field)
	}
	return string(s), nil
}

func decodeItems(obj ir.IRObject) ([]queryir.Item, error) {
	raw, ok := obj[fieldItems]
	if !ok {
		return nil, newError(ErrCodeMissingField, "missing argument items")
	}
	arr, ok := raw.(ir.IRArray)
	if !ok {
		return nil, newError(ErrCodeWrongType,
			"items not right type, expected list, got %s", ir.KindName(raw))
	}
	if len(arr) == 0 {
		return nil, newError(ErrCodeMissingField, "missing argument items")
	}

	items := make([]queryir.Item, 0, len(arr))
	for i, elem := range arr {
		switch e := elem.(type) {
		case ir.IRString:
			items = append(items, queryir.ItemName(e))
		case ir.IRObject:
			agg, err := decodeAggregate(e)
			if err != nil {
				return nil, newError(CodeOf(err), "items[%d]: %s", i, Reason(err))
			}
			items = append(items, agg)
		default:
			return nil, newError(ErrCodeWrongType,
				"items[%d] not right type, expected string or aggregate, got %s", i, ir.KindName(elem))
		}
	}
	return items, nil
}

// decodeAggregate decodes {"FUNC": "column"}.
func decodeAggregate(obj ir.IRObject) (queryir.Aggregate, error) {
	tag, arg, ok := obj.Single()
	if !ok {
		return queryir.Aggregate{}, newError(ErrCodeWrongType,
			"aggregate has %d keys, expected exactly one", len(obj))
	}
	fn, ok := queryir.ParseAggregateFunc(tag)
	if !ok {
		return queryir.Aggregate{}, newError(ErrCodeDisallowedItem, "unknown aggregate %s", tag)
	}
	col, ok := arg.(ir.IRString)
	if !ok {
		return queryir.Aggregate{}, newError(ErrCodeWrongType,
			"%s argument not right type, expected string, got %s", fn, ir.KindName(arg))
	}
	return queryir.Aggregate{Func: fn, Column: string(col)}, nil
}

// DecodeLogic decodes a logic tree. The empty object fails with
// ReasonNothingToCompute at any depth.
func DecodeLogic(v ir.IRValue, maxDepth int) (queryir.Node, error) {
	return decodeNode(v, 1, maxDepth)
}

func decodeNode(v ir.IRValue, depth, maxDepth int) (queryir.Node, error) {
	if maxDepth > 0 && depth > maxDepth {
		return nil, newError(ErrCodeInvalidLogicShape, "logic nested deeper than %d", maxDepth)
	}

	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, newError(ErrCodeInvalidLogicShape,
			"logic node not right type, expected object, got %s", ir.KindName(v))
	}
	if len(obj) == 0 {
		return nil, newError(ErrCodeInvalidLogicShape, ReasonNothingToCompute)
	}
	key, val, ok := obj.Single()
	if !ok {
		return nil, newError(ErrCodeInvalidLogicShape,
			"logic node has %d keys, expected exactly one", len(obj))
	}

	if conn, ok := queryir.ParseConnector(key); ok {
		return decodeLogical(conn, val, depth, maxDepth)
	}
	return decodeComparison(key, val)
}

func decodeLogical(conn queryir.Connector, v ir.IRValue, depth, maxDepth int) (queryir.Node, error) {
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, newError(ErrCodeInvalidLogicShape, "bad %s, non list", conn)
	}
	if len(arr) < 2 {
		return nil, newError(ErrCodeInvalidLogicShape,
			"invalid boolean length, must be >= 2, got %d", len(arr))
	}
	children := make([]queryir.Node, 0, len(arr))
	for _, elem := range arr {
		child, err := decodeNode(elem, depth+1, maxDepth)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return queryir.Logical{Connector: conn, Children: children}, nil
}

func decodeComparison(column string, v ir.IRValue) (queryir.Node, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, newError(ErrCodeInvalidLogicShape,
			"comparison on %s not right type, expected object, got %s", column, ir.KindName(v))
	}
	if len(obj) == 0 {
		return nil, newError(ErrCodeInvalidLogicShape, ReasonNothingToCompute)
	}
	tag, raw, ok := obj.Single()
	if !ok {
		return nil, newError(ErrCodeInvalidLogicShape,
			"comparison on %s has %d keys, expected exactly one", column, len(obj))
	}
	cmp, ok := queryir.ParseComparator(tag)
	if !ok {
		return nil, newError(ErrCodeInvalidComparator, "non valid comparator - %s", tag)
	}
	op, err := decodeOperand(raw, true)
	if err != nil {
		return nil, newError(CodeOf(err), "%s on %s: %s", cmp, column, Reason(err))
	}
	return queryir.Comparison{Column: column, Comparator: cmp, Operand: op}, nil
}

// decodeOperand decodes a scalar, an aggregate object or, at the top of a
// comparison only, a list of those.
func decodeOperand(v ir.IRValue, allowList bool) (queryir.Operand, error) {
	switch val := v.(type) {
	case ir.IRObject:
		agg, err := decodeAggregate(val)
		if err != nil {
			return nil, newError(ErrCodeInvalidComparisonValue, "%s", Reason(err))
		}
		return agg, nil
	case ir.IRArray:
		if !allowList {
			return nil, newError(ErrCodeInvalidComparisonValue, "nested list")
		}
		elems := make([]queryir.Operand, 0, len(val))
		for _, e := range val {
			op, err := decodeOperand(e, false)
			if err != nil {
				return nil, err
			}
			elems = append(elems, op)
		}
		return queryir.List{Elems: elems}, nil
	default:
		return queryir.Literal{Value: v}, nil
	}
}
