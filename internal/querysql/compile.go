package querysql

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/roach88/jsonsql/internal/ir"
	"github.com/roach88/jsonsql/internal/policy"
	"github.com/roach88/jsonsql/internal/queryir"
)

// Placeholder is the positional parameter token emitted into SQL text.
const Placeholder = "?"

// Statement is a compiled query: SQL text with `?` placeholders and the
// values bound to them in textual order.
//
// Params holds only string, int64, float64 and bool values and is never nil.
type Statement struct {
	SQL    string
	Params []any
}

// Compiler compiles requests against a single Policy.
// A Compiler holds no per-request state and is safe for concurrent use.
type Compiler struct {
	policy    *policy.Policy
	validator Validator
	logger    *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for rejection diagnostics.
// Rejections are logged at debug level with their code; literal values
// are never logged.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCompiler returns a Compiler for p.
func NewCompiler(p *policy.Policy, opts ...Option) *Compiler {
	c := &Compiler{
		policy:    p,
		validator: NewValidator(p),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the policy the compiler enforces.
func (c *Compiler) Policy() *policy.Policy { return c.policy }

// Validator returns the compiler's leaf validator.
func (c *Compiler) Validator() Validator { return c.validator }

// Decode decodes request JSON using the policy's depth limit.
func (c *Compiler) Decode(data []byte) (queryir.Request, error) {
	return DecodeRequest(data, c.policy.MaxDepth())
}

// CompileJSON decodes and compiles request JSON.
func (c *Compiler) CompileJSON(data []byte) (Statement, error) {
	v, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return Statement{}, c.reject(parseError(err))
	}
	return c.CompileValue(v)
}

// CompileValue decodes and compiles an already parsed request.
//
// Whitelist checks on query, table, items and connection run before the
// logic tree is decoded, so a request is reported by its first failing
// field in that order.
func (c *Compiler) CompileValue(v ir.IRValue) (Statement, error) {
	req, rawLogic, err := decodeHead(v)
	if err != nil {
		return Statement{}, c.reject(asCompileError(err))
	}
	if rawLogic != nil {
		base, cerr := c.compileHead(req, true)
		if cerr != nil {
			return Statement{}, c.reject(cerr)
		}
		node, err := DecodeLogic(rawLogic, c.policy.MaxDepth())
		if err != nil {
			return Statement{}, c.reject(wrapLogic(asCompileError(err)))
		}
		return c.finish(req, base, node)
	}
	return c.Compile(req)
}

// Compile compiles a decoded request.
func (c *Compiler) Compile(req queryir.Request) (Statement, error) {
	base, cerr := c.compileHead(req, req.Logic != nil)
	if cerr != nil {
		return Statement{}, c.reject(cerr)
	}
	if req.Logic == nil {
		return Statement{SQL: base, Params: []any{}}, nil
	}
	return c.finish(req, base, req.Logic)
}

func (c *Compiler) finish(req queryir.Request, base string, logic queryir.Node) (Statement, error) {
	frag, params, cerr := c.compileNode(logic, 1)
	if cerr != nil {
		return Statement{}, c.reject(wrapLogic(cerr))
	}
	return Statement{
		SQL:    base + " " + req.Connection + " " + frag,
		Params: params,
	}, nil
}

// compileHead validates everything except the logic tree and returns the
// base SQL "{query} {items} FROM {table}".
func (c *Compiler) compileHead(req queryir.Request, hasLogic bool) (string, *CompileError) {
	switch {
	case req.Query == "":
		return "", newError(ErrCodeMissingField, "missing argument %s", fieldQuery)
	case len(req.Items) == 0:
		return "", newError(ErrCodeMissingField, "missing argument %s", fieldItems)
	case req.Table == "":
		return "", newError(ErrCodeMissingField, "missing argument %s", fieldTable)
	}

	if !c.policy.AllowsQuery(req.Query) {
		return "", newError(ErrCodeDisallowedQuery, "query not allowed - %s", req.Query)
	}
	if !c.policy.HasTable(req.Table) {
		return "", newError(ErrCodeDisallowedTable, "table not allowed - %s", req.Table)
	}

	items := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		rendered, cerr := c.compileItem(req.Table, item)
		if cerr != nil {
			return "", cerr
		}
		items = append(items, rendered)
	}

	if req.Connection != "" && !c.policy.AllowsConnection(req.Connection) {
		return "", newError(ErrCodeDisallowedConnection, "connection not allowed - %s", req.Connection)
	}
	if hasLogic && req.Connection == "" {
		return "", newError(ErrCodeMissingField, "missing argument %s", fieldConnection)
	}

	return req.Query + " " + strings.Join(items, ",") + " FROM " + req.Table, nil
}

// compileItem accepts a literal item allowed globally or for the table, or
// an aggregate whose argument is.
func (c *Compiler) compileItem(table string, item queryir.Item) (string, *CompileError) {
	allowed := func(name string) bool {
		return c.policy.AllowsItem(name) || c.policy.TableAllowsColumn(table, name)
	}

	switch it := item.(type) {
	case queryir.ItemName:
		if !allowed(string(it)) {
			return "", newError(ErrCodeDisallowedItem, "item not allowed - %s", string(it))
		}
		return string(it), nil
	case queryir.Aggregate:
		return c.compileAggregateItem(it, allowed)
	case *queryir.Aggregate:
		if it == nil {
			return "", newError(ErrCodeDisallowedItem, "item not allowed - nil aggregate")
		}
		return c.compileAggregateItem(*it, allowed)
	default:
		return "", newError(ErrCodeDisallowedItem, "item not allowed - %T", item)
	}
}

func (c *Compiler) compileAggregateItem(agg queryir.Aggregate, allowed func(string) bool) (string, *CompileError) {
	if agg.Func < queryir.Min || agg.Func > queryir.Count {
		return "", newError(ErrCodeDisallowedItem, "unknown aggregate %s", agg.Func)
	}
	if !allowed(agg.Column) {
		return "", newError(ErrCodeDisallowedItem, "item not allowed - %s", agg.Column)
	}
	return agg.SQL(), nil
}

// wrapLogic prefixes a logic failure while keeping its code.
func wrapLogic(err *CompileError) *CompileError {
	return &CompileError{
		Code:    err.Code,
		Message: "logic fail - " + err.Message,
		Err:     err,
	}
}

func asCompileError(err error) *CompileError {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce
	}
	return &CompileError{Code: ErrCodeInternal, Message: err.Error(), Err: err}
}

// reject logs a rejection and returns it as an error.
func (c *Compiler) reject(err *CompileError) error {
	c.logger.Debug("request rejected", "code", string(err.Code))
	return err
}
