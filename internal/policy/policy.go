package policy

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/hashicorp/go-multierror"
)

// DefaultMaxDepth bounds logic-tree nesting when Config.MaxDepth is zero.
const DefaultMaxDepth = 32

type set map[string]struct{}

func (s set) has(k string) bool {
	_, ok := s[k]
	return ok
}

// Policy is the immutable whitelist consulted by the compiler.
// The zero value allows nothing; build one with New.
type Policy struct {
	queries     set
	items       set
	tables      map[string]set // empty set = any declared column
	tableOrder  []string
	connections set
	columns     map[string]ValueKind
	maxDepth    int
}

// New validates cfg and builds a Policy. Every problem in cfg is reported,
// not just the first.
//
// The Policy copies everything it needs; later changes to cfg's slices and
// maps do not affect it.
func New(cfg Config) (*Policy, error) {
	var errs *multierror.Error

	p := &Policy{
		queries:     set{},
		items:       set{},
		tables:      make(map[string]set, len(cfg.Tables)),
		connections: set{},
		columns:     make(map[string]ValueKind, len(cfg.Columns)),
		maxDepth:    cfg.MaxDepth,
	}

	addAll := func(dst set, field string, names []string) {
		for i, name := range names {
			if err := checkName(name); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s[%d]: %w", field, i, err))
				continue
			}
			dst[name] = struct{}{}
		}
	}
	addAll(p.queries, "queries", cfg.Queries)
	addAll(p.items, "items", cfg.Items)
	addAll(p.connections, "connections", cfg.Connections)

	for i, t := range cfg.Tables {
		if err := checkName(t.Name); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("tables[%d]: %w", i, err))
			continue
		}
		if _, dup := p.tables[t.Name]; dup {
			errs = multierror.Append(errs, fmt.Errorf("tables[%d]: duplicate table %q", i, t.Name))
			continue
		}
		cols := set{}
		for j, c := range t.Columns {
			if err := checkName(c); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("tables[%d] %s columns[%d]: %w", i, t.Name, j, err))
				continue
			}
			cols[c] = struct{}{}
		}
		p.tables[t.Name] = cols
		p.tableOrder = append(p.tableOrder, t.Name)
	}

	for name, kind := range cfg.Columns {
		if err := checkName(name); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("columns %q: %w", name, err))
			continue
		}
		k, err := ParseValueKind(string(kind))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("columns %q: %w", name, err))
			continue
		}
		p.columns[name] = k
	}

	if cfg.MaxDepth < 0 {
		errs = multierror.Append(errs, fmt.Errorf("max_depth: must not be negative, got %d", cfg.MaxDepth))
	}
	if p.maxDepth == 0 {
		p.maxDepth = DefaultMaxDepth
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return p, nil
}

// MustNew is New for statically known configs; it panics on error.
func MustNew(cfg Config) *Policy {
	p, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// checkName rejects identifiers that could break out of their position in
// SQL text or pose as a placeholder. Policy identifiers are embedded
// verbatim.
func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("empty name")
	}
	if strings.ContainsAny(name, ";'\"`\\?") || strings.Contains(name, "--") || strings.Contains(name, "/*") {
		return fmt.Errorf("name %q contains SQL metacharacters", name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("name %q contains control characters", name)
		}
	}
	return nil
}

// AllowsQuery reports whether q is an allowed query keyword.
func (p *Policy) AllowsQuery(q string) bool { return p.queries.has(q) }

// AllowsItem reports whether item is in the global select-item list.
func (p *Policy) AllowsItem(item string) bool { return p.items.has(item) }

// HasTable reports whether table is allowed.
func (p *Policy) HasTable(table string) bool {
	_, ok := p.tables[table]
	return ok
}

// TableAllowsColumn reports whether column may be selected from table.
// Tables without a column list accept any declared column.
func (p *Policy) TableAllowsColumn(table, column string) bool {
	cols, ok := p.tables[table]
	if !ok {
		return false
	}
	if len(cols) == 0 {
		return p.IsKnownColumn(column)
	}
	return cols.has(column)
}

// AllowsConnection reports whether c is an allowed connection keyword.
func (p *Policy) AllowsConnection(c string) bool { return p.connections.has(c) }

// IsKnownColumn reports whether name has a declared value kind.
func (p *Policy) IsKnownColumn(name string) bool {
	_, ok := p.columns[name]
	return ok
}

// ColumnKind returns the declared kind of a column.
func (p *Policy) ColumnKind(name string) (ValueKind, bool) {
	k, ok := p.columns[name]
	return k, ok
}

// MaxDepth is the deepest logic-tree nesting a request may use.
func (p *Policy) MaxDepth() int { return p.maxDepth }

// Config returns a fresh Config equivalent to the one the Policy was built
// from, with aliases canonicalized and lists sorted (tables keep their order).
func (p *Policy) Config() Config {
	cfg := Config{
		Queries:     sortedKeys(p.queries),
		Items:       sortedKeys(p.items),
		Connections: sortedKeys(p.connections),
		Columns:     make(map[string]ValueKind, len(p.columns)),
	}
	if p.maxDepth != DefaultMaxDepth {
		cfg.MaxDepth = p.maxDepth
	}
	for _, name := range p.tableOrder {
		cfg.Tables = append(cfg.Tables, TableEntry{Name: name, Columns: sortedKeys(p.tables[name])})
	}
	for name, kind := range p.columns {
		cfg.Columns[name] = kind
	}
	return cfg
}

func sortedKeys(s set) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
