package policy

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ColumnInfo is a column as declared in a database schema.
type ColumnInfo struct {
	Name     string
	DeclType string
}

// TableInfo is a table as declared in a database schema.
type TableInfo struct {
	Name    string
	Columns []ColumnInfo
}

// ConfigFromSchema derives a read-only policy from introspected tables:
// SELECT over `*` with a WHERE connection, each table restricted to its own
// columns, and column kinds taken from the declared SQL types.
//
// Columns whose declared type has no scalar kind are left out and reported
// in skipped as "table.column". A column name declared with different kinds
// in different tables is an error, since Policy column kinds are global.
func ConfigFromSchema(tables []TableInfo) (cfg Config, skipped []string, err error) {
	var errs *multierror.Error

	cfg = Config{
		Queries:     []string{"SELECT"},
		Items:       []string{"*"},
		Connections: []string{"WHERE"},
		Columns:     map[string]ValueKind{},
	}
	owner := map[string]string{}

	for _, t := range tables {
		entry := TableEntry{Name: t.Name}
		for _, c := range t.Columns {
			kind, ok := KindForSQLType(c.DeclType)
			if !ok {
				skipped = append(skipped, t.Name+"."+c.Name)
				continue
			}
			if prev, seen := cfg.Columns[c.Name]; seen && prev != kind {
				errs = multierror.Append(errs, fmt.Errorf(
					"column %q is %s in %s but %s in %s", c.Name, prev, owner[c.Name], kind, t.Name))
				continue
			}
			cfg.Columns[c.Name] = kind
			owner[c.Name] = t.Name
			entry.Columns = append(entry.Columns, c.Name)
		}
		cfg.Tables = append(cfg.Tables, entry)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return Config{}, nil, err
	}
	return cfg, skipped, nil
}
