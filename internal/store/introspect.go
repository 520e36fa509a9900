package store

import (
	"context"
	"fmt"

	"github.com/roach88/jsonsql/internal/policy"
)

const auditTable = "audit_log"

// Introspect reads column declarations for the named tables, or for every
// user table when none are named. The audit table is never listed.
func (s *Store) Introspect(ctx context.Context, tables ...string) ([]policy.TableInfo, error) {
	if len(tables) == 0 {
		names, err := s.listTables(ctx)
		if err != nil {
			return nil, err
		}
		tables = names
	}

	out := make([]policy.TableInfo, 0, len(tables))
	for _, name := range tables {
		cols, err := s.tableColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(cols) == 0 {
			return nil, fmt.Errorf("introspect: table %q not found", name)
		}
		out = append(out, policy.TableInfo{Name: name, Columns: cols})
	}
	return out, nil
}

func (s *Store) listTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name <> ?
		ORDER BY name`
	if s.driver == DriverPostgres {
		query = `
			SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' AND table_name <> ?
			ORDER BY table_name`
	}
	query, err := s.rebind(query)
	if err != nil {
		return nil, fmt.Errorf("introspect: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, auditTable)
	if err != nil {
		return nil, fmt.Errorf("introspect: list tables: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("introspect: scan table: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect: iterate tables: %w", err)
	}
	return names, nil
}

func (s *Store) tableColumns(ctx context.Context, table string) ([]policy.ColumnInfo, error) {
	query := `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`
	if s.driver == DriverPostgres {
		query = `
			SELECT column_name, data_type FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ?
			ORDER BY ordinal_position`
	}
	query, err := s.rebind(query)
	if err != nil {
		return nil, fmt.Errorf("introspect: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}
	defer rows.Close()

	var cols []policy.ColumnInfo
	for rows.Next() {
		var c policy.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DeclType); err != nil {
			return nil, fmt.Errorf("introspect %s: scan column: %w", table, err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect %s: iterate columns: %w", table, err)
	}
	return cols, nil
}
