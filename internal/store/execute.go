package store

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/roach88/jsonsql/internal/ir"
	"github.com/roach88/jsonsql/internal/querysql"
)

// Execute runs a compiled statement and returns its rows keyed by column
// name. The statement's `?` placeholders are rebound to the driver's style.
//
// Returns an empty slice (not nil) if the query yields no rows.
func (s *Store) Execute(ctx context.Context, stmt querysql.Statement) ([]ir.IRObject, error) {
	if n := querysql.CountPlaceholders(stmt.SQL); n != len(stmt.Params) {
		return nil, fmt.Errorf("execute: %d placeholders but %d params", n, len(stmt.Params))
	}

	query, err := s.rebind(stmt.SQL)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, stmt.Params...)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("execute: columns: %w", err)
	}

	out := []ir.IRObject{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("execute: scan: %w", err)
		}

		row := make(ir.IRObject, len(cols))
		for i, col := range cols {
			v, err := scanValue(vals[i])
			if err != nil {
				return nil, fmt.Errorf("execute: column %s: %w", col, err)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("execute: iterate rows: %w", err)
	}
	return out, nil
}

// scanValue converts a driver value to an IRValue.
func scanValue(v any) (ir.IRValue, error) {
	switch val := v.(type) {
	case nil:
		return ir.IRNull{}, nil
	case []byte:
		return ir.IRString(val), nil
	case int32:
		return ir.IRInt(val), nil
	case int16:
		return ir.IRInt(val), nil
	case float32:
		return ir.IRFloat(val), nil
	case time.Time:
		return ir.IRString(val.UTC().Format(time.RFC3339Nano)), nil
	case *big.Int:
		if !val.IsInt64() {
			return ir.IRString(val.String()), nil
		}
		return ir.IRInt(val.Int64()), nil
	default:
		return ir.FromGo(v)
	}
}
