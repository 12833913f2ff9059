package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

func (s *PgStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	cols, ok := tableColumns[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	var (
		names        []string
		placeholders []string
		args         []any
	)
	for _, col := range cols {
		val, ok := row[col]
		if !ok {
			continue
		}
		names = append(names, col)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(names)))
		args = append(args, val)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		table,
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(cols, ", "),
	)

	res := s.conn.QueryRowContext(ctx, query, args...)

	saved, err := scanRow(res, cols)
	if err != nil {
		return nil, fmt.Errorf("insert into %s: %w", table, err)
	}

	return saved, nil
}

func (s *PgStore) Update(ctx context.Context, table string, where Predicate, patch Row) error {
	if _, ok := tableColumns[table]; !ok {
		return fmt.Errorf("unknown table %q", table)
	}

	var (
		sets []string
		args []any
	)
	for _, col := range sortedKeys(patch) {
		if !validColumn(table, col) {
			return fmt.Errorf("unknown column %q", col)
		}
		args = append(args, patch[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	conds, args := buildWhere(where, args)

	query := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(sets, ", "))
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}

	return nil
}

func (s *PgStore) Query(ctx context.Context, table string, where Predicate, opts *QueryOpts) ([]Row, error) {
	cols, ok := tableColumns[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	conds, args := buildWhere(where, nil)

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if opts != nil && opts.OrderBy != "" {
		if !validColumn(table, opts.OrderBy) {
			return nil, fmt.Errorf("unknown order column %q", opts.OrderBy)
		}
		query += " ORDER BY " + opts.OrderBy
		if opts.Desc {
			query += " DESC"
		}
	}
	if opts != nil && opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		row, err := scanRow(rows, cols)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(src scanner, cols []string) (Row, error) {
	values := make([]any, len(cols))
	dests := make([]any, len(cols))
	for i := range values {
		dests[i] = &values[i]
	}

	if err := src.Scan(dests...); err != nil {
		return nil, err
	}

	row := make(Row, len(cols))
	for i, col := range cols {
		switch v := values[i].(type) {
		case []byte:
			row[col] = string(v)
		case int64:
			row[col] = int(v)
		case nil:
			// leave absent so zero values apply
		default:
			row[col] = v
		}
	}

	return row, nil
}

func buildWhere(where Predicate, args []any) ([]string, []any) {
	var conds []string
	for _, col := range sortedKeys(Row(where)) {
		args = append(args, where[col])
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	return conds, args
}

func sortedKeys(row Row) []string {
	keys := make([]string, 0, len(row))
	for col := range row {
		keys = append(keys, col)
	}
	sort.Strings(keys)
	return keys
}

func validColumn(table, col string) bool {
	for _, cand := range tableColumns[table] {
		if cand == col {
			return true
		}
	}
	return false
}
