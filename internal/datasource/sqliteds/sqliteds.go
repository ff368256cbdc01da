// Package sqliteds is a row store backed by a SQLite database. Every table
// holds JSON records keyed by row name.
package sqliteds

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/matsen/bibnet/internal/config"
	"github.com/matsen/bibnet/internal/datasource"
)

// Type is the configuration type name.
const Type = "sqlite"

// Schema is the backend configuration schema.
var Schema = config.Schema{
	"init": config.Subtree(config.Schema{
		"location": config.Required(config.IsType(config.KindString)),
	}),
}

// Store is a RowSource over one SQLite file.
type Store struct {
	name string
	path string
	db   *sql.DB
	opts datasource.Options
}

var _ datasource.RowSource = (*Store)(nil)

// Open is the factory opener.
func Open(name string, cfg config.Tree, opts datasource.Options) (datasource.Source, error) {
	if _, err := cfg.Validate(Schema, true); err != nil {
		return nil, err
	}
	return New(name, cfg.String("", "init", "location"), opts)
}

// New opens (creating if needed) the database at path. ":memory:" is accepted.
func New(name, path string, opts datasource.Options) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &Store{name: name, path: path, db: db, opts: opts}, nil
}

func (s *Store) Kind() string { return Type }

// Path returns the database file.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	return s.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Tables returns the row tables in sorted order. Tables without the
// row_key and json columns, such as ones made through Query, are not row
// tables and are left out.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT m.name FROM sqlite_master m
WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%'
  AND EXISTS (SELECT 1 FROM pragma_table_info(m.name) WHERE name = 'row_key')
  AND EXISTS (SELECT 1 FROM pragma_table_info(m.name) WHERE name = 'json')
ORDER BY m.name`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CreateTable creates an empty row table if it does not exist.
func (s *Store) CreateTable(ctx context.Context, table string) error {
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  row_key TEXT PRIMARY KEY,\n  json TEXT NOT NULL\n)", quoteIdent(table))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}
	return nil
}

// DeleteTable drops a table and reports whether it existed.
func (s *Store) DeleteTable(ctx context.Context, table string) (bool, error) {
	exists, err := s.hasTable(ctx, table)
	if err != nil || !exists {
		return false, err
	}
	if _, err := s.db.ExecContext(ctx, "DROP TABLE "+quoteIdent(table)); err != nil {
		return false, fmt.Errorf("dropping table %s: %w", table, err)
	}
	return true, nil
}

func (s *Store) hasTable(ctx context.Context, table string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return n > 0, nil
}

// keyspace is a snapshot of tables and row names for one resolution. The
// resolver cannot return errors from a key space, so the first one is kept.
type keyspace struct {
	ctx    context.Context
	s      *Store
	tables []string
	err    error
}

func (s *Store) keyspace(ctx context.Context) *keyspace {
	ks := &keyspace{ctx: ctx, s: s}
	ks.tables, ks.err = s.Tables(ctx)
	return ks
}

func (k *keyspace) Partitions() []string { return k.tables }

func (k *keyspace) Names(table string) []string {
	if k.err != nil || !k.has(table) {
		return nil
	}
	rows, err := k.s.db.QueryContext(k.ctx, fmt.Sprintf("SELECT row_key FROM %s ORDER BY row_key", quoteIdent(table)))
	if err != nil {
		k.err = fmt.Errorf("listing rows of %s: %w", table, err)
		return nil
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			k.err = err
			return nil
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		k.err = err
	}
	return names
}

func (k *keyspace) has(table string) bool {
	for _, t := range k.tables {
		if t == table {
			return true
		}
	}
	return false
}

func (s *Store) resolve(ctx context.Context, spec datasource.Spec[datasource.RowKey]) ([]datasource.RowKey, *keyspace, error) {
	ks := s.keyspace(ctx)
	keys, err := datasource.ResolveRows(spec, ks)
	if err != nil {
		return nil, nil, err
	}
	if ks.err != nil {
		return nil, nil, ks.err
	}
	return keys, ks, nil
}

func (s *Store) get(ctx context.Context, k datasource.RowKey) (datasource.Record, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT json FROM %s WHERE row_key = ?", quoteIdent(k.Table)), k.Row).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading row %s: %w", k, err)
	}
	var rec datasource.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false, fmt.Errorf("decoding row %s: %w", k, err)
	}
	if rec == nil {
		rec = datasource.Record{}
	}
	return rec, true, nil
}

func (s *Store) put(ctx context.Context, k datasource.RowKey, rec datasource.Record, tables map[string]bool) error {
	if !tables[k.Table] {
		if err := s.CreateTable(ctx, k.Table); err != nil {
			return err
		}
		tables[k.Table] = true
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding row %s: %w", k, err)
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT OR REPLACE INTO %s (row_key, json) VALUES (?, ?)", quoteIdent(k.Table)), k.Row, string(data))
	if err != nil {
		return fmt.Errorf("writing row %s: %w", k, err)
	}
	return nil
}

func tableSet(ks *keyspace) map[string]bool {
	set := make(map[string]bool, len(ks.tables))
	for _, t := range ks.tables {
		set[t] = true
	}
	return set
}

// CreateRow writes value under every resolved key. Missing tables are created.
func (s *Store) CreateRow(ctx context.Context, spec datasource.Spec[datasource.RowKey], value datasource.Record) ([]datasource.RowKey, error) {
	keys, ks, err := s.resolve(ctx, spec)
	var applied []datasource.RowKey
	if err == nil {
		tables := tableSet(ks)
		for _, k := range keys {
			if err = s.put(ctx, k, value, tables); err != nil {
				break
			}
			applied = append(applied, k)
		}
	}
	s.opts.Metrics.Observe(s.name, "row", "create", len(applied), err)
	return applied, err
}

func (s *Store) ReadRow(ctx context.Context, spec datasource.Spec[datasource.RowKey]) (map[datasource.RowKey]datasource.Record, error) {
	keys, ks, err := s.resolve(ctx, spec)
	if err != nil {
		s.opts.Metrics.Observe(s.name, "row", "read", 0, err)
		return nil, err
	}
	out := make(map[datasource.RowKey]datasource.Record)
	for _, k := range keys {
		if !ks.has(k.Table) {
			continue
		}
		rec, ok, err := s.get(ctx, k)
		if err != nil {
			s.opts.Metrics.Observe(s.name, "row", "read", len(out), err)
			return nil, err
		}
		if ok {
			out[k] = rec
		}
	}
	s.opts.Metrics.Observe(s.name, "row", "read", len(out), nil)
	return out, nil
}

// UpdateRow merges value into every resolved row, creating absent rows and tables.
func (s *Store) UpdateRow(ctx context.Context, spec datasource.Spec[datasource.RowKey], value datasource.Record) ([]datasource.RowKey, error) {
	keys, ks, err := s.resolve(ctx, spec)
	var applied []datasource.RowKey
	if err == nil {
		tables := tableSet(ks)
		for _, k := range keys {
			rec := datasource.Record{}
			if tables[k.Table] {
				existing, ok, gerr := s.get(ctx, k)
				if gerr != nil {
					err = gerr
					break
				}
				if ok {
					rec = existing
				}
			}
			rec.Merge(value)
			if err = s.put(ctx, k, rec, tables); err != nil {
				break
			}
			applied = append(applied, k)
		}
	}
	s.opts.Metrics.Observe(s.name, "row", "update", len(applied), err)
	return applied, err
}

func (s *Store) DeleteRow(ctx context.Context, spec datasource.Spec[datasource.RowKey]) (int, error) {
	keys, ks, err := s.resolve(ctx, spec)
	n := 0
	if err == nil {
		for _, k := range keys {
			if !ks.has(k.Table) {
				continue
			}
			res, xerr := s.db.ExecContext(ctx,
				fmt.Sprintf("DELETE FROM %s WHERE row_key = ?", quoteIdent(k.Table)), k.Row)
			if xerr != nil {
				err = fmt.Errorf("deleting row %s: %w", k, xerr)
				break
			}
			affected, _ := res.RowsAffected()
			n += int(affected)
		}
	}
	s.opts.Metrics.Observe(s.name, "row", "delete", n, err)
	return n, err
}

// Query runs raw SQL. Statements that return rows yield one record per row;
// anything else yields a single {"rows_affected": n} record.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]datasource.Record, error) {
	if !returnsRows(query) {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("executing statement: %w", err)
		}
		n, _ := res.RowsAffected()
		return []datasource.Record{{"rows_affected": n}}, nil
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func returnsRows(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT", "WITH", "PRAGMA", "EXPLAIN", "VALUES":
		return true
	}
	return false
}

func scanRecords(rows *sql.Rows) ([]datasource.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records []datasource.Record
	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		record := make(datasource.Record, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
				continue
			}
			record[col] = values[i]
		}
		records = append(records, record)
	}

	return records, rows.Err()
}
