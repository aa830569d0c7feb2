package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/atrium/pkg/panel"
)

// Column is a selected column. Expr defaults to the quoted Name; a
// dotted Name ("category.name") becomes a nested path readable through
// panel.Record.Get.
type Column struct {
	Name string
	Expr string
}

// Table describes a database-backed resource query.
type Table struct {
	// Name is the table name.
	Name string

	// Columns are the selected columns. Only these columns may be
	// filtered or sorted on.
	Columns []Column

	// Joins are raw JOIN clauses appended after FROM.
	Joins []string

	// DefaultSort is the column used when the request does not sort.
	DefaultSort string
}

// SQL is a Queryable over one table. Equality filters and sorting are
// taken from the context query parameters and validated against the
// declared columns; unknown columns are ignored.
type SQL struct {
	db     *sql.DB
	table  Table
	logger *slog.Logger
}

// NewSQL creates a table-backed source.
func NewSQL(db *sql.DB, table Table) (*SQL, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if table.Name == "" {
		return nil, fmt.Errorf("table name cannot be empty")
	}
	if len(table.Columns) == 0 {
		return nil, fmt.Errorf("table %q: at least one column is required", table.Name)
	}

	return &SQL{
		db:     db,
		table:  table,
		logger: slog.Default().With("component", "datasource.sql", "table", table.Name),
	}, nil
}

// Cursor runs the query and streams its rows.
func (s *SQL) Cursor(ctx context.Context) (panel.Cursor, error) {
	query, args := s.build(panel.QueryParams(ctx))

	s.logger.Debug("opening cursor", "query", query, "args", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewQueryError(s.table.Name, "query", err)
	}

	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, NewQueryError(s.table.Name, "columns", err)
	}

	return &sqlCursor{table: s.table.Name, rows: rows, columns: cols}, nil
}

func (s *SQL) build(params url.Values) (string, []any) {
	var b strings.Builder

	b.WriteString("SELECT ")
	for i, c := range s.table.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(s.expr(c))
		b.WriteString(" AS ")
		b.WriteString(quoteIdent(c.Name))
	}
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(s.table.Name))
	for _, j := range s.table.Joins {
		b.WriteByte(' ')
		b.WriteString(j)
	}

	var (
		where []string
		args  []any
	)
	filters := Filters(params)
	cols := make([]string, 0, len(filters))
	for col := range filters {
		cols = append(cols, col)
	}
	slices.Sort(cols)
	for _, col := range cols {
		c, ok := s.column(col)
		if !ok {
			continue
		}
		where = append(where, s.expr(c)+" = ?")
		args = append(args, filters[col])
	}
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	sortCol, order := Sort(params)
	if _, ok := s.column(sortCol); !ok {
		sortCol, order = s.table.DefaultSort, "asc"
	}
	if c, ok := s.column(sortCol); ok {
		fmt.Fprintf(&b, " ORDER BY %s %s", s.expr(c), strings.ToUpper(order))
	}

	return b.String(), args
}

func (s *SQL) column(name string) (Column, bool) {
	if name == "" {
		return Column{}, false
	}
	for _, c := range s.table.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (s *SQL) expr(c Column) string {
	if c.Expr != "" {
		return c.Expr
	}
	return quoteIdent(s.table.Name) + "." + quoteIdent(c.Name)
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type sqlCursor struct {
	table   string
	rows    *sql.Rows
	columns []string
	current panel.Record
	err     error
}

func (c *sqlCursor) Next() bool {
	if c.err != nil {
		return false
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			c.err = NewQueryError(c.table, "iterate", err)
		}
		return false
	}

	values := make([]any, len(c.columns))
	ptrs := make([]any, len(c.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = NewQueryError(c.table, "scan", err)
		return false
	}

	rec := make(panel.Record, len(c.columns))
	for i, col := range c.columns {
		rec[col] = normalize(values[i])
	}
	c.current = rec

	return true
}

func (c *sqlCursor) Record() panel.Record { return c.current }

func (c *sqlCursor) Err() error { return c.err }

func (c *sqlCursor) Close() error { return c.rows.Close() }

// normalize converts driver values into plain Go values.
func normalize(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC()
	default:
		return val
	}
}

// SQLiteConfig contains configuration for a SQLite source database.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/atrium.db",
		MaxOpenConns: 4,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// OpenSQLite opens a SQLite source database.
func OpenSQLite(config *SQLiteConfig) (*sql.DB, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, NewQueryError("sqlite", "open", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}

	if config.WALMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, NewQueryError("sqlite", "enable_wal", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", config.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, NewQueryError("sqlite", "set_busy_timeout", err)
	}

	slog.Default().With("component", "datasource.sqlite").Info("SQLite source opened",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return db, nil
}
