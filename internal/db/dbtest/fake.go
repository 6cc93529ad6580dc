// Package dbtest is an in-memory stand-in for a single PostgreSQL connection.
// It understands just enough SQL for the statements in package db: CREATE
// TABLE IF NOT EXISTS, INSERT with optional ON CONFLICT DO UPDATE, and
// QueryRow answered by registered handlers.
package dbtest

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storelink/internal/db"
)

type Row map[string]any

type QueryFunc func(args []any) ([]any, error)

type Fake struct {
	mu sync.Mutex

	tables     map[string][]Row
	statements []string
	nextID     int64
	now        time.Time

	Connects int
	Closes   int

	ConnectErr error
	// FailExec, when set, is consulted before every Exec.
	FailExec func(sql string, args []any) error
	// Queries maps a substring of a SELECT to the handler answering it.
	Queries map[string]QueryFunc
}

func New() *Fake {
	return &Fake{
		tables:  map[string][]Row{},
		Queries: map[string]QueryFunc{},
		now:     time.Date(2025, 10, 14, 8, 0, 0, 0, time.UTC),
	}
}

// tick advances the fake clock by one second per NOW().
func (f *Fake) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func (f *Fake) Connect(ctx context.Context) (db.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connects++
	if f.ConnectErr != nil {
		return nil, f.ConnectErr
	}
	return &conn{f: f}, nil
}

func (f *Fake) Rows(table string) []Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Row, 0, len(f.tables[table]))
	for _, r := range f.tables[table] {
		cp := Row{}
		for k, v := range r {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

func (f *Fake) HasTable(table string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tables[table]
	return ok
}

// Seed inserts a row directly, bypassing SQL.
func (f *Fake) Seed(table string, r Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r["id"] = f.nextID
	f.tables[table] = append(f.tables[table], r)
}

func (f *Fake) Statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.statements...)
}

// Writes counts statements that would mutate data.
func (f *Fake) Writes() int {
	n := 0
	for _, s := range f.Statements() {
		if strings.HasPrefix(s, "INSERT") || strings.HasPrefix(s, "UPDATE") || strings.HasPrefix(s, "DELETE") {
			n++
		}
	}
	return n
}

type conn struct {
	f *Fake
}

var (
	createRe   = regexp.MustCompile(`^CREATE TABLE IF NOT EXISTS "?([a-z0-9_]+)"?`)
	insertRe   = regexp.MustCompile(`^INSERT INTO "?([a-z0-9_]+)"? \(([^)]*)\)`)
	conflictRe = regexp.MustCompile(`(?s)ON CONFLICT \((\w+)\) DO UPDATE SET (.*)$`)
)

func (c *conn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f := c.f
	f.mu.Lock()
	defer f.mu.Unlock()

	sql = strings.TrimSpace(sql)
	f.statements = append(f.statements, sql)

	if f.FailExec != nil {
		if err := f.FailExec(sql, args); err != nil {
			return pgconn.CommandTag{}, err
		}
	}

	if m := createRe.FindStringSubmatch(sql); m != nil {
		if _, ok := f.tables[m[1]]; !ok {
			f.tables[m[1]] = nil
		}
		return pgconn.NewCommandTag("CREATE TABLE"), nil
	}

	if m := insertRe.FindStringSubmatch(sql); m != nil {
		return f.insert(m[1], splitTop(m[2]), sql, args)
	}

	return pgconn.NewCommandTag(""), nil
}

func (f *Fake) insert(table string, cols []string, sql string, args []any) (pgconn.CommandTag, error) {
	vals, err := f.values(sql, args)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	if len(vals) != len(cols) {
		return pgconn.CommandTag{}, fmt.Errorf("dbtest: %d columns but %d values", len(cols), len(vals))
	}
	row := Row{}
	for i, col := range cols {
		row[col] = vals[i]
	}
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = f.tick()
	}

	if m := conflictRe.FindStringSubmatch(sql); m != nil {
		key := m[1]
		for _, existing := range f.tables[table] {
			if existing[key] != row[key] {
				continue
			}
			for _, assign := range splitTop(m[2]) {
				parts := strings.SplitN(assign, "=", 2)
				target := strings.TrimSpace(parts[0])
				src := strings.TrimSpace(parts[1])
				switch {
				case strings.HasPrefix(src, "EXCLUDED."):
					existing[target] = row[strings.TrimPrefix(src, "EXCLUDED.")]
				case src == "NOW()":
					existing[target] = f.tick()
				default:
					return pgconn.CommandTag{}, fmt.Errorf("dbtest: unsupported assignment %q", assign)
				}
			}
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		}
	}

	f.nextID++
	row["id"] = f.nextID
	f.tables[table] = append(f.tables[table], row)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *Fake) values(sql string, args []any) ([]any, error) {
	i := strings.Index(sql, "VALUES")
	if i < 0 {
		return nil, fmt.Errorf("dbtest: no VALUES in %q", sql)
	}
	rest := sql[i+len("VALUES"):]
	open := strings.Index(rest, "(")
	if open < 0 {
		return nil, fmt.Errorf("dbtest: malformed VALUES")
	}
	depth, end := 0, -1
	for j := open; j < len(rest); j++ {
		switch rest[j] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 {
			end = j
			break
		}
	}
	if end < 0 {
		return nil, fmt.Errorf("dbtest: unbalanced VALUES")
	}

	var out []any
	for _, tok := range splitTop(rest[open+1 : end]) {
		switch {
		case strings.HasPrefix(tok, "$"):
			n, err := strconv.Atoi(tok[1:])
			if err != nil || n < 1 || n > len(args) {
				return nil, fmt.Errorf("dbtest: bad placeholder %s", tok)
			}
			out = append(out, args[n-1])
		case tok == "NOW()":
			out = append(out, f.tick())
		case strings.HasPrefix(tok, "'"):
			out = append(out, strings.Trim(tok, "'"))
		default:
			return nil, fmt.Errorf("dbtest: unsupported value %q", tok)
		}
	}
	return out, nil
}

// splitTop splits on commas that are not inside parentheses.
func splitTop(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(s[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func (c *conn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f := c.f
	f.mu.Lock()
	f.statements = append(f.statements, strings.TrimSpace(sql))
	keys := make([]string, 0, len(f.Queries))
	for k := range f.Queries {
		keys = append(keys, k)
	}
	f.mu.Unlock()

	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(sql, k) {
			vals, err := f.Queries[k](args)
			return &row{vals: vals, err: err}
		}
	}
	return &row{err: fmt.Errorf("dbtest: unexpected query %q", sql)}
}

func (c *conn) Close(ctx context.Context) error {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.Closes++
	return nil
}

type row struct {
	vals []any
	err  error
}

func (r *row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return fmt.Errorf("dbtest: scan %d values into %d targets", len(r.vals), len(dest))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		v := reflect.ValueOf(r.vals[i])
		if !v.Type().ConvertibleTo(target.Type()) {
			return fmt.Errorf("dbtest: cannot scan %T into %s", r.vals[i], target.Type())
		}
		target.Set(v.Convert(target.Type()))
	}
	return nil
}

// NoRows answers a query with pgx.ErrNoRows.
func NoRows(args []any) ([]any, error) {
	return nil, pgx.ErrNoRows
}
