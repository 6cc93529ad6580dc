package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storelink/internal/apperr"
)

// TableSpec describes a table the handlers create on demand. Every table
// gets a serial id and a creation timestamp that defaults to NOW().
type TableSpec struct {
	Name          string
	Columns       []string
	CreatedColumn string
}

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

func ValidTableName(name string) bool {
	return tableNameRe.MatchString(name)
}

// Ident returns the quoted identifier for a table name.
func Ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (t TableSpec) CreateSQL() string {
	created := t.CreatedColumn
	if created == "" {
		created = "created_at"
	}
	cols := make([]string, 0, len(t.Columns)+2)
	cols = append(cols, "id SERIAL PRIMARY KEY")
	cols = append(cols, t.Columns...)
	cols = append(cols, created+" TIMESTAMP NOT NULL DEFAULT NOW()")
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", Ident(t.Name), strings.Join(cols, ",\n\t"))
}

// EnsureTable is safe to call on every request. Two first requests racing
// on CREATE TABLE IF NOT EXISTS can still collide on the catalog entries;
// PostgreSQL reports that as 23505 or 42P07 and it is treated as success.
func EnsureTable(ctx context.Context, conn Conn, t TableSpec) error {
	if !ValidTableName(t.Name) {
		return apperr.Persistence("ensure table", fmt.Errorf("invalid table name %q", t.Name))
	}
	if _, err := conn.Exec(ctx, t.CreateSQL()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "42P07") {
			return nil
		}
		return apperr.Persistence("ensure table "+t.Name, err)
	}
	return nil
}
