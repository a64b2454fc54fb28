// internal/database/dialect.go
//
// Driver-specific SQL.
//
// Context
// -------
// Every query in the repository packages is written with `?` placeholders
// and portable syntax so it runs unchanged on MySQL and SQLite.  The two
// places where the engines genuinely differ are DDL: the embedded schema
// files, and the per-site options table created when a site is
// provisioned.  Both live here.
//
// Notes
// -----
//   • `{{prefix}}` in the schema files is replaced with the table prefix.
//     The prefix is validated as `[A-Za-z0-9_]+` by the config package.
//   • Oxford commas, two spaces after periods.

package database

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Dialect names a supported SQL engine.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// ParseDialect maps a config driver string to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case MySQL, SQLite:
		return Dialect(s), nil
	}
	return "", fmt.Errorf("database: unsupported driver %q", s)
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string { return string(d) }

// Schema returns the CREATE statements for the shared tables, one per
// element, with the prefix applied.
func (d Dialect) Schema(prefix string) ([]string, error) {
	raw, err := schemaFS.ReadFile("schema/" + string(d) + ".sql")
	if err != nil {
		return nil, err
	}
	body := strings.ReplaceAll(string(raw), "{{prefix}}", prefix)

	var out []string
	for _, chunk := range strings.Split(body, ";\n") {
		if isBlankSQL(chunk) {
			continue
		}
		out = append(out, strings.TrimSpace(chunk))
	}
	return out, nil
}

// OptionsTableDDL returns the CREATE statement for one site options table.
func (d Dialect) OptionsTableDDL(table string) string {
	if d == SQLite {
		return `CREATE TABLE IF NOT EXISTS ` + table + ` (
		    option_id     INTEGER PRIMARY KEY AUTOINCREMENT,
		    option_name   TEXT NOT NULL UNIQUE,
		    option_value  TEXT NOT NULL DEFAULT '',
		    autoload      TEXT NOT NULL DEFAULT 'yes'
		)`
	}
	return `CREATE TABLE IF NOT EXISTS ` + table + ` (
	    option_id     BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	    option_name   VARCHAR(191)    NOT NULL DEFAULT '',
	    option_value  LONGTEXT        NOT NULL,
	    autoload      VARCHAR(20)     NOT NULL DEFAULT 'yes',
	    PRIMARY KEY (option_id),
	    UNIQUE KEY option_name (option_name)
	) DEFAULT CHARSET = utf8mb4`
}

// Install applies the schema.  Every statement is idempotent, so running
// it against an existing install is harmless.
func Install(ctx context.Context, db *sqlx.DB, d Dialect, prefix string) error {
	stmts, err := d.Schema(prefix)
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("database: install: %w", err)
		}
	}
	return nil
}

// isBlankSQL reports whether chunk holds only whitespace and `--` comments.
func isBlankSQL(chunk string) bool {
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
