// Package migrations embeds the schema for each SQL driver.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed mysql/*.sql postgres/*.sql
var files embed.FS

// Statements returns the statements of every migration for driver, in file
// order. Statements are split on ";" at line ends.
func Statements(driver string) ([]string, error) {
	names, err := fs.Glob(files, driver+"/*.sql")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		b, err := files.ReadFile(name)
		if err != nil {
			return nil, err
		}
		for _, stmt := range strings.Split(string(b), ";\n") {
			if s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(stmt), ";")); s != "" {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// Apply runs every statement for driver. The schema uses IF NOT EXISTS, so
// re-running is harmless.
func Apply(ctx context.Context, db *sql.DB, driver string) (int, error) {
	stmts, err := Statements(driver)
	if err != nil {
		return 0, err
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return i, fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}
	return len(stmts), nil
}
