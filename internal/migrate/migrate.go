// Package migrate implements the custom numbered-file migration runner
// this system requires: a strict <version>_<name>.(up|down).sql naming
// contract and semicolon-split statement execution, grounded in idiom on
// the teacher's transactional bootstrap code but independent of
// golang-migrate (see DESIGN.md for why that dependency does not fit the
// naming contract here).
package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ashgate/pgframe/internal/dberr"
)

var fileRe = regexp.MustCompile(`^([0-9]+)_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

// Migration is one (version, name) pair with both its up and down SQL
// loaded from disk.
type Migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

// Load scans dir for migration files, validates the naming contract, and
// groups them into version-ordered Migrations. Every group must have
// exactly one up and one down file; either missing is a MigrationError.
func Load(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &dberr.MigrationError{Reason: "reading migrations directory", Err: err}
	}

	type half struct {
		version    int64
		name       string
		up, down   string
		haveUp     bool
		haveDown   bool
	}
	groups := map[string]*half{}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fileRe.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, &dberr.MigrationError{Reason: fmt.Sprintf("file %q does not match the migration naming contract", e.Name())}
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, &dberr.MigrationError{Reason: fmt.Sprintf("file %q has an unparseable version", e.Name()), Err: err}
		}
		name := m[2]
		direction := m[3]

		key := m[1] + "_" + name
		g, ok := groups[key]
		if !ok {
			g = &half{version: version, name: name}
			groups[key] = g
		}

		contents, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, &dberr.MigrationError{Reason: fmt.Sprintf("reading %q", e.Name()), Err: err}
		}

		switch direction {
		case "up":
			g.up = string(contents)
			g.haveUp = true
		case "down":
			g.down = string(contents)
			g.haveDown = true
		}
	}

	out := make([]Migration, 0, len(groups))
	for key, g := range groups {
		if !g.haveUp || !g.haveDown {
			return nil, &dberr.MigrationError{Reason: fmt.Sprintf("migration %q is missing its up or down file", key)}
		}
		out = append(out, Migration{Version: g.version, Name: g.name, UpSQL: g.up, DownSQL: g.down})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// bootstrapSQL creates the rwf_migrations and rwf_jobs tables if absent,
// matching the schema this system's query builder and job queue expect.
const bootstrapSQL = `
CREATE TABLE IF NOT EXISTS rwf_migrations (
  id         BIGSERIAL PRIMARY KEY,
  version    BIGINT  NOT NULL,
  name       VARCHAR NOT NULL UNIQUE,
  applied_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS rwf_jobs (
  id           BIGSERIAL PRIMARY KEY,
  name         VARCHAR NOT NULL,
  args         JSONB   NOT NULL DEFAULT '{}'::jsonb,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  start_after  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  started_at   TIMESTAMPTZ,
  attempts     INT  NOT NULL DEFAULT 0,
  retries      BIGINT NOT NULL DEFAULT 25,
  completed_at TIMESTAMPTZ,
  error        VARCHAR
);
`

// Bootstrap creates the framework tables and ensures every migration has a
// row in rwf_migrations, all inside one transaction.
func Bootstrap(ctx context.Context, conn *pgx.Conn, migrations []Migration) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return &dberr.MigrationError{Reason: "opening bootstrap transaction", Err: err}
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, bootstrapSQL); err != nil {
		return &dberr.MigrationError{Reason: "creating framework tables", Err: err}
	}

	for _, m := range migrations {
		_, err := tx.Exec(ctx,
			`INSERT INTO rwf_migrations (version, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
			m.Version, m.Name)
		if err != nil {
			return &dberr.MigrationError{Reason: fmt.Sprintf("registering migration %q", m.Name), Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &dberr.MigrationError{Reason: "committing bootstrap transaction", Err: err}
	}
	return nil
}

// Up applies every unapplied migration in ascending version order.
func Up(ctx context.Context, conn *pgx.Conn, migrations []Migration) error {
	for _, m := range migrations {
		var appliedAt *string
		err := conn.QueryRow(ctx, `SELECT applied_at FROM rwf_migrations WHERE name = $1`, m.Name).Scan(&appliedAt)
		if err != nil {
			return &dberr.MigrationError{Reason: fmt.Sprintf("checking status of %q", m.Name), Err: err}
		}
		if appliedAt != nil {
			continue
		}
		if err := applyOne(ctx, conn, m.Name, m.UpSQL, true); err != nil {
			return err
		}
	}
	return nil
}

// Down reverts every applied migration in descending version order.
func Down(ctx context.Context, conn *pgx.Conn, migrations []Migration) error {
	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version > sorted[j].Version })

	for _, m := range sorted {
		var appliedAt *string
		err := conn.QueryRow(ctx, `SELECT applied_at FROM rwf_migrations WHERE name = $1`, m.Name).Scan(&appliedAt)
		if err != nil {
			return &dberr.MigrationError{Reason: fmt.Sprintf("checking status of %q", m.Name), Err: err}
		}
		if appliedAt == nil {
			continue
		}
		if err := applyOne(ctx, conn, m.Name, m.DownSQL, false); err != nil {
			return err
		}
	}
	return nil
}

// applyOne runs one migration file's statements inside a transaction and
// stamps (or clears) applied_at on success. Splitting on ';' is part of
// the contract: migration SQL must not embed literal semicolons inside
// strings or function bodies without separating them into their own
// statements.
func applyOne(ctx context.Context, conn *pgx.Conn, name, sql string, up bool) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return &dberr.MigrationError{Reason: fmt.Sprintf("opening transaction for %q", name), Err: err}
	}
	defer tx.Rollback(ctx)

	for _, stmt := range strings.Split(sql, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return &dberr.MigrationError{Reason: fmt.Sprintf("executing statement in %q", name), Err: err}
		}
	}

	if up {
		if _, err := tx.Exec(ctx, `UPDATE rwf_migrations SET applied_at = NOW() WHERE name = $1`, name); err != nil {
			return &dberr.MigrationError{Reason: fmt.Sprintf("stamping %q applied", name), Err: err}
		}
	} else {
		if _, err := tx.Exec(ctx, `UPDATE rwf_migrations SET applied_at = NULL WHERE name = $1`, name); err != nil {
			return &dberr.MigrationError{Reason: fmt.Sprintf("clearing %q applied_at", name), Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &dberr.MigrationError{Reason: fmt.Sprintf("committing %q", name), Err: err}
	}
	return nil
}
