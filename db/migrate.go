package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/kgraph/errors"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationsDir = "sqlite/migrations"

// migration is one embedded schema file. Files are named NNN_description.sql
// and run in version order, each in its own transaction.
type migration struct {
	version string
	file    string
}

func embeddedMigrations() ([]migration, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read embedded migrations")
	}
	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version, _, _ := strings.Cut(e.Name(), "_")
		out = append(out, migration{version: version, file: e.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// Migrate brings the schema of conn up to date. Already recorded versions are
// skipped, so running it again is a no-op. logger may be nil.
func Migrate(conn *sql.DB, logger *zap.SugaredLogger) error {
	all, err := embeddedMigrations()
	if err != nil {
		return err
	}
	done, err := recordedVersions(conn)
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range all {
		if done[m.version] {
			continue
		}
		if logger != nil {
			logger.Infow("Applying migration", "migration", m.file, "version", m.version)
		}
		if err := apply(conn, m); err != nil {
			return err
		}
		applied++
	}

	if logger != nil {
		logger.Debugw("Schema up to date", "known", len(all), "applied", applied)
	}
	return nil
}

// recordedVersions returns the versions in schema_migrations, or none on a
// database that has not been migrated yet.
func recordedVersions(conn *sql.DB) (map[string]bool, error) {
	var tables int
	err := conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'").Scan(&tables)
	if err != nil {
		return nil, Classify(err, "inspect schema")
	}
	done := make(map[string]bool)
	if tables == 0 {
		return done, nil
	}
	versions, err := AppliedVersions(conn)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		done[v] = true
	}
	return done, nil
}

// apply runs one migration and records its version in the same transaction.
func apply(conn *sql.DB, m migration) error {
	body, err := migrations.ReadFile(path.Join(migrationsDir, m.file))
	if err != nil {
		return errors.Wrapf(err, "read %s", m.file)
	}
	tx, err := conn.Begin()
	if err != nil {
		return Classify(err, "begin "+m.file)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(body)); err != nil {
		return errors.Wrapf(err, "execute %s", m.file)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return errors.Wrapf(err, "record %s", m.file)
	}
	return errors.Wrapf(tx.Commit(), "commit %s", m.file)
}

// AppliedVersions lists the recorded migration versions in order.
func AppliedVersions(conn *sql.DB) ([]string, error) {
	rows, err := conn.Query("SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, Classify(err, "query schema_migrations")
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "scan schema_migrations")
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
