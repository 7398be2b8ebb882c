/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "floorplan/internal/log"
	"floorplan/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	IndexDirName  = ".fp"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema. Bump it together with a
	// new case in runMigrations.
	schemaVersion = 2
)

// IndexPath returns the path of the project's index database.
func IndexPath(projectRoot string) string {
	return filepath.Join(projectRoot, IndexDirName, IndexFileName)
}

// Index is an open per-project index database.
type Index struct {
	db   *sql.DB
	root string
}

// OpenIndex opens (creating if needed) the index of projectRoot.
func OpenIndex(projectRoot string) (*Index, error) {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	return &Index{db: db, root: projectRoot}, nil
}

// DB exposes the underlying handle.
func (ix *Index) DB() *sql.DB { return ix.db }

func (ix *Index) Close() error {
	if ix == nil || ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

// InitOrOpenIndex ensures <root>/.fp/index.sqlite exists, opens it in WAL
// mode and brings the schema up to date.
func InitOrOpenIndex(projectRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", projectRoot),
	)
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	if err := os.MkdirAll(filepath.Join(projectRoot, IndexDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create %s dir: %w", IndexDirName, err)
	}

	path := IndexPath(projectRoot)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	steps := []struct {
		name string
		fn   func(context.Context, *sql.DB) error
	}{
		{"enable WAL", func(ctx context.Context, db *sql.DB) error {
			_, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
			return err
		}},
		{"ensure meta/version", ensureMetaAndVersion},
		{"ensure schema", ensureIndexSchema},
		{"run migrations", runMigrations},
	}
	for _, s := range steps {
		if err := s.fn(ctx, db); err != nil {
			_ = db.Close()
			l.Error(s.name+" failed", slog.Any("err", err))
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
	}
	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// language=SQL
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		// language=SQL
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// new databases start at the baseline and migrate forward
		_, err = db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`,
			version.String(), now, now)
	case err == nil:
		_, err = db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now)
	}
	if err != nil {
		return fmt.Errorf("version row: %w", err)
	}
	return nil
}

// ensureIndexSchema creates the tables of schema version 1.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// language=SQL
		`CREATE TABLE IF NOT EXISTS revisions (
			id      INTEGER PRIMARY KEY,
			ts      TEXT    NOT NULL,
			markup  TEXT    NOT NULL,
			shapes  INTEGER NOT NULL DEFAULT 0,
			hash    TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_revisions_ts ON revisions(ts);`,
		// language=SQL
		`CREATE TABLE IF NOT EXISTS previews (
			id          INTEGER PRIMARY KEY,
			revision_id INTEGER NOT NULL,
			w           INTEGER NOT NULL,
			h           INTEGER NOT NULL,
			png         BLOB    NOT NULL,
			size        INTEGER NOT NULL,
			updated_at  TEXT    NOT NULL,
			last_access TEXT,
			FOREIGN KEY(revision_id) REFERENCES revisions(id) ON DELETE CASCADE
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_previews_variant ON previews(revision_id, w, h);`,
		`CREATE INDEX IF NOT EXISTS idx_previews_access ON previews(last_access);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		applog.WithComponent("storage").Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	return nil
}

// runMigrations upgrades the stored schema one step at a time.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			// revisions remember which sink produced them
			stmts = []string{
				`ALTER TABLE revisions ADD COLUMN source TEXT NOT NULL DEFAULT 'local';`,
				`CREATE INDEX IF NOT EXISTS idx_revisions_hash ON revisions(hash);`,
			}
		}
		if err := migrate(ctx, db, next, stmts); err != nil {
			return err
		}
		cur = next
	}
	return nil
}

func migrate(ctx context.Context, db *sql.DB, to int, stmts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", to, err)
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: %w", to, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, to, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration %d update version: %w", to, err)
	}
	return tx.Commit()
}

// SchemaVersion reports the schema version stored in the index.
func (ix *Index) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := ix.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}
