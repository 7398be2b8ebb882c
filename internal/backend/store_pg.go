/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package backend

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	applog "floorplan/internal/log"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PGStore keeps plans in PostgreSQL through the pgx stdlib driver.
type PGStore struct {
	db *sql.DB
}

// OpenPGStore connects to dsn, verifies the connection and applies migrations.
func OpenPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PGStore{db: db}, nil
}

// NewPGStore wraps an already migrated handle.
func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) Close() error { return s.db.Close() }

func (s *PGStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

const planColumns = `id, name, scale, floor_plan_svg, floor_plan_locked, version, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.Name, &p.Scale, &p.SVG, &p.Locked, &p.Version, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, ErrNotFound
	}
	return p, err
}

func (s *PGStore) ListPlans(ctx context.Context) ([]Plan, error) {
	// dialect=PostgreSQL
	rows, err := s.db.QueryContext(ctx, `SELECT `+planColumns+` FROM plans ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) CreatePlan(ctx context.Context, name string, scale float64) (Plan, error) {
	if scale == 0 {
		scale = 1
	}
	if err := validateUpdate(PlanUpdate{Name: &name, Scale: &scale}); err != nil {
		return Plan{}, err
	}
	// dialect=PostgreSQL
	row := s.db.QueryRowContext(ctx, `INSERT INTO plans(id, name, scale) VALUES($1,$2,$3) RETURNING `+planColumns,
		uuid.NewString(), name, scale)
	return scanPlan(row)
}

func (s *PGStore) GetPlan(ctx context.Context, id string) (Plan, error) {
	// dialect=PostgreSQL
	return scanPlan(s.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
}

// UpdatePlan applies a partial update in one transaction and records a
// revision when the markup changed.
func (s *PGStore) UpdatePlan(ctx context.Context, id string, upd PlanUpdate) (Plan, error) {
	if err := validateUpdate(upd); err != nil {
		return Plan{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Plan{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// dialect=PostgreSQL
	cur, err := scanPlan(tx.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return Plan{}, err
	}
	next := cur
	if !applyUpdate(&next, upd) {
		return cur, tx.Commit()
	}
	// dialect=PostgreSQL
	row := tx.QueryRowContext(ctx, `UPDATE plans SET name=$2, scale=$3, floor_plan_svg=$4, floor_plan_locked=$5,
		version = version + 1, updated_at = now() WHERE id = $1 RETURNING `+planColumns,
		id, next.Name, next.Scale, next.SVG, next.Locked)
	out, err := scanPlan(row)
	if err != nil {
		return Plan{}, err
	}
	if out.SVG != cur.SVG {
		if _, err := tx.ExecContext(ctx, `INSERT INTO plan_revisions(plan_id, version, svg) VALUES($1,$2,$3)`,
			id, out.Version, out.SVG); err != nil {
			return Plan{}, fmt.Errorf("record revision: %w", err)
		}
	}
	return out, tx.Commit()
}

// applyMigrations applies embedded SQL migrations in filename order.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	l := applog.WithComponent("backend")
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	// dialect=PostgreSQL
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	applied := map[int64]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}
		l.Info("applying migration", slog.String("file", fname))
		if _, err := db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1,$2)`, version, fname); err != nil {
			return fmt.Errorf("record %s: %w", fname, err)
		}
	}
	return nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	parts := strings.SplitN(base, "_", 2)
	if len(parts) < 2 {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}
