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
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	applog "floorplan/internal/log"
)

// Revision sources.
const (
	SourceLocal   = "local"
	SourceBackend = "backend"
	SourceRestore = "restore"
)

// DefaultKeepRevisions is how many revisions PruneRevisions keeps when asked
// for a non-positive count.
const DefaultKeepRevisions = 200

// Revision is one recorded version of the floor plan markup.
type Revision struct {
	ID     int64
	TS     time.Time
	Markup string
	Shapes int
	Hash   string
	Source string
}

// MarkupHash returns the hex sha256 of markup.
func MarkupHash(markup string) string {
	sum := sha256.Sum256([]byte(markup))
	return hex.EncodeToString(sum[:])
}

// SaveRevision appends markup as a new revision. When the latest revision
// already holds identical markup its id is returned and nothing is written.
func (ix *Index) SaveRevision(ctx context.Context, markup string, shapes int, source string) (int64, error) {
	if source == "" {
		source = SourceLocal
	}
	hash := MarkupHash(markup)
	var (
		lastID   int64
		lastHash string
	)
	err := ix.db.QueryRowContext(ctx, `SELECT id, hash FROM revisions ORDER BY id DESC LIMIT 1`).Scan(&lastID, &lastHash)
	switch {
	case err == nil && lastHash == hash:
		return lastID, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("latest revision: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := ix.db.ExecContext(ctx, `INSERT INTO revisions(ts, markup, shapes, hash, source) VALUES(?,?,?,?,?)`,
		now, markup, shapes, hash, source)
	if err != nil {
		return 0, fmt.Errorf("insert revision: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	applog.WithComponent("storage").Debug("revision saved",
		slog.Int64("id", id), slog.Int("shapes", shapes), slog.String("source", source))
	return id, nil
}

// LatestRevision returns the newest revision; ok is false when none exist.
func (ix *Index) LatestRevision(ctx context.Context) (Revision, bool, error) {
	row := ix.db.QueryRowContext(ctx, `SELECT id, ts, markup, shapes, hash, source FROM revisions ORDER BY id DESC LIMIT 1`)
	r, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, false, nil
	}
	if err != nil {
		return Revision{}, false, fmt.Errorf("latest revision: %w", err)
	}
	return r, true, nil
}

// GetRevision returns the revision with the given id.
func (ix *Index) GetRevision(ctx context.Context, id int64) (Revision, bool, error) {
	row := ix.db.QueryRowContext(ctx, `SELECT id, ts, markup, shapes, hash, source FROM revisions WHERE id=?`, id)
	r, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, false, nil
	}
	if err != nil {
		return Revision{}, false, fmt.Errorf("get revision %d: %w", id, err)
	}
	return r, true, nil
}

// ListRevisions returns up to limit revisions, newest first. Markup is left
// empty; use GetRevision for the body.
func (ix *Index) ListRevisions(ctx context.Context, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := ix.db.QueryContext(ctx, `SELECT id, ts, shapes, hash, source FROM revisions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()
	var out []Revision
	for rows.Next() {
		var (
			r  Revision
			ts string
		)
		if err := rows.Scan(&r.ID, &ts, &r.Shapes, &r.Hash, &r.Source); err != nil {
			return nil, err
		}
		r.TS, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneRevisions deletes all but the newest keep revisions together with
// their previews and reports how many revisions were removed.
func (ix *Index) PruneRevisions(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		keep = DefaultKeepRevisions
	}
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	const cutoff = `SELECT id FROM revisions ORDER BY id DESC LIMIT -1 OFFSET ?`
	if _, err := tx.ExecContext(ctx, `DELETE FROM previews WHERE revision_id IN (`+cutoff+`)`, keep); err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prune previews: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM revisions WHERE id IN (`+cutoff+`)`, keep)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prune revisions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanRevision(row *sql.Row) (Revision, error) {
	var (
		r  Revision
		ts string
	)
	if err := row.Scan(&r.ID, &ts, &r.Markup, &r.Shapes, &r.Hash, &r.Source); err != nil {
		return Revision{}, err
	}
	r.TS, _ = time.Parse(time.RFC3339Nano, ts)
	return r, nil
}
