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
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPreviewsMaxBytes caps the total size of cached preview images.
const EnvPreviewsMaxBytes = "FP_PREVIEWS_MAX_BYTES"

// GetPreview returns the cached PNG of a revision at w x h, or nil when none
// is stored. A hit refreshes the row's access time.
func (ix *Index) GetPreview(ctx context.Context, revisionID int64, w, h int) ([]byte, error) {
	var blob []byte
	err := ix.db.QueryRowContext(ctx, `SELECT png FROM previews WHERE revision_id=? AND w=? AND h=?`, revisionID, w, h).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, _ = ix.db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE revision_id=? AND w=? AND h=?`, now, revisionID, w, h)
	return blob, nil
}

// PutPreview upserts a preview and evicts least recently used rows beyond
// the configured cap.
func (ix *Index) PutPreview(ctx context.Context, revisionID int64, w, h int, png []byte) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid preview size %dx%d", w, h)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := ix.db.ExecContext(ctx, `INSERT INTO previews(revision_id,w,h,png,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(revision_id,w,h) DO UPDATE SET png=excluded.png, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		revisionID, w, h, png, len(png), now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	if capBytes := MaxPreviewsBytesFromEnv(); capBytes > 0 {
		return ix.EvictPreviewsToFit(ctx, capBytes)
	}
	return nil
}

// GetOrCreatePreview fetches a preview or renders and stores it with gen.
func (ix *Index) GetOrCreatePreview(ctx context.Context, revisionID int64, w, h int, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := ix.GetPreview(ctx, revisionID, w, h); err != nil || b != nil {
		return b, err
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil || data == nil {
		return nil, err
	}
	if err := ix.PutPreview(ctx, revisionID, w, h, data); err != nil {
		return nil, err
	}
	return data, nil
}

// EvictPreviewsToFit deletes least-recently-used rows until total size <= capBytes.
func (ix *Index) EvictPreviewsToFit(ctx context.Context, capBytes int64) error {
	total, err := ix.TotalPreviewBytes(ctx)
	if err != nil {
		return err
	}
	if total <= capBytes {
		return nil
	}
	rows, err := ix.db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() && cur > capBytes {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// the cursor must be closed before writing on a single connection
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM previews WHERE id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(victims)), ",") + `)`
	if _, err := ix.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// TotalPreviewBytes returns total bytes tracked by previews.size.
func (ix *Index) TotalPreviewBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := ix.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum previews size: %w", err)
	}
	return total, nil
}

// MaxPreviewsBytesFromEnv reads FP_PREVIEWS_MAX_BYTES, defaulting to 64MB.
func MaxPreviewsBytesFromEnv() int64 {
	const def = 64 * 1024 * 1024
	v := os.Getenv(EnvPreviewsMaxBytes)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
