package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"lamin/internal/transform"
)

// TransformByUID resolves a full 16-character uid exactly, or a 12-character
// stem uid to its newest saved version. A stem with no saved version
// resolves to its most recently created one.
func (s *Store) TransformByUID(ctx context.Context, uid string) (*Transform, error) {
	ctx = ensureContext(ctx)
	var row *sql.Row
	switch len(uid) {
	case transform.UIDLength:
		row = s.db.QueryRowContext(ctx, `SELECT `+transformColumns+` FROM transforms WHERE uid = ?`, uid)
	case transform.StemUIDLength:
		row = s.db.QueryRowContext(ctx, `SELECT `+transformColumns+` FROM transforms
			WHERE stem_uid = ?
			ORDER BY COALESCE(source_key, '') <> '' DESC, created_at DESC, rowid DESC
			LIMIT 1`, uid)
	default:
		return nil, fmt.Errorf("%w: %q is neither a stem uid nor a full uid", ErrTransformNotFound, uid)
	}
	t, err := scanTransform(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTransformNotFound, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("get transform: %w", err)
	}
	return t, nil
}

// ListTransforms returns every transform version, newest first.
func (s *Store) ListTransforms(ctx context.Context) ([]Transform, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+transformColumns+` FROM transforms ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transforms: %w", err)
	}
	defer rows.Close()

	var transforms []Transform
	for rows.Next() {
		t, err := scanTransform(rows)
		if err != nil {
			return nil, err
		}
		transforms = append(transforms, *t)
	}
	return transforms, rows.Err()
}
