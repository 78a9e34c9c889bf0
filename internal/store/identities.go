package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"lamin/internal/transform"
)

// Get returns the identity last saved for path, or nil when the path has
// never been saved.
func (s *Store) Get(ctx context.Context, path string) (*transform.RecordedState, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT si.stem_uid, si.version, si.transform_uid, si.saved_at, t.name, t.source_hash
		FROM saved_identities si JOIN transforms t ON t.uid = si.transform_uid
		WHERE si.path = ?`, path)

	var (
		state      transform.RecordedState
		savedRaw   string
		sourceHash sql.NullString
	)
	err := row.Scan(&state.StemUID, &state.Version, &state.UID, &savedRaw, &state.Name, &sourceHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get saved identity: %w", err)
	}
	state.SourceHash = sourceHash.String
	if saved, err := parseTimeString(savedRaw); err == nil {
		state.SavedAt = saved
	}
	return &state, nil
}

// Put records identity as the saved identity of path and stores the source
// metadata on the matching transform version.
func (s *Store) Put(ctx context.Context, path string, identity transform.Identity, info SaveInfo) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("put saved identity: path is empty")
	}
	if err := transform.ValidateStemUID(identity.StemUID); err != nil {
		return err
	}
	ctx = ensureContext(ctx)
	uid := transform.UID(identity)
	ts := formatTime(now())
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := upsertTransform(ctx, tx, identity, info.Name, info.Kind, ts); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE transforms SET source_key = ?, source_hash = ?, updated_at = ? WHERE uid = ?`,
			nullableString(info.SourceKey), nullableString(info.SourceHash), ts, uid); err != nil {
			return fmt.Errorf("update transform source: %w", err)
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO saved_identities (path, transform_uid, stem_uid, version, saved_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				transform_uid = excluded.transform_uid,
				stem_uid = excluded.stem_uid,
				version = excluded.version,
				saved_at = excluded.saved_at`,
			path, uid, identity.StemUID, identity.Version, ts)
		if err != nil {
			return fmt.Errorf("upsert saved identity: %w", err)
		}
		return nil
	})
	return err
}

func upsertTransform(ctx context.Context, tx *sql.Tx, identity transform.Identity, name, kind, ts string) error {
	if kind == "" {
		kind = "script"
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO transforms (uid, stem_uid, version, name, kind, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			name = CASE WHEN excluded.name = '' THEN transforms.name ELSE excluded.name END,
			kind = excluded.kind,
			updated_at = excluded.updated_at`,
		transform.UID(identity), identity.StemUID, identity.Version, name, kind, ts, ts)
	if err != nil {
		return fmt.Errorf("upsert transform: %w", err)
	}
	return nil
}
