package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"lamin/internal/transform"
)

// RecordRun appends a run for in.Path to the execution trace and registers
// the declared transform version.
func (s *Store) RecordRun(ctx context.Context, in RunInput) (*Run, error) {
	if strings.TrimSpace(in.Path) == "" {
		return nil, errors.New("record run: path is empty")
	}
	if err := transform.ValidateStemUID(in.Identity.StemUID); err != nil {
		return nil, err
	}
	ctx = ensureContext(ctx)
	started := now()
	run := &Run{
		UID:          strings.ReplaceAll(uuid.NewString(), "-", "")[:transform.UIDLength],
		Path:         in.Path,
		TransformUID: transform.UID(in.Identity),
		Identity:     in.Identity,
		StartedAt:    started,
		PyPackages:   normalizePackages(in.PyPackages),
	}
	ts := formatTime(started)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := upsertTransform(ctx, tx, in.Identity, in.Name, in.Kind, ts); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			run.UID, run.Path, run.TransformUID, run.Identity.StemUID, run.Identity.Version, ts)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for _, pkg := range run.PyPackages {
			if _, err := tx.ExecContext(ctx, `INSERT INTO run_packages (run_uid, package) VALUES (?, ?)`, run.UID, pkg); err != nil {
				return fmt.Errorf("insert run package: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// LatestRun returns the most recent run recorded for path, or nil when the
// path was never tracked.
func (s *Store) LatestRun(ctx context.Context, path string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE path = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`, path)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// RunsFor lists the runs of path, newest first.
func (s *Store) RunsFor(ctx context.Context, path string) ([]Run, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE path = ? ORDER BY started_at DESC, rowid DESC`, path)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// RunPackages returns the python packages recorded for a run, sorted.
func (s *Store) RunPackages(ctx context.Context, runUID string) ([]string, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT package FROM run_packages WHERE run_uid = ? ORDER BY package`, runUID)
	if err != nil {
		return nil, fmt.Errorf("list run packages: %w", err)
	}
	defer rows.Close()
	var packages []string
	for rows.Next() {
		var pkg string
		if err := rows.Scan(&pkg); err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}
	return packages, rows.Err()
}

// normalizePackages trims, drops empties and removes duplicates, keeping
// the first occurrence.
func normalizePackages(packages []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, pkg := range packages {
		pkg = strings.TrimSpace(pkg)
		if pkg == "" {
			continue
		}
		if _, ok := seen[pkg]; ok {
			continue
		}
		seen[pkg] = struct{}{}
		out = append(out, pkg)
	}
	return out
}
