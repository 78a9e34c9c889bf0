package store

import (
	"database/sql"
	"errors"
	"time"
)

const transformColumns = "uid, stem_uid, version, name, kind, source_key, source_hash, created_at, updated_at"

const runColumns = "uid, path, transform_uid, stem_uid, version, started_at"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func now() time.Time { return time.Now().UTC() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransform(scanner rowScanner) (*Transform, error) {
	var (
		t          Transform
		sourceKey  sql.NullString
		sourceHash sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&t.UID,
		&t.StemUID,
		&t.Version,
		&t.Name,
		&t.Kind,
		&sourceKey,
		&sourceHash,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	t.SourceKey = sourceKey.String
	t.SourceHash = sourceHash.String
	if created, err := parseTimeString(createdRaw); err == nil {
		t.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		t.UpdatedAt = updated
	}
	return &t, nil
}

func scanRun(scanner rowScanner) (*Run, error) {
	var (
		r          Run
		startedRaw string
	)
	if err := scanner.Scan(
		&r.UID,
		&r.Path,
		&r.TransformUID,
		&r.Identity.StemUID,
		&r.Identity.Version,
		&startedRaw,
	); err != nil {
		return nil, err
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		r.StartedAt = started
	}
	return &r, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
