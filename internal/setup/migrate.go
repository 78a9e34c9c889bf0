package setup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"lamin/internal/fileutil"
	"lamin/internal/logging"
	"lamin/internal/store"
)

var migrationFilePattern = regexp.MustCompile(`^(\d{4})_[a-z0-9_]+\.sql$`)

// MigrateStatus reports applied and pending migrations of the current instance.
func (m *Manager) MigrateStatus(ctx context.Context) ([]store.MigrationStatus, error) {
	settings, err := m.Current()
	if err != nil {
		return nil, err
	}
	st, err := openStore(settings, true)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Migrations(ctx)
}

// MigrateDeploy applies pending migrations to the current instance and
// records the CLI version that deployed them.
func (m *Manager) MigrateDeploy(ctx context.Context) ([]string, error) {
	settings, err := m.Current()
	if err != nil {
		return nil, err
	}
	st, err := openStore(settings, true)
	if err != nil {
		return nil, err
	}
	applied, err := st.Migrate(ctx)
	closeErr := st.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}
	if m.version != "" {
		if _, err := m.updateCurrent(func(s *InstanceSettings) {
			s.CLIVersion = m.version
		}); err != nil {
			return nil, err
		}
	}
	m.logger.Info("migrations deployed",
		logging.String(logging.FieldInstance, settings.Slug()),
		logging.Int("applied", len(applied)),
	)
	return applied, nil
}

// CreateMigration writes an empty, numbered migration file into dir and
// returns its path.
func CreateMigration(description, dir string) (string, error) {
	slug := migrationSlug(description)
	if slug == "" {
		return "", errors.New("migration description is empty")
	}
	if dir == "" {
		dir = "migrations"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create migrations dir: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var numbers []int
	for _, entry := range entries {
		match := migrationFilePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		n, _ := strconv.Atoi(match[1])
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	next := 1
	if len(numbers) > 0 {
		next = numbers[len(numbers)-1] + 1
	}
	path := filepath.Join(dir, fmt.Sprintf("%04d_%s.sql", next, slug))
	body := fmt.Sprintf("-- %s\n", strings.TrimSpace(description))
	if err := fileutil.WriteFileAtomic(path, []byte(body), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func migrationSlug(description string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(description)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			underscore = false
		default:
			if b.Len() > 0 && !underscore {
				b.WriteByte('_')
				underscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// SchemaView describes the tables of the current instance database.
func (m *Manager) SchemaView(ctx context.Context) ([]store.TableInfo, error) {
	settings, err := m.Current()
	if err != nil {
		return nil, err
	}
	st, err := openStore(settings, false)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.Describe(ctx)
}
