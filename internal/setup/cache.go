package setup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lamin/internal/config"
	"lamin/internal/logging"
)

// CacheGet returns the cache directory in effect.
func (m *Manager) CacheGet() (string, error) {
	var dir string
	err := m.withReadLock(func() error {
		dir = m.cacheDir()
		return nil
	})
	return dir, err
}

// CacheSet stores a new cache directory, creating it.
func (m *Manager) CacheSet(dir string) (string, error) {
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", err
	}
	if expanded == "" {
		return "", errors.New("cache dir is empty")
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	err = m.withLock(func() error {
		var sys systemSettings
		if _, err := readTOML(m.path(systemSettingsFile), &sys); err != nil {
			return err
		}
		sys.CacheDir = expanded
		return writeTOML(m.path(systemSettingsFile), sys)
	})
	if err != nil {
		return "", err
	}
	m.logger.Info("cache dir set", logging.String("cache_dir", expanded))
	return expanded, nil
}

// CacheClear removes top-level entries of the cache directory and returns how
// many were removed. A positive olderThan keeps entries modified more
// recently than that. Databases of known instances are never removed.
func (m *Manager) CacheClear(olderThan time.Duration) (int, error) {
	dir, err := m.CacheGet()
	if err != nil {
		return 0, err
	}
	instances, err := m.Instances()
	if err != nil {
		return 0, err
	}
	var databases []string
	for _, inst := range instances {
		if inst.DB != "" {
			databases = append(databases, filepath.Clean(inst.DB))
		}
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	cutoff := m.now().Add(-olderThan)
	removed := 0
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if holdsDatabase(path, databases) {
			m.logger.Info("kept instance database in cache",
				logging.String(logging.FieldPath, path),
				logging.String(logging.FieldEventType, "cache_clear_skipped"),
			)
			continue
		}
		if olderThan > 0 {
			info, err := entry.Info()
			if err != nil {
				return removed, fmt.Errorf("clear cache: %w", err)
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
		}
		if err := os.RemoveAll(path); err != nil {
			m.logger.Warn("failed to remove cache entry",
				logging.String(logging.FieldPath, path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "cache_clear_failed"),
				logging.String(logging.FieldErrorHint, "check cache_dir permissions"),
			)
			return removed, fmt.Errorf("clear cache: %w", err)
		}
		removed++
	}
	m.logger.Info("cache cleared",
		logging.String("cache_dir", dir),
		logging.Int("removed", removed),
		logging.String(logging.FieldEventType, "cache_clear"),
	)
	return removed, nil
}

// holdsDatabase reports whether path is one of databases, one of their
// sqlite side files, or a directory containing one.
func holdsDatabase(path string, databases []string) bool {
	for _, db := range databases {
		for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
			if path == db+suffix {
				return true
			}
		}
		if strings.HasPrefix(db, path+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// cacheDir resolves the cache directory without taking the lock.
func (m *Manager) cacheDir() string {
	var sys systemSettings
	if found, err := readTOML(m.path(systemSettingsFile), &sys); err == nil && found && sys.CacheDir != "" {
		return sys.CacheDir
	}
	return m.cfg.Paths.CacheDir
}
