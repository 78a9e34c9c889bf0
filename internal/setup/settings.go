package setup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"lamin/internal/fileutil"
)

const (
	userSettingsFile    = "user.toml"
	currentSettingsFile = "current.toml"
	systemSettingsFile  = "system.toml"
	instanceFilePrefix  = "instance--"
	lockFileName        = ".settings.lock"
	databaseDir         = "db"
)

// UserSettings describes the logged-in user.
type UserSettings struct {
	Handle     string `toml:"handle" json:"handle"`
	Email      string `toml:"email,omitempty" json:"email,omitempty"`
	UID        string `toml:"uid" json:"uid"`
	APIKeySet  bool   `toml:"api_key_set" json:"api_key_set"`
	LoggedInAt string `toml:"logged_in_at" json:"logged_in_at"`
}

// InstanceSettings describes one instance known on this machine.
type InstanceSettings struct {
	ID           string `toml:"id" json:"id"`
	Owner        string `toml:"owner" json:"owner"`
	Name         string `toml:"name" json:"name"`
	Storage      string `toml:"storage" json:"storage"`
	DB           string `toml:"db" json:"db"`
	Schema       string `toml:"schema,omitempty" json:"schema,omitempty"`
	Registered   bool   `toml:"registered" json:"registered"`
	RegisteredAt string `toml:"registered_at,omitempty" json:"registered_at,omitempty"`
	CLIVersion   string `toml:"cli_version,omitempty" json:"cli_version,omitempty"`
	CreatedAt    string `toml:"created_at" json:"created_at"`
}

// Slug returns owner/name.
func (s InstanceSettings) Slug() string {
	return s.Owner + "/" + s.Name
}

type currentSettings struct {
	Instance string `toml:"instance"`
}

type systemSettings struct {
	CacheDir string `toml:"cache_dir,omitempty"`
}

func instanceFileName(owner, name string) string {
	return fmt.Sprintf("%s%s--%s.toml", instanceFilePrefix, owner, name)
}

// readTOML decodes path into v. It reports false when the file is missing.
func readTOML(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := toml.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

func writeTOML(path string, v any) error {
	data, err := toml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// listInstanceFiles returns the instance settings files in dir, sorted.
func listInstanceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, instanceFilePrefix) || !strings.HasSuffix(name, ".toml") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}
