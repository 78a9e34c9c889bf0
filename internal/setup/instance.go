package setup

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"lamin/internal/logging"
	"lamin/internal/storage"
)

const defaultOwner = "anonymous"

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// InitOptions configures a new instance.
type InitOptions struct {
	Storage string
	DB      string
	Schema  string
	Name    string
}

// Identifier names an instance.
type Identifier struct {
	Owner string
	Name  string
}

func (i Identifier) String() string {
	if i.Owner == "" {
		return i.Name
	}
	return i.Owner + "/" + i.Name
}

// ParseIdentifier accepts name, owner/name, or a hub URL <hub>/owner/name.
func ParseIdentifier(raw string) (Identifier, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return Identifier{}, fmt.Errorf("parse instance url: %w", err)
		}
		raw = strings.Trim(u.Path, "/")
	}
	parts := strings.Split(raw, "/")
	var id Identifier
	switch len(parts) {
	case 1:
		id.Name = parts[0]
	case 2:
		id.Owner, id.Name = parts[0], parts[1]
	default:
		return Identifier{}, fmt.Errorf("invalid instance identifier %q", raw)
	}
	if id.Name == "" || (len(parts) == 2 && id.Owner == "") {
		return Identifier{}, fmt.Errorf("invalid instance identifier %q", raw)
	}
	return id, nil
}

// Init creates a new instance, writes its settings and makes it current.
func (m *Manager) Init(opts InitOptions) (*InstanceSettings, error) {
	if strings.TrimSpace(opts.Storage) == "" {
		return nil, errors.New("init: --storage is required")
	}
	root, err := storage.ParseRoot(opts.Storage)
	if err != nil {
		return nil, err
	}
	name := strings.ToLower(strings.TrimSpace(opts.Name))
	if name == "" {
		name = defaultInstanceName(root)
	}
	if !namePattern.MatchString(name) {
		return nil, fmt.Errorf("init: invalid instance name %q", name)
	}
	if root.IsLocal() {
		if err := os.MkdirAll(root.Prefix, 0o755); err != nil {
			return nil, fmt.Errorf("create storage root: %w", err)
		}
		if err := unix.Access(root.Prefix, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
			return nil, fmt.Errorf("storage root %s is not writable: %w", root.Prefix, err)
		}
	}

	owner := defaultOwner
	user, err := m.CurrentUser()
	if err != nil {
		return nil, err
	}
	if user != nil {
		owner = user.Handle
	}

	dbPath, err := m.resolveDB(opts.DB, root, owner, name)
	if err != nil {
		return nil, err
	}

	settings := &InstanceSettings{
		ID:        uuid.NewString(),
		Owner:     owner,
		Name:      name,
		Storage:   root.String(),
		DB:        dbPath,
		Schema:    strings.TrimSpace(opts.Schema),
		CreatedAt: m.timestamp(),
	}
	err = m.withLock(func() error {
		path := m.path(instanceFileName(owner, name))
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrInstanceExists, settings.Slug())
		}
		if err := writeTOML(path, settings); err != nil {
			return err
		}
		return writeTOML(m.path(currentSettingsFile), currentSettings{Instance: settings.Slug()})
	})
	if err != nil {
		return nil, err
	}

	// Creating the store lays down the schema and migrations.
	st, err := openStore(settings, false)
	if err != nil {
		return nil, err
	}
	if err := st.Close(); err != nil {
		return nil, err
	}
	m.logger.Info("instance initialized",
		logging.String(logging.FieldInstance, settings.Slug()),
		logging.String("storage", settings.Storage),
		logging.String("db", settings.DB),
	)
	return settings, nil
}

func defaultInstanceName(root storage.Root) string {
	base := root.Prefix
	if !root.IsLocal() {
		base = root.Bucket
		if root.Prefix != "" {
			base = root.Prefix
		}
	}
	name := strings.ToLower(filepath.Base(filepath.FromSlash(base)))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}

// resolveDB returns the sqlite database path of a new instance. Instances on
// cloud storage keep their database under the settings dir, never in the
// cache.
func (m *Manager) resolveDB(db string, root storage.Root, owner, name string) (string, error) {
	db = strings.TrimSpace(db)
	switch {
	case db == "":
		if root.IsLocal() {
			return filepath.Join(root.Prefix, name+".lndb"), nil
		}
		return filepath.Join(m.dir, databaseDir, fmt.Sprintf("%s--%s.lndb", owner, name)), nil
	case strings.HasPrefix(db, "sqlite:///"):
		return filepath.Clean("/" + strings.TrimPrefix(db, "sqlite:///")), nil
	case strings.Contains(db, "://"):
		scheme := db[:strings.Index(db, "://")]
		return "", fmt.Errorf("%w: %s (only sqlite is supported)", ErrUnsupportedDB, scheme)
	default:
		return filepath.Abs(db)
	}
}

// Load makes an existing instance current. Non-empty db or storage values
// replace the stored ones.
func (m *Manager) Load(identifier, db, storageRoot string) (*InstanceSettings, error) {
	id, err := ParseIdentifier(identifier)
	if err != nil {
		return nil, err
	}
	var settings *InstanceSettings
	err = m.withLock(func() error {
		var err error
		settings, err = m.findInstance(id)
		if err != nil {
			return err
		}
		changed := false
		if db != "" {
			path, err := m.resolveDB(db, storage.Root{Provider: storage.ProviderLocal}, settings.Owner, settings.Name)
			if err != nil {
				return err
			}
			settings.DB = path
			changed = true
		}
		if storageRoot != "" {
			root, err := storage.ParseRoot(storageRoot)
			if err != nil {
				return err
			}
			settings.Storage = root.String()
			changed = true
		}
		if changed {
			if err := writeTOML(m.path(instanceFileName(settings.Owner, settings.Name)), settings); err != nil {
				return err
			}
		}
		return writeTOML(m.path(currentSettingsFile), currentSettings{Instance: settings.Slug()})
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("instance loaded", logging.String(logging.FieldInstance, settings.Slug()))
	return settings, nil
}

// Close unsets the current instance. It reports false when none was loaded.
func (m *Manager) Close() (bool, error) {
	var existed bool
	err := m.withLock(func() error {
		var current currentSettings
		found, err := readTOML(m.path(currentSettingsFile), &current)
		if err != nil {
			return err
		}
		existed = found && current.Instance != ""
		return removeIfExists(m.path(currentSettingsFile))
	})
	return existed, err
}

// Delete removes an instance's settings and its local database. Without
// force the user must confirm on a terminal.
func (m *Manager) Delete(identifier string, force bool) error {
	id, err := ParseIdentifier(identifier)
	if err != nil {
		return err
	}
	settings, err := m.lookup(id)
	if err != nil {
		return err
	}
	if !force {
		if !m.isTTY() {
			return ErrConfirmationRequired
		}
		ok, err := m.confirm(fmt.Sprintf("Delete instance %s", settings.Slug()))
		if err != nil {
			return err
		}
		if !ok {
			return ErrAborted
		}
	}

	err = m.withLock(func() error {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := removeIfExists(settings.DB + suffix); err != nil {
				return fmt.Errorf("remove database: %w", err)
			}
		}
		if err := removeIfExists(m.path(instanceFileName(settings.Owner, settings.Name))); err != nil {
			return err
		}
		var current currentSettings
		if _, err := readTOML(m.path(currentSettingsFile), &current); err != nil {
			return err
		}
		if current.Instance == settings.Slug() {
			return removeIfExists(m.path(currentSettingsFile))
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.logger.Info("instance deleted", logging.String(logging.FieldInstance, settings.Slug()))
	return nil
}

// SetStorage changes the storage root of the current instance.
func (m *Manager) SetStorage(root string) (*InstanceSettings, error) {
	parsed, err := storage.ParseRoot(root)
	if err != nil {
		return nil, err
	}
	return m.updateCurrent(func(s *InstanceSettings) {
		s.Storage = parsed.String()
	})
}

// Register marks the current instance as registered. Registering twice keeps
// the first registration time.
func (m *Manager) Register() (*InstanceSettings, error) {
	return m.updateCurrent(func(s *InstanceSettings) {
		if s.Registered {
			return
		}
		s.Registered = true
		s.RegisteredAt = m.timestamp()
	})
}

// Current returns the current instance.
func (m *Manager) Current() (*InstanceSettings, error) {
	var settings *InstanceSettings
	err := m.withReadLock(func() error {
		var err error
		settings, err = m.currentLocked()
		return err
	})
	return settings, err
}

// Instances lists every instance known on this machine.
func (m *Manager) Instances() ([]InstanceSettings, error) {
	var instances []InstanceSettings
	err := m.withReadLock(func() error {
		files, err := listInstanceFiles(m.dir)
		if err != nil {
			return err
		}
		for _, file := range files {
			var s InstanceSettings
			if _, err := readTOML(file, &s); err != nil {
				return err
			}
			instances = append(instances, s)
		}
		return nil
	})
	return instances, err
}

func (m *Manager) updateCurrent(mutate func(*InstanceSettings)) (*InstanceSettings, error) {
	var settings *InstanceSettings
	err := m.withLock(func() error {
		var err error
		settings, err = m.currentLocked()
		if err != nil {
			return err
		}
		mutate(settings)
		return writeTOML(m.path(instanceFileName(settings.Owner, settings.Name)), settings)
	})
	return settings, err
}

func (m *Manager) currentLocked() (*InstanceSettings, error) {
	var current currentSettings
	found, err := readTOML(m.path(currentSettingsFile), &current)
	if err != nil {
		return nil, err
	}
	if !found || current.Instance == "" {
		return nil, ErrNoInstance
	}
	id, err := ParseIdentifier(current.Instance)
	if err != nil {
		return nil, err
	}
	return m.findInstance(id)
}

func (m *Manager) lookup(id Identifier) (*InstanceSettings, error) {
	var settings *InstanceSettings
	err := m.withReadLock(func() error {
		var err error
		settings, err = m.findInstance(id)
		return err
	})
	return settings, err
}

// findInstance resolves id without taking the lock. A bare name matches the
// instance of any owner when exactly one exists.
func (m *Manager) findInstance(id Identifier) (*InstanceSettings, error) {
	if id.Owner != "" {
		var s InstanceSettings
		found, err := readTOML(m.path(instanceFileName(id.Owner, id.Name)), &s)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
		}
		return &s, nil
	}
	files, err := listInstanceFiles(m.dir)
	if err != nil {
		return nil, err
	}
	var matches []InstanceSettings
	for _, file := range files {
		var s InstanceSettings
		if _, err := readTOML(file, &s); err != nil {
			return nil, err
		}
		if s.Name == id.Name {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, id)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("instance name %q is ambiguous, use owner/name", id.Name)
	}
}
