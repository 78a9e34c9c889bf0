package setup

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"

	"lamin/internal/config"
	"lamin/internal/logging"
)

// Manager reads and writes the settings directory.
type Manager struct {
	cfg     *config.Config
	dir     string
	lock    *flock.Flock
	logger  *slog.Logger
	version string
	confirm func(label string) (bool, error)
	isTTY   func() bool
	now     func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithVersion sets the CLI version recorded by migrate deploy.
func WithVersion(version string) Option {
	return func(m *Manager) {
		m.version = version
	}
}

// WithConfirm replaces the interactive yes/no prompt.
func WithConfirm(confirm func(label string) (bool, error)) Option {
	return func(m *Manager) {
		m.confirm = confirm
	}
}

// WithTTY overrides terminal detection for stdin.
func WithTTY(isTTY func() bool) Option {
	return func(m *Manager) {
		m.isTTY = isTTY
	}
}

// New returns a Manager for the settings directory of cfg.
func New(cfg *config.Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("setup: config is nil")
	}
	dir := cfg.Paths.SettingsDir
	if dir == "" {
		return nil, errors.New("setup: settings dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure settings dir: %w", err)
	}
	m := &Manager{
		cfg:     cfg,
		dir:     dir,
		lock:    flock.New(filepath.Join(dir, lockFileName)),
		confirm: promptConfirm,
		isTTY:   stdinIsTerminal,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "setup")
	return m, nil
}

// SettingsDir returns the directory holding the settings files.
func (m *Manager) SettingsDir() string {
	return m.dir
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.dir, name)
}

func (m *Manager) timestamp() string {
	return m.now().Format(time.RFC3339)
}

// withLock runs fn while holding the exclusive settings lock.
func (m *Manager) withLock(fn func() error) error {
	if err := m.lock.Lock(); err != nil {
		return fmt.Errorf("acquire settings lock: %w", err)
	}
	defer func() {
		if err := m.lock.Unlock(); err != nil {
			m.logger.Warn("failed to release settings lock", logging.Error(err))
		}
	}()
	return fn()
}

// withReadLock runs fn while holding the shared settings lock.
func (m *Manager) withReadLock(fn func() error) error {
	if err := m.lock.RLock(); err != nil {
		return fmt.Errorf("acquire settings lock: %w", err)
	}
	defer func() {
		_ = m.lock.Unlock()
	}()
	return fn()
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func promptConfirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
