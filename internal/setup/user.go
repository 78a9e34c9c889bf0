package setup

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"lamin/internal/logging"
)

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// LoginOptions are the credentials passed to Login.
type LoginOptions struct {
	// User is a handle or an email address.
	User     string
	Key      string
	Password string
}

// Login records the user locally. An email address is kept and its local
// part becomes the handle.
func (m *Manager) Login(opts LoginOptions) (*UserSettings, error) {
	user := strings.TrimSpace(opts.User)
	if user == "" {
		return nil, errors.New("login: user handle or email is required")
	}
	settings := &UserSettings{
		Handle:     user,
		APIKeySet:  opts.Key != "" || opts.Password != "",
		LoggedInAt: m.timestamp(),
	}
	if at := strings.IndexByte(user, '@'); at > 0 {
		settings.Email = user
		settings.Handle = user[:at]
	}
	if !handlePattern.MatchString(settings.Handle) {
		return nil, fmt.Errorf("login: invalid handle %q", settings.Handle)
	}

	err := m.withLock(func() error {
		var existing UserSettings
		found, err := readTOML(m.path(userSettingsFile), &existing)
		if err != nil {
			return err
		}
		if found && existing.Handle == settings.Handle && existing.UID != "" {
			settings.UID = existing.UID
		} else {
			settings.UID = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		}
		return writeTOML(m.path(userSettingsFile), settings)
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("user logged in", logging.String("handle", settings.Handle))
	return settings, nil
}

// Logout forgets the current user. It reports false when nobody was logged in.
func (m *Manager) Logout() (bool, error) {
	var existed bool
	err := m.withLock(func() error {
		var current UserSettings
		found, err := readTOML(m.path(userSettingsFile), &current)
		if err != nil {
			return err
		}
		existed = found
		return removeIfExists(m.path(userSettingsFile))
	})
	return existed, err
}

// CurrentUser returns the logged-in user or nil.
func (m *Manager) CurrentUser() (*UserSettings, error) {
	var user UserSettings
	var found bool
	err := m.withReadLock(func() error {
		var err error
		found, err = readTOML(m.path(userSettingsFile), &user)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}
