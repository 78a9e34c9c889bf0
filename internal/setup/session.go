package setup

import (
	"context"
	"errors"
	"fmt"

	"lamin/internal/storage"
	"lamin/internal/store"
)

// Session holds the open database and storage backend of the current
// instance.
type Session struct {
	Instance *InstanceSettings
	Store    *store.Store
	Storage  storage.Backend
}

// Open opens the current instance's database and storage backend.
func (m *Manager) Open(ctx context.Context) (*Session, error) {
	settings, err := m.Current()
	if err != nil {
		return nil, err
	}
	st, err := openStore(settings, false)
	if err != nil {
		return nil, err
	}
	backend, err := storage.Open(ctx, settings.Storage, m.cfg.Storage)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("open storage %s: %w", settings.Storage, err)
	}
	return &Session{Instance: settings, Store: st, Storage: backend}, nil
}

// Close releases the database and the storage backend.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	return errors.Join(s.Store.Close(), s.Storage.Close())
}

func openStore(settings *InstanceSettings, skipMigrations bool) (*store.Store, error) {
	var opts []store.Option
	if skipMigrations {
		opts = append(opts, store.WithoutMigrations())
	}
	st, err := store.Open(settings.DB, opts...)
	if err != nil {
		return nil, fmt.Errorf("open instance %s: %w", settings.Slug(), err)
	}
	return st, nil
}
