package setup

import (
	"errors"

	"golang.org/x/sys/unix"

	"lamin/internal/storage"
)

// Info summarizes the user, the current instance and the cache.
type Info struct {
	User            *UserSettings     `json:"user,omitempty"`
	Instance        *InstanceSettings `json:"instance,omitempty"`
	CacheDir        string            `json:"cache_dir"`
	SettingsDir     string            `json:"settings_dir"`
	StorageLocal    bool              `json:"storage_local"`
	StorageWritable bool              `json:"storage_writable"`
	StorageFree     uint64            `json:"storage_free_bytes,omitempty"`
}

// Info collects the current settings. A missing user or instance is not an
// error.
func (m *Manager) Info() (*Info, error) {
	user, err := m.CurrentUser()
	if err != nil {
		return nil, err
	}
	cacheDir, err := m.CacheGet()
	if err != nil {
		return nil, err
	}
	info := &Info{User: user, CacheDir: cacheDir, SettingsDir: m.dir}

	instance, err := m.Current()
	if errors.Is(err, ErrNoInstance) {
		return info, nil
	}
	if err != nil {
		return nil, err
	}
	info.Instance = instance

	root, err := storage.ParseRoot(instance.Storage)
	if err != nil || !root.IsLocal() {
		return info, nil
	}
	info.StorageLocal = true
	info.StorageWritable = unix.Access(root.Prefix, unix.W_OK) == nil
	var st unix.Statfs_t
	if err := unix.Statfs(root.Prefix, &st); err == nil {
		info.StorageFree = st.Bavail * uint64(st.Bsize)
	}
	return info, nil
}
