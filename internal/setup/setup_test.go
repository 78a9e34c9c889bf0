package setup_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lamin/internal/setup"
	"lamin/internal/testsupport"
)

func newManager(t *testing.T, opts ...setup.Option) *setup.Manager {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	m, err := setup.New(cfg, append([]setup.Option{setup.WithVersion("0.1.0-test")}, opts...)...)
	if err != nil {
		t.Fatalf("setup.New: %v", err)
	}
	return m
}

func initInstance(t *testing.T, m *setup.Manager, name string) *setup.InstanceSettings {
	t.Helper()
	settings, err := m.Init(setup.InitOptions{Storage: filepath.Join(t.TempDir(), name), Name: name})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return settings
}

func TestLoginLogout(t *testing.T) {
	m := newManager(t)

	user, err := m.Login(setup.LoginOptions{User: "testuser1@lamin.ai", Key: "secret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.Handle != "testuser1" || user.Email != "testuser1@lamin.ai" || !user.APIKeySet || user.UID == "" {
		t.Fatalf("unexpected user %+v", user)
	}

	again, err := m.Login(setup.LoginOptions{User: "testuser1"})
	if err != nil {
		t.Fatalf("second Login: %v", err)
	}
	if again.UID != user.UID {
		t.Fatalf("expected stable uid, got %s then %s", user.UID, again.UID)
	}

	current, err := m.CurrentUser()
	if err != nil || current == nil || current.Handle != "testuser1" {
		t.Fatalf("unexpected current user %+v %v", current, err)
	}

	existed, err := m.Logout()
	if err != nil || !existed {
		t.Fatalf("Logout: %v %v", existed, err)
	}
	existed, err = m.Logout()
	if err != nil || existed {
		t.Fatalf("second Logout: %v %v", existed, err)
	}
	current, err = m.CurrentUser()
	if err != nil || current != nil {
		t.Fatalf("expected no user, got %+v %v", current, err)
	}
}

func TestLoginRejectsEmpty(t *testing.T) {
	m := newManager(t)
	if _, err := m.Login(setup.LoginOptions{User: " "}); err == nil {
		t.Fatal("expected error for empty user")
	}
	if _, err := m.Login(setup.LoginOptions{User: "bad handle"}); err == nil {
		t.Fatal("expected error for invalid handle")
	}
}

func TestInitCreatesCurrentInstance(t *testing.T) {
	m := newManager(t)
	if _, err := m.Login(setup.LoginOptions{User: "testuser1"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	settings := initInstance(t, m, "mydata")
	if settings.Owner != "testuser1" || settings.Name != "mydata" || settings.ID == "" {
		t.Fatalf("unexpected settings %+v", settings)
	}
	if _, err := os.Stat(settings.DB); err != nil {
		t.Fatalf("expected database file: %v", err)
	}

	current, err := m.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current.Slug() != "testuser1/mydata" {
		t.Fatalf("unexpected current %s", current.Slug())
	}

	if _, err := m.Init(setup.InitOptions{Storage: t.TempDir(), Name: "mydata"}); !errors.Is(err, setup.ErrInstanceExists) {
		t.Fatalf("expected ErrInstanceExists, got %v", err)
	}
}

func TestInitWithoutUserUsesAnonymousOwner(t *testing.T) {
	m := newManager(t)
	settings := initInstance(t, m, "scratch")
	if settings.Owner != "anonymous" {
		t.Fatalf("expected anonymous owner, got %q", settings.Owner)
	}
}

func TestInitDatabaseOptions(t *testing.T) {
	m := newManager(t)
	_, err := m.Init(setup.InitOptions{Storage: t.TempDir(), Name: "pg", DB: "postgresql://user:pw@localhost:5432/db"})
	if !errors.Is(err, setup.ErrUnsupportedDB) {
		t.Fatalf("expected ErrUnsupportedDB, got %v", err)
	}

	dbPath := filepath.Join(t.TempDir(), "custom.db")
	settings, err := m.Init(setup.InitOptions{Storage: t.TempDir(), Name: "custom", DB: "sqlite:///" + strings.TrimPrefix(dbPath, "/")})
	if err != nil {
		t.Fatalf("Init sqlite url: %v", err)
	}
	if settings.DB != dbPath {
		t.Fatalf("expected db %s, got %s", dbPath, settings.DB)
	}

	if _, err := m.Init(setup.InitOptions{Name: "nostorage"}); err == nil {
		t.Fatal("expected error without storage")
	}
	if _, err := m.Init(setup.InitOptions{Storage: t.TempDir(), Name: "Bad Name!"}); err == nil {
		t.Fatal("expected error for invalid name")
	}
}

func TestLoadAndClose(t *testing.T) {
	m := newManager(t)
	if _, err := m.Login(setup.LoginOptions{User: "testuser1"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	initInstance(t, m, "first")
	initInstance(t, m, "second")

	for _, ident := range []string{"first", "testuser1/first", "https://lamin.ai/testuser1/first"} {
		loaded, err := m.Load(ident, "", "")
		if err != nil {
			t.Fatalf("Load(%s): %v", ident, err)
		}
		if loaded.Name != "first" {
			t.Fatalf("Load(%s) loaded %s", ident, loaded.Slug())
		}
	}

	newStorage := filepath.Join(t.TempDir(), "moved")
	loaded, err := m.Load("second", "", newStorage)
	if err != nil {
		t.Fatalf("Load with storage: %v", err)
	}
	if loaded.Storage != newStorage {
		t.Fatalf("expected storage override, got %s", loaded.Storage)
	}

	if _, err := m.Load("missing", "", ""); !errors.Is(err, setup.ErrInstanceNotFound) {
		t.Fatalf("expected ErrInstanceNotFound, got %v", err)
	}

	closed, err := m.Close()
	if err != nil || !closed {
		t.Fatalf("Close: %v %v", closed, err)
	}
	if _, err := m.Current(); !errors.Is(err, setup.ErrNoInstance) {
		t.Fatalf("expected ErrNoInstance, got %v", err)
	}
	closed, err = m.Close()
	if err != nil || closed {
		t.Fatalf("second Close: %v %v", closed, err)
	}

	instances, err := m.Instances()
	if err != nil || len(instances) != 2 {
		t.Fatalf("expected 2 instances, got %d %v", len(instances), err)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	var prompted []string
	answer := false
	m := newManager(t,
		setup.WithTTY(func() bool { return true }),
		setup.WithConfirm(func(label string) (bool, error) {
			prompted = append(prompted, label)
			return answer, nil
		}),
	)
	settings := initInstance(t, m, "doomed")

	if err := m.Delete("doomed", false); !errors.Is(err, setup.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if len(prompted) != 1 || !strings.Contains(prompted[0], "anonymous/doomed") {
		t.Fatalf("unexpected prompts %v", prompted)
	}
	if _, err := os.Stat(settings.DB); err != nil {
		t.Fatalf("declined delete must keep database: %v", err)
	}

	answer = true
	if err := m.Delete("doomed", false); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(settings.DB); !os.IsNotExist(err) {
		t.Fatalf("expected database removed, got %v", err)
	}
	if _, err := m.Current(); !errors.Is(err, setup.ErrNoInstance) {
		t.Fatalf("expected current instance unset, got %v", err)
	}
}

func TestDeleteWithoutTerminal(t *testing.T) {
	m := newManager(t, setup.WithTTY(func() bool { return false }))
	initInstance(t, m, "kept")
	if err := m.Delete("kept", false); !errors.Is(err, setup.ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if err := m.Delete("kept", true); err != nil {
		t.Fatalf("forced Delete: %v", err)
	}
	if err := m.Delete("kept", true); !errors.Is(err, setup.ErrInstanceNotFound) {
		t.Fatalf("expected ErrInstanceNotFound, got %v", err)
	}
}

func TestSetStorageAndRegister(t *testing.T) {
	m := newManager(t)
	if _, err := m.Register(); !errors.Is(err, setup.ErrNoInstance) {
		t.Fatalf("expected ErrNoInstance, got %v", err)
	}
	initInstance(t, m, "reg")

	updated, err := m.SetStorage("s3://lamin-bucket/data")
	if err != nil {
		t.Fatalf("SetStorage: %v", err)
	}
	if updated.Storage != "s3://lamin-bucket/data" {
		t.Fatalf("unexpected storage %s", updated.Storage)
	}

	first, err := m.Register()
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !first.Registered || first.RegisteredAt == "" {
		t.Fatalf("expected registration, got %+v", first)
	}
	second, err := m.Register()
	if err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if second.RegisteredAt != first.RegisteredAt {
		t.Fatal("expected registration time to be kept")
	}
}

func TestInfo(t *testing.T) {
	m := newManager(t)
	info, err := m.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.User != nil || info.Instance != nil {
		t.Fatalf("expected empty info, got %+v", info)
	}

	if _, err := m.Login(setup.LoginOptions{User: "testuser1"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	initInstance(t, m, "infodata")
	info, err = m.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.User == nil || info.Instance == nil || info.Instance.Name != "infodata" {
		t.Fatalf("unexpected info %+v", info)
	}
	if !info.StorageLocal || !info.StorageWritable || info.StorageFree == 0 {
		t.Fatalf("expected writable local storage with free space, got %+v", info)
	}
}

func TestCache(t *testing.T) {
	m := newManager(t)
	dir, err := m.CacheGet()
	if err != nil || dir == "" {
		t.Fatalf("CacheGet: %q %v", dir, err)
	}

	target := filepath.Join(t.TempDir(), "newcache")
	set, err := m.CacheSet(target)
	if err != nil {
		t.Fatalf("CacheSet: %v", err)
	}
	if set != target {
		t.Fatalf("expected %s, got %s", target, set)
	}
	got, err := m.CacheGet()
	if err != nil || got != target {
		t.Fatalf("CacheGet after set: %q %v", got, err)
	}

	testsupport.WriteFile(t, filepath.Join(target, "a.txt"), "a")
	testsupport.WriteFile(t, filepath.Join(target, "sub", "b.txt"), "b")
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(filepath.Join(target, "a.txt"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	removed, err := m.CacheClear(24 * time.Hour)
	if err != nil || removed != 1 {
		t.Fatalf("CacheClear older than a day: %d %v", removed, err)
	}
	if _, err := os.Stat(filepath.Join(target, "sub", "b.txt")); err != nil {
		t.Fatalf("expected recent entry kept: %v", err)
	}

	removed, err = m.CacheClear(0)
	if err != nil || removed != 1 {
		t.Fatalf("CacheClear: %d %v", removed, err)
	}
	entries, _ := os.ReadDir(target)
	if len(entries) != 0 {
		t.Fatalf("expected empty cache, got %d entries", len(entries))
	}
}

func TestCloudInstanceDatabaseLivesOutsideCache(t *testing.T) {
	m := newManager(t)
	settings, err := m.Init(setup.InitOptions{Storage: "s3://lamin-bucket/data", Name: "cloud"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	cacheDir, err := m.CacheGet()
	if err != nil {
		t.Fatalf("CacheGet: %v", err)
	}
	if strings.HasPrefix(settings.DB, cacheDir+string(filepath.Separator)) {
		t.Fatalf("cloud instance database %s must not live in cache %s", settings.DB, cacheDir)
	}
	if want := filepath.Join(m.SettingsDir(), "db", "anonymous--cloud.lndb"); settings.DB != want {
		t.Fatalf("expected db %s, got %s", want, settings.DB)
	}

	if _, err := m.CacheClear(0); err != nil {
		t.Fatalf("CacheClear: %v", err)
	}
	if _, err := os.Stat(settings.DB); err != nil {
		t.Fatalf("instance database removed by cache clear: %v", err)
	}
}

func TestCacheClearKeepsInstanceDatabases(t *testing.T) {
	m := newManager(t)
	cacheDir, err := m.CacheGet()
	if err != nil {
		t.Fatalf("CacheGet: %v", err)
	}
	dbPath := filepath.Join(cacheDir, "anonymous--legacy.lndb")
	settings, err := m.Init(setup.InitOptions{Storage: t.TempDir(), Name: "legacy", DB: dbPath})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(cacheDir, "blob"), "x")

	removed, err := m.CacheClear(0)
	if err != nil {
		t.Fatalf("CacheClear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected only the blob removed, got %d", removed)
	}
	if _, err := os.Stat(settings.DB); err != nil {
		t.Fatalf("instance database removed by cache clear: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "blob")); !os.IsNotExist(err) {
		t.Fatalf("expected blob removed, stat err=%v", err)
	}
}

func TestMigrations(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()
	if _, err := m.MigrateStatus(ctx); !errors.Is(err, setup.ErrNoInstance) {
		t.Fatalf("expected ErrNoInstance, got %v", err)
	}
	initInstance(t, m, "migr")

	statuses, err := m.MigrateStatus(ctx)
	if err != nil {
		t.Fatalf("MigrateStatus: %v", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			t.Fatalf("expected init to apply %s", s.Version)
		}
	}

	applied, err := m.MigrateDeploy(ctx)
	if err != nil {
		t.Fatalf("MigrateDeploy: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected nothing pending, got %v", applied)
	}
	current, err := m.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current.CLIVersion != "0.1.0-test" {
		t.Fatalf("expected CLI version recorded, got %q", current.CLIVersion)
	}

	tables, err := m.SchemaView(ctx)
	if err != nil {
		t.Fatalf("SchemaView: %v", err)
	}
	if len(tables) < 3 {
		t.Fatalf("expected instance tables, got %+v", tables)
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := setup.CreateMigration("Add run notes", dir)
	if err != nil {
		t.Fatalf("CreateMigration: %v", err)
	}
	if filepath.Base(first) != "0001_add_run_notes.sql" {
		t.Fatalf("unexpected file %s", first)
	}
	second, err := setup.CreateMigration("index   transforms!", dir)
	if err != nil {
		t.Fatalf("CreateMigration: %v", err)
	}
	if filepath.Base(second) != "0002_index_transforms.sql" {
		t.Fatalf("unexpected file %s", second)
	}
	if _, err := setup.CreateMigration("  !! ", dir); err == nil {
		t.Fatal("expected error for empty description")
	}
}

func TestParseIdentifier(t *testing.T) {
	cases := map[string]setup.Identifier{
		"mydata":                         {Name: "mydata"},
		"owner/mydata":                   {Owner: "owner", Name: "mydata"},
		"https://lamin.ai/owner/mydata":  {Owner: "owner", Name: "mydata"},
		"https://lamin.ai/owner/mydata/": {Owner: "owner", Name: "mydata"},
	}
	for raw, want := range cases {
		got, err := setup.ParseIdentifier(raw)
		if err != nil || got != want {
			t.Fatalf("ParseIdentifier(%q) = %+v, %v", raw, got, err)
		}
	}
	for _, raw := range []string{"", "a/b/c", "/name"} {
		if _, err := setup.ParseIdentifier(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
