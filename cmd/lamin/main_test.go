package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lamin/internal/setup"
	"lamin/internal/testsupport"
	"lamin/internal/transform"
)

type cliTestEnv struct {
	baseDir     string
	settingsDir string
	storageDir  string
	workDir     string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliTestEnv{
		baseDir:     base,
		settingsDir: filepath.Join(base, "settings"),
		storageDir:  filepath.Join(base, "storage"),
		workDir:     filepath.Join(base, "work"),
	}
	homeDir := filepath.Join(base, "home")
	for _, dir := range []string{homeDir, env.workDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("LAMIN_SETTINGS_DIR", env.settingsDir)
	t.Setenv("LAMIN_CACHE_DIR", filepath.Join(base, "cache"))
	t.Setenv("LAMIN_LOG_LEVEL", "error")
	t.Chdir(env.workDir)
	return env
}

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// runCLIWithSetup runs the CLI with extra settings manager options, such as a
// scripted confirmation prompt.
func runCLIWithSetup(t *testing.T, opts []setup.Option, args ...string) (string, string, int) {
	t.Helper()
	var configFlag, logLevelFlag string
	ctx := newCommandContext(&configFlag, &logLevelFlag)
	ctx.setupOptions = opts
	var stdout, stderr bytes.Buffer
	code := execute(buildRootCommand(ctx), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func mustRunCLI(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, code := runCLI(t, args...)
	if code != 0 {
		t.Fatalf("lamin %s exited %d\nstdout: %s\nstderr: %s", strings.Join(args, " "), code, stdout, stderr)
	}
	return stdout
}

func TestCLIVersion(t *testing.T) {
	setupCLITestEnv(t)
	out := mustRunCLI(t, "--version")
	if out != "lamin "+version+"\n" {
		t.Fatalf("unexpected version output %q", out)
	}
}

func TestCLITrackSaveScenario(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, "login", "testuser1")
	out := mustRunCLI(t, "init", "--storage", env.storageDir, "--name", "mydata")
	if !strings.Contains(out, "testuser1/mydata") {
		t.Fatalf("unexpected init output %q", out)
	}

	identity := transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "1"}
	script := testsupport.WriteScript(t, env.workDir, "initialized.py", &identity)

	stdout, _, code := runCLI(t, "save", script)
	if code != 1 || !strings.Contains(stdout, "Did you run ln.track()") {
		t.Fatalf("save before run: code=%d stdout=%q", code, stdout)
	}

	stdout, _, code = runCLI(t, "track", script)
	if code != 0 || !strings.Contains(stdout, "saved: Transform") {
		t.Fatalf("track: code=%d stdout=%q", code, stdout)
	}

	stdout, _, code = runCLI(t, "save", script)
	if code != 0 || !strings.Contains(stdout, "saved transform") {
		t.Fatalf("save: code=%d stdout=%q", code, stdout)
	}

	stdout, stderr, code := runCLI(t, "track", script)
	if code != 1 || !strings.Contains(stdout, "Please update your transform settings as follows") {
		t.Fatalf("track again: code=%d stdout=%q", code, stdout)
	}
	if strings.Contains(stderr, "Please update") {
		t.Fatalf("guidance must not be printed twice, stderr=%q", stderr)
	}

	stageDir := filepath.Join(env.baseDir, "staged")
	stdout, _, code = runCLI(t, "stage", "transform", identity.UID(), "--dir", stageDir)
	if code != 0 {
		t.Fatalf("stage: code=%d stdout=%q", code, stdout)
	}
	if _, err := os.Stat(filepath.Join(stageDir, identity.UID()+".py")); err != nil {
		t.Fatalf("expected staged file: %v", err)
	}

	stdout, _, code = runCLI(t, "save", script)
	if code != 0 || !strings.Contains(stdout, "already saved") {
		t.Fatalf("second save: code=%d stdout=%q", code, stdout)
	}
}

func TestCLITrackUntrackedFile(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, "init", "--storage", env.storageDir, "--name", "plain")
	script := testsupport.WriteScript(t, env.workDir, "plain.py", nil)

	stdout, _, code := runCLI(t, "track", script)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stdout, "Please update your transform settings as follows") ||
		!strings.Contains(stdout, `ln.transform.version = "1"`) {
		t.Fatalf("unexpected guidance %q", stdout)
	}
}

func TestCLITrackWithPythonPackages(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, "init", "--storage", env.storageDir, "--name", "pkgdata")
	script := testsupport.WriteScript(t, env.workDir, "pkgs.py", &transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "1"})

	out := mustRunCLI(t, "track", script, "--pypackage", "numpy,pandas")
	if !strings.Contains(out, "saved: Run") {
		t.Fatalf("unexpected track output %q", out)
	}
}

func TestCLIStageUnknownTransform(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, "init", "--storage", env.storageDir, "--name", "stagedata")
	_, _, code := runCLI(t, "stage", "transform", "zzzzzzzzzzzz")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
}

func TestCLIRequiresInstance(t *testing.T) {
	env := setupCLITestEnv(t)
	script := testsupport.WriteScript(t, env.workDir, "x.py", &transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "1"})
	_, stderr, code := runCLI(t, "track", script)
	if code != 1 || !strings.Contains(stderr, "no instance loaded") {
		t.Fatalf("expected missing instance error, code=%d stderr=%q", code, stderr)
	}
}

func TestCLISettingsCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, "login", "testuser1@lamin.ai", "--key", "abc")
	if !strings.Contains(out, "logged in with handle testuser1") {
		t.Fatalf("unexpected login output %q", out)
	}
	mustRunCLI(t, "init", "--storage", env.storageDir, "--name", "mydata")

	out = mustRunCLI(t, "info", "--json")
	var info struct {
		User struct {
			Handle string `json:"handle"`
		} `json:"user"`
		Instance struct {
			Name    string `json:"name"`
			Storage string `json:"storage"`
		} `json:"instance"`
		StorageLocal bool `json:"storage_local"`
	}
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode info: %v\n%s", err, out)
	}
	if info.User.Handle != "testuser1" || info.Instance.Name != "mydata" || !info.StorageLocal {
		t.Fatalf("unexpected info %+v", info)
	}

	out = mustRunCLI(t, "info")
	if !strings.Contains(out, "testuser1/mydata") {
		t.Fatalf("expected instance in info table: %s", out)
	}

	out = mustRunCLI(t, "register")
	if !strings.Contains(out, "registered instance testuser1/mydata") {
		t.Fatalf("unexpected register output %q", out)
	}

	out = mustRunCLI(t, "set", "--storage", "s3://lamin-bucket/mydata")
	if !strings.Contains(out, "s3://lamin-bucket/mydata") {
		t.Fatalf("unexpected set output %q", out)
	}
	if _, _, code := runCLI(t, "set"); code != 1 {
		t.Fatalf("expected set without flags to fail, got %d", code)
	}

	mustRunCLI(t, "close")
	out = mustRunCLI(t, "close")
	if !strings.Contains(out, "no instance loaded") {
		t.Fatalf("unexpected second close output %q", out)
	}

	out = mustRunCLI(t, "load", "testuser1/mydata", "--storage", env.storageDir)
	if !strings.Contains(out, "loaded instance testuser1/mydata") {
		t.Fatalf("unexpected load output %q", out)
	}

	noTTY := []setup.Option{setup.WithTTY(func() bool { return false })}
	if _, stderr, code := runCLIWithSetup(t, noTTY, "delete", "mydata"); code != 1 || !strings.Contains(stderr, "--force") {
		t.Fatalf("expected delete without a terminal to require --force, code=%d stderr=%q", code, stderr)
	}
	mustRunCLI(t, "delete", "mydata", "--force")
	if _, _, code := runCLI(t, "load", "mydata"); code != 1 {
		t.Fatalf("expected load of deleted instance to fail, got %d", code)
	}

	out = mustRunCLI(t, "logout")
	if !strings.Contains(out, "logged out") {
		t.Fatalf("unexpected logout output %q", out)
	}
	if _, _, code := runCLI(t, "login"); code != 1 {
		t.Fatalf("expected login without args to fail, got %d", code)
	}
}

func TestCLIInitRejectsPostgres(t *testing.T) {
	env := setupCLITestEnv(t)
	_, stderr, code := runCLI(t, "init", "--storage", env.storageDir, "--db", "postgresql://localhost/db")
	if code != 1 || !strings.Contains(stderr, "unsupported database") {
		t.Fatalf("expected unsupported database, code=%d stderr=%q", code, stderr)
	}
}

func TestCLIMigrateAndSchema(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, "init", "--storage", env.storageDir, "--name", "schemadata")

	out := mustRunCLI(t, "migrate", "status")
	if !strings.Contains(out, "applied") || strings.Contains(out, "pending") {
		t.Fatalf("unexpected migrate status %s", out)
	}
	out = mustRunCLI(t, "migrate", "deploy")
	if !strings.Contains(out, "No pending migrations") {
		t.Fatalf("unexpected deploy output %q", out)
	}

	out = mustRunCLI(t, "schema", "view")
	for _, table := range []string{"transforms", "runs", "saved_identities"} {
		if !strings.Contains(out, table) {
			t.Fatalf("expected table %s in schema view:\n%s", table, out)
		}
	}

	migrationsDir := filepath.Join(env.baseDir, "migrations")
	out = mustRunCLI(t, "migrate", "create", "add", "notes", "--dir", migrationsDir)
	if !strings.Contains(out, "0001_add_notes.sql") {
		t.Fatalf("unexpected create output %q", out)
	}
}

func TestCLICacheCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	out := mustRunCLI(t, "cache", "get")
	if !strings.Contains(out, filepath.Join(env.baseDir, "cache")) {
		t.Fatalf("unexpected cache get output %q", out)
	}

	newDir := filepath.Join(env.baseDir, "other-cache")
	mustRunCLI(t, "cache", "set", newDir)
	testsupport.WriteFile(t, filepath.Join(newDir, "blob"), "x")
	out = mustRunCLI(t, "cache", "clear")
	if !strings.Contains(out, "Cleared 1 cache entries") {
		t.Fatalf("unexpected clear output %q", out)
	}
}

func TestCLIConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "config.toml")

	out := mustRunCLI(t, "config", "init", "--path", target)
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected config init output %q", out)
	}
	if _, _, code := runCLI(t, "config", "init", "--path", target); code != 1 {
		t.Fatalf("expected config init to refuse overwrite, got %d", code)
	}
	out = mustRunCLI(t, "--config", target, "config", "validate")
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output %q", out)
	}
}

func TestCLIDeletePrompt(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, "init", "--storage", env.storageDir, "--name", "prompted")

	tty := setup.WithTTY(func() bool { return true })
	decline := setup.WithConfirm(func(string) (bool, error) { return false, nil })
	stdout, stderr, code := runCLIWithSetup(t, []setup.Option{tty, decline}, "delete", "prompted")
	if code != 1 || !strings.Contains(stdout, "aborted") || stderr != "" {
		t.Fatalf("declined delete: code=%d stdout=%q stderr=%q", code, stdout, stderr)
	}

	accept := setup.WithConfirm(func(string) (bool, error) { return true, nil })
	stdout, _, code = runCLIWithSetup(t, []setup.Option{tty, accept}, "delete", "prompted")
	if code != 0 || !strings.Contains(stdout, "deleted instance prompted") {
		t.Fatalf("confirmed delete: code=%d stdout=%q", code, stdout)
	}
	if _, err := os.Stat(filepath.Join(env.storageDir, "prompted.lndb")); !os.IsNotExist(err) {
		t.Fatalf("expected database removed, stat err=%v", err)
	}
}
