package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"lamin/internal/store"
	"lamin/internal/testsupport"
	"lamin/internal/transform"
)

func TestOpenCreatesSchemaAndAppliesMigrations(t *testing.T) {
	st := testsupport.MustOpenStore(t)

	statuses, err := st.Migrations(context.Background())
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	if len(statuses) == 0 {
		t.Fatal("expected embedded migrations")
	}
	for _, status := range statuses {
		if !status.Applied {
			t.Fatalf("expected %s to be applied", status.Version)
		}
	}
}

func TestOpenWithoutMigrationsLeavesThemPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instance", "lamin.db")
	st, err := store.Open(path, store.WithoutMigrations())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	statuses, err := st.Migrations(ctx)
	if err != nil {
		t.Fatalf("Migrations: %v", err)
	}
	for _, status := range statuses {
		if status.Applied {
			t.Fatalf("expected %s to be pending", status.Version)
		}
	}

	applied, err := st.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(applied) != len(statuses) {
		t.Fatalf("expected %d applied, got %v", len(statuses), applied)
	}
	again, err := st.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no pending migrations, got %v", again)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lamin.db")
	ctx := context.Background()
	identity := transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "1"}

	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Put(ctx, "/work/a.py", identity, store.SaveInfo{Name: "A"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = store.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	state, err := st.Get(ctx, "/work/a.py")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state == nil || state.Identity != identity {
		t.Fatalf("unexpected state after reopen: %+v", state)
	}
}

func TestGetUnrecordedReturnsNil(t *testing.T) {
	st := testsupport.MustOpenStore(t)
	state, err := st.Get(context.Background(), "/work/never.py")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state != nil {
		t.Fatalf("expected nil state, got %+v", state)
	}
}

func TestPutOverwritesSavedIdentity(t *testing.T) {
	st := testsupport.MustOpenStore(t)
	ctx := context.Background()
	path := "/work/analysis.py"

	first := transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "1"}
	if err := st.Put(ctx, path, first, store.SaveInfo{Name: "Analysis", SourceKey: ".lamindb/a.py", SourceHash: "abc"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	second := transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "2"}
	if err := st.Put(ctx, path, second, store.SaveInfo{Name: "Analysis"}); err != nil {
		t.Fatalf("Put second: %v", err)
	}

	state, err := st.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if state == nil || state.Identity != second {
		t.Fatalf("unexpected state: %+v", state)
	}
	if state.UID != transform.UID(second) || state.Name != "Analysis" {
		t.Fatalf("unexpected metadata: %+v", state)
	}
	if state.SavedAt.IsZero() {
		t.Fatal("expected saved timestamp")
	}

	old, err := st.TransformByUID(ctx, transform.UID(first))
	if err != nil {
		t.Fatalf("TransformByUID: %v", err)
	}
	if old.SourceKey != ".lamindb/a.py" || old.SourceHash != "abc" || !old.Saved() {
		t.Fatalf("unexpected first version: %+v", old)
	}
}

func TestPutRejectsInvalidStemUID(t *testing.T) {
	st := testsupport.MustOpenStore(t)
	err := st.Put(context.Background(), "/work/a.py", transform.Identity{StemUID: "bad", Version: "1"}, store.SaveInfo{})
	if !errors.Is(err, transform.ErrInvalidStemUID) {
		t.Fatalf("expected ErrInvalidStemUID, got %v", err)
	}
}

func TestRecordRunAndLatestRun(t *testing.T) {
	st := testsupport.MustOpenStore(t)
	ctx := context.Background()
	path := "/work/run.py"

	latest, err := st.LatestRun(ctx, path)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected no run, got %+v", latest)
	}

	first, err := st.RecordRun(ctx, store.RunInput{Path: path, Identity: transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "1"}, Name: "Run"})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	second, err := st.RecordRun(ctx, store.RunInput{Path: path, Identity: transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "2"}, Name: "Run"})
	if err != nil {
		t.Fatalf("RecordRun second: %v", err)
	}
	if first.UID == second.UID {
		t.Fatal("expected distinct run uids")
	}

	latest, err = st.LatestRun(ctx, path)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest == nil || latest.UID != second.UID || latest.Identity.Version != "2" {
		t.Fatalf("unexpected latest run: %+v", latest)
	}
	runs, err := st.RunsFor(ctx, path)
	if err != nil {
		t.Fatalf("RunsFor: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	saved, err := st.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if saved != nil {
		t.Fatalf("recording a run must not save the identity, got %+v", saved)
	}
}

func TestTransformByUID(t *testing.T) {
	st := testsupport.MustOpenStore(t)
	ctx := context.Background()
	v1 := transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "1"}
	v2 := transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "2"}
	for _, id := range []transform.Identity{v1, v2} {
		if _, err := st.RecordRun(ctx, store.RunInput{Path: "/work/x.py", Identity: id, Name: "X"}); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	exact, err := st.TransformByUID(ctx, transform.UID(v1))
	if err != nil {
		t.Fatalf("TransformByUID exact: %v", err)
	}
	if exact.Version != "1" || exact.Saved() {
		t.Fatalf("unexpected exact match: %+v", exact)
	}

	latest, err := st.TransformByUID(ctx, "m5uCHTTpJnjQ")
	if err != nil {
		t.Fatalf("TransformByUID stem: %v", err)
	}
	if latest.Version != "2" {
		t.Fatalf("expected latest version 2, got %+v", latest)
	}

	for _, uid := range []string{"zzzzzzzzzzzz", "nope"} {
		if _, err := st.TransformByUID(ctx, uid); !errors.Is(err, store.ErrTransformNotFound) {
			t.Fatalf("%s: expected ErrTransformNotFound, got %v", uid, err)
		}
	}

	all, err := st.ListTransforms(ctx)
	if err != nil {
		t.Fatalf("ListTransforms: %v", err)
	}
	if len(all) != 2 || all[0].Version != "2" {
		t.Fatalf("unexpected transforms: %+v", all)
	}
}

func TestRecordRunStoresPackages(t *testing.T) {
	st := testsupport.MustOpenStore(t)
	ctx := context.Background()
	run, err := st.RecordRun(ctx, store.RunInput{
		Path:       "/work/pkgs.py",
		Identity:   transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "1"},
		PyPackages: []string{" pandas", "numpy", "", "pandas"},
	})
	if err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if len(run.PyPackages) != 2 || run.PyPackages[0] != "pandas" || run.PyPackages[1] != "numpy" {
		t.Fatalf("unexpected run packages %v", run.PyPackages)
	}
	packages, err := st.RunPackages(ctx, run.UID)
	if err != nil {
		t.Fatalf("RunPackages: %v", err)
	}
	if strings.Join(packages, ",") != "numpy,pandas" {
		t.Fatalf("unexpected stored packages %v", packages)
	}
}

func TestTransformByStemPrefersSavedVersion(t *testing.T) {
	st := testsupport.MustOpenStore(t)
	ctx := context.Background()
	v1 := transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "1"}
	v2 := transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "2"}
	if err := st.Put(ctx, "/work/x.py", v1, store.SaveInfo{Name: "X", SourceKey: ".lamindb/x.py"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := st.RecordRun(ctx, store.RunInput{Path: "/work/x.py", Identity: v2, Name: "X"}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	got, err := st.TransformByUID(ctx, "m5uCHTTpJnjQ")
	if err != nil {
		t.Fatalf("TransformByUID: %v", err)
	}
	if got.Version != "1" || !got.Saved() {
		t.Fatalf("expected saved version 1, got %+v", got)
	}
}

func TestDescribe(t *testing.T) {
	st := testsupport.MustOpenStore(t)
	ctx := context.Background()
	if _, err := st.RecordRun(ctx, store.RunInput{Path: "/work/x.py", Identity: transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "1"}}); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	tables, err := st.Describe(ctx)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	byName := map[string]store.TableInfo{}
	for _, table := range tables {
		byName[table.Name] = table
	}
	for _, name := range []string{"transforms", "runs", "saved_identities"} {
		if _, ok := byName[name]; !ok {
			t.Fatalf("expected table %s in %+v", name, tables)
		}
	}
	if _, ok := byName["schema_version"]; ok {
		t.Fatal("bookkeeping tables must be hidden")
	}
	if byName["runs"].Rows != 1 || byName["transforms"].Rows != 1 {
		t.Fatalf("unexpected row counts: %+v", byName)
	}
	var uidIsKey bool
	for _, col := range byName["transforms"].Columns {
		if col.Name == "uid" && col.PrimaryKey {
			uidIsKey = true
		}
	}
	if !uidIsKey {
		t.Fatal("expected uid primary key column")
	}
}
