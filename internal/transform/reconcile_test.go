package transform_test

import (
	"errors"
	"testing"

	"lamin/internal/transform"
)

func recorded(stem, version string) *transform.RecordedState {
	return &transform.RecordedState{Identity: transform.Identity{StemUID: stem, Version: version}}
}

func TestReconcile(t *testing.T) {
	declared := &transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "1"}

	cases := []struct {
		name     string
		declared *transform.Identity
		recorded *transform.RecordedState
		want     transform.Result
		wantErr  error
	}{
		{name: "unrecorded", declared: declared, recorded: nil, want: transform.ResultUnrecorded},
		{name: "current", declared: declared, recorded: recorded("m5uCHTTpJnjQ", "1"), want: transform.ResultCurrent},
		{name: "stale", declared: declared, recorded: recorded("m5uCHTTpJnjQ", "0"), want: transform.ResultStale},
		{name: "stale version bump", declared: &transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "2"}, recorded: recorded("m5uCHTTpJnjQ", "1"), want: transform.ResultStale},
		{name: "mismatch", declared: declared, recorded: recorded("Xyz123456789", "1"), wantErr: transform.ErrIdentityMismatch},
		{name: "mismatch beats version", declared: declared, recorded: recorded("Xyz123456789", "7"), wantErr: transform.ErrIdentityMismatch},
		{name: "not tracked", declared: nil, recorded: nil, wantErr: transform.ErrNotTracked},
		{name: "not tracked with record", declared: nil, recorded: recorded("m5uCHTTpJnjQ", "1"), wantErr: transform.ErrNotTracked},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := transform.Reconcile(tc.declared, tc.recorded)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got result=%v err=%v", tc.wantErr, got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestReconcileMismatchCarriesBothIdentities(t *testing.T) {
	declared := &transform.Identity{StemUID: "m5uCHTTpJnjQ", Version: "1"}
	_, err := transform.Reconcile(declared, recorded("Xyz123456789", "3"))

	var mismatch *transform.IdentityMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected IdentityMismatchError, got %v", err)
	}
	if mismatch.Declared.StemUID != "m5uCHTTpJnjQ" || mismatch.Recorded.StemUID != "Xyz123456789" {
		t.Fatalf("unexpected identities: %+v", mismatch)
	}
	if mismatch.Recorded.Version != "3" {
		t.Fatalf("expected recorded version 3, got %q", mismatch.Recorded.Version)
	}
}

func TestReconcileCurrentForEqualIdentities(t *testing.T) {
	versions := []string{"1", "2", "1.0", "draft", "2024-01-01"}
	stems := []string{"m5uCHTTpJnjQ", "000000000000", "zzzzzzzzzzzz"}
	for _, stem := range stems {
		for _, version := range versions {
			declared := &transform.Identity{StemUID: stem, Version: version}
			got, err := transform.Reconcile(declared, recorded(stem, version))
			if err != nil || got != transform.ResultCurrent {
				t.Fatalf("%s/%s: got %v, %v", stem, version, got, err)
			}
			got, err = transform.Reconcile(declared, recorded(stem, version+"x"))
			if err != nil || got != transform.ResultStale {
				t.Fatalf("%s/%s bumped: got %v, %v", stem, version, got, err)
			}
		}
	}
}

func TestResultString(t *testing.T) {
	if transform.ResultUnrecorded.String() != "unrecorded" ||
		transform.ResultCurrent.String() != "current" ||
		transform.ResultStale.String() != "stale" {
		t.Fatal("unexpected result labels")
	}
}
