package tracking

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"lamin/internal/logging"
	"lamin/internal/storage"
	"lamin/internal/store"
	"lamin/internal/transform"
)

// ErrSourceChanged is returned by Save when the identity a file declares no
// longer matches its latest run.
var ErrSourceChanged = errors.New("source changed since its latest run")

// Save reconciles the identity of the latest run of path against the saved
// identity and, for a new or newer version, uploads the source and saves the
// identity. Saving an already saved version is a no-op.
func (s *Service) Save(ctx context.Context, path string) (Outcome, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	logger := s.logger.With(logging.String(logging.FieldPath, abs))

	recorded, err := s.store.Get(ctx, abs)
	if err != nil {
		return Outcome{}, err
	}
	run, err := s.store.LatestRun(ctx, abs)
	if err != nil {
		return Outcome{}, err
	}
	var declared *transform.Identity
	if run != nil {
		declared = &run.Identity
	}

	result, err := transform.Reconcile(declared, recorded)
	var mismatch *transform.IdentityMismatchError
	switch {
	case errors.Is(err, transform.ErrNotTracked):
		logger.Info("save requested before any run",
			logging.Args(logging.DecisionAttrs("save", "rejected", "not_tracked")...)...)
		return Outcome{
			Message:  fmt.Sprintf("Did you run ln.track()? No run is recorded for %s.", abs),
			ExitCode: ExitUserAction,
		}, fmt.Errorf("%w: no run recorded for %s", transform.ErrNotTracked, abs)
	case errors.As(err, &mismatch):
		suggested := transform.Identity{StemUID: mismatch.Recorded.StemUID, Version: transform.NextVersion(mismatch.Recorded.Version)}
		logging.WarnWithContext(logger, "latest run declares a different stem uid", "identity_mismatch",
			logging.String("declared", mismatch.Declared.StemUID),
			logging.String("recorded", mismatch.Recorded.StemUID),
			logging.String(logging.FieldErrorHint, "restore the saved stem uid and run again"),
		)
		return updateRequired(abs, suggested, err)
	case err != nil:
		return Outcome{}, err
	}

	if result == transform.ResultCurrent {
		logger.Info("transform already saved",
			logging.Args(logging.DecisionAttrs("save", "noop", "current")...)...)
		return Outcome{
			Result:   result,
			Message:  fmt.Sprintf("transform %s is already saved", recorded.UID),
			ExitCode: ExitOK,
			Run:      run,
		}, nil
	}

	onDisk, err := transform.ParseSource(abs)
	if err != nil {
		return Outcome{}, err
	}
	if onDisk == nil || *onDisk != *declared {
		stamped := "no transform identity"
		if onDisk != nil {
			stamped = onDisk.String()
		}
		logging.WarnWithContext(logger, "source changed since its latest run", "source_changed",
			logging.String("declared", stamped),
			logging.String("run", declared.String()),
			logging.String(logging.FieldErrorHint, "run the file again before saving"),
		)
		return Outcome{
			Result:   result,
			Message:  fmt.Sprintf("%s now declares %s but its latest run used %s. Run ln.track() again before saving.", abs, stamped, declared),
			ExitCode: ExitUserAction,
			Run:      run,
		}, fmt.Errorf("%w: %s", ErrSourceChanged, abs)
	}

	uid := transform.UID(*declared)
	hash, err := transform.HashSource(abs)
	if err != nil {
		return Outcome{}, err
	}
	key := storage.SourceKey(uid, filepath.Ext(abs))
	if s.artifacts != nil {
		if err := s.artifacts.PutFile(ctx, key, abs); err != nil {
			return Outcome{}, fmt.Errorf("upload source of %s: %w", uid, err)
		}
	} else {
		key = ""
	}
	info := store.SaveInfo{
		Name:       transform.Name(abs),
		Kind:       transform.Kind(abs),
		SourceKey:  key,
		SourceHash: hash,
	}
	if err := s.store.Put(ctx, abs, *declared, info); err != nil {
		return Outcome{}, err
	}
	tr, err := s.store.TransformByUID(ctx, uid)
	if err != nil {
		return Outcome{}, err
	}
	logger.Info("transform saved",
		logging.String(logging.FieldTransformUID, uid),
		logging.String("version", declared.Version),
		logging.String("source_key", key),
		logging.String("result", result.String()),
	)
	return Outcome{
		Result:    result,
		Message:   fmt.Sprintf("saved transform %s version %s", uid, declared.Version),
		ExitCode:  ExitOK,
		Transform: tr,
		Run:       run,
	}, nil
}
