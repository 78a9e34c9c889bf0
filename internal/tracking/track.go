package tracking

import (
	"context"
	"errors"
	"fmt"

	"lamin/internal/logging"
	"lamin/internal/store"
	"lamin/internal/transform"
)

// Track reconciles the identity tc declares against the saved identity and
// records a run when the declared version has not been saved yet.
func (s *Service) Track(ctx context.Context, tc Context) (Outcome, error) {
	recorded, err := s.store.Get(ctx, tc.Path)
	if err != nil {
		return Outcome{}, err
	}

	result, err := transform.Reconcile(tc.Declared, recorded)
	logger := s.logger.With(logging.String(logging.FieldPath, tc.Path))

	var mismatch *transform.IdentityMismatchError
	switch {
	case errors.Is(err, transform.ErrNotTracked):
		suggested := transform.Identity{StemUID: transform.NewStemUID(), Version: "1"}
		logger.Info("file declares no transform identity",
			logging.Args(logging.DecisionAttrs("track", "update_required", "not_tracked")...)...)
		return updateRequired(tc.Path, suggested, err)
	case errors.As(err, &mismatch):
		suggested := transform.Identity{StemUID: mismatch.Recorded.StemUID, Version: transform.NextVersion(mismatch.Recorded.Version)}
		logging.WarnWithContext(logger, "declared stem uid differs from saved stem uid", "identity_mismatch",
			logging.String("declared", mismatch.Declared.StemUID),
			logging.String("recorded", mismatch.Recorded.StemUID),
			logging.String(logging.FieldErrorHint, "restore the saved stem uid"),
		)
		return updateRequired(tc.Path, suggested, err)
	case err != nil:
		return Outcome{}, err
	}

	if result == transform.ResultCurrent {
		suggested := transform.Identity{StemUID: tc.Declared.StemUID, Version: transform.NextVersion(tc.Declared.Version)}
		logger.Info("declared version is already saved",
			logging.Args(logging.DecisionAttrs("track", "update_required", "current")...)...)
		cause := fmt.Errorf("transform %s version %s is already saved", recorded.UID, recorded.Version)
		outcome, updateErr := updateRequired(tc.Path, suggested, cause)
		outcome.Result = result
		return outcome, updateErr
	}

	run, err := s.store.RecordRun(ctx, store.RunInput{
		Path:       tc.Path,
		Identity:   *tc.Declared,
		Name:       transform.Name(tc.Path),
		Kind:       transform.Kind(tc.Path),
		PyPackages: tc.PyPackages,
	})
	if err != nil {
		return Outcome{}, err
	}
	tr, err := s.store.TransformByUID(ctx, run.TransformUID)
	if err != nil {
		return Outcome{}, err
	}
	logger.Info("run recorded",
		logging.String(logging.FieldTransformUID, tr.UID),
		logging.String("run_uid", run.UID),
		logging.Any("pypackages", run.PyPackages),
		logging.String("result", result.String()),
	)
	message := fmt.Sprintf("saved: Transform(uid='%s', version='%s', name='%s')\nsaved: Run(uid='%s')",
		tr.UID, tr.Version, tr.Name, run.UID)
	return Outcome{
		Result:    result,
		Message:   message,
		ExitCode:  ExitOK,
		Transform: tr,
		Run:       run,
	}, nil
}
