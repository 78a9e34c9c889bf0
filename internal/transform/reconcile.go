package transform

// Reconcile compares the identity a file declares with the state recorded
// for it. A stem uid divergence is always a mismatch; a version-only
// divergence is staleness.
func Reconcile(declared *Identity, recorded *RecordedState) (Result, error) {
	if declared == nil {
		return 0, ErrNotTracked
	}
	if recorded == nil {
		return ResultUnrecorded, nil
	}
	if recorded.StemUID != declared.StemUID {
		return 0, &IdentityMismatchError{Declared: *declared, Recorded: recorded.Identity}
	}
	if recorded.Version == declared.Version {
		return ResultCurrent, nil
	}
	return ResultStale, nil
}
