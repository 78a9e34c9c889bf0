package tracking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"lamin/internal/fileutil"
	"lamin/internal/logging"
	"lamin/internal/transform"
)

// ErrInvalidReference is returned for stage arguments that name no transform.
var ErrInvalidReference = errors.New("invalid transform reference")

// Reference names a transform, optionally qualified by the instance it
// belongs to.
type Reference struct {
	Owner    string
	Instance string
	UID      string
}

// Slug returns owner/instance, or "" for unqualified references.
func (r Reference) Slug() string {
	if r.Owner == "" {
		return ""
	}
	return r.Owner + "/" + r.Instance
}

// ParseReference accepts "transform <uid>" or a hub link of the form
// <hub>/<owner>/<instance>/transform/<uid>.
func ParseReference(ref string) (Reference, error) {
	ref = strings.TrimSpace(ref)
	if fields := strings.Fields(ref); len(fields) == 2 && fields[0] == "transform" {
		return checkUID(Reference{UID: fields[1]})
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		u, err := url.Parse(ref)
		if err != nil {
			return Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 4 && parts[2] == "transform" {
			return checkUID(Reference{Owner: parts[0], Instance: parts[1], UID: parts[3]})
		}
	}
	return Reference{}, fmt.Errorf("%w: %q (expected 'transform <uid>' or a transform URL)", ErrInvalidReference, ref)
}

func checkUID(ref Reference) (Reference, error) {
	switch len(ref.UID) {
	case transform.UIDLength:
		if err := transform.ValidateStemUID(ref.UID[:transform.StemUIDLength]); err != nil {
			return Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
	case transform.StemUIDLength:
		if err := transform.ValidateStemUID(ref.UID); err != nil {
			return Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
	default:
		return Reference{}, fmt.Errorf("%w: uid %q must have %d or %d characters",
			ErrInvalidReference, ref.UID, transform.StemUIDLength, transform.UIDLength)
	}
	return ref, nil
}

// Stage downloads the saved source of the referenced transform into dir.
func (s *Service) Stage(ctx context.Context, rawRef, dir string) (Outcome, error) {
	ref, err := ParseReference(rawRef)
	if err != nil {
		return Outcome{Message: err.Error(), ExitCode: ExitUserAction}, err
	}
	if slug := ref.Slug(); slug != "" && s.instance != "" && slug != s.instance {
		err := fmt.Errorf("transform belongs to instance %s but %s is loaded", slug, s.instance)
		return Outcome{
			Message:  fmt.Sprintf("Transform belongs to instance %s. Run: lamin load %s", slug, slug),
			ExitCode: ExitUserAction,
		}, err
	}

	tr, err := s.store.TransformByUID(ctx, ref.UID)
	if err != nil {
		return Outcome{Message: err.Error(), ExitCode: ExitUserAction}, err
	}
	if !tr.Saved() || s.artifacts == nil {
		err := fmt.Errorf("transform %s has no saved source", tr.UID)
		return Outcome{
			Message:   fmt.Sprintf("Transform %s has no saved source. Run: lamin save <file>", tr.UID),
			ExitCode:  ExitUserAction,
			Transform: tr,
		}, err
	}

	target := filepath.Join(dir, path.Base(tr.SourceKey))
	var buf bytes.Buffer
	if err := s.artifacts.Get(ctx, tr.SourceKey, &buf); err != nil {
		return Outcome{}, fmt.Errorf("download source of %s: %w", tr.UID, err)
	}
	if err := fileutil.WriteFileAtomic(target, buf.Bytes(), 0o644); err != nil {
		return Outcome{}, fmt.Errorf("stage %s: %w", tr.UID, err)
	}

	s.logger.Info("transform staged",
		logging.String(logging.FieldTransformUID, tr.UID),
		logging.String(logging.FieldPath, target),
	)
	return Outcome{
		Message: fmt.Sprintf("staged transform %s version %s to %s\n\n%s",
			tr.UID, tr.Version, target, transform.Settings(tr.Identity())),
		ExitCode:  ExitOK,
		Transform: tr,
	}, nil
}
