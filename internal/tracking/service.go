package tracking

import (
	"context"
	"io"
	"log/slog"

	"lamin/internal/logging"
	"lamin/internal/store"
	"lamin/internal/transform"
)

// IdentityStore holds the identity saved for each file path.
type IdentityStore interface {
	Get(ctx context.Context, path string) (*transform.RecordedState, error)
	Put(ctx context.Context, path string, identity transform.Identity, info store.SaveInfo) error
}

// TraceStore holds the run trace.
type TraceStore interface {
	RecordRun(ctx context.Context, in store.RunInput) (*store.Run, error)
	LatestRun(ctx context.Context, path string) (*store.Run, error)
}

// TransformLookup resolves transforms by uid.
type TransformLookup interface {
	TransformByUID(ctx context.Context, uid string) (*store.Transform, error)
}

// Store is everything the workflows need from the instance database.
type Store interface {
	IdentityStore
	TraceStore
	TransformLookup
}

// ArtifactStore holds source snapshots.
type ArtifactStore interface {
	PutFile(ctx context.Context, key, localPath string) error
	Get(ctx context.Context, key string, w io.Writer) error
}

// Service runs the workflows against one instance.
type Service struct {
	store     Store
	artifacts ArtifactStore
	logger    *slog.Logger
	hubURL    string
	instance  string
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the logger used by the workflows.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithInstance sets the hub base URL and the owner/name slug of the current
// instance, used to validate transform links passed to Stage.
func WithInstance(hubURL, slug string) Option {
	return func(s *Service) {
		s.hubURL = hubURL
		s.instance = slug
	}
}

// NewService wires the workflows to a store and an artifact store.
func NewService(st Store, artifacts ArtifactStore, opts ...Option) *Service {
	s := &Service{store: st, artifacts: artifacts}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "tracking")
	return s
}
