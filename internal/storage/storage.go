// Package storage reads and writes objects under an instance storage root.
// Roots are local directories, s3://bucket/prefix or gs://bucket/prefix.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"lamin/internal/config"
)

// Provider identifies a storage backend.
type Provider string

const (
	ProviderLocal Provider = "local"
	ProviderS3    Provider = "s3"
	ProviderGCS   Provider = "gcs"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Backend is the object store behind an instance storage root. Keys are
// slash separated and relative to the root.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader) error
	PutFile(ctx context.Context, key, localPath string) error
	Get(ctx context.Context, key string, w io.Writer) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Provider() Provider
	Root() string
	Close() error
}

// Root is a parsed storage root.
type Root struct {
	Provider Provider
	// Bucket is empty for local roots.
	Bucket string
	// Prefix is the key prefix inside the bucket, or the absolute directory
	// for local roots.
	Prefix string
}

func (r Root) String() string {
	switch r.Provider {
	case ProviderS3:
		return joinURI("s3://", r.Bucket, r.Prefix)
	case ProviderGCS:
		return joinURI("gs://", r.Bucket, r.Prefix)
	default:
		return r.Prefix
	}
}

// IsLocal reports whether the root is a local directory.
func (r Root) IsLocal() bool {
	return r.Provider == ProviderLocal
}

func joinURI(scheme, bucket, prefix string) string {
	if prefix == "" {
		return scheme + bucket
	}
	return scheme + bucket + "/" + prefix
}

// ParseRoot classifies a storage root. Local paths are expanded and made
// absolute.
func ParseRoot(root string) (Root, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return Root{}, errors.New("storage root is empty")
	}
	for scheme, provider := range map[string]Provider{"s3://": ProviderS3, "gs://": ProviderGCS} {
		if !strings.HasPrefix(root, scheme) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(root, scheme), "/", 2)
		if parts[0] == "" {
			return Root{}, fmt.Errorf("storage root %q has no bucket", root)
		}
		prefix := ""
		if len(parts) > 1 {
			prefix = strings.Trim(parts[1], "/")
		}
		return Root{Provider: provider, Bucket: parts[0], Prefix: prefix}, nil
	}
	if strings.Contains(root, "://") && !strings.HasPrefix(root, "file://") {
		return Root{}, fmt.Errorf("unsupported storage scheme in %q", root)
	}
	local, err := config.ExpandPath(strings.TrimPrefix(root, "file://"))
	if err != nil {
		return Root{}, err
	}
	abs, err := filepath.Abs(local)
	if err != nil {
		return Root{}, fmt.Errorf("resolve storage root: %w", err)
	}
	return Root{Provider: ProviderLocal, Prefix: abs}, nil
}

// Open constructs the backend for root using the storage client settings
// in cfg.
func Open(ctx context.Context, root string, cfg config.Storage) (Backend, error) {
	parsed, err := ParseRoot(root)
	if err != nil {
		return nil, err
	}
	switch parsed.Provider {
	case ProviderS3:
		return NewS3(ctx, parsed, cfg)
	case ProviderGCS:
		return NewGCS(ctx, parsed, cfg)
	default:
		return NewLocal(parsed.Prefix)
	}
}

// objectKey joins a bucket prefix and a relative key.
func objectKey(prefix, key string) string {
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

// SourceKey is the key a transform's source snapshot is stored under.
func SourceKey(uid, ext string) string {
	return path.Join(".lamindb", uid+ext)
}
