package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"lamin/internal/config"
)

// GCS stores objects in a Google Cloud Storage bucket.
type GCS struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	root   Root
}

// NewGCS builds a GCS backend using the configured credentials file or the
// application default credentials. A custom endpoint is used without
// authentication.
func NewGCS(ctx context.Context, root Root, cfg config.Storage) (*GCS, error) {
	var opts []option.ClientOption
	switch {
	case cfg.GCSEndpoint != "":
		opts = append(opts, option.WithEndpoint(cfg.GCSEndpoint), option.WithoutAuthentication())
	case cfg.GCSCredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(root.Bucket), root: root}, nil
}

func (g *GCS) object(key string) *gcs.ObjectHandle {
	return g.bucket.Object(objectKey(g.root.Prefix, key))
}

// Put uploads r to key. A failed copy discards the partial upload.
func (g *GCS) Put(ctx context.Context, key string, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := g.object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		// Closing would finalize the object; cancelling abandons it.
		cancel()
		return fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (g *GCS) PutFile(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()
	return g.Put(ctx, key, f)
}

func (g *GCS) Get(ctx context.Context, key string, w io.Writer) error {
	r, err := g.object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.Copy(w, r)
	return err
}

func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCS) Provider() Provider { return ProviderGCS }

func (g *GCS) Root() string { return g.root.String() }

func (g *GCS) Close() error { return g.client.Close() }
