package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/normatel/norahub/internal/config"
)

// ObjectInfo describes a stored object
type ObjectInfo struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Updated     time.Time `json:"updated"`
}

// ObjectStore is the object storage surface the portal needs. The production
// implementation is GCS through the Firebase Admin SDK; tests use an
// in-memory fake.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Upload(ctx context.Context, path, contentType string, body io.Reader) (*ObjectInfo, error)
	Copy(ctx context.Context, src, dst string) error
	Delete(ctx context.Context, path string) error
	SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

// ===========================
// GCS IMPLEMENTATION
// ===========================

// GCSStore implements ObjectStore over a Firebase-managed GCS bucket
type GCSStore struct {
	bucket *storage.BucketHandle
}

var _ ObjectStore = (*GCSStore)(nil)

// NewGCSStore initializes the bucket handle from the configured Firebase app.
// Returns an error instead of a half-working store: callers decide whether
// file features degrade or the process refuses to start.
func NewGCSStore(ctx context.Context) (*GCSStore, error) {
	if config.App.StorageBucket == "" {
		return nil, errors.New("storage bucket not configured")
	}

	opt := option.WithCredentialsFile(config.App.FirebaseCredentialsFile)
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     config.App.FirebaseProjectID,
		StorageBucket: config.App.StorageBucket,
	}, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage client: %w", err)
	}

	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("failed to open default bucket: %w", err)
	}

	log.Printf("Object store initialized (bucket %s)", config.App.StorageBucket)
	return &GCSStore{bucket: bucket}, nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	objects := make([]ObjectInfo, 0)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %s: %w", prefix, err)
		}
		objects = append(objects, ObjectInfo{
			Path:        attrs.Name,
			Size:        attrs.Size,
			ContentType: attrs.ContentType,
			Updated:     attrs.Updated,
		})
	}
	return objects, nil
}

func (s *GCSStore) Upload(ctx context.Context, path, contentType string, body io.Reader) (*ObjectInfo, error) {
	w := s.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType

	size, err := io.Copy(w, body)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to upload %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize %s: %w", path, err)
	}

	return &ObjectInfo{Path: path, Size: size, ContentType: contentType, Updated: time.Now()}, nil
}

func (s *GCSStore) Copy(ctx context.Context, src, dst string) error {
	_, err := s.bucket.Object(dst).CopierFrom(s.bucket.Object(src)).Run(ctx)
	if err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return nil
}

func (s *GCSStore) Delete(ctx context.Context, path string) error {
	if err := s.bucket.Object(path).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

func (s *GCSStore) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	url, err := s.bucket.SignedURL(path, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(expiry),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign url for %s: %w", path, err)
	}
	return url, nil
}

// sortObjects orders a listing by path so saga cursors are deterministic
func sortObjects(objects []ObjectInfo) {
	sort.Slice(objects, func(i, j int) bool { return objects[i].Path < objects[j].Path })
}
