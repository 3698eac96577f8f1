// Package avatar stores profile pictures in S3-compatible object storage.
package avatar

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"zedit/api/internal/util"
)

// Config holds object storage connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base URL clients fetch avatars from. When empty,
	// the endpoint itself is used.
	PublicURL string
}

// Store uploads and removes profile pictures.
type Store struct {
	client *minio.Client
	cfg    Config
}

// New connects to the object store and ensures the bucket exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket: %w", err)
		}
	}

	return &Store{client: client, cfg: cfg}, nil
}

var allowedContentTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ErrUnsupportedType is returned for non-image uploads.
var ErrUnsupportedType = fmt.Errorf("unsupported image type")

// Upload stores an avatar for the user and returns its public URL.
// Object names carry a random suffix so a stale cached URL never shows a
// newer picture.
func (s *Store) Upload(ctx context.Context, userID, contentType string, body io.Reader, size int64) (string, error) {
	ext, ok := allowedContentTypes[strings.ToLower(contentType)]
	if !ok {
		return "", ErrUnsupportedType
	}

	objectName := path.Join(userID, util.NewID("pic")+ext)
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, objectName, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=86400",
	})
	if err != nil {
		return "", fmt.Errorf("put avatar: %w", err)
	}
	return s.publicURL(objectName), nil
}

// Remove deletes every stored picture for the user.
func (s *Store) Remove(ctx context.Context, userID string) error {
	opts := minio.ListObjectsOptions{Prefix: userID + "/", Recursive: true}
	for object := range s.client.ListObjects(ctx, s.cfg.Bucket, opts) {
		if object.Err != nil {
			return fmt.Errorf("list avatars: %w", object.Err)
		}
		if err := s.client.RemoveObject(ctx, s.cfg.Bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove avatar: %w", err)
		}
	}
	return nil
}

func (s *Store) publicURL(objectName string) string {
	base := strings.TrimSuffix(s.cfg.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if s.cfg.UseSSL {
			scheme = "https"
		}
		base = scheme + "://" + s.cfg.Endpoint
	}
	return base + "/" + s.cfg.Bucket + "/" + objectName
}
