// Package publish uploads built wheels to S3-compatible object storage.
package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/freesurfer/fspack/internal/config"
	fserrors "github.com/freesurfer/fspack/internal/errors"
)

// ContentType is stored with every uploaded wheel.
const ContentType = "application/octet-stream"

// Store uploads files into one bucket.
type Store struct {
	client   *minio.Client
	bucket   string
	region   string
	initOnce sync.Once
	initErr  error
}

// Object describes an uploaded file.
type Object struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Key    string `json:"key" yaml:"key"`
	Size   int64  `json:"size" yaml:"size"`
	ETag   string `json:"etag" yaml:"etag"`
}

// NewStore validates cfg and creates a client. No request is made until
// the first upload.
func NewStore(cfg config.PublishConfig) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fserrors.ConfigValidationError("publish.endpoint", "endpoint is required", nil)
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fserrors.ConfigValidationError("publish.access_key", "access key and secret key are required", nil)
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fserrors.ConfigValidationError("publish.bucket", "bucket is required", nil)
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = config.DefaultRegion
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fserrors.Wrap(err, fserrors.ErrPublish, "failed to create storage client")
	}

	return &Store{
		client: client,
		bucket: bucket,
		region: region,
	}, nil
}

// Bucket returns the target bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Upload stores the file at path under key, creating the bucket first if
// it does not exist.
func (s *Store) Upload(ctx context.Context, key, path string) (*Object, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return nil, fserrors.PublishFailed(s.bucket, key, fmt.Errorf("object key is required"))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fserrors.PublishFailed(s.bucket, key, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fserrors.PublishFailed(s.bucket, key, err)
	}

	if err := s.ensureBucket(ctx); err != nil {
		return nil, fserrors.PublishFailed(s.bucket, key, fmt.Errorf("ensure bucket: %w", err))
	}

	uploaded, err := s.client.PutObject(ctx, s.bucket, key, f, info.Size(), minio.PutObjectOptions{
		ContentType: ContentType,
	})
	if err != nil {
		return nil, fserrors.PublishFailed(s.bucket, key, err)
	}

	return &Object{
		Bucket: s.bucket,
		Key:    key,
		Size:   uploaded.Size,
		ETag:   uploaded.ETag,
	}, nil
}

// ObjectKey returns the key a wheel is stored under:
// <prefix>/<name>/<version>/<file>.
func ObjectKey(prefix, name, version, wheelPath string) string {
	parts := make([]string, 0, 4)
	if p := strings.Trim(strings.TrimSpace(prefix), "/"); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, name, version, filepath.Base(wheelPath))
	return strings.Join(parts, "/")
}
