// Package objectstore contains the S3-compatible image store.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/example/hikelog/internal/apperr"
	"github.com/example/hikelog/internal/ports/secondary"
)

// Config holds the object store connection settings.
type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseTLS    bool
	Region    string

	// URLExpiry bounds presigned download URLs.
	URLExpiry time.Duration
}

// Store implements secondary.ObjectStore with minio-go.
type Store struct {
	client *minio.Client
	cfg    Config

	mu          sync.Mutex
	bucketReady bool
}

// New creates a store. The bucket is created on first upload if missing.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, apperr.New(apperr.KindPermanent, "objectstore.new", "object store endpoint and bucket are required")
	}
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 15 * time.Minute
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseTLS,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return &Store{client: client, cfg: cfg}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return classify("objectstore.bucket", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
			return nil
		}
		return classify("objectstore.bucket", err)
	}
	return nil
}

// Upload streams the handle's content to key and returns the object's URL.
func (s *Store) Upload(ctx context.Context, key string, handle secondary.UploadHandle, progress secondary.ProgressFunc) (string, error) {
	if err := s.ensureBucketOnce(ctx); err != nil {
		return "", err
	}

	body, err := handle.Open()
	if err != nil {
		return "", apperr.Wrap(apperr.KindPermanent, "objectstore.upload", err, "cannot read "+handle.Path)
	}
	defer body.Close()

	opts := minio.PutObjectOptions{ContentType: handle.ContentType}
	if progress != nil {
		opts.Progress = &progressReader{total: handle.Size, report: progress}
	}

	if _, err := s.client.PutObject(ctx, s.cfg.Bucket, key, body, handle.Size, opts); err != nil {
		return "", classify("objectstore.upload", err)
	}

	return s.client.EndpointURL().JoinPath(s.cfg.Bucket, key).String(), nil
}

// ensureBucketOnce remembers a successful bucket check; a failed one is
// retried on the next upload.
func (s *Store) ensureBucketOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bucketReady {
		return nil
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return err
	}
	s.bucketReady = true
	return nil
}

// Delete removes an object. Deleting an absent object is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return classify("objectstore.delete", err)
	}
	return nil
}

// DownloadURL returns a presigned GET URL valid for the configured expiry.
func (s *Store) DownloadURL(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.cfg.Bucket, key, s.cfg.URLExpiry, nil)
	if err != nil {
		return "", classify("objectstore.presign", err)
	}
	return u.String(), nil
}

// classify maps S3 error responses onto error kinds. Throttling and server
// errors are transient, other HTTP errors permanent. Transport errors are
// left for the retry classifier.
func classify(op string, err error) error {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) || resp.StatusCode == 0 {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500,
		resp.Code == "SlowDown", resp.Code == "RequestTimeout":
		return apperr.Transient(op, err)
	default:
		return apperr.Permanent(op, err)
	}
}

// progressReader receives minio's progress reads. Each Read reports len(p)
// more bytes sent.
type progressReader struct {
	mu     sync.Mutex
	sent   int64
	total  int64
	report secondary.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	p.mu.Lock()
	p.sent += int64(len(b))
	if p.total > 0 && p.sent > p.total {
		p.sent = p.total
	}
	sent := p.sent
	p.mu.Unlock()

	p.report(sent, p.total)
	return len(b), nil
}

// Ensure Store implements the interface
var _ secondary.ObjectStore = (*Store)(nil)
