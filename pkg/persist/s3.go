package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// expiresMetaKey is the object metadata entry holding the expiry.
const expiresMetaKey = "draft-expires-at"

// S3Store is a Store that keeps one object per key in an S3 bucket.
// Expiry is recorded in object metadata and checked on Load; configure a
// bucket lifecycle rule to reclaim space.
type S3Store struct {
	client S3API
	bucket string
	prefix string
	now    func() time.Time
	closed atomic.Bool
}

// S3StoreOption configures S3Store behavior.
type S3StoreOption func(*S3Store)

// WithS3Prefix sets the object key prefix. Default: "drafts/".
func WithS3Prefix(prefix string) S3StoreOption {
	return func(s *S3Store) {
		s.prefix = prefix
	}
}

// WithS3Clock overrides the time source. Used by tests.
func WithS3Clock(now func() time.Time) S3StoreOption {
	return func(s *S3Store) {
		s.now = now
	}
}

// NewS3Store creates a store writing to bucket.
//
//	client := s3.New(s3.Options{Region: "ap-northeast-2", Credentials: creds})
//	store := persist.NewS3Store(client, "my-bucket")
func NewS3Store(client S3API, bucket string, opts ...S3StoreOption) *S3Store {
	s := &S3Store{
		client: client,
		bucket: bucket,
		prefix: "drafts/",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *S3Store) objectKey(key string) string {
	return s.prefix + key + ".json"
}

// Save uploads data as one object.
func (s *S3Store) Save(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			expiresMetaKey: expiresAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("persist: s3 put %q: %w", key, err)
	}
	return nil
}

// Load downloads the object for key. Missing and expired objects yield
// (nil, nil).
func (s *S3Store) Load(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("persist: s3 get %q: %w", key, err)
	}
	defer out.Body.Close()

	if raw, ok := out.Metadata[expiresMetaKey]; ok {
		if exp, perr := time.Parse(time.RFC3339Nano, raw); perr == nil && !s.now().Before(exp) {
			return nil, nil
		}
	}

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("persist: s3 read %q: %w", key, err)
	}
	return data, nil
}

// Delete removes the object for key. S3 does not report missing keys.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("persist: s3 delete %q: %w", key, err)
	}
	return nil
}

// Close marks the store closed.
func (s *S3Store) Close() error {
	s.closed.Store(true)
	return nil
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "NotFound")
}
