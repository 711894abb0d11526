// Package objstore keeps image renditions in S3-compatible public storage.
package objstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/minio/minio-go/v7"

	"newsindex/internal/ports"
)

const (
	putCacheControl  = "public, max-age=2592000"
	copyCacheControl = "public, max-age=5184000"
	contentType      = "image/jpeg"

	// copyRetryDelay paces retries after the storage answers SlowDown.
	copyRetryDelay = time.Second
	copyMaxTries   = 5
)

// Store adapts a minio client and one bucket to ports.ObjectStore.
type Store struct {
	client *minio.Client
	bucket string
}

var _ ports.ObjectStore = (*Store)(nil)

// New wires a minio client.
func New(client *minio.Client, bucket string) *Store {
	return &Store{client: client, bucket: bucket}
}

// Put uploads one rendition with a public month-long cache lifetime.
func (s *Store) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
			ContentType:  contentType,
			CacheControl: putCacheControl,
		})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Copy duplicates an object inside the bucket. A throttling response is
// retried with a constant delay; any other error fails immediately.
func (s *Store) Copy(ctx context.Context, sourceKey, destKey string) error {
	operation := func() (struct{}, error) {
		_, err := s.client.CopyObject(ctx,
			minio.CopyDestOptions{Bucket: s.bucket, Object: destKey},
			minio.CopySrcOptions{Bucket: s.bucket, Object: sourceKey},
		)
		if err == nil {
			return struct{}{}, nil
		}
		if minio.ToErrorResponse(err).Code == "SlowDown" {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(copyRetryDelay)),
		backoff.WithMaxTries(copyMaxTries),
	)
	if err != nil {
		return fmt.Errorf("copy object %s to %s: %w", sourceKey, destKey, err)
	}
	return nil
}
