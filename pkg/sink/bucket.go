package sink

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // GCS driver
	_ "gocloud.dev/blob/s3blob"   // S3 driver
)

// BucketStore writes traces to a gocloud blob bucket.
type BucketStore struct {
	bucket *blob.Bucket
	base   string
	prefix string
}

// OpenBucket opens the bucket named by location. A path after the bucket
// name becomes the key prefix, e.g. s3://traces/ci/nightly.
func OpenBucket(ctx context.Context, location string) (*BucketStore, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse bucket URL %s: %w", location, err)
	}

	bucketURL := location
	prefix := ""
	if u.Scheme != "file" {
		prefix = strings.Trim(u.Path, "/")
		u.Path = ""
		bucketURL = u.String()
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}

	return &BucketStore{
		bucket: bucket,
		base:   strings.TrimSuffix(bucketURL, "/"),
		prefix: prefix,
	}, nil
}

// Write uploads data under the store prefix.
func (s *BucketStore) Write(ctx context.Context, data []byte, filename string) (string, error) {
	key := path.Join(s.prefix, filename)

	w, err := s.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("create writer for %s: %w", key, err)
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("write data to %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close writer for %s: %w", key, err)
	}

	return s.URI(key), nil
}

// URI returns the canonical URI for the given key.
func (s *BucketStore) URI(key string) string {
	if i := strings.Index(s.base, "?"); i >= 0 {
		return s.base[:i] + "/" + key
	}
	return s.base + "/" + key
}

// Close releases the bucket connection.
func (s *BucketStore) Close() error {
	if s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}
