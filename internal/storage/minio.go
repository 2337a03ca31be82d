package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/your-org/toonface/internal/config"
)

// Category is one of the fixed blob roots. Temp blobs are purged when their
// original is finalized; originals and downloaded blobs are never purged.
type Category string

const (
	CategoryOriginals  Category = "originals"
	CategoryTemp       Category = "temp"
	CategoryDownloaded Category = "downloaded"
)

// Categories lists all valid blob categories.
var Categories = []Category{CategoryOriginals, CategoryTemp, CategoryDownloaded}

// ValidCategory reports whether s names a known blob category.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// ErrBlobNotFound is returned by Read when no blob exists under the key.
var ErrBlobNotFound = errors.New("blob not found")

type MinIOStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewMinIOStore(cfg config.MinIOConfig, baseURL string) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// GenerateFilename builds a practically unique filename for an identifier:
// unix millis plus the identifier's first 8 characters. Callers must not rely
// on anything beyond millisecond ordering.
func GenerateFilename(identifier string) string {
	return fmt.Sprintf("%d_%s.jpg", time.Now().UnixMilli(), ShortID(identifier))
}

// ShortID returns the first 8 characters of an identifier. It is embedded in
// temp filenames so PurgeByToken can sweep them by original.
func ShortID(identifier string) string {
	if len(identifier) > 8 {
		return identifier[:8]
	}
	return identifier
}

func objectKey(category Category, filename string) string {
	return string(category) + "/" + filename
}

// Save stores data under {category}/{filename} and returns the object key.
func (s *MinIOStore) Save(ctx context.Context, category Category, filename string, data []byte, contentType string) (string, error) {
	key := objectKey(category, filename)
	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

// Read retrieves a blob's bytes, or ErrBlobNotFound if it is absent.
func (s *MinIOStore) Read(ctx context.Context, category Category, filename string) ([]byte, error) {
	key := objectKey(category, filename)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", key, ErrBlobNotFound)
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Delete removes a blob. Deleting an absent blob is a no-op.
func (s *MinIOStore) Delete(ctx context.Context, category Category, filename string) error {
	key := objectKey(category, filename)
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// URLFor returns the public URL for a blob: {baseURL}/{category}/{filename}.
func (s *MinIOStore) URLFor(category Category, filename string) string {
	return s.baseURL + "/" + string(category) + "/" + filename
}

// PurgeByToken deletes every blob in a category whose filename contains the
// token. Used to sweep temp files tied to an original even when the record
// enumeration is incomplete. Returns the number of blobs deleted.
func (s *MinIOStore) PurgeByToken(ctx context.Context, category Category, token string) (int, error) {
	prefix := string(category) + "/"

	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return 0, fmt.Errorf("list objects %s: %w", prefix, obj.Err)
		}
		if strings.Contains(strings.TrimPrefix(obj.Key, prefix), token) {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) == 0 {
		return 0, nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	deleted := len(keys)
	for result := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if result.Err != nil {
			deleted--
		}
	}
	return deleted, nil
}

// Ping checks MinIO connectivity.
func (s *MinIOStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}
