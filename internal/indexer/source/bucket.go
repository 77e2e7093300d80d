package source

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/resilience"
)

// Bucket reads texts from an S3-compatible bucket through minio-go. Object
// keys below Prefix play the role of file names.
type Bucket struct {
	client *minio.Client
	bucket string
	prefix string
	retry  resilience.RetryConfig
}

// NewBucket connects to the object store described by cfg.
func NewBucket(cfg config.BucketConfig) (*Bucket, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrConfiguration, 0, "object store %s: %v", cfg.Endpoint, err)
	}
	return &Bucket{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (b *Bucket) key(name string) string {
	if b.prefix == "" {
		return name
	}
	return path.Join(b.prefix, name)
}

func (b *Bucket) List(ctx context.Context, suffix string) ([]string, error) {
	listPrefix := ""
	if b.prefix != "" {
		listPrefix = b.prefix + "/"
	}
	var names []string
	for obj := range b.client.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{
		Prefix:    listPrefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing bucket %s: %w", b.bucket, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, listPrefix)
		if name == "" || strings.HasSuffix(name, "/") || !hasSuffixFold(name, suffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read fetches one object, retrying transient failures. A missing object is
// not retried.
func (b *Bucket) Read(ctx context.Context, name string) ([]byte, error) {
	key := b.key(name)
	var data []byte
	err := resilience.Retry(ctx, "bucket-read", b.retry, func() error {
		obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return classify(err)
		}
		defer obj.Close()
		data, err = io.ReadAll(obj)
		return classify(err)
	})
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrIO, 0, "reading s3://%s/%s: %v", b.bucket, key, err)
	}
	return data, nil
}

func (b *Bucket) String() string {
	return fmt.Sprintf("s3://%s/%s", b.bucket, b.prefix)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "AccessDenied":
		return resilience.Permanent(err)
	}
	return err
}
