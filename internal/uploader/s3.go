package uploader

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config describes an S3-compatible sink.
type S3Config struct {
	Endpoint  string // host[:port], no scheme
	Bucket    string
	Prefix    string // key prefix inside the bucket, may be empty
	AccessKey string // empty falls back to MINIO_* / AWS_* environment
	SecretKey string
	UseSSL    bool
}

// S3Uploader streams files into an S3-compatible bucket via PutObject,
// carrying the metadata bundle as object user metadata.
type S3Uploader struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Uploader validates the config and builds the client. No network
// call is made until the first Upload.
func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3: endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}

	creds := credentials.NewEnvMinio()
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: %w", err)
	}

	return &S3Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Upload streams the file to <prefix>/<filename>. The object key uses the
// metadata "filename" (the upload name with modifiers applied) when
// present, else the source base name.
func (u *S3Uploader) Upload(ctx context.Context, filePath string, metadata map[string]string) error {
	name := metadata["filename"]
	if name == "" {
		name = filepath.Base(filePath)
	}
	key := path.Join(u.prefix, name)

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filePath, err)
	}

	_, err = u.client.PutObject(ctx, u.bucket, key, f, info.Size(), minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		UserMetadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Close implements Uploader. The minio client needs no teardown.
func (u *S3Uploader) Close() error { return nil }
