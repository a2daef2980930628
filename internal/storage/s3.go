package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Storage implements Storage for S3-compatible object storage
// Works with AWS S3, MinIO, DigitalOcean Spaces, Cloudflare R2, etc.
type S3Storage struct {
	client *s3.Client
	bucket string
	prefix   string // Key prefix acting as the storage root, e.g. "blobs/"
	spoolDir string
	now      func() time.Time
}

// S3Config holds configuration for S3 storage
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string // Optional: for S3-compatible services
	Prefix    string
	SpoolDir  string // Temp directory for staging uploads; empty means os.TempDir()
}

// NewS3Storage creates a new S3 storage instance
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	// Add static credentials if provided
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var client *s3.Client
	if cfg.Endpoint != "" {
		client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO and some S3-compatible services
		})
	} else {
		client = s3.NewFromConfig(awsCfg)
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	storage := &S3Storage{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   prefix,
		spoolDir: cfg.SpoolDir,
		now:      time.Now,
	}

	slog.Info("initializing S3 storage",
		"bucket", cfg.Bucket,
		"region", cfg.Region,
		"endpoint", cfg.Endpoint,
		"prefix", prefix,
	)

	// Auto-create bucket if it doesn't exist
	if err := storage.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return storage, nil
}

// ensureBucket checks if bucket exists, creates it if not
func (s *S3Storage) ensureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %q does not exist and could not be created: %w", s.bucket, err)
	}

	slog.Info("created S3 bucket", "bucket", s.bucket)
	return nil
}

// Put stages content in a temp file before sending it. PutObject needs a
// seekable body of known length, and the incoming stream is neither.
func (s *S3Storage) Put(ctx context.Context, content io.Reader, suggestedName string) (*Blob, error) {
	name, err := NormalizeName(suggestedName)
	if err != nil {
		return nil, err
	}

	storagePath := storageName(name, s.now())
	key, err := s.key(storagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	spool, err := os.CreateTemp(s.spoolDir, "s3-upload-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	spoolPath := spool.Name()
	defer func() {
		_ = spool.Close()
		_ = os.Remove(spoolPath)
	}()

	src := &countingReader{r: ctxReader{ctx: ctx, r: content}}
	_, err = io.Copy(spool, src)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) && pathErr.Path == spoolPath {
			return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
		}
		return nil, fmt.Errorf("failed to read upload content: %w", err)
	}

	_, err = spool.Seek(0, io.SeekStart)
	if err != nil {
		return nil, fmt.Errorf("%w: rewind spool: %v", ErrWriteFailed, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          spool,
		ContentLength: aws.Int64(src.n),
		IfNoneMatch:   aws.String("*"), // Never overwrite an existing object
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("upload %s: %w", storagePath, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrWriteFailed, storagePath, err)
	}

	return &Blob{Path: storagePath, Size: src.n}, nil
}

func (s *S3Storage) Get(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	key, err := s.key(storagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlobNotFound, err)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, storagePath)
		}
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	return out.Body, nil
}

// Delete checks for the object first because S3 reports success when
// deleting a missing key, and callers need the distinction.
func (s *S3Storage) Delete(ctx context.Context, storagePath string) error {
	key, err := s.key(storagePath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBlobNotFound, err)
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return fmt.Errorf("%w: %s", ErrBlobNotFound, storagePath)
		}
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	return nil
}

func (s *S3Storage) List(ctx context.Context) ([]BlobInfo, error) {
	var blobs []BlobInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list objects: %v", ErrReadFailed, err)
		}

		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			blobs = append(blobs, BlobInfo{
				Path:    name,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	return blobs, nil
}

// key applies the same confinement rules as the local backend: one flat
// name below the prefix, no separators, no parent segments.
func (s *S3Storage) key(storagePath string) (string, error) {
	if storagePath == "" || strings.ContainsAny(storagePath, "/\\\x00") {
		return "", fmt.Errorf("malformed storage path %q", storagePath)
	}
	if storagePath == "." || storagePath == ".." || path.Clean(storagePath) != storagePath {
		return "", fmt.Errorf("malformed storage path %q", storagePath)
	}
	return s.prefix + storagePath, nil
}

func isS3NotFound(err error) bool {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}
