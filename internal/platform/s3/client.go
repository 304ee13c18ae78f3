package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/miyog/miyog-engine/internal/config"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
)

// Defaults applied when the configuration leaves a value unset.
const (
	DefaultURLTTL    = time.Hour
	DefaultCacheSize = 1024
)

var (
	// ErrEmptyKey is returned when an operation is given no object key.
	ErrEmptyKey = errors.New("object key cannot be empty")
	// ErrObjectNotFound is returned when the bucket has no object at the key.
	ErrObjectNotFound = errors.New("object not found")
	// ErrStorage wraps any other failure talking to the bucket.
	ErrStorage = errors.New("object storage error")
)

// Storage is the object store used by services and the render pipeline.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	UploadFile(ctx context.Context, key, localPath string) (string, error)
	Download(ctx context.Context, key, localPath string) error
	SignedURL(ctx context.Context, key string) (string, error)
	PresignUpload(ctx context.Context, key, contentType string) (*PresignedUpload, error)
}

// PresignedUpload lets a browser upload directly to the bucket. The client
// sends a PUT to URL with every entry of Fields as a request header.
type PresignedUpload struct {
	URL    string            `json:"url"`
	Method string            `json:"method"`
	Fields map[string]string `json:"fields"`
	Path   string            `json:"path"`
}

type cachedURL struct {
	url       string
	expiresAt time.Time
}

// Client implements Storage on top of aws-sdk-go.
type Client struct {
	api        s3iface.S3API
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
	bucket     string
	ttl        time.Duration
	cache      *lru.Cache[string, cachedURL]
	logger     *slog.Logger
	now        func() time.Time
}

var _ Storage = (*Client)(nil)

// NewFromConfig builds a session from the storage configuration. Static keys
// are optional; without them the default AWS credential chain applies.
func NewFromConfig(cfg config.StorageConfig, logger *slog.Logger) (*Client, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg = awsCfg.WithCredentials(
			credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		)
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.ForcePathStyle {
		awsCfg = awsCfg.WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}

	return NewClient(
		awss3.New(sess),
		cfg.Bucket,
		time.Duration(cfg.SignedURLTTLMinutes)*time.Minute,
		cfg.SignedURLCacheSize,
		logger,
	)
}

// NewClient wraps an S3 API for one bucket.
func NewClient(api s3iface.S3API, bucket string, ttl time.Duration, cacheSize int, logger *slog.Logger) (*Client, error) {
	if api == nil {
		return nil, errors.New("s3 api cannot be nil")
	}
	if bucket == "" {
		return nil, errors.New("bucket cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache, err := lru.New[string, cachedURL](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create signed url cache: %w", err)
	}

	return &Client{
		api:        api,
		uploader:   s3manager.NewUploaderWithClient(api),
		downloader: s3manager.NewDownloaderWithClient(api),
		bucket:     bucket,
		ttl:        ttl,
		cache:      cache,
		logger:     logger.With(slog.String("component", "s3"), slog.String("bucket", bucket)),
		now:        time.Now,
	}, nil
}

// Upload writes body to key and returns the key.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	log := logger.FromContextOrDefault(ctx, c.logger)

	if contentType == "" {
		contentType = ContentTypeFor(key)
	}

	_, err := c.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.Error("upload failed",
			slog.String("key", key),
			slog.String("error", redact.Error(err)))
		return "", c.mapError(key, err)
	}

	log.Debug("object uploaded", slog.String("key", key), slog.String("content_type", contentType))
	return key, nil
}

// UploadFile uploads a local file, deriving the content type from the key.
func (c *Client) UploadFile(ctx context.Context, key, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filepath.Base(localPath), err)
	}
	defer func() { _ = f.Close() }()

	return c.Upload(ctx, key, f, ContentTypeFor(key))
}

// Download copies the object at key into localPath, creating parent
// directories as needed. A partially written file is removed on failure.
func (c *Client) Download(ctx context.Context, key, localPath string) error {
	if key == "" {
		return ErrEmptyKey
	}
	log := logger.FromContextOrDefault(ctx, c.logger)

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(localPath), err)
	}

	n, err := c.downloader.DownloadWithContext(ctx, f, &awss3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(localPath)
		log.Error("download failed",
			slog.String("key", key),
			slog.String("error", redact.Error(err)))
		return c.mapError(key, err)
	}

	log.Debug("object downloaded", slog.String("key", key), slog.Int64("bytes", n))
	return nil
}

// SignedURL returns a presigned GET URL that forces a download with the
// object's base name. URLs are reused while more than half their lifetime
// remains.
func (c *Client) SignedURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}

	now := c.now()
	if cached, ok := c.cache.Get(key); ok && now.Add(c.ttl/2).Before(cached.expiresAt) {
		return cached.url, nil
	}

	req, _ := c.api.GetObjectRequest(&awss3.GetObjectInput{
		Bucket:                     aws.String(c.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", path.Base(key))),
	})
	req.SetContext(ctx)

	url, err := req.Presign(c.ttl)
	if err != nil {
		logger.FromContextOrDefault(ctx, c.logger).Error("failed to presign download",
			slog.String("key", key),
			slog.String("error", redact.Error(err)))
		return "", fmt.Errorf("%w: presign %s: %w", ErrStorage, key, err)
	}

	c.cache.Add(key, cachedURL{url: url, expiresAt: now.Add(c.ttl)})
	return url, nil
}

// PresignUpload returns a presigned PUT for key restricted to contentType.
func (c *Client) PresignUpload(ctx context.Context, key, contentType string) (*PresignedUpload, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = ContentTypeFor(key)
	}

	req, _ := c.api.PutObjectRequest(&awss3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	req.SetContext(ctx)

	url, err := req.Presign(c.ttl)
	if err != nil {
		logger.FromContextOrDefault(ctx, c.logger).Error("failed to presign upload",
			slog.String("key", key),
			slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("%w: presign upload %s: %w", ErrStorage, key, err)
	}

	return &PresignedUpload{
		URL:    url,
		Method: "PUT",
		Fields: map[string]string{"Content-Type": contentType},
		Path:   key,
	}, nil
}

func (c *Client) mapError(key string, err error) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case awss3.ErrCodeNoSuchKey, "NotFound":
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
	}
	var rf awserr.RequestFailure
	if errors.As(err, &rf) && rf.StatusCode() == 404 {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, key, err)
}
