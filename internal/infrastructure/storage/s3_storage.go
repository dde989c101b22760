package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/application/sitedata"
	infraconfig "github.com/catalogsite/backend/internal/infrastructure/config"
)

// Ensure S3Backend implements ShardBackend
var _ sitedata.ShardBackend = (*S3Backend)(nil)

// S3Backend stores shard a/b as the object <prefix>/a/b.json.
// It is compatible with any S3-compatible storage (AWS S3, RustFS, MinIO, etc.)
type S3Backend struct {
	client            *s3.Client
	presignClient     *s3.PresignClient
	httpClient        *http.Client
	bucket            string
	prefix            string
	presignExpiration time.Duration
	verifyWrites      bool
	logger            *zap.Logger
}

// S3BackendOption is a functional option for configuring S3Backend
type S3BackendOption func(*S3Backend)

// WithLogger sets a custom logger for S3Backend
func WithLogger(logger *zap.Logger) S3BackendOption {
	return func(s *S3Backend) {
		s.logger = logger
	}
}

// WithPresignExpiration sets a custom presign expiration duration
func WithPresignExpiration(d time.Duration) S3BackendOption {
	return func(s *S3Backend) {
		s.presignExpiration = d
	}
}

// WithHTTPClient sets the client used to fetch presigned URLs
func WithHTTPClient(c *http.Client) S3BackendOption {
	return func(s *S3Backend) {
		s.httpClient = c
	}
}

// WithWriteVerification toggles the re-read after every write
func WithWriteVerification(enabled bool) S3BackendOption {
	return func(s *S3Backend) {
		s.verifyWrites = enabled
	}
}

// NewS3Backend creates a new S3Backend from configuration.
// It supports any S3-compatible storage backend (AWS S3, RustFS, MinIO, etc.)
func NewS3Backend(cfg *infraconfig.StorageConfig, opts ...S3BackendOption) (*S3Backend, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}

	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000" // MinIO default
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"", // session token (not used for static credentials)
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	backend := &S3Backend{
		client:            client,
		presignClient:     s3.NewPresignClient(client),
		httpClient:        &http.Client{Timeout: 30 * time.Second},
		bucket:            cfg.Bucket,
		prefix:            strings.Trim(cfg.Prefix, "/"),
		presignExpiration: cfg.PresignExpiration,
		verifyWrites:      true,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(backend)
	}
	if backend.presignExpiration == 0 {
		backend.presignExpiration = 15 * time.Minute
	}

	return backend, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3Backend) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Lost a race with another instance
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	s.logger.Info("Storage bucket created successfully", zap.String("bucket", s.bucket))
	return nil
}

// objectKey maps a shard key to its object key
func (s *S3Backend) objectKey(key string) (string, error) {
	if err := sitedata.ValidateKey(key); err != nil {
		return "", err
	}
	if s.prefix == "" {
		return key + shardExt, nil
	}
	return path.Join(s.prefix, key) + shardExt, nil
}

// shardKey maps an object key back to its shard key
func (s *S3Backend) shardKey(objectKey string) (string, bool) {
	key := objectKey
	if s.prefix != "" {
		var ok bool
		key, ok = strings.CutPrefix(objectKey, s.prefix+"/")
		if !ok {
			return "", false
		}
	}
	return strings.CutSuffix(key, shardExt)
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	// Some S3-compatible services report the code only in the message
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey")
}

// Exists checks if the object of key exists
func (s *S3Backend) Exists(ctx context.Context, key string) (bool, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// DownloadURL generates a presigned GET URL for the object of key
func (s *S3Backend) DownloadURL(ctx context.Context, key string) (string, error) {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return "", err
	}
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(s.presignExpiration))
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, nil
}

// Read checks existence with HeadObject, then fetches the body through a presigned URL
func (s *S3Backend) Read(ctx context.Context, key string) ([]byte, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, sitedata.ErrShardNotFound
	}

	downloadURL, err := s.DownloadURL(ctx, key)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Deleted between HeadObject and GET
		return nil, sitedata.ErrShardNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to download object: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// Write uploads data and, unless disabled, re-reads it to confirm the write is visible
func (s *S3Backend) Write(ctx context.Context, key string, data []byte) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	if !s.verifyWrites {
		return nil
	}
	got, err := s.Read(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to verify write of %s: %w", key, err)
	}
	if !bytes.Equal(got, data) {
		s.logger.Warn("Shard write not yet visible", zap.String("key", key))
		return fmt.Errorf("write of %s not visible after upload", key)
	}
	return nil
}

// Delete removes the object of key
func (s *S3Backend) Delete(ctx context.Context, key string) error {
	objectKey, err := s.objectKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// List pages through ListObjectsV2 and returns the shard keys starting with prefix
func (s *S3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	listPrefix := prefix
	if s.prefix != "" {
		listPrefix = s.prefix + "/" + prefix
	}

	keys := make([]string, 0)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(listPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if key, ok := s.shardKey(aws.ToString(obj.Key)); ok {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

// GetBucket returns the bucket name
func (s *S3Backend) GetBucket() string {
	return s.bucket
}
