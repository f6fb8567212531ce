package artifacts

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"creativeflow/internal/services"
)

const defaultURLExpiry = 7 * 24 * time.Hour

// MinIOConfig describes an S3-compatible bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	URLExpiry time.Duration
}

// MinIOStore keeps artifacts in an S3-compatible bucket and hands out
// presigned GET URLs as references.
type MinIOStore struct {
	client     *minio.Client
	bucket     string
	region     string
	expiry     time.Duration
	workDir    string
	httpClient *http.Client
}

// NewMinIOStore connects to the endpoint. The bucket is created on first use.
func NewMinIOStore(cfg MinIOConfig, workDir string) (*MinIOStore, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "artifacts", "minio", "endpoint and bucket required", nil)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "artifacts", "minio", "new client", err)
	}
	return NewMinIOStoreWithClient(client, cfg, workDir), nil
}

// NewMinIOStoreWithClient wraps an existing client.
func NewMinIOStoreWithClient(client *minio.Client, cfg MinIOConfig, workDir string) *MinIOStore {
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = defaultURLExpiry
	}
	return &MinIOStore{
		client:     client,
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		expiry:     expiry,
		workDir:    workDir,
		httpClient: &http.Client{Transport: newTransport(), Timeout: DefaultDownloadTimeout},
	}
}

// EnsureBucket creates the bucket when it does not exist.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return services.Wrap(services.ErrTransient, "artifacts", "bucket exists", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return services.Wrap(services.ErrExternalTool, "artifacts", "make bucket", s.bucket, err)
	}
	return nil
}

// Ping reports whether the bucket is reachable and exists.
func (s *MinIOStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return services.Wrap(services.ErrTransient, "artifacts", "bucket exists", s.bucket, err)
	}
	if !exists {
		return services.Wrap(services.ErrNotFound, "artifacts", "bucket exists", s.bucket, nil)
	}
	return nil
}

// Put uploads localPath, removes the local copy, and returns a presigned URL.
func (s *MinIOStore) Put(ctx context.Context, localPath, key, contentType string) (string, error) {
	if contentType == "" {
		contentType = ContentType(localPath)
	}
	if _, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", services.Wrap(services.ErrTransient, "artifacts", "upload", key, err)
	}
	_ = os.Remove(localPath)
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.expiry, nil)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "artifacts", "presign", key, err)
	}
	return u.String(), nil
}

// Localize downloads a bucket object (by presigned URL or s3:// reference),
// any other http(s) URL, or returns a local path as-is.
func (s *MinIOStore) Localize(ctx context.Context, ref string) (string, func(), error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil, services.Wrap(services.ErrValidation, "artifacts", "localize", "empty reference", nil)
	}
	if key, ok := s.objectKey(ref); ok {
		return s.fetch(ctx, key)
	}
	if isHTTPRef(ref) {
		return download(ctx, s.httpClient, ref, s.workDir, DefaultMaxDownloadBytes)
	}
	return localizePath(ref)
}

func (s *MinIOStore) objectKey(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	switch u.Scheme {
	case "s3":
		if u.Host != s.bucket {
			return "", false
		}
		key := strings.TrimPrefix(u.Path, "/")
		return key, key != ""
	case "http", "https":
		endpoint := s.client.EndpointURL()
		if endpoint == nil || u.Host != endpoint.Host {
			return "", false
		}
		key, ok := strings.CutPrefix(u.Path, "/"+s.bucket+"/")
		return key, ok && key != ""
	default:
		return "", false
	}
}

func (s *MinIOStore) fetch(ctx context.Context, key string) (string, func(), error) {
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create work dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.workDir, "artifact-*"+filepath.Ext(key))
	if err != nil {
		return "", nil, fmt.Errorf("create temp artifact: %w", err)
	}
	target := tmp.Name()
	tmp.Close()
	cleanup := func() { _ = os.Remove(target) }
	if err := s.client.FGetObject(ctx, s.bucket, key, target, minio.GetObjectOptions{}); err != nil {
		cleanup()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", nil, services.Wrap(services.ErrNotFound, "artifacts", "download", key, err)
		}
		return "", nil, services.Wrap(services.ErrTransient, "artifacts", "download", key, err)
	}
	return target, cleanup, nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
