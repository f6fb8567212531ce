package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"creativeflow/internal/services"
)

// LocalStore keeps artifacts under a directory on disk.
type LocalStore struct {
	root       string
	workDir    string
	httpClient *http.Client
	maxBytes   int64
}

// LocalOption customizes a LocalStore.
type LocalOption func(*LocalStore)

// WithDownloadTimeout bounds each remote fetch, body included.
func WithDownloadTimeout(timeout time.Duration) LocalOption {
	return func(s *LocalStore) {
		if timeout > 0 {
			s.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithMaxDownloadBytes caps the size of a remote fetch.
func WithMaxDownloadBytes(limit int64) LocalOption {
	return func(s *LocalStore) {
		if limit > 0 {
			s.maxBytes = limit
		}
	}
}

// NewLocalStore returns a store rooted at root. Remote references are
// downloaded into workDir.
func NewLocalStore(root, workDir string, opts ...LocalOption) *LocalStore {
	s := &LocalStore{
		root:       root,
		workDir:    workDir,
		httpClient: &http.Client{Timeout: DefaultDownloadTimeout},
		maxBytes:   DefaultMaxDownloadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the storage directory.
func (s *LocalStore) Root() string {
	return s.root
}

// Put moves localPath under the store root and returns its absolute path.
func (s *LocalStore) Put(_ context.Context, localPath, key, _ string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, "..") {
		return "", services.Wrap(services.ErrValidation, "artifacts", "put", "invalid key "+key, nil)
	}
	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := moveFile(localPath, target); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "artifacts", "put", key, err)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return target, nil
	}
	return abs, nil
}

// Localize resolves a filesystem path or downloads an http(s) reference.
func (s *LocalStore) Localize(ctx context.Context, ref string) (string, func(), error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil, services.Wrap(services.ErrValidation, "artifacts", "localize", "empty reference", nil)
	}
	if isHTTPRef(ref) {
		return download(ctx, s.httpClient, ref, s.workDir, s.maxBytes)
	}
	return localizePath(ref)
}

func localizePath(ref string) (string, func(), error) {
	p := strings.TrimPrefix(ref, "file://")
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, services.Wrap(services.ErrNotFound, "artifacts", "localize", p, nil)
		}
		return "", nil, services.Wrap(services.ErrExternalTool, "artifacts", "localize", p, err)
	}
	if info.IsDir() {
		return "", nil, services.Wrap(services.ErrValidation, "artifacts", "localize", p+" is a directory", nil)
	}
	return p, noop, nil
}

// moveFile renames sourcePath to targetPath, copying across filesystems.
func moveFile(sourcePath, targetPath string) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}
	if err := os.Rename(sourcePath, targetPath); err != nil {
		var linkErr *os.LinkError
		if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
			if err := copyFileContents(sourcePath, targetPath); err != nil {
				return fmt.Errorf("copy file across devices: %w", err)
			}
			if err := os.Remove(sourcePath); err != nil {
				return fmt.Errorf("remove source after copy: %w", err)
			}
			return nil
		}
		return fmt.Errorf("move file: %w", err)
	}
	return nil
}

func copyFileContents(sourcePath, targetPath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer source.Close()

	dest, err := os.OpenFile(targetPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		return fmt.Errorf("copy data: %w", err)
	}
	if err := dest.Sync(); err != nil {
		dest.Close()
		return fmt.Errorf("sync destination: %w", err)
	}
	return dest.Close()
}
