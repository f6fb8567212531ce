package artifacts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"creativeflow/internal/services"
)

const (
	// DefaultDownloadTimeout bounds a whole remote fetch, body included.
	DefaultDownloadTimeout = 10 * time.Minute
	// DefaultMaxDownloadBytes caps a single remote fetch.
	DefaultMaxDownloadBytes int64 = 2 << 30
)

// Artifact kinds used as key prefixes.
const (
	KindAudio = "audio"
	KindVideo = "video"
)

// Store persists artifact files and resolves references to local paths.
type Store interface {
	// Put takes ownership of localPath and returns a reference to the stored copy.
	Put(ctx context.Context, localPath, key, contentType string) (string, error)
	// Localize returns a readable local path for ref. cleanup removes any
	// temporary copy and is always non-nil on success.
	Localize(ctx context.Context, ref string) (string, func(), error)
}

// NewKey builds a unique, date-partitioned object key.
func NewKey(kind, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	return path.Join(kind, time.Now().UTC().Format("2006/01/02"), uuid.NewString()+"."+ext)
}

// ContentType guesses a MIME type from a file extension.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

func isHTTPRef(ref string) bool {
	u, err := url.Parse(ref)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// download fetches an http(s) reference into a temp file under workDir.
// Bodies larger than limit bytes are rejected.
func download(ctx context.Context, client *http.Client, ref, workDir string, limit int64) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", nil, services.Wrap(services.ErrValidation, "artifacts", "download", "invalid url", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", nil, services.Wrap(services.ErrTransient, "artifacts", "download", redactQuery(ref), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", nil, services.Wrap(services.ErrNotFound, "artifacts", "download", redactQuery(ref), nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", nil, services.Wrap(services.ErrExternalTool, "artifacts", "download",
			fmt.Sprintf("%s: http %d", redactQuery(ref), resp.StatusCode), nil)
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create work dir: %w", err)
	}
	ext := path.Ext(resp.Request.URL.Path)
	tmp, err := os.CreateTemp(workDir, "artifact-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp artifact: %w", err)
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }
	if limit <= 0 {
		limit = DefaultMaxDownloadBytes
	}
	n, err := io.Copy(tmp, io.LimitReader(resp.Body, limit+1))
	if err != nil {
		tmp.Close()
		cleanup()
		return "", nil, services.Wrap(services.ErrTransient, "artifacts", "download", "read body", err)
	}
	if n > limit {
		tmp.Close()
		cleanup()
		return "", nil, services.Wrap(services.ErrValidation, "artifacts", "download",
			fmt.Sprintf("%s: larger than %d bytes", redactQuery(ref), limit), nil)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp artifact: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

func redactQuery(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	u.RawQuery = ""
	return u.String()
}

func noop() {}
