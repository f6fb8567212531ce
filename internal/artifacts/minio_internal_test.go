package artifacts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestMinIOStore(t *testing.T, handler http.HandlerFunc) *MinIOStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	u, _ := url.Parse(srv.URL)
	store, err := NewMinIOStore(MinIOConfig{
		Endpoint:  u.Host,
		AccessKey: "ak",
		SecretKey: "sk",
		Region:    "us-east-1",
		Bucket:    "creatives",
	}, t.TempDir())
	if err != nil {
		t.Fatalf("NewMinIOStore: %v", err)
	}
	return store
}

func TestMinIOObjectKey(t *testing.T) {
	store := newTestMinIOStore(t, func(w http.ResponseWriter, r *http.Request) {})
	host := store.client.EndpointURL().Host

	cases := []struct {
		ref  string
		key  string
		isOK bool
	}{
		{"s3://creatives/audio/x.mp3", "audio/x.mp3", true},
		{"s3://other/audio/x.mp3", "", false},
		{"http://" + host + "/creatives/video/y.mp4?X-Amz-Signature=1", "video/y.mp4", true},
		{"https://cdn.example.com/creatives/video/y.mp4", "", false},
		{"/var/tmp/bg.mp4", "", false},
	}
	for _, tc := range cases {
		key, ok := store.objectKey(tc.ref)
		if ok != tc.isOK || key != tc.key {
			t.Fatalf("objectKey(%q)=(%q,%v) want (%q,%v)", tc.ref, key, ok, tc.key, tc.isOK)
		}
	}
}

func TestMinIOPutUploadsAndPresigns(t *testing.T) {
	var gotPath, gotBody, gotType string
	store := newTestMinIOStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("unexpected method %s", r.Method)
		}
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	})

	src := filepath.Join(t.TempDir(), "clip.mp3")
	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ref, err := store.Put(context.Background(), src, "audio/clip.mp3", "")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if gotPath != "/creatives/audio/clip.mp3" {
		t.Fatalf("unexpected upload path %q", gotPath)
	}
	if !strings.Contains(gotBody, "audio") || gotType != "audio/mpeg" {
		t.Fatalf("unexpected upload body=%q type=%q", gotBody, gotType)
	}
	if !strings.Contains(ref, "/creatives/audio/clip.mp3") || !strings.Contains(ref, "X-Amz-Signature") {
		t.Fatalf("expected presigned url, got %q", ref)
	}
	if key, ok := store.objectKey(ref); !ok || key != "audio/clip.mp3" {
		t.Fatalf("presigned ref should resolve back to key, got %q %v", key, ok)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected local copy removed after upload")
	}
}
