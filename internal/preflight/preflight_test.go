package preflight

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"creativeflow/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckElevenLabs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/user" || r.Header.Get("xi-api-key") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if result := CheckElevenLabs(context.Background(), srv.URL, "good-key"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckElevenLabs(context.Background(), srv.URL, "bad-key"); result.Passed {
		t.Fatal("expected failure for bad key")
	}
	if result := CheckElevenLabs(context.Background(), "", "key"); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
	if result := CheckElevenLabs(context.Background(), srv.URL, ""); result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestCheckLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`)
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), "LLM", config.LLMConfig{
		Provider: config.LLMProviderOpenRouter,
		APIKey:   "k",
		BaseURL:  srv.URL,
		Model:    "m",
	})
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckLLM(context.Background(), "LLM", config.LLMConfig{}); result.Passed {
		t.Fatal("expected failure without key")
	}
}

func TestCheckSheetsCredentials(t *testing.T) {
	cfg := config.Default()
	if result := CheckSheetsCredentials(&cfg); result.Passed {
		t.Fatal("expected failure without credentials")
	}
	cfg.Sheets.ClientID, cfg.Sheets.ClientSecret, cfg.Sheets.RefreshToken = "id", "secret", "token"
	if result := CheckSheetsCredentials(&cfg); !result.Passed {
		t.Fatalf("expected refresh token to pass, got %s", result.Detail)
	}
	cfg.Sheets.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")
	if result := CheckSheetsCredentials(&cfg); result.Passed {
		t.Fatal("expected missing credentials file to fail")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, Options{}); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_OfflineConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Storage.Dir = t.TempDir()
	cfg.TTS.Provider = config.TTSProviderCommand
	cfg.TTS.Command = "clearly-not-present-tts"

	results := RunAll(context.Background(), &cfg, Options{SkipNetwork: true})
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	for _, name := range []string{"Data directory", "Work directory", "Artifact directory"} {
		if !byName[name].Passed {
			t.Errorf("check %q failed: %s", name, byName[name].Detail)
		}
	}
	if byName["TTS command"].Passed {
		t.Fatal("expected missing TTS command to fail")
	}
	if _, ok := byName["LLM"]; ok {
		t.Fatal("network checks should be skipped")
	}
	if len(Failed(results)) == 0 {
		t.Fatal("expected at least one failed check")
	}
}
