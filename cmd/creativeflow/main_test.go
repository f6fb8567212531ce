package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"creativeflow/internal/config"
	"creativeflow/internal/creative"
	"creativeflow/internal/runstore"
	"creativeflow/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	for _, key := range []string{
		"OPENROUTER_API_KEY", "OPENAI_API_KEY", "LLM_API_KEY", "ELEVENLABS_API_KEY", "XI_API_KEY",
		"SLACK_WEBHOOK_URL", "GOOGLE_APPLICATION_CREDENTIALS", "MINIO_ENDPOINT", "CREATIVEFLOW_API_TOKEN",
	} {
		t.Setenv(key, "")
	}

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	configPath := filepath.Join(base, "config.toml")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--env-file", ""}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitValidateAndShow(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAPIToken("cli-secret-token"))

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[generation]")
	if strings.Contains(out, "cli-secret-token") {
		t.Fatalf("config show leaked the api token:\n%s", out)
	}

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithTranslationPolicy("sometimes"))
	if _, _, err := runCLI(t, []string{"config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected invalid translation policy to fail validation")
	}
}

func TestRunsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	store, err := runstore.Open(env.cfg.RunStorePath())
	if err != nil {
		t.Fatalf("open run store: %v", err)
	}
	if err := store.CreateRun(context.Background(), runstore.Run{
		ID:        "run-abc",
		Kind:      runstore.KindGenerate,
		State:     "done",
		Requested: 3,
		Succeeded: 2,
		Failed:    1,
	}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	store.Close()

	out, _, err = runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "run-abc")
	requireContains(t, out, "generate")

	out, _, err = runCLI(t, []string{"runs", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("runs --json: %v", err)
	}
	requireContains(t, out, `"id": "run-abc"`)
}

func TestTestNotifyCommand(t *testing.T) {
	var (
		mu     sync.Mutex
		titles []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		titles = append(titles, r.Header.Get("Title"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	env := setupCLITestEnv(t, testsupport.WithNotifications(config.NotifyNtfy, server.URL+"/creatives"))
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent via ntfy")

	mu.Lock()
	defer mu.Unlock()
	if len(titles) != 1 || titles[0] != "Creative - Test" {
		t.Fatalf("unexpected ntfy requests %v", titles)
	}
}

func TestTestNotifyDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications are disabled")
}

func TestCheckOfflineReportsDirectories(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, _ := runCLI(t, []string{"check", "--offline"}, env.configPath)
	requireContains(t, out, "Data directory")
	requireContains(t, out, "read/write ok")
}

func TestGenerateRejectsInvalidFlagsBeforeConnecting(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"generate", "--sheet", "abc", "--count", "99"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "exceeds the maximum") {
		t.Fatalf("expected count validation error, got %v", err)
	}
	_, _, err = runCLI(t, []string{"generate", "--sheet", "abc", "--notify"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "generateAudio") {
		t.Fatalf("expected notify validation error, got %v", err)
	}
	_, _, err = runCLI(t, []string{"generate", "--sheet", "abc", "--strategy", "sideways"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unknown strategy") {
		t.Fatalf("expected strategy validation error, got %v", err)
	}
}

func TestSelectRows(t *testing.T) {
	rows := []creative.ExistingScriptRow{{Row: 2}, {Row: 3}, {Row: 5}}
	if got := selectRows(rows, nil); len(got) != 3 {
		t.Fatalf("empty selection should keep all rows, got %d", len(got))
	}
	got := selectRows(rows, []int{5, 2, 9})
	if len(got) != 2 || got[0].Row != 2 || got[1].Row != 5 {
		t.Fatalf("unexpected selection %+v", got)
	}
}

func TestDefaultsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Video.DefaultBackground = "/srv/loop.mp4"
	cfg.Notifications.DefaultDelaySeconds = 45
	d := defaultsFromConfig(&cfg)
	if d.Background != "/srv/loop.mp4" || d.NotifyDelay.Seconds() != 45 {
		t.Fatalf("unexpected defaults %+v", d)
	}
	if d.MaxCount != cfg.Generation.MaxCount || d.Voice != cfg.TTS.DefaultVoice {
		t.Fatalf("unexpected defaults %+v", d)
	}
}
