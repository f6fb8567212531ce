package testsupport

import (
	"path/filepath"
	"testing"

	"creativeflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Storage.Dir = filepath.Join(base, "artifacts")
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.LLM.APIKey = "test"
	cfgVal.TTS.APIKey = "test"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.APIToken = token
	}
}

// WithTranslationPolicy overrides generation.translation_policy.
func WithTranslationPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Generation.TranslationPolicy = policy
	}
}

// WithNotifications selects an approval channel. target is the Slack
// webhook URL or the ntfy topic URL depending on provider.
func WithNotifications(provider, target string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.Provider = provider
		switch provider {
		case config.NotifySlack:
			b.cfg.Notifications.SlackWebhookURL = target
		case config.NotifyNtfy:
			b.cfg.Notifications.NtfyTopic = target
		}
	}
}

// BaseDir returns the temp root backing a config built by NewConfig.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
