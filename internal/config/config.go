package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Server contains HTTP API settings.
type Server struct {
	Bind                  string `toml:"bind"`
	APIToken              string `toml:"api_token"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Sheets contains Google Sheets access settings. Either a service account
// credentials file or an OAuth client with a refresh token must be supplied.
type Sheets struct {
	CredentialsFile string `toml:"credentials_file"`
	ClientID        string `toml:"client_id"`
	ClientSecret    string `toml:"client_secret"`
	RefreshToken    string `toml:"refresh_token"`
	BaseURL         string `toml:"base_url"`
	SourceTab       string `toml:"source_tab"`
	DestinationTab  string `toml:"destination_tab"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// LLM contains generative model connection settings.
type LLM struct {
	Provider       string  `toml:"provider"`
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Temperature    float64 `toml:"temperature"`
}

// Generation contains script generation limits and defaults.
type Generation struct {
	DefaultCount       int    `toml:"default_count"`
	MaxCount           int    `toml:"max_count"`
	Concurrency        int    `toml:"concurrency"`
	CallTimeoutSeconds int    `toml:"call_timeout_seconds"`
	ExampleLimit       int    `toml:"example_limit"`
	DefaultLanguage    string `toml:"default_language"`
	TranslationPolicy  string `toml:"translation_policy"`
	PromptLibrary      string `toml:"prompt_library"`
}

// TTS contains narration settings.
type TTS struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	DefaultVoice   string `toml:"default_voice"`
	Command        string `toml:"command"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Concurrency    int    `toml:"concurrency"`
	Cache          bool   `toml:"cache"`
}

// Video contains compositing settings.
type Video struct {
	FFmpegBinary      string `toml:"ffmpeg_binary"`
	FFprobeBinary     string `toml:"ffprobe_binary"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	DefaultBackground string `toml:"default_background"`
	Concurrency       int    `toml:"concurrency"`
}

// Storage selects where synthesized audio and composed video are kept.
type Storage struct {
	Backend          string `toml:"backend"`
	Dir              string `toml:"dir"`
	Endpoint         string `toml:"endpoint"`
	AccessKey        string `toml:"access_key"`
	SecretKey        string `toml:"secret_key"`
	Region           string `toml:"region"`
	UseSSL           bool   `toml:"use_ssl"`
	Bucket           string `toml:"bucket"`
	URLExpiryMinutes int    `toml:"url_expiry_minutes"`
}

// Notifications contains approval channel settings.
type Notifications struct {
	Provider            string `toml:"provider"`
	SlackWebhookURL     string `toml:"slack_webhook_url"`
	NtfyTopic           string `toml:"ntfy_topic"`
	RequestTimeout      int    `toml:"request_timeout"`
	DefaultDelaySeconds int    `toml:"default_delay_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for creativeflow.
//
// Configuration sections by subsystem:
//   - Paths: data, scratch, and log directories
//   - Server: HTTP API bind address and bearer token
//   - Sheets: spreadsheet credentials and default tabs
//   - LLM: generative model connection settings
//   - Generation: script counts, concurrency, language, prompts
//   - TTS: narration provider and voice defaults
//   - Video: ffmpeg/ffprobe compositing
//   - Storage: local or bucket-backed artifact storage
//   - Notifications: Slack/ntfy approval channel
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Sheets        Sheets        `toml:"sheets"`
	LLM           LLM           `toml:"llm"`
	Generation    Generation    `toml:"generation"`
	TTS           TTS           `toml:"tts"`
	Video         Video         `toml:"video"`
	Storage       Storage       `toml:"storage"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("creativeflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the server and CLI write into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.WorkDir, c.Paths.LogDir}
	if c.Storage.Backend == StorageLocal {
		dirs = append(dirs, c.Storage.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RunStorePath returns the SQLite database used to record pipeline runs.
func (c *Config) RunStorePath() string {
	return filepath.Join(c.Paths.DataDir, "creativeflow.db")
}

// LockPath returns the lock file guarding a single running API server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "creativeflow.lock")
}

// CallTimeout returns the per-call generation timeout.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Generation.CallTimeoutSeconds) * time.Second
}

// NotificationDelay returns the default approval delay.
func (c *Config) NotificationDelay() time.Duration {
	return time.Duration(c.Notifications.DefaultDelaySeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the resolved model connection settings.
type LLMConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
	Temperature    float64
}

// GetLLM returns the model connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:       strings.TrimSpace(c.LLM.Provider),
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
		Temperature:    c.LLM.Temperature,
	}
}

// Redacted returns a copy with secrets masked, suitable for printing.
func (c Config) Redacted() Config {
	mask := func(v string) string {
		if strings.TrimSpace(v) == "" {
			return ""
		}
		return "********"
	}
	c.Server.APIToken = mask(c.Server.APIToken)
	c.Sheets.ClientSecret = mask(c.Sheets.ClientSecret)
	c.Sheets.RefreshToken = mask(c.Sheets.RefreshToken)
	c.LLM.APIKey = mask(c.LLM.APIKey)
	c.TTS.APIKey = mask(c.TTS.APIKey)
	c.Storage.SecretKey = mask(c.Storage.SecretKey)
	c.Notifications.SlackWebhookURL = mask(c.Notifications.SlackWebhookURL)
	return c
}

// Encode renders the configuration as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
