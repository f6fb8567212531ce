package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"server.request_timeout_seconds": c.Server.RequestTimeoutSeconds,
		"sheets.timeout_seconds":         c.Sheets.TimeoutSeconds,
		"llm.timeout_seconds":            c.LLM.TimeoutSeconds,
		"tts.timeout_seconds":            c.TTS.TimeoutSeconds,
		"video.timeout_seconds":          c.Video.TimeoutSeconds,
		"notifications.request_timeout":  c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case LLMProviderOpenRouter, LLMProviderOpenAI:
	default:
		return fmt.Errorf("llm.provider: unsupported value %q (want %s or %s)", c.LLM.Provider, LLMProviderOpenRouter, LLMProviderOpenAI)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if c.Generation.DefaultCount > c.Generation.MaxCount {
		return fmt.Errorf("generation.default_count (%d) must not exceed generation.max_count (%d)", c.Generation.DefaultCount, c.Generation.MaxCount)
	}
	switch c.Generation.TranslationPolicy {
	case TranslationLenient, TranslationStrict:
	default:
		return fmt.Errorf("generation.translation_policy: unsupported value %q (want %s or %s)", c.Generation.TranslationPolicy, TranslationLenient, TranslationStrict)
	}
	return nil
}

func (c *Config) validateTTS() error {
	switch c.TTS.Provider {
	case TTSProviderElevenLabs:
	case TTSProviderCommand:
		if strings.TrimSpace(c.TTS.Command) == "" {
			return errors.New("tts.command must be set when tts.provider is command")
		}
	default:
		return fmt.Errorf("tts.provider: unsupported value %q (want %s or %s)", c.TTS.Provider, TTSProviderElevenLabs, TTSProviderCommand)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		if strings.TrimSpace(c.Storage.Dir) == "" {
			return errors.New("storage.dir must be set when storage.backend is local")
		}
	case StorageMinIO:
		if c.Storage.Endpoint == "" {
			return errors.New("storage.endpoint must be set when storage.backend is minio (or set MINIO_ENDPOINT)")
		}
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket must be set when storage.backend is minio")
		}
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			return errors.New("storage.access_key and storage.secret_key must be set when storage.backend is minio")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want %s or %s)", c.Storage.Backend, StorageLocal, StorageMinIO)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	switch c.Notifications.Provider {
	case NotifyNone:
	case NotifySlack:
		if c.Notifications.SlackWebhookURL == "" {
			return errors.New("notifications.slack_webhook_url must be set when notifications.provider is slack (or set SLACK_WEBHOOK_URL)")
		}
	case NotifyNtfy:
		if c.Notifications.NtfyTopic == "" {
			return errors.New("notifications.ntfy_topic must be set when notifications.provider is ntfy")
		}
	default:
		return fmt.Errorf("notifications.provider: unsupported value %q", c.Notifications.Provider)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
