package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	if err := c.normalizeSheets(); err != nil {
		return err
	}
	c.normalizeLLM()
	if err := c.normalizeGeneration(); err != nil {
		return err
	}
	c.normalizeTTS()
	if err := c.normalizeVideo(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		c.Server.APIToken = lookupEnv("CREATIVEFLOW_API_TOKEN")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		c.Server.RequestTimeoutSeconds = defaultServerRequestTimeout
	}
}

func (c *Config) normalizeSheets() error {
	c.Sheets.CredentialsFile = strings.TrimSpace(c.Sheets.CredentialsFile)
	if c.Sheets.CredentialsFile == "" {
		c.Sheets.CredentialsFile = lookupEnv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if c.Sheets.CredentialsFile != "" {
		var err error
		if c.Sheets.CredentialsFile, err = expandPath(c.Sheets.CredentialsFile); err != nil {
			return fmt.Errorf("sheets.credentials_file: %w", err)
		}
	}
	c.Sheets.ClientID = strings.TrimSpace(c.Sheets.ClientID)
	if c.Sheets.ClientID == "" {
		c.Sheets.ClientID = lookupEnv("GOOGLE_CLIENT_ID", "YOUTUBE_CLIENT_ID")
	}
	c.Sheets.ClientSecret = strings.TrimSpace(c.Sheets.ClientSecret)
	if c.Sheets.ClientSecret == "" {
		c.Sheets.ClientSecret = lookupEnv("GOOGLE_CLIENT_SECRET", "YOUTUBE_CLIENT_SECRET")
	}
	c.Sheets.RefreshToken = strings.TrimSpace(c.Sheets.RefreshToken)
	if c.Sheets.RefreshToken == "" {
		c.Sheets.RefreshToken = lookupEnv("GOOGLE_REFRESH_TOKEN", "YOUTUBE_REFRESH_TOKEN")
	}
	c.Sheets.BaseURL = strings.TrimSpace(c.Sheets.BaseURL)
	c.Sheets.SourceTab = strings.TrimSpace(c.Sheets.SourceTab)
	if c.Sheets.SourceTab == "" {
		c.Sheets.SourceTab = defaultSourceTab
	}
	c.Sheets.DestinationTab = strings.TrimSpace(c.Sheets.DestinationTab)
	if c.Sheets.DestinationTab == "" {
		c.Sheets.DestinationTab = defaultDestinationTab
	}
	if c.Sheets.TimeoutSeconds <= 0 {
		c.Sheets.TimeoutSeconds = defaultSheetsTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = LLMProviderOpenRouter
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case LLMProviderOpenAI:
			c.LLM.APIKey = lookupEnv("OPENAI_API_KEY")
		default:
			c.LLM.APIKey = lookupEnv("OPENROUTER_API_KEY", "LLM_API_KEY")
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	switch c.LLM.Provider {
	case LLMProviderOpenAI:
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultOpenAIBaseURL
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultOpenAIModel
		}
	default:
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultLLMBaseURL
		}
		if c.LLM.Model == "" {
			c.LLM.Model = defaultLLMModel
		}
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeGeneration() error {
	if c.Generation.DefaultCount <= 0 {
		c.Generation.DefaultCount = defaultGenerationCount
	}
	if c.Generation.MaxCount <= 0 {
		c.Generation.MaxCount = defaultGenerationMaxCount
	}
	if c.Generation.Concurrency <= 0 {
		c.Generation.Concurrency = defaultGenerationConcurrency
	}
	if c.Generation.CallTimeoutSeconds <= 0 {
		c.Generation.CallTimeoutSeconds = defaultCallTimeoutSeconds
	}
	if c.Generation.ExampleLimit <= 0 {
		c.Generation.ExampleLimit = defaultExampleLimit
	}
	c.Generation.DefaultLanguage = strings.ToLower(strings.TrimSpace(c.Generation.DefaultLanguage))
	if c.Generation.DefaultLanguage == "" {
		c.Generation.DefaultLanguage = defaultLanguage
	}
	c.Generation.TranslationPolicy = strings.ToLower(strings.TrimSpace(c.Generation.TranslationPolicy))
	if c.Generation.TranslationPolicy == "" {
		c.Generation.TranslationPolicy = TranslationLenient
	}
	c.Generation.PromptLibrary = strings.TrimSpace(c.Generation.PromptLibrary)
	if c.Generation.PromptLibrary != "" {
		var err error
		if c.Generation.PromptLibrary, err = expandPath(c.Generation.PromptLibrary); err != nil {
			return fmt.Errorf("generation.prompt_library: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeTTS() {
	c.TTS.Provider = strings.ToLower(strings.TrimSpace(c.TTS.Provider))
	if c.TTS.Provider == "" {
		c.TTS.Provider = TTSProviderElevenLabs
	}
	c.TTS.APIKey = strings.TrimSpace(c.TTS.APIKey)
	if c.TTS.APIKey == "" {
		c.TTS.APIKey = lookupEnv("ELEVENLABS_API_KEY", "XI_API_KEY")
	}
	c.TTS.BaseURL = strings.TrimRight(strings.TrimSpace(c.TTS.BaseURL), "/")
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.Model = strings.TrimSpace(c.TTS.Model)
	if c.TTS.Model == "" {
		c.TTS.Model = defaultTTSModel
	}
	c.TTS.DefaultVoice = strings.TrimSpace(c.TTS.DefaultVoice)
	if c.TTS.DefaultVoice == "" {
		c.TTS.DefaultVoice = defaultTTSVoice
	}
	c.TTS.Command = strings.TrimSpace(c.TTS.Command)
	if c.TTS.Command == "" {
		c.TTS.Command = defaultTTSCommand
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
	if c.TTS.Concurrency <= 0 {
		c.TTS.Concurrency = defaultTTSConcurrency
	}
}

func (c *Config) normalizeVideo() error {
	c.Video.FFmpegBinary = strings.TrimSpace(c.Video.FFmpegBinary)
	if c.Video.FFmpegBinary == "" {
		c.Video.FFmpegBinary = defaultFFmpegBinary
	}
	c.Video.FFprobeBinary = strings.TrimSpace(c.Video.FFprobeBinary)
	if c.Video.FFprobeBinary == "" {
		c.Video.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Video.TimeoutSeconds <= 0 {
		c.Video.TimeoutSeconds = defaultVideoTimeoutSeconds
	}
	if c.Video.Concurrency <= 0 {
		c.Video.Concurrency = defaultVideoConcurrency
	}
	c.Video.DefaultBackground = strings.TrimSpace(c.Video.DefaultBackground)
	if c.Video.DefaultBackground != "" && !strings.Contains(c.Video.DefaultBackground, "://") {
		var err error
		if c.Video.DefaultBackground, err = expandPath(c.Video.DefaultBackground); err != nil {
			return fmt.Errorf("video.default_background: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
	}
	if strings.TrimSpace(c.Storage.Dir) == "" {
		c.Storage.Dir = defaultArtifactDir
	}
	var err error
	if c.Storage.Dir, err = expandPath(c.Storage.Dir); err != nil {
		return fmt.Errorf("storage.dir: %w", err)
	}
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	if c.Storage.Endpoint == "" {
		c.Storage.Endpoint = lookupEnv("MINIO_ENDPOINT")
	}
	c.Storage.AccessKey = strings.TrimSpace(c.Storage.AccessKey)
	if c.Storage.AccessKey == "" {
		c.Storage.AccessKey = lookupEnv("MINIO_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	}
	c.Storage.SecretKey = strings.TrimSpace(c.Storage.SecretKey)
	if c.Storage.SecretKey == "" {
		c.Storage.SecretKey = lookupEnv("MINIO_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")
	}
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	if c.Storage.Region == "" {
		c.Storage.Region = defaultStorageRegion
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	if c.Storage.URLExpiryMinutes <= 0 {
		c.Storage.URLExpiryMinutes = defaultStorageURLExpiry
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.SlackWebhookURL = strings.TrimSpace(c.Notifications.SlackWebhookURL)
	if c.Notifications.SlackWebhookURL == "" {
		c.Notifications.SlackWebhookURL = lookupEnv("SLACK_WEBHOOK_URL")
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if topic := c.Notifications.NtfyTopic; topic != "" && !strings.Contains(topic, "://") {
		c.Notifications.NtfyTopic = defaultNtfyServer + strings.TrimPrefix(topic, "/")
	}
	c.Notifications.Provider = strings.ToLower(strings.TrimSpace(c.Notifications.Provider))
	if c.Notifications.Provider == "" {
		switch {
		case c.Notifications.SlackWebhookURL != "":
			c.Notifications.Provider = NotifySlack
		case c.Notifications.NtfyTopic != "":
			c.Notifications.Provider = NotifyNtfy
		default:
			c.Notifications.Provider = NotifyNone
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Notifications.DefaultDelaySeconds < 0 {
		c.Notifications.DefaultDelaySeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lookupEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
