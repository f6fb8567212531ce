package config

const (
	defaultConfigPath            = "~/.config/creativeflow/config.toml"
	defaultDataDir               = "~/.local/share/creativeflow"
	defaultWorkDir               = "~/.local/share/creativeflow/work"
	defaultLogDir                = "~/.local/share/creativeflow/logs"
	defaultArtifactDir           = "~/.local/share/creativeflow/artifacts"
	defaultServerBind            = "127.0.0.1:7610"
	defaultServerRequestTimeout  = 900
	defaultSourceTab             = "Performance"
	defaultDestinationTab        = "Generated Scripts"
	defaultSheetsTimeoutSeconds  = 30
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenAIBaseURL         = "https://api.openai.com/v1/"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultOpenAIModel           = "gpt-4o-mini"
	defaultLLMReferer            = "https://github.com/creativeflow/creativeflow"
	defaultLLMTitle              = "creativeflow"
	defaultLLMTimeoutSeconds     = 60
	defaultLLMTemperature        = 0.8
	defaultGenerationCount       = 5
	defaultGenerationMaxCount    = 25
	defaultGenerationConcurrency = 4
	defaultCallTimeoutSeconds    = 90
	defaultExampleLimit          = 30
	defaultLanguage              = "en"
	defaultTTSBaseURL            = "https://api.elevenlabs.io"
	defaultTTSModel              = "eleven_multilingual_v2"
	defaultTTSVoice              = "21m00Tcm4TlvDq8ikWAM"
	defaultTTSCommand            = "edge-tts"
	defaultTTSTimeoutSeconds     = 120
	defaultTTSConcurrency        = 3
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultVideoTimeoutSeconds   = 600
	defaultVideoConcurrency      = 2
	defaultStorageRegion         = "us-east-1"
	defaultStorageURLExpiry      = 7 * 24 * 60
	defaultNotifyRequestTimeout  = 10
	defaultNtfyServer            = "https://ntfy.sh/"
	defaultNotifyDelaySeconds    = 0
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Provider and policy names accepted in configuration.
const (
	LLMProviderOpenRouter = "openrouter"
	LLMProviderOpenAI     = "openai"

	TTSProviderElevenLabs = "elevenlabs"
	TTSProviderCommand    = "command"

	StorageLocal = "local"
	StorageMinIO = "minio"

	NotifySlack = "slack"
	NotifyNtfy  = "ntfy"
	NotifyNone  = "none"

	TranslationLenient = "lenient"
	TranslationStrict  = "strict"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			Bind:                  defaultServerBind,
			RequestTimeoutSeconds: defaultServerRequestTimeout,
		},
		Sheets: Sheets{
			SourceTab:      defaultSourceTab,
			DestinationTab: defaultDestinationTab,
			TimeoutSeconds: defaultSheetsTimeoutSeconds,
		},
		LLM: LLM{
			Provider:       LLMProviderOpenRouter,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			Temperature:    defaultLLMTemperature,
		},
		Generation: Generation{
			DefaultCount:       defaultGenerationCount,
			MaxCount:           defaultGenerationMaxCount,
			Concurrency:        defaultGenerationConcurrency,
			CallTimeoutSeconds: defaultCallTimeoutSeconds,
			ExampleLimit:       defaultExampleLimit,
			DefaultLanguage:    defaultLanguage,
			TranslationPolicy:  TranslationLenient,
		},
		TTS: TTS{
			Provider:       TTSProviderElevenLabs,
			BaseURL:        defaultTTSBaseURL,
			Model:          defaultTTSModel,
			DefaultVoice:   defaultTTSVoice,
			Command:        defaultTTSCommand,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
			Concurrency:    defaultTTSConcurrency,
			Cache:          true,
		},
		Video: Video{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultVideoTimeoutSeconds,
			Concurrency:    defaultVideoConcurrency,
		},
		Storage: Storage{
			Backend:          StorageLocal,
			Dir:              defaultArtifactDir,
			Region:           defaultStorageRegion,
			UseSSL:           true,
			URLExpiryMinutes: defaultStorageURLExpiry,
		},
		Notifications: Notifications{
			Provider:            NotifyNone,
			RequestTimeout:      defaultNotifyRequestTimeout,
			DefaultDelaySeconds: defaultNotifyDelaySeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
