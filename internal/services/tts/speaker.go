package tts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider names accepted by New.
const (
	ProviderElevenLabs = "elevenlabs"
	ProviderCommand    = "command"
)

// Speaker renders text with a voice into an audio file at outPath.
type Speaker interface {
	Synthesize(ctx context.Context, text, voiceID, outPath string) error
}

// Config captures speaker settings.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Command  string
	Timeout  time.Duration
}

// New returns the speaker for cfg.Provider. httpClient may be nil.
func New(cfg Config, httpClient *http.Client) (Speaker, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderElevenLabs:
		return NewElevenLabs(cfg, httpClient), nil
	case ProviderCommand:
		return NewCommandSpeaker(cfg.Command, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("tts: unsupported provider %q", cfg.Provider)
	}
}
