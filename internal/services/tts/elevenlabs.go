package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"creativeflow/internal/services"
)

const (
	defaultElevenLabsURL = "https://api.elevenlabs.io"
	defaultTimeout       = 120 * time.Second
	errorSnippetLimit    = 200
)

// ElevenLabs calls the ElevenLabs text-to-speech endpoint.
type ElevenLabs struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewElevenLabs builds an ElevenLabs speaker. httpClient may be nil.
func NewElevenLabs(cfg Config, httpClient *http.Client) *ElevenLabs {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultElevenLabsURL
	}
	return &ElevenLabs{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    base,
		model:      strings.TrimSpace(cfg.Model),
		httpClient: httpClient,
	}
}

type speechRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// Synthesize posts text to the voice endpoint and writes the MP3 response.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, voiceID, outPath string) error {
	text = strings.TrimSpace(text)
	voiceID = strings.TrimSpace(voiceID)
	switch {
	case text == "":
		return services.Wrap(services.ErrValidation, "tts", "elevenlabs", "text required", nil)
	case voiceID == "":
		return services.Wrap(services.ErrValidation, "tts", "elevenlabs", "voice id required", nil)
	case e.apiKey == "":
		return services.Wrap(services.ErrConfiguration, "tts", "elevenlabs", "api key required", nil)
	}

	endpoint := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(voiceID)
	encoded, err := json.Marshal(speechRequest{Text: text, ModelID: e.model})
	if err != nil {
		return fmt.Errorf("elevenlabs: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("elevenlabs: new request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "tts", "elevenlabs", "request timed out", err)
		}
		return services.Wrap(services.ErrTransient, "tts", "elevenlabs", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippetLimit))
		marker := services.ErrExternalTool
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return services.Wrap(marker, "tts", "elevenlabs",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}
	return writeAudio(resp.Body, outPath)
}

// writeAudio streams r into outPath through a temp file so a partial download
// never leaves a truncated file behind.
func writeAudio(r io.Reader, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(outPath), ".tts-*")
	if err != nil {
		return fmt.Errorf("create temp audio: %w", err)
	}
	tmpPath := tmp.Name()
	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write audio: %w", errors.Join(copyErr, closeErr))
	}
	if n == 0 {
		_ = os.Remove(tmpPath)
		return services.Wrap(services.ErrExternalTool, "tts", "write audio", "empty audio response", nil)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("finalize audio: %w", err)
	}
	return nil
}
