package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"creativeflow/internal/artifacts"
	"creativeflow/internal/config"
	"creativeflow/internal/deps"
	"creativeflow/internal/services/llm"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	llmCfg := llm.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Referer:     cfg.Referer,
		Title:       cfg.Title,
		Temperature: cfg.Temperature,
	}
	var backend interface{ HealthCheck(context.Context) error }
	if cfg.Provider == config.LLMProviderOpenAI {
		backend = llm.NewOpenAIClient(llmCfg, nil)
	} else {
		backend = llm.NewClient(llmCfg, llm.WithRetryMaxAttempts(1))
	}
	if err := backend.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err, "LLM API")}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable (%s)", cfg.Provider, cfg.Model)}
}

// CheckElevenLabs verifies the ElevenLabs key against the user endpoint.
func CheckElevenLabs(ctx context.Context, baseURL, apiKey string) Result {
	const name = "ElevenLabs"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/v1/user", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set("xi-api-key", strings.TrimSpace(apiKey))

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err, "ElevenLabs")}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

// CheckStorage verifies the MinIO bucket is reachable.
func CheckStorage(ctx context.Context, cfg *config.Config) Result {
	const name = "Artifact bucket"

	store, err := artifacts.NewMinIOStore(artifacts.MinIOConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Region:    cfg.Storage.Region,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
	}, cfg.Paths.WorkDir)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err, "bucket")}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s/%s", cfg.Storage.Endpoint, cfg.Storage.Bucket)}
}

// CheckSheetsCredentials confirms that some form of Sheets credentials is configured.
func CheckSheetsCredentials(cfg *config.Config) Result {
	const name = "Sheets credentials"

	switch {
	case cfg.Sheets.CredentialsFile != "":
		if _, err := os.Stat(cfg.Sheets.CredentialsFile); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.Sheets.CredentialsFile, err)}
		}
		return Result{Name: name, Passed: true, Detail: "service account " + cfg.Sheets.CredentialsFile}
	case cfg.Sheets.ClientID != "" && cfg.Sheets.ClientSecret != "" && cfg.Sheets.RefreshToken != "":
		return Result{Name: name, Passed: true, Detail: "oauth refresh token"}
	case cfg.Sheets.BaseURL != "":
		return Result{Name: name, Passed: true, Detail: "unauthenticated endpoint " + cfg.Sheets.BaseURL}
	default:
		return Result{Name: name, Detail: "no credentials configured"}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the binaries required by the configured stages.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Video.FFmpegBinary,
			Description: "Required for video composition",
			Optional:    true,
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobe(cfg.Video.FFmpegBinary, cfg.Video.FFprobeBinary),
			Description: "Required to validate composed videos",
			Optional:    true,
		},
	}
	if cfg.TTS.Provider == config.TTSProviderCommand {
		requirements = append(requirements, deps.Requirement{
			Name:        "TTS command",
			Command:     cfg.TTS.Command,
			Description: "Required for audio synthesis",
		})
	}
	return deps.CheckBinaries(requirements)
}

func summarizeNetworkError(err error, target string) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("health check timed out (%s unresponsive)", target)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("health check timed out (%s unreachable)", target)
	}
	return err.Error()
}
