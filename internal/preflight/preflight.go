package preflight

import (
	"context"

	"creativeflow/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Options toggles the checks that reach out over the network.
type Options struct {
	SkipNetwork bool
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
	}
	if cfg.Storage.Backend == config.StorageLocal {
		results = append(results, CheckDirectoryAccess("Artifact directory", cfg.Storage.Dir))
	}
	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Command}
		if !status.Available {
			result.Detail = status.Detail
			if status.Optional {
				result.Detail += " (optional)"
			}
		}
		results = append(results, result)
	}
	results = append(results, CheckSheetsCredentials(cfg))

	if opts.SkipNetwork {
		return results
	}
	results = append(results, CheckLLM(ctx, "LLM", cfg.GetLLM()))
	if cfg.TTS.Provider == config.TTSProviderElevenLabs {
		results = append(results, CheckElevenLabs(ctx, cfg.TTS.BaseURL, cfg.TTS.APIKey))
	}
	if cfg.Storage.Backend == config.StorageMinIO {
		results = append(results, CheckStorage(ctx, cfg))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
