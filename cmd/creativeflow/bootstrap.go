package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"creativeflow/internal/api"
	"creativeflow/internal/artifacts"
	"creativeflow/internal/composer"
	"creativeflow/internal/config"
	"creativeflow/internal/creative"
	"creativeflow/internal/logging"
	"creativeflow/internal/narration"
	"creativeflow/internal/notifications"
	"creativeflow/internal/performance"
	"creativeflow/internal/pipeline"
	"creativeflow/internal/preflight"
	"creativeflow/internal/runstore"
	"creativeflow/internal/scriptgen"
	"creativeflow/internal/services/llm"
	"creativeflow/internal/services/sheets"
	"creativeflow/internal/services/tts"
	"creativeflow/internal/sink"
)

// application holds every long-lived component built from configuration.
type application struct {
	cfg          *config.Config
	logger       *slog.Logger
	orchestrator *pipeline.Orchestrator
	sink         *sink.Sink
	runs         *runstore.Store
	dispatcher   *notifications.Dispatcher
	notifier     notifications.Service
	model        string
}

func buildApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	table, err := sheets.New(ctx, sheets.Config{
		CredentialsFile: cfg.Sheets.CredentialsFile,
		ClientID:        cfg.Sheets.ClientID,
		ClientSecret:    cfg.Sheets.ClientSecret,
		RefreshToken:    cfg.Sheets.RefreshToken,
		BaseURL:         cfg.Sheets.BaseURL,
		Timeout:         time.Duration(cfg.Sheets.TimeoutSeconds) * time.Second,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}

	llmCfg := cfg.GetLLM()
	backend, err := llm.New(llmCfg.Provider, llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
		Temperature:    llmCfg.Temperature,
	}, nil)
	if err != nil {
		return nil, err
	}

	library := scriptgen.DefaultLibrary()
	if path := strings.TrimSpace(cfg.Generation.PromptLibrary); path != "" {
		library, err = scriptgen.LoadLibrary(path)
		if err != nil {
			return nil, fmt.Errorf("prompt library: %w", err)
		}
	}

	speaker, err := tts.New(tts.Config{
		Provider: cfg.TTS.Provider,
		APIKey:   cfg.TTS.APIKey,
		BaseURL:  cfg.TTS.BaseURL,
		Model:    cfg.TTS.Model,
		Command:  cfg.TTS.Command,
		Timeout:  time.Duration(cfg.TTS.TimeoutSeconds) * time.Second,
	}, nil)
	if err != nil {
		return nil, err
	}

	store, err := newArtifactStore(cfg)
	if err != nil {
		return nil, err
	}

	runs, err := runstore.Open(cfg.RunStorePath())
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}

	notifier := notifications.NewService(cfg)
	dispatcher := notifications.NewDispatcher(notifier, runs, logger)
	results := sink.New(table, logger)

	orchestrator := pipeline.New(pipeline.Deps{
		Source: performance.NewSource(table, cfg.Generation.ExampleLimit, logger),
		Generator: scriptgen.New(backend, scriptgen.Config{
			Concurrency:       cfg.Generation.Concurrency,
			CallTimeout:       cfg.CallTimeout(),
			TranslationPolicy: cfg.Generation.TranslationPolicy,
			Library:           library,
		}, logger),
		Narrator: narration.New(speaker, store, narration.Config{
			Concurrency: cfg.TTS.Concurrency,
			Timeout:     time.Duration(cfg.TTS.TimeoutSeconds) * time.Second,
			Cache:       cfg.TTS.Cache,
			WorkDir:     cfg.Paths.WorkDir,
		}, logger),
		Compositor: composer.New(store, composer.Config{
			FFmpegBinary:  cfg.Video.FFmpegBinary,
			FFprobeBinary: cfg.Video.FFprobeBinary,
			Timeout:       time.Duration(cfg.Video.TimeoutSeconds) * time.Second,
			Concurrency:   cfg.Video.Concurrency,
			WorkDir:       cfg.Paths.WorkDir,
		}, logger),
		Sink:     results,
		Notifier: dispatcher,
		Runs:     runs,
		Defaults: defaultsFromConfig(cfg),
	}, logger)

	return &application{
		cfg:          cfg,
		logger:       logger,
		orchestrator: orchestrator,
		sink:         results,
		runs:         runs,
		dispatcher:   dispatcher,
		notifier:     notifier,
		model:        backend.Model(),
	}, nil
}

func newArtifactStore(cfg *config.Config) (artifacts.Store, error) {
	if cfg.Storage.Backend == config.StorageMinIO {
		store, err := artifacts.NewMinIOStore(artifacts.MinIOConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			URLExpiry: time.Duration(cfg.Storage.URLExpiryMinutes) * time.Minute,
		}, cfg.Paths.WorkDir)
		if err != nil {
			return nil, fmt.Errorf("artifact store: %w", err)
		}
		return store, nil
	}
	return artifacts.NewLocalStore(cfg.Storage.Dir, cfg.Paths.WorkDir,
		artifacts.WithDownloadTimeout(time.Duration(cfg.Video.TimeoutSeconds)*time.Second),
	), nil
}

func defaultsFromConfig(cfg *config.Config) creative.Defaults {
	return creative.Defaults{
		SourceTab:      cfg.Sheets.SourceTab,
		DestinationTab: cfg.Sheets.DestinationTab,
		Count:          cfg.Generation.DefaultCount,
		MaxCount:       cfg.Generation.MaxCount,
		Language:       cfg.Generation.DefaultLanguage,
		Voice:          cfg.TTS.DefaultVoice,
		Background:     cfg.Video.DefaultBackground,
		NotifyDelay:    cfg.NotificationDelay(),
	}
}

// close waits for pending approvals unless ctx expires first, then releases
// the run store.
func (a *application) close(ctx context.Context) error {
	var errs []error
	if a.dispatcher != nil {
		errs = append(errs, a.dispatcher.Shutdown(ctx))
	}
	if a.runs != nil {
		errs = append(errs, a.runs.Close())
	}
	return errors.Join(errs...)
}

func (a *application) status(context.Context) api.Status {
	status := api.Status{
		LLMProvider:   a.cfg.LLM.Provider,
		LLMModel:      a.model,
		TTSProvider:   a.cfg.TTS.Provider,
		Storage:       a.cfg.Storage.Backend,
		Notifications: a.notifier.Name(),
		RunStorePath:  a.runs.Path(),
	}
	for _, dep := range preflight.CheckSystemDeps(a.cfg) {
		status.Dependencies = append(status.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return status
}
