package scriptgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"creativeflow/internal/creative"
	"creativeflow/internal/logging"
	"creativeflow/internal/services"
	"creativeflow/internal/services/llm"
)

// Translation policies.
const (
	TranslationLenient = "lenient"
	TranslationStrict  = "strict"
)

const (
	defaultConcurrency = 4
	defaultCallTimeout = 90 * time.Second
)

// Config tunes the generator.
type Config struct {
	Concurrency       int
	CallTimeout       time.Duration
	TranslationPolicy string
	Library           Library
}

// Generator turns scored examples and a request into suggestions.
type Generator struct {
	completer llm.Completer
	cfg       Config
	logger    *slog.Logger
}

// New builds a Generator. Zero-valued config fields fall back to defaults.
func New(completer llm.Completer, cfg Config, logger *slog.Logger) *Generator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if cfg.TranslationPolicy == "" {
		cfg.TranslationPolicy = TranslationLenient
	}
	if cfg.Library.SystemPrompt == "" {
		cfg.Library = DefaultLibrary()
	}
	return &Generator{
		completer: completer,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "scriptgen"),
	}
}

// Generate runs the request's strategy. The returned slice always has
// req.Count entries on success, indexed 0..Count-1.
func (g *Generator) Generate(ctx context.Context, examples []creative.ScoredExample, req creative.GenerationRequest) ([]creative.ScriptSuggestion, error) {
	if req.Count < 1 {
		return nil, services.Wrap(services.ErrValidation, "generating", "generate", "count must be at least 1", nil)
	}
	logger := logging.WithContext(ctx, g.logger)
	closeCount, experimental := creative.SplitCounts(req.Count, req.ExperimentalRatio)
	logger.Info("generating scripts",
		logging.String(logging.FieldEventType, "generation_start"),
		logging.String("strategy", string(req.Strategy)),
		logging.Int("count", req.Count),
		logging.Int("close", closeCount),
		logging.Int("experimental", experimental),
		logging.Int("examples", len(examples)),
		logging.String("language", req.Language),
	)

	var (
		out []creative.ScriptSuggestion
		err error
	)
	switch req.Strategy {
	case creative.StrategyPerItem:
		out = g.generatePerItem(ctx, examples, req)
	default:
		out, err = g.generateBatch(ctx, examples, req)
	}
	if err != nil {
		return nil, err
	}

	failed := 0
	for i := range out {
		if out[i].Failed() {
			failed++
		}
	}
	logger.Info("script generation complete",
		logging.String(logging.FieldEventType, "generation_complete"),
		logging.Int("suggestions", len(out)),
		logging.Int("failed", failed),
	)
	return out, nil
}

func (g *Generator) generateBatch(ctx context.Context, examples []creative.ScoredExample, req creative.GenerationRequest) ([]creative.ScriptSuggestion, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	content, err := g.completer.CompleteJSON(callCtx, g.cfg.Library.SystemPrompt, batchPrompt(g.cfg.Library, examples, req))
	cancel()
	if err != nil {
		return nil, services.Wrap(services.ErrGenerationFailed, "generating", "batch", "model call failed", err)
	}
	parsed, err := parseSuggestions(content)
	if err != nil {
		return nil, services.Wrap(services.ErrGenerationFailed, "generating", "batch", "unparseable model response", err)
	}
	good := usable(parsed)
	if len(good) < req.Count {
		return nil, services.Wrap(services.ErrGenerationFailed, "generating", "batch",
			fmt.Sprintf("model returned %d usable suggestions, want %d", len(good), req.Count), nil)
	}
	good = good[:req.Count]

	out := make([]creative.ScriptSuggestion, req.Count)
	for i, raw := range good {
		out[i] = g.toSuggestion(i, raw, req)
	}
	if req.NonEnglish() {
		g.translateAll(ctx, out, req.Language)
	}
	return out, nil
}

func (g *Generator) generatePerItem(ctx context.Context, examples []creative.ScoredExample, req creative.GenerationRequest) []creative.ScriptSuggestion {
	out := make([]creative.ScriptSuggestion, req.Count)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(g.cfg.Concurrency)
	for i := range req.Count {
		group.Go(func() error {
			itemCtx := services.WithItemIndex(gctx, i)
			out[i] = g.generateOne(itemCtx, examples, req, i)
			return nil
		})
	}
	_ = group.Wait()
	return out
}

func (g *Generator) generateOne(ctx context.Context, examples []creative.ScoredExample, req creative.GenerationRequest, index int) creative.ScriptSuggestion {
	logger := logging.WithContext(ctx, g.logger)
	slot := creative.ScriptSuggestion{Index: index, Language: req.Language}
	direction := creative.GroupFor(index, req.Count, req.ExperimentalRatio)

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	content, err := g.completer.CompleteJSON(callCtx, g.cfg.Library.SystemPrompt, itemPrompt(g.cfg.Library, examples, req, index, direction))
	cancel()
	if err != nil {
		logging.WarnWithContext(logger, "script generation failed", "item_generation_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "slot carries a script stage error"),
		)
		slot.Fail(creative.StageScript, "generation failed: %v", err)
		return slot
	}
	parsed, err := parseSuggestions(content)
	if err == nil {
		parsed = usable(parsed)
	}
	if err != nil || len(parsed) == 0 {
		reason := "model returned no usable script"
		if err != nil {
			reason = "unparseable model response: " + err.Error()
		}
		logging.WarnWithContext(logger, "script generation returned nothing usable", "item_generation_empty",
			logging.String("reason", reason),
			logging.String(logging.FieldImpact, "slot carries a script stage error"),
		)
		slot.Fail(creative.StageScript, "%s", reason)
		return slot
	}

	slot = g.toSuggestion(index, parsed[0], req)
	if req.NonEnglish() {
		g.translate(ctx, &slot, req.Language)
	}
	logger.Debug("script generated", logging.String("group", direction.String()), logging.String("title", slot.Title))
	return slot
}

func (g *Generator) toSuggestion(index int, raw rawSuggestion, req creative.GenerationRequest) creative.ScriptSuggestion {
	s := creative.ScriptSuggestion{
		Index:         index,
		Title:         strings.TrimSpace(raw.Title),
		Reasoning:     strings.TrimSpace(raw.Reasoning),
		TargetMetrics: []string(raw.TargetMetrics),
		Language:      req.Language,
	}
	if s.TargetMetrics == nil {
		s.TargetMetrics = []string{}
	}
	if s.Title == "" {
		s.Title = fmt.Sprintf("Suggestion %d", index+1)
	}
	if req.NonEnglish() {
		s.NativeContent = raw.text()
	} else {
		s.Content = raw.text()
	}
	return s
}

func (g *Generator) translateAll(ctx context.Context, out []creative.ScriptSuggestion, code string) {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(g.cfg.Concurrency)
	for i := range out {
		group.Go(func() error {
			g.translate(services.WithItemIndex(gctx, i), &out[i], code)
			return nil
		})
	}
	_ = group.Wait()
}

// translate fills Content from NativeContent according to the policy.
func (g *Generator) translate(ctx context.Context, s *creative.ScriptSuggestion, code string) {
	english, err := g.translateText(ctx, s.NativeContent, code)
	if err == nil {
		s.Content = english
		return
	}
	logger := logging.WithContext(ctx, g.logger)
	if g.cfg.TranslationPolicy == TranslationStrict {
		logging.WarnWithContext(logger, "translation failed", "translation_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "slot carries a script stage error"),
		)
		s.Fail(creative.StageScript, "translation failed: %v", err)
		return
	}
	logging.WarnWithContext(logger, "translation failed; using native script as English copy", "translation_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "reviewers see the untranslated script"),
	)
	s.Content = s.NativeContent
}

func (g *Generator) translateText(ctx context.Context, text, code string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()
	content, err := g.completer.CompleteJSON(callCtx, g.cfg.Library.TranslationPrompt, translationUserPrompt(text, code))
	if err != nil {
		return "", err
	}
	var payload struct {
		Translation string `json:"translation"`
	}
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return "", fmt.Errorf("parse translation: %w", err)
	}
	translated := strings.TrimSpace(payload.Translation)
	if translated == "" {
		return "", errors.New("empty translation")
	}
	return translated, nil
}
