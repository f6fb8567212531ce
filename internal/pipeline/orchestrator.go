package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"creativeflow/internal/creative"
	"creativeflow/internal/logging"
	"creativeflow/internal/notifications"
	"creativeflow/internal/runstore"
	"creativeflow/internal/services"
)

// ExampleSource supplies scored historical scripts.
type ExampleSource interface {
	FetchScoredExamples(ctx context.Context, sourceRef, tab string) ([]creative.ScoredExample, error)
}

// ScriptGenerator produces suggestions for a request.
type ScriptGenerator interface {
	Generate(ctx context.Context, examples []creative.ScoredExample, req creative.GenerationRequest) ([]creative.ScriptSuggestion, error)
}

// Narrator attaches audio to suggestions in place.
type Narrator interface {
	SynthesizeAll(ctx context.Context, suggestions []creative.ScriptSuggestion, voiceID string) int
	SynthesizeSelected(ctx context.Context, suggestions []creative.ScriptSuggestion, indices []int, voiceID string) int
}

// Compositor attaches video to narrated suggestions in place.
type Compositor interface {
	ComposeAll(ctx context.Context, suggestions []creative.ScriptSuggestion, backgroundRef string) int
}

// ResultSink persists suggestions.
type ResultSink interface {
	AppendSuggestions(ctx context.Context, destinationRef, tab string, suggestions []creative.ScriptSuggestion) (bool, error)
}

// ApprovalScheduler queues delayed approval requests.
type ApprovalScheduler interface {
	Schedule(ctx context.Context, asset notifications.ApprovalAsset, delay time.Duration) bool
}

// RunRecorder stores run history.
type RunRecorder interface {
	CreateRun(ctx context.Context, run runstore.Run) error
	UpdateRun(ctx context.Context, run runstore.Run) error
}

// Deps wires the orchestrator's collaborators. Narrator, Compositor,
// Notifier and Runs may be nil; the matching stages then become no-ops.
type Deps struct {
	Source     ExampleSource
	Generator  ScriptGenerator
	Narrator   Narrator
	Compositor Compositor
	Sink       ResultSink
	Notifier   ApprovalScheduler
	Runs       RunRecorder
	Defaults   creative.Defaults
}

// Orchestrator runs generate, reprocess, and audio-only requests.
type Orchestrator struct {
	deps     Deps
	logger   *slog.Logger
	inflight sync.WaitGroup
}

// New builds an Orchestrator.
func New(deps Deps, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{deps: deps, logger: logging.NewComponentLogger(logger, "pipeline")}
}

// Wait blocks until every run started so far has reached a terminal state,
// or until ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Defaults returns the configuration-derived request defaults.
func (o *Orchestrator) Defaults() creative.Defaults {
	return o.deps.Defaults
}

// Generate runs a full generation request.
func (o *Orchestrator) Generate(ctx context.Context, req creative.GenerationRequest) (creative.PipelineResult, error) {
	run := o.begin(ctx, runstore.Run{
		Kind:           runstore.KindGenerate,
		SourceRef:      req.SourceRef,
		DestinationRef: req.DestinationRef,
		DestinationTab: req.DestinationTab,
		Language:       req.Language,
		Requested:      req.Count,
	})

	run.transition(StateSourcing)
	examples, err := o.deps.Source.FetchScoredExamples(run.ctx, req.SourceRef, req.SourceTab)
	if err != nil {
		run.fail(err)
		return creative.PipelineResult{RunID: run.id}, err
	}

	run.transition(StateGenerating)
	suggestions, err := o.deps.Generator.Generate(run.ctx, examples, req)
	if err != nil {
		if !errors.Is(err, services.ErrGenerationFailed) {
			err = services.Wrap(services.ErrGenerationFailed, string(StateGenerating), "generate", "", err)
		}
		run.fail(err)
		return creative.PipelineResult{RunID: run.id}, err
	}

	if req.WithAudio && o.deps.Narrator != nil {
		run.transition(StateSynthesizing)
		o.deps.Narrator.SynthesizeAll(run.ctx, suggestions, req.VoiceID)
		if req.Composes() && o.deps.Compositor != nil {
			run.transition(StateComposing)
			o.deps.Compositor.ComposeAll(run.ctx, suggestions, req.BackgroundVideoRef)
		}
	}

	run.transition(StatePersisting)
	saved, saveErr := o.persist(run.ctx, req.DestinationRef, req.DestinationTab, suggestions)

	if req.Notify {
		o.notify(run.ctx, run.id, suggestions, req.Composes(), req.NotifyDelay)
	}

	succeeded, failed := tally(suggestions)
	run.record.SavedToSheet = saved
	run.finish(succeeded, failed, saveErr)

	return creative.PipelineResult{
		RunID:        run.id,
		Suggestions:  suggestions,
		SavedToSheet: saved,
		Message:      generateMessage(len(suggestions), failed, saved, req.DestinationTab, saveErr),
	}, nil
}

// Reprocess narrates, composes, and optionally re-persists existing scripts.
func (o *Orchestrator) Reprocess(ctx context.Context, req creative.ReprocessRequest) (creative.ReprocessResult, error) {
	suggestions := req.Suggestions()
	run := o.begin(ctx, runstore.Run{
		Kind:           runstore.KindReprocess,
		DestinationRef: req.DestinationRef,
		DestinationTab: req.DestinationTab,
		Language:       req.Language,
		Requested:      len(suggestions),
	})
	result := creative.ReprocessResult{RunID: run.id}

	composes := req.BackgroundVideoRef != ""
	if o.deps.Narrator != nil {
		run.transition(StateSynthesizing)
		result.Synthesized = o.deps.Narrator.SynthesizeAll(run.ctx, suggestions, req.VoiceID)
	}
	if composes && o.deps.Compositor != nil {
		run.transition(StateComposing)
		result.Composed = o.deps.Compositor.ComposeAll(run.ctx, suggestions, req.BackgroundVideoRef)
	}

	var saveErr error
	if req.DestinationRef != "" {
		run.transition(StatePersisting)
		result.SavedToSheet, saveErr = o.persist(run.ctx, req.DestinationRef, req.DestinationTab, suggestions)
	}
	if req.Notify {
		result.Notified = o.notify(run.ctx, run.id, suggestions, composes, req.NotifyDelay)
	}

	succeeded, failed := tally(suggestions)
	result.Failed = failed
	result.Suggestions = suggestions
	result.Message = reprocessMessage(result, req.DestinationRef != "", saveErr)
	run.record.SavedToSheet = result.SavedToSheet
	run.finish(succeeded, failed, saveErr)
	return result, nil
}

// GenerateAudio narrates the suggestions at indices and returns a copy of
// the full set. The input slice is not modified.
func (o *Orchestrator) GenerateAudio(ctx context.Context, suggestions []creative.ScriptSuggestion, indices []int, voiceID string) ([]creative.ScriptSuggestion, error) {
	req := creative.AudioRequest{Suggestions: suggestions, Indices: indices, VoiceID: voiceID}
	if err := req.Validate(o.deps.Defaults); err != nil {
		return nil, err
	}
	if o.deps.Narrator == nil {
		return nil, services.Wrap(services.ErrConfiguration, string(StateSynthesizing), "audio", "no narrator configured", nil)
	}
	out := creative.CloneAll(suggestions)
	run := o.begin(ctx, runstore.Run{Kind: runstore.KindAudio, Requested: len(indices)})

	run.transition(StateSynthesizing)
	done := o.deps.Narrator.SynthesizeSelected(run.ctx, out, req.Indices, req.VoiceID)
	run.finish(done, len(dedupe(req.Indices))-done, nil)
	return out, nil
}

func (o *Orchestrator) persist(ctx context.Context, ref, tab string, suggestions []creative.ScriptSuggestion) (bool, error) {
	if o.deps.Sink == nil {
		return false, nil
	}
	saved, err := o.deps.Sink.AppendSuggestions(services.WithStage(ctx, string(StatePersisting)), ref, tab, suggestions)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "failed to save suggestions", "sink_write_failed",
			logging.Error(err),
			logging.String("tab", tab),
			logging.String(logging.FieldErrorHint, "share the spreadsheet with the service account and check the tab name"),
			logging.String(logging.FieldImpact, "suggestions returned to the caller but not saved"),
		)
		return false, err
	}
	return saved, nil
}

// notify schedules one approval per finished suggestion. When a background
// clip was requested only composed videos qualify; otherwise narrated audio
// does.
func (o *Orchestrator) notify(ctx context.Context, runID string, suggestions []creative.ScriptSuggestion, composes bool, delay time.Duration) int {
	if o.deps.Notifier == nil {
		return 0
	}
	scheduled := 0
	for _, s := range suggestions {
		ref, kind := s.AudioRef, "audio"
		if composes {
			ref, kind = s.VideoRef, "video"
		}
		if ref == "" || s.Failed() {
			continue
		}
		asset := notifications.ApprovalAsset{
			RunID:    runID,
			Index:    s.Index,
			Title:    s.Title,
			Script:   s.SpeechText(),
			Language: s.Language,
			AssetRef: ref,
			Kind:     kind,
		}
		if o.deps.Notifier.Schedule(ctx, asset, delay) {
			scheduled++
		}
	}
	if scheduled > 0 {
		logging.WithContext(ctx, o.logger).Info("approval notifications scheduled",
			logging.Int("count", scheduled),
			logging.Duration("delay", delay),
		)
	}
	return scheduled
}

func tally(suggestions []creative.ScriptSuggestion) (succeeded, failed int) {
	for i := range suggestions {
		if suggestions[i].Failed() {
			failed++
			continue
		}
		succeeded++
	}
	return succeeded, failed
}

func dedupe(indices []int) []int {
	seen := make(map[int]bool, len(indices))
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if !seen[idx] {
			seen[idx] = true
			out = append(out, idx)
		}
	}
	return out
}

func generateMessage(total, failed int, saved bool, tab string, saveErr error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generated %d %s", total, plural(total, "script", "scripts"))
	if failed > 0 {
		fmt.Fprintf(&b, " (%d with errors)", failed)
	}
	switch {
	case saved:
		fmt.Fprintf(&b, " and saved them to %q.", tab)
	case saveErr != nil:
		fmt.Fprintf(&b, " but could not save them to the sheet: %v", saveErr)
	default:
		b.WriteString(".")
	}
	return b.String()
}

func reprocessMessage(r creative.ReprocessResult, persisted bool, saveErr error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reprocessed %d %s: %d narrated, %d composed",
		len(r.Suggestions), plural(len(r.Suggestions), "script", "scripts"), r.Synthesized, r.Composed)
	if r.Notified > 0 {
		fmt.Fprintf(&b, ", %d sent for approval", r.Notified)
	}
	if r.Failed > 0 {
		fmt.Fprintf(&b, ", %d with errors", r.Failed)
	}
	switch {
	case persisted && r.SavedToSheet:
		b.WriteString(". Results saved to the sheet.")
	case saveErr != nil:
		fmt.Fprintf(&b, ". Could not save results: %v", saveErr)
	default:
		b.WriteString(".")
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func newRunID() string {
	return uuid.NewString()
}
