package creative

import (
	"fmt"
	"strings"
	"time"

	"creativeflow/internal/language"
	"creativeflow/internal/services"
)

// Strategy selects how scripts are requested from the model.
type Strategy string

const (
	// StrategyBatch requests every suggestion in one call; the call fails as a unit.
	StrategyBatch Strategy = "batch"
	// StrategyPerItem issues one call per suggestion; failures stay with their slot.
	StrategyPerItem Strategy = "per_item"
)

// StrategyFor maps the API's individualGeneration flag onto a strategy.
func StrategyFor(individual bool) Strategy {
	if individual {
		return StrategyPerItem
	}
	return StrategyBatch
}

// ParseStrategy accepts "batch", "per_item", "per-item", and "individual".
func ParseStrategy(value string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "batch":
		return StrategyBatch, nil
	case "per_item", "per-item", "peritem", "individual":
		return StrategyPerItem, nil
	default:
		return "", invalid("unknown strategy %q (want batch or per-item)", value)
	}
}

// Defaults carries the configuration-derived values a request falls back to.
type Defaults struct {
	SourceTab      string
	DestinationTab string
	Count          int
	MaxCount       int
	Language       string
	Voice          string
	Primer         string
	Background     string
	NotifyDelay    time.Duration
}

// GenerationParams is the caller-supplied, unresolved form of a request.
type GenerationParams struct {
	SourceRef              string
	SourceTab              string
	DestinationTab         string
	Count                  int
	Guidance               string
	Primer                 string
	Language               string
	ExperimentalPercentage int
	Strategy               Strategy
	WithAudio              bool
	VoiceID                string
	BackgroundVideoRef     string
	Notify                 bool
	NotifyDelaySeconds     *int
}

// GenerationRequest is the resolved configuration for one generate run. It is
// passed by value to every stage and never modified after construction.
type GenerationRequest struct {
	SourceRef          string
	SourceTab          string
	DestinationRef     string
	DestinationTab     string
	Count              int
	Guidance           string
	Primer             string
	Language           string
	ExperimentalRatio  float64
	Strategy           Strategy
	WithAudio          bool
	VoiceID            string
	BackgroundVideoRef string
	Notify             bool
	NotifyDelay        time.Duration
}

// NewGenerationRequest resolves defaults and validates params.
func NewGenerationRequest(p GenerationParams, d Defaults) (GenerationRequest, error) {
	req := GenerationRequest{
		SourceRef:      strings.TrimSpace(p.SourceRef),
		SourceTab:      firstNonEmpty(p.SourceTab, d.SourceTab),
		DestinationTab: firstNonEmpty(p.DestinationTab, d.DestinationTab),
		Count:          p.Count,
		Guidance:       strings.TrimSpace(p.Guidance),
		Primer:         firstNonEmpty(p.Primer, d.Primer),
		Strategy:       p.Strategy,
		WithAudio:      p.WithAudio,
		Notify:         p.Notify,
		NotifyDelay:    d.NotifyDelay,
	}
	req.DestinationRef = req.SourceRef

	if req.SourceRef == "" {
		return GenerationRequest{}, invalid("spreadsheetId is required")
	}
	if req.Count == 0 {
		req.Count = d.Count
	}
	if req.Count < 1 {
		return GenerationRequest{}, invalid("scriptCount must be at least 1, got %d", p.Count)
	}
	if d.MaxCount > 0 && req.Count > d.MaxCount {
		return GenerationRequest{}, invalid("scriptCount %d exceeds the maximum of %d", req.Count, d.MaxCount)
	}
	if p.ExperimentalPercentage < 0 || p.ExperimentalPercentage > 100 {
		return GenerationRequest{}, invalid("experimentalPercentage must be between 0 and 100, got %d", p.ExperimentalPercentage)
	}
	req.ExperimentalRatio = float64(p.ExperimentalPercentage) / 100

	switch req.Strategy {
	case "":
		req.Strategy = StrategyBatch
	case StrategyBatch, StrategyPerItem:
	default:
		return GenerationRequest{}, invalid("unknown strategy %q", req.Strategy)
	}

	lang, err := resolveLanguage(p.Language, d.Language)
	if err != nil {
		return GenerationRequest{}, err
	}
	req.Language = lang

	if req.WithAudio {
		req.VoiceID = firstNonEmpty(p.VoiceID, d.Voice)
		req.BackgroundVideoRef = firstNonEmpty(p.BackgroundVideoRef, d.Background)
		if req.VoiceID == "" {
			return GenerationRequest{}, invalid("voiceId is required when generateAudio is set and no default voice is configured")
		}
	}
	if req.Notify && !req.WithAudio {
		return GenerationRequest{}, invalid("approval notifications require generateAudio")
	}
	if p.NotifyDelaySeconds != nil {
		if *p.NotifyDelaySeconds < 0 {
			return GenerationRequest{}, invalid("slackNotificationDelay must not be negative")
		}
		req.NotifyDelay = time.Duration(*p.NotifyDelaySeconds) * time.Second
	}
	return req, nil
}

// NonEnglish reports whether scripts are generated in a language other than English.
func (r GenerationRequest) NonEnglish() bool {
	return !language.IsEnglish(r.Language)
}

// Composes reports whether the run continues past narration into compositing.
func (r GenerationRequest) Composes() bool {
	return r.WithAudio && r.BackgroundVideoRef != ""
}

// ReprocessParams is the caller-supplied form of a reprocess request.
type ReprocessParams struct {
	Rows               []ExistingScriptRow
	VoiceID            string
	Language           string
	BackgroundVideoRef string
	Notify             bool
	NotifyDelaySeconds *int
	DestinationRef     string
	DestinationTab     string
}

// ReprocessRequest re-enters previously persisted scripts at the synthesis stage.
type ReprocessRequest struct {
	Rows               []ExistingScriptRow
	VoiceID            string
	Language           string
	BackgroundVideoRef string
	Notify             bool
	NotifyDelay        time.Duration
	// DestinationRef is optional; when empty the results are not written back.
	DestinationRef string
	DestinationTab string
}

// NewReprocessRequest resolves defaults and validates p.
func NewReprocessRequest(p ReprocessParams, d Defaults) (ReprocessRequest, error) {
	if len(p.Rows) == 0 {
		return ReprocessRequest{}, invalid("at least one script is required")
	}
	lang, err := resolveLanguage(p.Language, d.Language)
	if err != nil {
		return ReprocessRequest{}, err
	}
	req := ReprocessRequest{
		Rows:               append([]ExistingScriptRow(nil), p.Rows...),
		VoiceID:            firstNonEmpty(p.VoiceID, d.Voice),
		Language:           lang,
		BackgroundVideoRef: firstNonEmpty(p.BackgroundVideoRef, d.Background),
		Notify:             p.Notify,
		NotifyDelay:        d.NotifyDelay,
		DestinationRef:     strings.TrimSpace(p.DestinationRef),
	}
	if req.VoiceID == "" {
		return ReprocessRequest{}, invalid("voiceId is required")
	}
	if req.DestinationRef != "" {
		req.DestinationTab = firstNonEmpty(p.DestinationTab, d.DestinationTab)
	}
	if p.NotifyDelaySeconds != nil {
		if *p.NotifyDelaySeconds < 0 {
			return ReprocessRequest{}, invalid("slackNotificationDelay must not be negative")
		}
		req.NotifyDelay = time.Duration(*p.NotifyDelaySeconds) * time.Second
	}
	return req, nil
}

// Suggestions converts the rows into suggestion slots. Rows without any
// script text are kept but marked as failed at the script stage.
func (r ReprocessRequest) Suggestions() []ScriptSuggestion {
	out := make([]ScriptSuggestion, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Suggestion(i)
		if out[i].Language == "" {
			out[i].Language = r.Language
		}
		if !row.HasContent() {
			out[i].Fail(StageScript, "row has no script content")
		}
	}
	return out
}

// AudioRequest asks for narration of a subset of an existing result set.
// Indices are positions in Suggestions.
type AudioRequest struct {
	Suggestions []ScriptSuggestion
	Indices     []int
	VoiceID     string
}

// Validate checks indices and resolves the voice.
func (r *AudioRequest) Validate(d Defaults) error {
	if len(r.Suggestions) == 0 {
		return invalid("suggestions are required")
	}
	if len(r.Indices) == 0 {
		return invalid("indices are required")
	}
	for _, idx := range r.Indices {
		if idx < 0 || idx >= len(r.Suggestions) {
			return invalid("index %d is out of range for %d suggestions", idx, len(r.Suggestions))
		}
	}
	r.VoiceID = firstNonEmpty(r.VoiceID, d.Voice)
	if r.VoiceID == "" {
		return invalid("voiceId is required")
	}
	return nil
}

func resolveLanguage(requested, fallback string) (string, error) {
	raw := firstNonEmpty(requested, fallback, language.English)
	code := language.Normalize(raw)
	if code == "" {
		return "", invalid("unrecognized language %q", raw)
	}
	return code, nil
}

func invalid(format string, args ...any) error {
	return services.Wrap(services.ErrValidation, "request", "validate", fmt.Sprintf(format, args...), nil)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
