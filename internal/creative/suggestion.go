package creative

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Stage names the pipeline step an item-level failure belongs to.
type Stage string

const (
	StageScript Stage = "Script"
	StageAudio  Stage = "Audio"
	StageVideo  Stage = "Video"
)

// StageError marks a suggestion that failed at one stage while keeping
// whatever earlier stages produced.
type StageError struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s stage: %s", strings.ToLower(string(e.Stage)), e.Message)
}

// ScoredExample is one historical script with its performance score.
type ScoredExample struct {
	Content string
	Score   float64
}

// ScriptSuggestion is the unit of work flowing through every stage.
type ScriptSuggestion struct {
	Index         int         `json:"index"`
	Title         string      `json:"title"`
	Content       string      `json:"content"`
	NativeContent string      `json:"nativeContent,omitempty"`
	Language      string      `json:"language,omitempty"`
	Reasoning     string      `json:"reasoning"`
	TargetMetrics []string    `json:"targetMetrics"`
	AudioRef      string      `json:"audioRef,omitempty"`
	VideoRef      string      `json:"videoRef,omitempty"`
	StageError    *StageError `json:"stageError,omitempty"`
}

// HasContent reports whether the suggestion carries any script text.
func (s *ScriptSuggestion) HasContent() bool {
	return strings.TrimSpace(s.Content) != "" || strings.TrimSpace(s.NativeContent) != ""
}

// SpeechText returns the text to narrate: the native script when present,
// otherwise the English content.
func (s *ScriptSuggestion) SpeechText() string {
	if native := strings.TrimSpace(s.NativeContent); native != "" {
		return native
	}
	return strings.TrimSpace(s.Content)
}

// Fail records a stage error. Artifact references from earlier stages are kept.
func (s *ScriptSuggestion) Fail(stage Stage, format string, args ...any) {
	s.StageError = &StageError{Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// Failed reports whether a stage error is set.
func (s *ScriptSuggestion) Failed() bool {
	return s.StageError != nil
}

// PreferredAsset returns the reference a reviewer should see: the composed
// video when present, else the narration, else "".
func (s *ScriptSuggestion) PreferredAsset() string {
	if s.VideoRef != "" {
		return s.VideoRef
	}
	return s.AudioRef
}

// Clone returns a deep copy so callers can mutate slots without aliasing.
func (s ScriptSuggestion) Clone() ScriptSuggestion {
	if s.TargetMetrics != nil {
		s.TargetMetrics = append([]string(nil), s.TargetMetrics...)
	}
	if s.StageError != nil {
		se := *s.StageError
		s.StageError = &se
	}
	return s
}

// CloneAll deep-copies a result set.
func CloneAll(in []ScriptSuggestion) []ScriptSuggestion {
	if in == nil {
		return nil
	}
	out := make([]ScriptSuggestion, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// ExistingScriptRow is a previously persisted script read back from the sink.
type ExistingScriptRow struct {
	Row               int       `json:"row,omitempty"`
	Title             string    `json:"title,omitempty"`
	Content           string    `json:"content,omitempty"`
	NativeContent     string    `json:"nativeContent,omitempty"`
	RecordingLanguage string    `json:"recordingLanguage,omitempty"`
	GeneratedDate     SheetDate `json:"generatedDate,omitzero"`
}

// SheetDateLayout is the format of the Generated Date column.
const SheetDateLayout = "2006-01-02 15:04:05"

// SheetDate is a Generated Date cell. It decodes from either RFC 3339 or the
// column's own layout so rows read from the sheet can be posted back as is.
type SheetDate struct {
	time.Time
}

// ParseSheetDate accepts RFC 3339 or SheetDateLayout (read as UTC).
func ParseSheetDate(raw string) (SheetDate, error) {
	raw = strings.TrimSpace(raw)
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return SheetDate{ts}, nil
	}
	ts, err := time.Parse(SheetDateLayout, raw)
	if err != nil {
		return SheetDate{}, invalid("generatedDate %q is neither RFC 3339 nor %q", raw, SheetDateLayout)
	}
	return SheetDate{ts}, nil
}

func (d *SheetDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = SheetDate{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return invalid("generatedDate must be a string")
	}
	if strings.TrimSpace(raw) == "" {
		*d = SheetDate{}
		return nil
	}
	parsed, err := ParseSheetDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// HasContent reports whether the row has any script text.
func (r ExistingScriptRow) HasContent() bool {
	return strings.TrimSpace(r.Content) != "" || strings.TrimSpace(r.NativeContent) != ""
}

// Suggestion converts the row into a suggestion occupying slot index.
func (r ExistingScriptRow) Suggestion(index int) ScriptSuggestion {
	return ScriptSuggestion{
		Index:         index,
		Title:         strings.TrimSpace(r.Title),
		Content:       strings.TrimSpace(r.Content),
		NativeContent: strings.TrimSpace(r.NativeContent),
		Language:      strings.TrimSpace(r.RecordingLanguage),
	}
}

// PipelineResult is returned to callers of the generate path.
type PipelineResult struct {
	RunID        string             `json:"runId,omitempty"`
	Suggestions  []ScriptSuggestion `json:"suggestions"`
	SavedToSheet bool               `json:"savedToSheet"`
	Message      string             `json:"message"`
}

// ReprocessResult summarizes a reprocess run.
type ReprocessResult struct {
	RunID        string             `json:"runId,omitempty"`
	Suggestions  []ScriptSuggestion `json:"suggestions"`
	Synthesized  int                `json:"synthesized"`
	Composed     int                `json:"composed"`
	Notified     int                `json:"notified"`
	Failed       int                `json:"failed"`
	SavedToSheet bool               `json:"savedToSheet"`
	Message      string             `json:"message"`
}
