package api

import (
	"creativeflow/internal/creative"
	"creativeflow/internal/runstore"
)

// GenerateRequest is the body of POST /api/creatives/generate.
type GenerateRequest struct {
	SpreadsheetID          string `json:"spreadsheetId"`
	TabName                string `json:"tabName,omitempty"`
	DestinationTab         string `json:"destinationTab,omitempty"`
	GenerateAudio          bool   `json:"generateAudio"`
	ScriptCount            int    `json:"scriptCount"`
	BackgroundVideoPath    string `json:"backgroundVideoPath,omitempty"`
	VoiceID                string `json:"voiceId,omitempty"`
	Language               string `json:"language,omitempty"`
	ExperimentalPercentage int    `json:"experimentalPercentage"`
	IndividualGeneration   bool   `json:"individualGeneration"`
	SlackEnabled           bool   `json:"slackEnabled"`
	SlackNotificationDelay *int   `json:"slackNotificationDelay,omitempty"`
	GuidancePrompt         string `json:"guidancePrompt,omitempty"`
	PrimerContent          string `json:"primerContent,omitempty"`
}

// Params converts the body into unresolved generation parameters.
func (r GenerateRequest) Params() creative.GenerationParams {
	return creative.GenerationParams{
		SourceRef:              r.SpreadsheetID,
		SourceTab:              r.TabName,
		DestinationTab:         r.DestinationTab,
		Count:                  r.ScriptCount,
		Guidance:               r.GuidancePrompt,
		Primer:                 r.PrimerContent,
		Language:               r.Language,
		ExperimentalPercentage: r.ExperimentalPercentage,
		Strategy:               creative.StrategyFor(r.IndividualGeneration),
		WithAudio:              r.GenerateAudio,
		VoiceID:                r.VoiceID,
		BackgroundVideoRef:     r.BackgroundVideoPath,
		Notify:                 r.SlackEnabled,
		NotifyDelaySeconds:     r.SlackNotificationDelay,
	}
}

// GenerateResponse is returned by POST /api/creatives/generate.
type GenerateResponse struct {
	RunID        string                      `json:"runId,omitempty"`
	Suggestions  []creative.ScriptSuggestion `json:"suggestions"`
	Message      string                      `json:"message"`
	SavedToSheet bool                        `json:"savedToSheet"`
}

// ReprocessRequest is the body of POST /api/creatives/reprocess.
type ReprocessRequest struct {
	Scripts                []creative.ExistingScriptRow `json:"scripts"`
	VoiceID                string                       `json:"voiceId"`
	Language               string                       `json:"language"`
	BackgroundVideo        string                       `json:"backgroundVideo,omitempty"`
	SendToSlack            bool                         `json:"sendToSlack"`
	SlackNotificationDelay *int                         `json:"slackNotificationDelay,omitempty"`
	SpreadsheetID          string                       `json:"spreadsheetId,omitempty"`
	TabName                string                       `json:"tabName,omitempty"`
}

// Params converts the body into unresolved reprocess parameters.
func (r ReprocessRequest) Params() creative.ReprocessParams {
	return creative.ReprocessParams{
		Rows:               r.Scripts,
		VoiceID:            r.VoiceID,
		Language:           r.Language,
		BackgroundVideoRef: r.BackgroundVideo,
		Notify:             r.SendToSlack,
		NotifyDelaySeconds: r.SlackNotificationDelay,
		DestinationRef:     r.SpreadsheetID,
		DestinationTab:     r.TabName,
	}
}

// ReprocessResponse is returned by POST /api/creatives/reprocess.
type ReprocessResponse struct {
	RunID        string                      `json:"runId,omitempty"`
	Message      string                      `json:"message"`
	Synthesized  int                         `json:"synthesized"`
	Composed     int                         `json:"composed"`
	Notified     int                         `json:"notified"`
	Failed       int                         `json:"failed"`
	SavedToSheet bool                        `json:"savedToSheet"`
	Suggestions  []creative.ScriptSuggestion `json:"suggestions"`
}

// FromReprocessResult converts a pipeline result into its wire form.
func FromReprocessResult(r creative.ReprocessResult) ReprocessResponse {
	return ReprocessResponse{
		RunID:        r.RunID,
		Message:      r.Message,
		Synthesized:  r.Synthesized,
		Composed:     r.Composed,
		Notified:     r.Notified,
		Failed:       r.Failed,
		SavedToSheet: r.SavedToSheet,
		Suggestions:  r.Suggestions,
	}
}

// AudioRequest is the body of POST /api/creatives/audio.
type AudioRequest struct {
	Suggestions []creative.ScriptSuggestion `json:"suggestions"`
	Indices     []int                       `json:"indices"`
	VoiceID     string                      `json:"voiceId,omitempty"`
}

// AudioResponse is returned by POST /api/creatives/audio.
type AudioResponse struct {
	Suggestions []creative.ScriptSuggestion `json:"suggestions"`
}

// ScriptsResponse is returned by GET /api/creatives/scripts.
type ScriptsResponse struct {
	Scripts []creative.ExistingScriptRow `json:"scripts"`
}

// TabsResponse is returned by GET /api/creatives/tabs.
type TabsResponse struct {
	Tabs []string `json:"tabs"`
}

// RunsResponse is returned by GET /api/runs.
type RunsResponse struct {
	Runs []runstore.Run `json:"runs"`
}

// DependencyStatus reports the availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Status is returned by GET /api/status.
type Status struct {
	LLMProvider   string             `json:"llmProvider"`
	LLMModel      string             `json:"llmModel"`
	TTSProvider   string             `json:"ttsProvider"`
	Storage       string             `json:"storage"`
	Notifications string             `json:"notifications"`
	RunStorePath  string             `json:"runStorePath,omitempty"`
	Dependencies  []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
