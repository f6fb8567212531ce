package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"creativeflow/internal/creative"
	"creativeflow/internal/runstore"
	"creativeflow/internal/services"
)

type fakePipeline struct {
	generateReq  creative.GenerationRequest
	generateErr  error
	reprocessReq creative.ReprocessRequest
	audioIndices []int
	audioVoice   string
	audioErr     error
}

func (f *fakePipeline) Defaults() creative.Defaults {
	return creative.Defaults{
		SourceTab:      "Performance",
		DestinationTab: "Generated Scripts",
		Count:          5,
		MaxCount:       25,
		Language:       "en",
		Voice:          "voice-default",
	}
}

func (f *fakePipeline) Generate(_ context.Context, req creative.GenerationRequest) (creative.PipelineResult, error) {
	f.generateReq = req
	if f.generateErr != nil {
		return creative.PipelineResult{}, f.generateErr
	}
	suggestions := make([]creative.ScriptSuggestion, req.Count)
	for i := range suggestions {
		suggestions[i] = creative.ScriptSuggestion{Index: i, Title: "t", Content: "c", Language: req.Language}
	}
	return creative.PipelineResult{RunID: "run-1", Suggestions: suggestions, SavedToSheet: true, Message: "ok"}, nil
}

func (f *fakePipeline) Reprocess(_ context.Context, req creative.ReprocessRequest) (creative.ReprocessResult, error) {
	f.reprocessReq = req
	return creative.ReprocessResult{RunID: "run-2", Suggestions: req.Suggestions(), Synthesized: len(req.Rows), Message: "done"}, nil
}

func (f *fakePipeline) GenerateAudio(_ context.Context, suggestions []creative.ScriptSuggestion, indices []int, voiceID string) ([]creative.ScriptSuggestion, error) {
	f.audioIndices = indices
	f.audioVoice = voiceID
	if f.audioErr != nil {
		return nil, f.audioErr
	}
	out := creative.CloneAll(suggestions)
	for _, idx := range indices {
		out[idx].AudioRef = "file:///audio.mp3"
	}
	return out, nil
}

type fakeScripts struct {
	ref, tab string
	err      error
}

func (f *fakeScripts) ReadExistingScripts(_ context.Context, ref, tab string) ([]creative.ExistingScriptRow, error) {
	f.ref, f.tab = ref, tab
	if f.err != nil {
		return nil, f.err
	}
	return []creative.ExistingScriptRow{{Row: 2, Title: "Saved", Content: "body"}}, nil
}

func (f *fakeScripts) ListTabs(_ context.Context, ref string) ([]string, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, services.Wrap(services.ErrValidation, "sink", "list tabs", "spreadsheet id is required", nil)
	}
	return []string{"Performance", "Generated Scripts"}, nil
}

type fakeRuns struct{ limit int }

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]runstore.Run, error) {
	f.limit = limit
	return []runstore.Run{{ID: "run-1", Kind: runstore.KindGenerate}}, nil
}

func newTestServer(t *testing.T, pipeline *fakePipeline, opts Options) http.Handler {
	t.Helper()
	return NewServer(pipeline, opts, nil).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return out
}

func TestGenerateResolvesDefaults(t *testing.T) {
	pipeline := &fakePipeline{}
	h := newTestServer(t, pipeline, Options{})

	rec := do(t, h, http.MethodPost, "/api/creatives/generate", GenerateRequest{
		SpreadsheetID:          "sheet-1",
		ExperimentalPercentage: 40,
		Language:               "Spanish",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp GenerateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Suggestions) != 5 || resp.RunID != "run-1" || !resp.SavedToSheet {
		t.Fatalf("unexpected response %+v", resp)
	}
	req := pipeline.generateReq
	if req.SourceTab != "Performance" || req.DestinationRef != "sheet-1" {
		t.Fatalf("defaults not applied: %+v", req)
	}
	if req.Language != "es" {
		t.Fatalf("language = %q, want es", req.Language)
	}
	if req.ExperimentalRatio != 0.4 {
		t.Fatalf("ratio = %v", req.ExperimentalRatio)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestGenerateRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"missing spreadsheet", GenerateRequest{ScriptCount: 3}},
		{"count above max", GenerateRequest{SpreadsheetID: "s", ScriptCount: 26}},
		{"negative count", GenerateRequest{SpreadsheetID: "s", ScriptCount: -1}},
		{"bad percentage", GenerateRequest{SpreadsheetID: "s", ExperimentalPercentage: 101}},
		{"notify without audio", GenerateRequest{SpreadsheetID: "s", SlackEnabled: true}},
		{"malformed json", "{not json"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pipeline := &fakePipeline{}
			rec := do(t, newTestServer(t, pipeline, Options{}), http.MethodPost, "/api/creatives/generate", tc.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			if got := decodeError(t, rec); got.Error != "invalid_request" || got.Details == "" {
				t.Fatalf("unexpected error body %+v", got)
			}
			if pipeline.generateReq.SourceRef != "" {
				t.Fatal("pipeline should not run for invalid requests")
			}
		})
	}
}

func TestGenerateMapsPipelineErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"source", services.Wrap(services.ErrSourceUnavailable, "performance", "read", "sheet unreachable", nil), http.StatusBadGateway, "source_unavailable"},
		{"generation", services.Wrap(services.ErrGenerationFailed, "scriptgen", "batch", "bad json", nil), http.StatusBadGateway, "generation_failed"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pipeline := &fakePipeline{generateErr: tc.err}
			rec := do(t, newTestServer(t, pipeline, Options{}), http.MethodPost, "/api/creatives/generate", GenerateRequest{SpreadsheetID: "s"}, nil)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			body := decodeError(t, rec)
			if tc.kind != "" && body.Error != tc.kind {
				t.Fatalf("kind = %q, want %q", body.Error, tc.kind)
			}
			if body.Message == "" {
				t.Fatal("expected a human readable message")
			}
		})
	}
}

func TestReprocessPassesRows(t *testing.T) {
	pipeline := &fakePipeline{}
	delay := 30
	rec := do(t, newTestServer(t, pipeline, Options{}), http.MethodPost, "/api/creatives/reprocess", ReprocessRequest{
		Scripts:                []creative.ExistingScriptRow{{Row: 2, Title: "A", Content: "one"}, {Row: 3}},
		SendToSlack:            true,
		SlackNotificationDelay: &delay,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp ReprocessResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "done" || resp.RunID != "run-2" || len(resp.Suggestions) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if pipeline.reprocessReq.VoiceID != "voice-default" {
		t.Fatalf("voice default not applied: %q", pipeline.reprocessReq.VoiceID)
	}
	if pipeline.reprocessReq.NotifyDelay.Seconds() != 30 {
		t.Fatalf("delay = %v", pipeline.reprocessReq.NotifyDelay)
	}
	if resp.Suggestions[1].StageError == nil || resp.Suggestions[1].StageError.Stage != creative.StageScript {
		t.Fatalf("empty row should be marked failed: %+v", resp.Suggestions[1])
	}
}

func TestReprocessAcceptsSheetDateLayout(t *testing.T) {
	pipeline := &fakePipeline{}
	body := `{"scripts":[{"row":2,"content":"one","generatedDate":"2024-05-01 10:00:00"},{"row":3,"content":"two","generatedDate":"2024-05-02T08:30:00Z"}]}`
	rec := do(t, newTestServer(t, pipeline, Options{}), http.MethodPost, "/api/creatives/reprocess", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	rows := pipeline.reprocessReq.Rows
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC); !rows[0].GeneratedDate.Equal(want) {
		t.Fatalf("sheet layout date = %v, want %v", rows[0].GeneratedDate, want)
	}
	if want := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC); !rows[1].GeneratedDate.Equal(want) {
		t.Fatalf("RFC 3339 date = %v, want %v", rows[1].GeneratedDate, want)
	}

	rec = do(t, newTestServer(t, pipeline, Options{}), http.MethodPost, "/api/creatives/reprocess",
		`{"scripts":[{"row":2,"content":"one","generatedDate":"May 1st"}]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unparseable date status = %d", rec.Code)
	}
}

func TestReprocessRejectsEmptyBatch(t *testing.T) {
	rec := do(t, newTestServer(t, &fakePipeline{}, Options{}), http.MethodPost, "/api/creatives/reprocess", ReprocessRequest{}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAudioEndpoint(t *testing.T) {
	pipeline := &fakePipeline{}
	rec := do(t, newTestServer(t, pipeline, Options{}), http.MethodPost, "/api/creatives/audio", AudioRequest{
		Suggestions: []creative.ScriptSuggestion{{Index: 0, Content: "a"}, {Index: 1, Content: "b"}},
		Indices:     []int{1},
		VoiceID:     "v",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp AudioResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Suggestions[0].AudioRef != "" || resp.Suggestions[1].AudioRef == "" {
		t.Fatalf("unexpected audio refs %+v", resp.Suggestions)
	}
	if pipeline.audioVoice != "v" || len(pipeline.audioIndices) != 1 {
		t.Fatalf("pipeline called with %v %q", pipeline.audioIndices, pipeline.audioVoice)
	}

	pipeline.audioErr = services.Wrap(services.ErrValidation, "request", "validate", "index 9 is out of range", nil)
	rec = do(t, newTestServer(t, pipeline, Options{}), http.MethodPost, "/api/creatives/audio", AudioRequest{Indices: []int{9}}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestScriptsAndTabs(t *testing.T) {
	scripts := &fakeScripts{}
	h := newTestServer(t, &fakePipeline{}, Options{Scripts: scripts})

	rec := do(t, h, http.MethodGet, "/api/creatives/scripts?spreadsheetId=sheet-9", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("scripts status = %d", rec.Code)
	}
	if scripts.ref != "sheet-9" || scripts.tab != "Generated Scripts" {
		t.Fatalf("unexpected lookup %q/%q", scripts.ref, scripts.tab)
	}
	var sresp ScriptsResponse
	if err := json.NewDecoder(rec.Body).Decode(&sresp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sresp.Scripts) != 1 || sresp.Scripts[0].Row != 2 {
		t.Fatalf("unexpected scripts %+v", sresp.Scripts)
	}

	rec = do(t, h, http.MethodGet, "/api/creatives/tabs?spreadsheetId=sheet-9", nil, nil)
	var tresp TabsResponse
	if err := json.NewDecoder(rec.Body).Decode(&tresp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tresp.Tabs) != 2 {
		t.Fatalf("unexpected tabs %v", tresp.Tabs)
	}

	rec = do(t, h, http.MethodGet, "/api/creatives/tabs", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("tabs without id status = %d", rec.Code)
	}

	scripts.err = services.Wrap(services.ErrNotFound, "sheets", "read", "tab missing", nil)
	rec = do(t, h, http.MethodGet, "/api/creatives/scripts?spreadsheetId=x&tab=Nope", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing tab status = %d", rec.Code)
	}
}

func TestScriptsWithoutSheetAccess(t *testing.T) {
	rec := do(t, newTestServer(t, &fakePipeline{}, Options{}), http.MethodGet, "/api/creatives/scripts?spreadsheetId=x", nil, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeError(t, rec); got.Error != "configuration" {
		t.Fatalf("kind = %q", got.Error)
	}
}

func TestRunsLimit(t *testing.T) {
	runs := &fakeRuns{}
	h := newTestServer(t, &fakePipeline{}, Options{Runs: runs})

	rec := do(t, h, http.MethodGet, "/api/runs?limit=5", nil, nil)
	if rec.Code != http.StatusOK || runs.limit != 5 {
		t.Fatalf("status=%d limit=%d", rec.Code, runs.limit)
	}
	rec = do(t, h, http.MethodGet, "/api/runs?limit=zero", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := newTestServer(t, &fakePipeline{}, Options{Status: func(context.Context) Status {
		return Status{LLMProvider: "openrouter", Dependencies: []DependencyStatus{{Name: "FFmpeg", Available: true}}}
	}})
	rec := do(t, h, http.MethodGet, "/api/status", nil, nil)
	var status Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.LLMProvider != "openrouter" || len(status.Dependencies) != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestAuthMiddleware(t *testing.T) {
	h := newTestServer(t, &fakePipeline{}, Options{Token: "secret"})

	rec := do(t, h, http.MethodGet, "/api/status", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/status", nil, map[string]string{"Authorization": "Bearer wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/status", nil, map[string]string{"Authorization": "Bearer secret", "X-Request-ID": "req-7"})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") != "req-7" {
		t.Fatalf("request id not echoed: %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestServerStartAndStop(t *testing.T) {
	srv := NewServer(&fakePipeline{}, Options{Bind: "127.0.0.1:0"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Get("http://" + srv.Addr() + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	srv.Stop()
}
