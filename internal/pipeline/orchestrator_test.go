package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"creativeflow/internal/artifacts"
	"creativeflow/internal/composer"
	"creativeflow/internal/creative"
	"creativeflow/internal/narration"
	"creativeflow/internal/notifications"
	"creativeflow/internal/performance"
	"creativeflow/internal/pipeline"
	"creativeflow/internal/runstore"
	"creativeflow/internal/scriptgen"
	"creativeflow/internal/services"
	"creativeflow/internal/sink"
	"creativeflow/internal/testsupport"
)

type fakeScheduler struct {
	mu     sync.Mutex
	assets []notifications.ApprovalAsset
	delays []time.Duration
}

func (f *fakeScheduler) Schedule(_ context.Context, asset notifications.ApprovalAsset, delay time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets = append(f.assets, asset)
	f.delays = append(f.delays, delay)
	return true
}

func (f *fakeScheduler) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.assets)
}

type harness struct {
	table     *testsupport.FakeTable
	completer *testsupport.FakeCompleter
	speaker   *testsupport.FakeSpeaker
	scheduler *fakeScheduler
	runs      *runstore.Store
	orch      *pipeline.Orchestrator
	dir       string
}

// stubFFmpeg fails when any input path contains "bad".
const stubFFmpeg = `for arg; do last="$arg"; done
case "$*" in *bad*) echo "decode error" >&2; exit 1;; esac
printf video > "$last"
`

const stubProbe = `cat <<'JSON'
{"streams":[{"codec_type":"video"},{"codec_type":"audio"}],"format":{"duration":"9.5"}}
JSON
`

func suggestionsJSON(n int) string {
	items := make([]string, n)
	for i := range n {
		items[i] = fmt.Sprintf(`{"title":"Idea %d","script":"Script number %d","reasoning":"r","targetMetrics":["CTR"]}`, i, i)
	}
	return `{"suggestions":[` + strings.Join(items, ",") + `]}`
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		table:     testsupport.NewFakeTable(),
		completer: &testsupport.FakeCompleter{},
		speaker:   &testsupport.FakeSpeaker{},
		scheduler: &fakeScheduler{},
		runs:      testsupport.MustOpenRunStore(t),
		dir:       dir,
	}
	h.table.SetRows("sheet", "Performance", [][]string{
		{"Script", "Score"},
		{"Old winner", "90"},
		{"Old loser", "10"},
	})
	h.completer.Respond = func(context.Context, string, string) (string, error) {
		return suggestionsJSON(3), nil
	}

	bin := t.TempDir()
	ffmpeg := testsupport.WriteExecutable(t, bin, "ffmpeg", stubFFmpeg)
	ffprobe := testsupport.WriteExecutable(t, bin, "ffprobe", stubProbe)
	store := artifacts.NewLocalStore(filepath.Join(dir, "store"), filepath.Join(dir, "work"))

	h.orch = pipeline.New(pipeline.Deps{
		Source:     performance.NewSource(h.table, 10, nil),
		Generator:  scriptgen.New(h.completer, scriptgen.Config{Concurrency: 2}, nil),
		Narrator:   narration.New(h.speaker, store, narration.Config{Concurrency: 2, WorkDir: filepath.Join(dir, "work")}, nil),
		Compositor: composer.New(store, composer.Config{FFmpegBinary: ffmpeg, FFprobeBinary: ffprobe, WorkDir: filepath.Join(dir, "work")}, nil),
		Sink:       sink.New(h.table, nil),
		Notifier:   h.scheduler,
		Runs:       h.runs,
		Defaults: creative.Defaults{
			SourceTab:      "Performance",
			DestinationTab: "Generated",
			Count:          3,
			MaxCount:       10,
			Language:       "en",
			Voice:          "voice-1",
		},
	}, nil)
	return h
}

func (h *harness) request(t *testing.T, p creative.GenerationParams) creative.GenerationRequest {
	t.Helper()
	if p.SourceRef == "" {
		p.SourceRef = "sheet"
	}
	req, err := creative.NewGenerationRequest(p, h.orch.Defaults())
	if err != nil {
		t.Fatalf("NewGenerationRequest: %v", err)
	}
	return req
}

func (h *harness) lastRun(t *testing.T) runstore.Run {
	t.Helper()
	runs, err := h.runs.ListRuns(context.Background(), 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected a recorded run, got %v err=%v", runs, err)
	}
	return runs[0]
}

func TestGenerateWithAudioPersistsAndNotifies(t *testing.T) {
	h := newHarness(t)
	delay := 5
	req := h.request(t, creative.GenerationParams{WithAudio: true, Notify: true, NotifyDelaySeconds: &delay})

	result, err := h.orch.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(result.Suggestions) != 3 || !result.SavedToSheet {
		t.Fatalf("unexpected result %+v", result)
	}
	for i, s := range result.Suggestions {
		if s.Index != i || s.AudioRef == "" || s.VideoRef != "" || s.Failed() {
			t.Fatalf("slot %d: unexpected suggestion %+v", i, s)
		}
	}
	if rows := h.table.Rows("sheet", "Generated"); len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}
	if h.scheduler.count() != 3 || h.scheduler.delays[0] != 5*time.Second || h.scheduler.assets[0].Kind != "audio" {
		t.Fatalf("expected 3 audio approvals with delay, got %+v", h.scheduler.assets)
	}
	if !strings.Contains(result.Message, "Generated 3 scripts") {
		t.Fatalf("unexpected message %q", result.Message)
	}
	run := h.lastRun(t)
	if run.ID != result.RunID || run.State != string(pipeline.StateDone) || run.Succeeded != 3 || !run.SavedToSheet {
		t.Fatalf("unexpected run record %+v", run)
	}
}

func TestGenerateWithoutAudioSkipsNarration(t *testing.T) {
	h := newHarness(t)
	result, err := h.orch.Generate(context.Background(), h.request(t, creative.GenerationParams{}))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if h.speaker.Calls() != 0 {
		t.Fatalf("expected no synthesis, got %d calls", h.speaker.Calls())
	}
	for _, s := range result.Suggestions {
		if s.AudioRef != "" {
			t.Fatalf("unexpected audio %+v", s)
		}
	}
}

func TestGenerateSourceUnavailable(t *testing.T) {
	h := newHarness(t)
	h.table.ReadErr = errors.New("permission denied")
	_, err := h.orch.Generate(context.Background(), h.request(t, creative.GenerationParams{}))
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable, got %v", err)
	}
	if len(h.completer.Calls()) != 0 {
		t.Fatal("generation must not run after sourcing fails")
	}
	if run := h.lastRun(t); run.State != string(pipeline.StateFailed) || run.Error == "" {
		t.Fatalf("expected failed run, got %+v", run)
	}
}

func TestGenerateBatchShortfallFailsRun(t *testing.T) {
	h := newHarness(t)
	h.completer.Respond = func(context.Context, string, string) (string, error) {
		return suggestionsJSON(1), nil
	}
	_, err := h.orch.Generate(context.Background(), h.request(t, creative.GenerationParams{}))
	if !errors.Is(err, services.ErrGenerationFailed) {
		t.Fatalf("expected generation failure, got %v", err)
	}
	if services.HTTPStatus(err) != 502 {
		t.Fatalf("expected 502 mapping, got %d", services.HTTPStatus(err))
	}
}

func TestGenerateEmptyCorpusStillGenerates(t *testing.T) {
	h := newHarness(t)
	h.table.SetRows("sheet", "Performance", [][]string{{"Script", "Score"}})
	result, err := h.orch.Generate(context.Background(), h.request(t, creative.GenerationParams{}))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(result.Suggestions) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(result.Suggestions))
	}
	if !strings.Contains(h.completer.Calls()[0].User, "No performance history") {
		t.Fatal("expected prompt to note the missing history")
	}
}

func TestGeneratePersistFailureReturnsSuggestions(t *testing.T) {
	h := newHarness(t)
	h.table.AppendErr = errors.New("quota exceeded")
	result, err := h.orch.Generate(context.Background(), h.request(t, creative.GenerationParams{}))
	if err != nil {
		t.Fatalf("persist failures must not fail the run: %v", err)
	}
	if result.SavedToSheet || len(result.Suggestions) != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !strings.Contains(result.Message, "could not save") {
		t.Fatalf("expected message to note the failed save, got %q", result.Message)
	}
}

func TestGenerateVideoFailureKeepsAudio(t *testing.T) {
	h := newHarness(t)
	bg := filepath.Join(h.dir, "bad-background.mp4")
	testsupport.WriteFile(t, bg, 32)
	req := h.request(t, creative.GenerationParams{WithAudio: true, BackgroundVideoRef: bg, Notify: true})

	result, err := h.orch.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, s := range result.Suggestions {
		if s.AudioRef == "" || s.VideoRef != "" {
			t.Fatalf("expected audio without video, got %+v", s)
		}
		if s.StageError == nil || s.StageError.Stage != creative.StageVideo {
			t.Fatalf("expected video stage error, got %+v", s.StageError)
		}
	}
	if h.scheduler.count() != 0 {
		t.Fatalf("failed videos must not be sent for approval, got %d", h.scheduler.count())
	}
	rows := h.table.Rows("sheet", "Generated")
	if len(rows) != 4 || rows[1][7] == "" || !strings.HasPrefix(rows[1][9], "video stage") {
		t.Fatalf("expected audio and error columns to be persisted, got %v", rows)
	}
}

func TestReprocessNotifiesEachComposedVideo(t *testing.T) {
	h := newHarness(t)
	bg := filepath.Join(h.dir, "background.mp4")
	testsupport.WriteFile(t, bg, 32)
	req, err := creative.NewReprocessRequest(creative.ReprocessParams{
		Rows: []creative.ExistingScriptRow{
			{Content: "one"},
			{Content: "two", NativeContent: "dos", RecordingLanguage: "es"},
			{Content: "three"},
			{Title: "blank"},
		},
		BackgroundVideoRef: bg,
		Notify:             true,
		DestinationRef:     "sheet",
	}, h.orch.Defaults())
	if err != nil {
		t.Fatalf("NewReprocessRequest: %v", err)
	}

	result, err := h.orch.Reprocess(context.Background(), req)
	if err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if result.Synthesized != 3 || result.Composed != 3 || result.Notified != 3 || result.Failed != 1 {
		t.Fatalf("unexpected counts %+v", result)
	}
	if h.scheduler.count() != 3 || h.scheduler.assets[1].Kind != "video" || h.scheduler.assets[1].Script != "dos" {
		t.Fatalf("unexpected approvals %+v", h.scheduler.assets)
	}
	if !result.SavedToSheet {
		t.Fatal("expected reprocessed rows to be saved")
	}
	if run := h.lastRun(t); run.Kind != runstore.KindReprocess || run.Failed != 1 {
		t.Fatalf("unexpected run %+v", run)
	}
}

func TestReprocessWithoutDestinationSkipsPersisting(t *testing.T) {
	h := newHarness(t)
	req, err := creative.NewReprocessRequest(creative.ReprocessParams{
		Rows: []creative.ExistingScriptRow{{Content: "only"}},
	}, h.orch.Defaults())
	if err != nil {
		t.Fatalf("NewReprocessRequest: %v", err)
	}
	result, err := h.orch.Reprocess(context.Background(), req)
	if err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if result.SavedToSheet || h.table.Appends != 0 {
		t.Fatal("expected nothing to be written")
	}
	if result.Notified != 0 || h.scheduler.count() != 0 {
		t.Fatal("expected no notifications when not requested")
	}
}

func TestGenerateAudioSelectedIndices(t *testing.T) {
	h := newHarness(t)
	input := []creative.ScriptSuggestion{
		{Index: 0, Content: "first"},
		{Index: 1, Content: "second"},
	}
	out, err := h.orch.GenerateAudio(context.Background(), input, []int{1}, "")
	if err != nil {
		t.Fatalf("GenerateAudio: %v", err)
	}
	if out[0].AudioRef != "" || out[1].AudioRef == "" {
		t.Fatalf("unexpected refs %+v", out)
	}
	if input[1].AudioRef != "" {
		t.Fatal("input must not be modified")
	}
	if texts := h.speaker.Texts(); len(texts) != 1 || texts[0] != "second" {
		t.Fatalf("unexpected synthesized texts %v", texts)
	}

	if _, err := h.orch.GenerateAudio(context.Background(), input, []int{2}, ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for out-of-range index, got %v", err)
	}
}

func TestWaitBlocksUntilRunsFinish(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.completer.Respond = func(context.Context, string, string) (string, error) {
		<-release
		return suggestionsJSON(3), nil
	}
	req := h.request(t, creative.GenerationParams{})

	finished := make(chan error, 1)
	go func() {
		_, err := h.orch.Generate(context.Background(), req)
		finished <- err
	}()
	deadline := time.Now().Add(5 * time.Second)
	for len(h.completer.Calls()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("generation never reached the model")
		}
		time.Sleep(5 * time.Millisecond)
	}

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := h.orch.Wait(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected Wait to time out while a run is in flight, got %v", err)
	}

	close(release)
	if err := <-finished; err != nil {
		t.Fatalf("Generate: %v", err)
	}
	drain, cancelDrain := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDrain()
	if err := h.orch.Wait(drain); err != nil {
		t.Fatalf("Wait after completion: %v", err)
	}
	if run := h.lastRun(t); run.State != string(pipeline.StateDone) {
		t.Fatalf("expected finished run, got %+v", run)
	}
}
