package scriptgen_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"creativeflow/internal/creative"
	"creativeflow/internal/scriptgen"
	"creativeflow/internal/services"
	"creativeflow/internal/testsupport"
)

var variationPattern = regexp.MustCompile(`variation (\d+) of`)

func suggestionsJSON(n int, prefix string) string {
	items := make([]string, n)
	for i := range n {
		items[i] = fmt.Sprintf(`{"title":"%s %d","script":"%s script %d","reasoning":"because","targetMetrics":["CTR"]}`, prefix, i, prefix, i)
	}
	return `{"suggestions":[` + strings.Join(items, ",") + `]}`
}

func variation(t *testing.T, user string) int {
	t.Helper()
	m := variationPattern.FindStringSubmatch(user)
	if m == nil {
		t.Errorf("prompt has no variation marker: %q", user)
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n - 1
}

func newRequest(t *testing.T, count, experimentalPct int, strategy creative.Strategy, lang string) creative.GenerationRequest {
	t.Helper()
	req, err := creative.NewGenerationRequest(creative.GenerationParams{
		SourceRef:              "sheet",
		Count:                  count,
		ExperimentalPercentage: experimentalPct,
		Strategy:               strategy,
		Language:               lang,
	}, creative.Defaults{SourceTab: "Performance", DestinationTab: "Generated", MaxCount: 25, Language: "en"})
	if err != nil {
		t.Fatalf("NewGenerationRequest: %v", err)
	}
	return req
}

func TestBatchReturnsExactlyCount(t *testing.T) {
	completer := &testsupport.FakeCompleter{Respond: func(context.Context, string, string) (string, error) {
		return suggestionsJSON(5, "B"), nil
	}}
	gen := scriptgen.New(completer, scriptgen.Config{}, nil)

	out, err := gen.Generate(context.Background(), nil, newRequest(t, 3, 0, creative.StrategyBatch, ""))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 suggestions, got %d", len(out))
	}
	for i, s := range out {
		if s.Index != i || s.Content == "" || s.Failed() {
			t.Fatalf("unexpected suggestion %d: %+v", i, s)
		}
	}
	if len(completer.Calls()) != 1 {
		t.Fatalf("expected a single model call, got %d", len(completer.Calls()))
	}
}

func TestBatchFailsWhenTooFewUsable(t *testing.T) {
	completer := &testsupport.FakeCompleter{Respond: func(context.Context, string, string) (string, error) {
		return `{"suggestions":[{"title":"a","script":"one"},{"title":"b","script":"  "}]}`, nil
	}}
	gen := scriptgen.New(completer, scriptgen.Config{}, nil)

	_, err := gen.Generate(context.Background(), nil, newRequest(t, 2, 0, creative.StrategyBatch, ""))
	if !errors.Is(err, services.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestBatchFailsOnModelError(t *testing.T) {
	completer := &testsupport.FakeCompleter{Respond: func(context.Context, string, string) (string, error) {
		return "", errors.New("boom")
	}}
	gen := scriptgen.New(completer, scriptgen.Config{}, nil)
	_, err := gen.Generate(context.Background(), nil, newRequest(t, 2, 0, creative.StrategyBatch, ""))
	if !errors.Is(err, services.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestBatchPromptSplitsDirections(t *testing.T) {
	completer := &testsupport.FakeCompleter{Respond: func(context.Context, string, string) (string, error) {
		return suggestionsJSON(4, "B"), nil
	}}
	gen := scriptgen.New(completer, scriptgen.Config{}, nil)
	if _, err := gen.Generate(context.Background(), nil, newRequest(t, 4, 25, creative.StrategyBatch, "")); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	user := completer.Calls()[0].User
	if !strings.Contains(user, "The first 3:") || !strings.Contains(user, "The remaining 1:") {
		t.Fatalf("expected 3 close / 1 experimental split in prompt:\n%s", user)
	}
}

func TestPerItemIsolatesFailures(t *testing.T) {
	completer := &testsupport.FakeCompleter{}
	completer.Respond = func(_ context.Context, _, user string) (string, error) {
		idx := variation(t, user)
		if idx == 1 {
			return "", errors.New("rate limited")
		}
		return fmt.Sprintf(`{"suggestions":[{"title":"T%d","script":"script %d"}]}`, idx, idx), nil
	}
	gen := scriptgen.New(completer, scriptgen.Config{Concurrency: 2}, nil)

	out, err := gen.Generate(context.Background(), nil, newRequest(t, 3, 0, creative.StrategyPerItem, ""))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(out))
	}
	for i, s := range out {
		if i == 1 {
			if s.StageError == nil || s.StageError.Stage != creative.StageScript || s.Content != "" {
				t.Fatalf("expected script stage error in slot 1, got %+v", s)
			}
			continue
		}
		if s.Failed() || s.Content != fmt.Sprintf("script %d", i) {
			t.Fatalf("unexpected slot %d: %+v", i, s)
		}
	}
}

func TestPerItemKeepsOrderUnderReversedLatency(t *testing.T) {
	const count = 6
	completer := &testsupport.FakeCompleter{}
	completer.Respond = func(_ context.Context, _, user string) (string, error) {
		idx := variation(t, user)
		time.Sleep(time.Duration(count-idx) * 5 * time.Millisecond)
		return fmt.Sprintf(`{"title":"T%d","script":"script %d"}`, idx, idx), nil
	}
	gen := scriptgen.New(completer, scriptgen.Config{Concurrency: count}, nil)

	out, err := gen.Generate(context.Background(), nil, newRequest(t, count, 0, creative.StrategyPerItem, ""))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for i, s := range out {
		if s.Index != i || s.Title != fmt.Sprintf("T%d", i) {
			t.Fatalf("slot %d holds %+v", i, s)
		}
	}
}

func TestPerItemRespectsConcurrencyLimit(t *testing.T) {
	const count = 20
	var gauge testsupport.Gauge
	completer := &testsupport.FakeCompleter{}
	completer.Respond = func(_ context.Context, _, user string) (string, error) {
		idx := variation(t, user)
		gauge.Hold(10 * time.Millisecond)
		return fmt.Sprintf(`{"title":"T%d","script":"script %d"}`, idx, idx), nil
	}
	gen := scriptgen.New(completer, scriptgen.Config{Concurrency: 3}, nil)

	out, err := gen.Generate(context.Background(), nil, newRequest(t, count, 0, creative.StrategyPerItem, ""))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out) != count {
		t.Fatalf("expected %d slots, got %d", count, len(out))
	}
	if peak := gauge.Peak(); peak > 3 || peak == 0 {
		t.Fatalf("expected at most 3 concurrent model calls, saw %d", peak)
	}
}

func TestPerItemUsesDirectionPerSlot(t *testing.T) {
	lib := scriptgen.DefaultLibrary()
	lib.CloseInstruction = "CLOSE-MARKER"
	lib.ExperimentalInstruction = "EXPERIMENT-MARKER"
	completer := &testsupport.FakeCompleter{}
	groups := make([]string, 4)
	completer.Respond = func(_ context.Context, _, user string) (string, error) {
		idx := variation(t, user)
		if strings.Contains(user, "EXPERIMENT-MARKER") {
			groups[idx] = "experimental"
		} else if strings.Contains(user, "CLOSE-MARKER") {
			groups[idx] = "close"
		}
		return `{"title":"x","script":"y"}`, nil
	}
	gen := scriptgen.New(completer, scriptgen.Config{Concurrency: 1, Library: lib}, nil)

	if _, err := gen.Generate(context.Background(), nil, newRequest(t, 4, 50, creative.StrategyPerItem, "")); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := []string{"close", "close", "experimental", "experimental"}
	for i := range want {
		if groups[i] != want[i] {
			t.Fatalf("slot %d direction %q, want %q (all: %v)", i, groups[i], want[i], groups)
		}
	}
}

func TestEmptyCorpusFallsBackToGuidance(t *testing.T) {
	completer := &testsupport.FakeCompleter{Respond: func(context.Context, string, string) (string, error) {
		return suggestionsJSON(1, "G"), nil
	}}
	gen := scriptgen.New(completer, scriptgen.Config{}, nil)
	req := newRequest(t, 1, 0, creative.StrategyBatch, "")

	out, err := gen.Generate(context.Background(), []creative.ScoredExample{}, req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(out))
	}
	user := completer.Calls()[0].User
	if !strings.Contains(user, "No performance history") || !strings.Contains(user, "## Guidance") {
		t.Fatalf("expected guidance-only prompt, got:\n%s", user)
	}
}

func TestExamplesAppearInPrompt(t *testing.T) {
	completer := &testsupport.FakeCompleter{Respond: func(context.Context, string, string) (string, error) {
		return suggestionsJSON(1, "E"), nil
	}}
	gen := scriptgen.New(completer, scriptgen.Config{}, nil)
	examples := []creative.ScoredExample{{Content: "Winning hook", Score: 42}}
	if _, err := gen.Generate(context.Background(), examples, newRequest(t, 1, 0, creative.StrategyBatch, "")); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if user := completer.Calls()[0].User; !strings.Contains(user, "[score 42] Winning hook") {
		t.Fatalf("expected example in prompt, got:\n%s", user)
	}
}

func translatingCompleter(lib scriptgen.Library, translateErr error) *testsupport.FakeCompleter {
	return &testsupport.FakeCompleter{Respond: func(_ context.Context, system, user string) (string, error) {
		if system == lib.TranslationPrompt {
			if translateErr != nil {
				return "", translateErr
			}
			return `{"translation":"Hello friend"}`, nil
		}
		return `{"suggestions":[{"title":"Saludo","script":"Hola amigo"}]}`, nil
	}}
}

func TestNonEnglishTranslates(t *testing.T) {
	lib := scriptgen.DefaultLibrary()
	gen := scriptgen.New(translatingCompleter(lib, nil), scriptgen.Config{}, nil)

	out, err := gen.Generate(context.Background(), nil, newRequest(t, 1, 0, creative.StrategyBatch, "spanish"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s := out[0]
	if s.NativeContent != "Hola amigo" || s.Content != "Hello friend" || s.Language != "es" {
		t.Fatalf("unexpected suggestion %+v", s)
	}
}

func TestTranslationPolicy(t *testing.T) {
	lib := scriptgen.DefaultLibrary()

	lenient := scriptgen.New(translatingCompleter(lib, errors.New("down")), scriptgen.Config{TranslationPolicy: scriptgen.TranslationLenient}, nil)
	out, err := lenient.Generate(context.Background(), nil, newRequest(t, 1, 0, creative.StrategyPerItem, "es"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out[0].Failed() || out[0].Content != "Hola amigo" {
		t.Fatalf("lenient policy should fall back to native content, got %+v", out[0])
	}

	strict := scriptgen.New(translatingCompleter(lib, errors.New("down")), scriptgen.Config{TranslationPolicy: scriptgen.TranslationStrict}, nil)
	out, err = strict.Generate(context.Background(), nil, newRequest(t, 1, 0, creative.StrategyBatch, "es"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out[0].StageError == nil || !strings.Contains(out[0].StageError.Message, "translation failed") {
		t.Fatalf("strict policy should record a stage error, got %+v", out[0])
	}
	if out[0].NativeContent != "Hola amigo" {
		t.Fatalf("strict policy must keep native content, got %+v", out[0])
	}
}
