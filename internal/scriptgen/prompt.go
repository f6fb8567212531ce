package scriptgen

import (
	"fmt"
	"strings"

	"creativeflow/internal/creative"
	"creativeflow/internal/language"
)

const maxExampleRunes = 600

// batchPrompt asks for every slot at once, close slots first.
func batchPrompt(lib Library, examples []creative.ScoredExample, req creative.GenerationRequest) string {
	closeCount, experimental := creative.SplitCounts(req.Count, req.ExperimentalRatio)

	var b strings.Builder
	writeContext(&b, lib, examples, req)
	fmt.Fprintf(&b, "Write exactly %d suggestions.\n", req.Count)
	if closeCount > 0 {
		fmt.Fprintf(&b, "The first %d: %s\n", closeCount, lib.CloseInstruction)
	}
	if experimental > 0 {
		if closeCount > 0 {
			fmt.Fprintf(&b, "The remaining %d: %s\n", experimental, lib.ExperimentalInstruction)
		} else {
			fmt.Fprintf(&b, "All %d: %s\n", experimental, lib.ExperimentalInstruction)
		}
	}
	writeLanguage(&b, req.Language)
	return b.String()
}

// itemPrompt asks for a single suggestion in the given direction.
func itemPrompt(lib Library, examples []creative.ScoredExample, req creative.GenerationRequest, index int, group creative.Group) string {
	var b strings.Builder
	writeContext(&b, lib, examples, req)
	fmt.Fprintf(&b, "Write exactly 1 suggestion (variation %d of %d).\n", index+1, req.Count)
	if group == creative.GroupExperimental {
		b.WriteString(lib.ExperimentalInstruction)
	} else {
		b.WriteString(lib.CloseInstruction)
	}
	b.WriteString("\n")
	writeLanguage(&b, req.Language)
	return b.String()
}

func writeContext(b *strings.Builder, lib Library, examples []creative.ScoredExample, req creative.GenerationRequest) {
	guidance := firstNonEmpty(req.Guidance, lib.Guidance)
	primer := firstNonEmpty(req.Primer, lib.Primer)

	b.WriteString("## Guidance\n")
	b.WriteString(guidance)
	b.WriteString("\n\n## Primer\n")
	b.WriteString(primer)
	b.WriteString("\n\n")
	if len(examples) == 0 {
		b.WriteString("No performance history is available. Rely on the guidance and primer alone.\n\n")
		return
	}
	b.WriteString("## Top performing scripts (highest score first)\n")
	for i, ex := range examples {
		fmt.Fprintf(b, "%d. [score %s] %s\n", i+1, formatScore(ex.Score), clip(ex.Content))
	}
	b.WriteString("\n")
}

func writeLanguage(b *strings.Builder, code string) {
	if language.IsEnglish(code) {
		b.WriteString("Write every script in English.\n")
		return
	}
	fmt.Fprintf(b, "Write every script in %s, as a native speaker would say it. Keep title, reasoning, and targetMetrics in English.\n",
		language.DisplayName(code))
}

func translationUserPrompt(text, code string) string {
	return fmt.Sprintf("Source language: %s\n\nScript:\n%s", language.DisplayName(code), text)
}

func formatScore(score float64) string {
	if score == float64(int64(score)) {
		return fmt.Sprintf("%d", int64(score))
	}
	return fmt.Sprintf("%.2f", score)
}

func clip(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxExampleRunes {
		return text
	}
	return string(runes[:maxExampleRunes]) + "..."
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
