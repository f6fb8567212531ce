package scriptgen

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Library holds the prompt text the generator works from. Any field left
// empty in an override file keeps its default.
type Library struct {
	SystemPrompt            string `yaml:"system_prompt"`
	Primer                  string `yaml:"primer"`
	Guidance                string `yaml:"guidance"`
	CloseInstruction        string `yaml:"close_instruction"`
	ExperimentalInstruction string `yaml:"experimental_instruction"`
	TranslationPrompt       string `yaml:"translation_prompt"`
}

// DefaultLibrary returns the built-in prompts.
func DefaultLibrary() Library {
	return Library{
		SystemPrompt: strings.TrimSpace(`
You are a senior direct-response copywriter producing short voice-over scripts
for vertical video ads. Scripts are spoken aloud: no stage directions, no
emojis, no hashtags, no markdown. Each script runs 20 to 45 seconds when read
at a natural pace.

Respond with JSON only, using this shape:
{"suggestions":[{"title":"...","script":"...","reasoning":"...","targetMetrics":["..."]}]}

"title" is a short internal label. "reasoning" explains in one or two
sentences why the script should perform. "targetMetrics" lists the metrics
the script is meant to move (for example "hook rate", "CTR", "conversion").`),
		Primer: strings.TrimSpace(`
Open with a hook in the first sentence that names a concrete pain or desire.
Follow with one specific benefit and a single clear call to action. Keep the
vocabulary plain and the sentences short.`),
		Guidance: "Write fresh scripts for the same product and audience as the examples.",
		CloseInstruction: strings.TrimSpace(`
Stay close to the primer and to the patterns of the highest scoring examples:
similar structure, pacing, and call to action, with new wording.`),
		ExperimentalInstruction: strings.TrimSpace(`
Deliberately depart from the examples: try a different angle, structure, or
emotional register while keeping the same product and audience.`),
		TranslationPrompt: strings.TrimSpace(`
You translate advertising voice-over scripts into natural English for a
reviewer. Keep the meaning, tone, and call to action; do not add or remove
claims. Respond with JSON only: {"translation":"..."}`),
	}
}

// LoadLibrary reads a YAML override file on top of DefaultLibrary. An empty
// path returns the defaults.
func LoadLibrary(path string) (Library, error) {
	lib := DefaultLibrary()
	path = strings.TrimSpace(path)
	if path == "" {
		return lib, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Library{}, fmt.Errorf("read prompt library: %w", err)
	}
	var override Library
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Library{}, fmt.Errorf("parse prompt library %s: %w", path, err)
	}
	lib.merge(override)
	return lib, nil
}

func (l *Library) merge(o Library) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&l.SystemPrompt, o.SystemPrompt)
	set(&l.Primer, o.Primer)
	set(&l.Guidance, o.Guidance)
	set(&l.CloseInstruction, o.CloseInstruction)
	set(&l.ExperimentalInstruction, o.ExperimentalInstruction)
	set(&l.TranslationPrompt, o.TranslationPrompt)
}
