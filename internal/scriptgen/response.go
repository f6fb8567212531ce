package scriptgen

import (
	"bytes"
	"encoding/json"
	"strings"

	"creativeflow/internal/services/llm"
)

type rawSuggestion struct {
	Title         string       `json:"title"`
	Script        string       `json:"script"`
	Content       string       `json:"content"`
	Reasoning     string       `json:"reasoning"`
	TargetMetrics stringOrList `json:"targetMetrics"`
}

func (r rawSuggestion) text() string {
	return firstNonEmpty(r.Script, r.Content)
}

// stringOrList accepts either "a, b" or ["a","b"].
type stringOrList []string

func (s *stringOrList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = cleanList(list)
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*s = cleanList(strings.Split(single, ","))
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseSuggestions accepts {"suggestions":[...]}, a bare array, or a single
// suggestion object.
func parseSuggestions(content string) ([]rawSuggestion, error) {
	var raw json.RawMessage
	if err := llm.DecodeLLMJSON(content, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []rawSuggestion
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var envelope struct {
		Suggestions []rawSuggestion `json:"suggestions"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	if envelope.Suggestions != nil {
		return envelope.Suggestions, nil
	}
	var single rawSuggestion
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	if single.text() == "" {
		return nil, nil
	}
	return []rawSuggestion{single}, nil
}

func usable(list []rawSuggestion) []rawSuggestion {
	out := make([]rawSuggestion, 0, len(list))
	for _, s := range list {
		if s.text() != "" {
			out = append(out, s)
		}
	}
	return out
}
