package sheets

import "strings"

// Header maps normalized column names to positions for header-driven parsing.
type Header struct {
	names []string
}

// NewHeader normalizes the first row of a tab.
func NewHeader(row []string) Header {
	names := make([]string, len(row))
	for i, cell := range row {
		names[i] = normalizeHeader(cell)
	}
	return Header{names: names}
}

// Find returns the index of the first column matching any candidate, or -1.
// Exact matches win over columns that merely contain a candidate word, and
// earlier candidates win over later ones.
func (h Header) Find(candidates ...string) int {
	for _, candidate := range candidates {
		want := normalizeHeader(candidate)
		for i, name := range h.names {
			if name == want {
				return i
			}
		}
	}
	for _, candidate := range candidates {
		want := normalizeHeader(candidate)
		for i, name := range h.names {
			if want != "" && strings.Contains(name, want) {
				return i
			}
		}
	}
	return -1
}

// Len reports the number of header columns.
func (h Header) Len() int {
	return len(h.names)
}

// Cell returns the trimmed value at idx, or "" when the row is short or idx < 0.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func normalizeHeader(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}
