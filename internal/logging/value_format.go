package logging

import (
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"
)

// maxConsoleValueRunes keeps script bodies from flooding console output.
const maxConsoleValueRunes = 160

// consoleValue renders the attribute kinds the pipeline logs: strings,
// counts, flags, ratios, durations and errors.
func consoleValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindString, slog.KindAny:
		s := v.String()
		if n := utf8.RuneCountInString(s); n > maxConsoleValueRunes {
			s = string([]rune(s)[:maxConsoleValueRunes]) + "…"
		}
		if s == "" || strconv.QuoteToGraphic(s) != `"`+s+`"` {
			return strconv.Quote(s)
		}
		return s
	default:
		return v.String()
	}
}
