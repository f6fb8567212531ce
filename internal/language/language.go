package language

import (
	"strings"

	"golang.org/x/text/cases"
	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// English is the default generation language; scripts in any other language
// carry a native copy alongside the English translation.
const English = "en"

// wordForms maps spelled-out names, as typed into spreadsheet cells, to base codes.
var wordForms = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"español":    "es",
	"french":     "fr",
	"français":   "fr",
	"german":     "de",
	"deutsch":    "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"mandarin":   "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
	"turkish":    "tr",
	"indonesian": "id",
	"vietnamese": "vi",
	"tagalog":    "tl",
}

// Normalize converts a language code, tag, or spelled-out name to its ISO
// 639-1 base code. Region subtags are dropped ("es-MX" becomes "es"). It
// returns "" when the input is empty or unrecognized.
func Normalize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	if code, ok := wordForms[value]; ok {
		return code
	}
	tag, err := xlang.Parse(value)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == xlang.No {
		return ""
	}
	return base.String()
}

// IsEnglish reports whether value names English (or is empty, which the
// pipeline treats as the default language).
func IsEnglish(value string) bool {
	code := Normalize(value)
	return code == "" || code == English
}

// DisplayName returns the English name for a language code, e.g. "Spanish".
// Unrecognized input is returned title-cased; empty input yields "Unknown".
func DisplayName(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "Unknown"
	}
	code := Normalize(trimmed)
	if code == "" {
		return cases.Title(xlang.English).String(trimmed)
	}
	name := display.English.Languages().Name(xlang.Make(code))
	if name == "" {
		return strings.ToUpper(code)
	}
	return name
}
