// Package language normalizes the language values that arrive from API
// requests and spreadsheet cells ("es", "spa", "es-MX", "Spanish") into ISO
// 639-1 codes and renders English display names for prompts.
package language
