// Package narration turns suggestion scripts into stored audio.
//
// Each suggestion is synthesized independently: a failure marks only that
// suggestion with an Audio stage error. Identical (text, voice) pairs are
// synthesized once per process when the cache is enabled, and concurrent
// requests for the same pair share one synthesis.
package narration
