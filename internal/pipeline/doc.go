// Package pipeline orchestrates a creative run end to end.
//
// A generate run moves through Sourcing, Generating, Synthesizing, Composing,
// Persisting and Done. Synthesizing and Composing are skipped when the request
// does not ask for audio or a background clip. Reprocess runs enter at
// Synthesizing with previously persisted scripts.
//
// Only sourcing and batch generation fail a whole run. Every later failure is
// recorded on the affected suggestion and the run continues, so callers always
// get back every suggestion that was produced.
package pipeline
