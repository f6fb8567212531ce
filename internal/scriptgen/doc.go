// Package scriptgen produces script suggestions from a generative model.
//
// Two strategies share one entry point. Batch asks for every suggestion in a
// single call and fails the request when the model returns too few usable
// scripts. PerItem issues one call per slot with bounded concurrency; a failed
// slot carries a Script stage error while its siblings continue.
//
// Slots are split between "close to the primer" and "experimental" directions
// by the request's exploration ratio; close slots always come first.
//
// Non-English requests are written in the target language (kept as the
// native script) and translated back to English for review. The translation
// policy decides whether a failed translation is tolerated or recorded as a
// stage error.
package scriptgen
