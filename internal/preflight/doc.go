// Package preflight provides readiness checks for the external services,
// binaries, and filesystem paths creativeflow depends on.
//
// The `creativeflow check` command prints every result; `serve` runs the
// same checks at startup and logs failures without refusing to start, since
// most failures only affect the requests that need that service.
package preflight
