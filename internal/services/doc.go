// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, suggestion slots, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so request-level failures
//     can be classified into API status codes and run outcomes.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
