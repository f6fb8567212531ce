// Package api exposes the creative pipeline over HTTP.
//
// # Routes
//
// POST /api/creatives/generate runs a full generation request.
// POST /api/creatives/reprocess narrates previously persisted scripts.
// POST /api/creatives/audio narrates selected suggestions of a result set.
// GET /api/creatives/scripts and /api/creatives/tabs read the destination sheet.
// GET /api/runs lists recorded runs; GET /api/status reports configuration
// and dependency health.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for the browser client. Failures are reported
// as {error, message, details} with the status code derived from the error's
// sentinel marker. Pipeline work runs on a context detached from the client
// connection so a dropped request does not abandon half-written artifacts.
package api
