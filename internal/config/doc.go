// Package config loads, normalizes, and validates creativeflow configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the
// secrets the pipeline needs (model keys, TTS keys, Slack webhooks, Google
// credentials). The Config type centralizes every knob the API server and CLI
// need so spreadsheet access, generation limits, synthesis, compositing,
// storage, and notifications are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical provider names, and clear validation errors.
package config
