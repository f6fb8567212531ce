// Package tts turns narration text into audio files.
//
// Two speakers are provided: an ElevenLabs HTTP client and a command-line
// engine compatible with edge-tts (`--voice`, `--text`, `--write-media`).
// Both write an MP3 to a caller-chosen path; storing and referencing the file
// is the caller's concern.
package tts
