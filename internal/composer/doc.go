// Package composer overlays narration onto a looping background clip with
// ffmpeg and verifies the result with ffprobe before storing it.
package composer
