// Package deps reports whether the external binaries creativeflow shells out
// to (ffmpeg, ffprobe, command-line TTS engines) are installed.
package deps
