// Package ffprobe inspects media files through ffprobe's JSON output.
//
// The composer uses it to confirm that a rendered video actually carries a
// picture and a narration track before handing the reference downstream.
package ffprobe
