package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const narratedJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1080, "height": 1920, "duration": "12.5"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "duration": "12.4"}
  ],
  "format": {"filename": "out.mp4", "duration": "12.500000", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestParseAndValidate(t *testing.T) {
	result, err := Parse([]byte(narratedJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.VideoStreamCount() != 1 || result.AudioStreamCount() != 1 {
		t.Fatalf("unexpected stream counts %d/%d", result.VideoStreamCount(), result.AudioStreamCount())
	}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
	if err := result.ValidateNarratedVideo(); err != nil {
		t.Fatalf("expected valid output: %v", err)
	}
}

func TestValidateNarratedVideoFailures(t *testing.T) {
	cases := map[string]Result{
		"no audio":    {Streams: []Stream{{CodecType: "video"}}, Format: Format{Duration: "3"}},
		"two audio":   {Streams: []Stream{{CodecType: "video"}, {CodecType: "audio"}, {CodecType: "audio"}}, Format: Format{Duration: "3"}},
		"no duration": {Streams: []Stream{{CodecType: "video"}, {CodecType: "audio"}}, Format: Format{Duration: "bad"}},
	}
	for name, result := range cases {
		t.Run(name, func(t *testing.T) {
			if err := result.ValidateNarratedVideo(); err == nil {
				t.Fatal("expected validation failure")
			}
		})
	}
}

func TestDurationFallsBackToStreams(t *testing.T) {
	result := Result{Streams: []Stream{{Duration: "4.0"}, {Duration: "6.5"}}}
	if result.DurationSeconds() != 6.5 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
}

func TestInspectRunsBinary(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n" + narratedJSON + "\nJSON\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	result, err := Inspect(context.Background(), stub, filepath.Join(dir, "out.mp4"))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.Format.Filename != "out.mp4" {
		t.Fatalf("unexpected filename %q", result.Format.Filename)
	}
	if _, err := Inspect(context.Background(), stub, " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
