package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe picks the ffprobe binary to pair with ffmpegCommand.
//
// An explicitly configured ffprobe wins. Otherwise an ffprobe sitting next to
// the resolved ffmpeg is preferred so custom static builds stay matched, with
// PATH lookup as the fallback.
func ResolveFFprobe(ffmpegCommand, ffprobeCommand string) string {
	configured := strings.TrimSpace(ffprobeCommand)
	if configured != "" && configured != "ffprobe" {
		return configured
	}
	if ffmpeg := strings.TrimSpace(ffmpegCommand); ffmpeg != "" {
		if resolved, err := exec.LookPath(ffmpeg); err == nil {
			candidate := filepath.Join(filepath.Dir(resolved), executableName("ffprobe"))
			if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
				return candidate
			}
		}
	}
	return "ffprobe"
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
