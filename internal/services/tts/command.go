package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"creativeflow/internal/services"
)

// CommandSpeaker shells out to an edge-tts compatible binary.
type CommandSpeaker struct {
	binary        string
	timeout       time.Duration
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewCommandSpeaker constructs a command-backed speaker.
func NewCommandSpeaker(binary string, timeout time.Duration) *CommandSpeaker {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "edge-tts"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &CommandSpeaker{binary: binary, timeout: timeout}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *CommandSpeaker) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Binary returns the configured executable name.
func (s *CommandSpeaker) Binary() string {
	return s.binary
}

// Synthesize runs the binary and checks that it produced a non-empty file.
func (s *CommandSpeaker) Synthesize(ctx context.Context, text, voiceID, outPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return services.Wrap(services.ErrValidation, "tts", s.binary, "text required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.run(ctx, s.binary, buildArgs(text, voiceID, outPath)...); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "tts", s.binary, "synthesis timed out", err)
		}
		return services.Wrap(services.ErrExternalTool, "tts", s.binary, "synthesis failed", err)
	}
	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "tts", s.binary, "no audio written to "+outPath, err)
	}
	return nil
}

func buildArgs(text, voiceID, outPath string) []string {
	args := make([]string, 0, 6)
	if voice := strings.TrimSpace(voiceID); voice != "" {
		args = append(args, "--voice", voice)
	}
	return append(args, "--text", text, "--write-media", outPath)
}

func (s *CommandSpeaker) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
