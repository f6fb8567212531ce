package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"creativeflow/internal/artifacts"
	"creativeflow/internal/creative"
	"creativeflow/internal/deps"
	"creativeflow/internal/logging"
	"creativeflow/internal/media/ffprobe"
	"creativeflow/internal/services"
)

const (
	defaultConcurrency = 2
	defaultTimeout     = 10 * time.Minute
)

// Config controls compositing.
type Config struct {
	FFmpegBinary  string
	FFprobeBinary string
	Timeout       time.Duration
	Concurrency   int
	WorkDir       string
}

// Composer renders narrated videos.
type Composer struct {
	cfg    Config
	store  artifacts.Store
	logger *slog.Logger
}

// New builds a Composer. The ffprobe binary defaults to the one next to ffmpeg.
func New(store artifacts.Store, cfg Config, logger *slog.Logger) *Composer {
	if strings.TrimSpace(cfg.FFmpegBinary) == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	cfg.FFprobeBinary = deps.ResolveFFprobe(cfg.FFmpegBinary, cfg.FFprobeBinary)
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Composer{cfg: cfg, store: store, logger: logging.NewComponentLogger(logger, "composer")}
}

// Compose produces a stored video for audioRef over backgroundRef and returns
// its reference.
func (c *Composer) Compose(ctx context.Context, audioRef, backgroundRef string) (string, error) {
	background, cleanup, err := c.localizeBackground(ctx, backgroundRef)
	if err != nil {
		return "", err
	}
	defer cleanup()
	return c.composeWith(ctx, audioRef, background)
}

// ComposeSuggestion sets s.VideoRef or records a Video stage error. The audio
// reference is kept either way. It reports whether a video is now attached.
func (c *Composer) ComposeSuggestion(ctx context.Context, s *creative.ScriptSuggestion, backgroundRef string) bool {
	background, cleanup, err := c.localizeBackground(ctx, backgroundRef)
	if err != nil {
		c.fail(ctx, s, err)
		return false
	}
	defer cleanup()
	return c.composeOne(ctx, s, background)
}

// ComposeAll composes every suggestion that has audio and no stage error.
// The background is fetched once for the whole set.
func (c *Composer) ComposeAll(ctx context.Context, suggestions []creative.ScriptSuggestion, backgroundRef string) int {
	var targets []int
	for i := range suggestions {
		if suggestions[i].AudioRef != "" && !suggestions[i].Failed() {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return 0
	}

	background, cleanup, err := c.localizeBackground(ctx, backgroundRef)
	if err != nil {
		for _, i := range targets {
			c.fail(ctx, &suggestions[i], err)
		}
		return 0
	}
	defer cleanup()

	var (
		group errgroup.Group
		mu    sync.Mutex
		done  int
	)
	group.SetLimit(c.cfg.Concurrency)
	for _, i := range targets {
		group.Go(func() error {
			if c.composeOne(ctx, &suggestions[i], background) {
				mu.Lock()
				done++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()
	return done
}

// localizeBackground fetches the background clip within one call timeout.
func (c *Composer) localizeBackground(ctx context.Context, backgroundRef string) (string, func(), error) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	background, cleanup, err := c.store.Localize(fetchCtx, backgroundRef)
	if err != nil {
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			return "", nil, services.Wrap(services.ErrTimeout, "composing", "localize background", "", err)
		}
		return "", nil, services.Wrap(services.ErrCompositionFailed, "composing", "localize background", "", err)
	}
	return background, cleanup, nil
}

func (c *Composer) composeOne(ctx context.Context, s *creative.ScriptSuggestion, background string) bool {
	if s.AudioRef == "" {
		return false
	}
	ref, err := c.composeWith(services.WithItemIndex(ctx, s.Index), s.AudioRef, background)
	if err != nil {
		c.fail(ctx, s, err)
		return false
	}
	s.VideoRef = ref
	return true
}

func (c *Composer) fail(ctx context.Context, s *creative.ScriptSuggestion, err error) {
	logger := logging.WithContext(services.WithItemIndex(services.WithStage(ctx, "composing"), s.Index), c.logger)
	logging.WarnWithContext(logger, "video composition failed", "composition_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the background clip and ffmpeg installation"),
		logging.String(logging.FieldImpact, "suggestion keeps its audio without a video"),
	)
	s.Fail(creative.StageVideo, "composition failed: %v", err)
}

// composeWith runs one item end to end (fetch audio, ffmpeg, ffprobe, store)
// under a single call timeout.
func (c *Composer) composeWith(ctx context.Context, audioRef, background string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	audio, cleanup, err := c.store.Localize(runCtx, audioRef)
	if err != nil {
		return "", services.Wrap(services.ErrCompositionFailed, "composing", "localize audio", "", err)
	}
	defer cleanup()

	if err := os.MkdirAll(c.cfg.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	outPath := filepath.Join(c.cfg.WorkDir, "video-"+uuid.NewString()+".mp4")

	if err := c.run(runCtx, background, audio, outPath); err != nil {
		_ = os.Remove(outPath)
		return "", err
	}

	probe, err := ffprobe.Inspect(runCtx, c.cfg.FFprobeBinary, outPath)
	if err == nil {
		err = probe.ValidateNarratedVideo()
	}
	if err != nil {
		_ = os.Remove(outPath)
		return "", services.Wrap(services.ErrCompositionFailed, "composing", "validate output", "", err)
	}

	ref, err := c.store.Put(runCtx, outPath, artifacts.NewKey(artifacts.KindVideo, "mp4"), "video/mp4")
	if err != nil {
		_ = os.Remove(outPath)
		return "", services.Wrap(services.ErrCompositionFailed, "composing", "store", "", err)
	}
	logging.WithContext(ctx, c.logger).Debug("video composed",
		logging.String("video_ref", ref),
		logging.Float64("duration_seconds", probe.DurationSeconds()),
	)
	return ref, nil
}

func (c *Composer) run(ctx context.Context, background, audio, outPath string) error {
	cmd := exec.CommandContext(ctx, c.cfg.FFmpegBinary, Args(background, audio, outPath)...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "composing", "ffmpeg", "", err)
	}
	return services.Wrap(services.ErrCompositionFailed, "composing", "ffmpeg", tail(string(output)), err)
}

// Args returns the ffmpeg arguments that loop background under audio and
// stop at the end of the narration.
func Args(background, audio, outPath string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-stream_loop", "-1",
		"-i", background,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		outPath,
	}
}

func tail(output string) string {
	output = strings.TrimSpace(output)
	lines := strings.Split(output, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}
