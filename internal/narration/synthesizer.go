package narration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"creativeflow/internal/artifacts"
	"creativeflow/internal/creative"
	"creativeflow/internal/logging"
	"creativeflow/internal/services"
	"creativeflow/internal/services/tts"
)

const (
	defaultConcurrency = 3
	defaultTimeout     = 120 * time.Second
)

// Config tunes the synthesizer.
type Config struct {
	Concurrency int
	Timeout     time.Duration
	Cache       bool
	WorkDir     string
}

// Synthesizer renders suggestions through a tts.Speaker and keeps the audio
// in an artifacts.Store.
type Synthesizer struct {
	speaker tts.Speaker
	store   artifacts.Store
	cfg     Config
	logger  *slog.Logger

	flight singleflight.Group
	mu     sync.Mutex
	cache  map[string]string
}

// New builds a Synthesizer.
func New(speaker tts.Speaker, store artifacts.Store, cfg Config, logger *slog.Logger) *Synthesizer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Synthesizer{
		speaker: speaker,
		store:   store,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "narration"),
		cache:   make(map[string]string),
	}
}

// Synthesize sets s.AudioRef, or records an Audio stage error on s. It never
// returns an error; suggestions without content or with a Script stage error
// are left untouched. It reports whether audio is now attached.
func (n *Synthesizer) Synthesize(ctx context.Context, s *creative.ScriptSuggestion, voiceID string) bool {
	if !eligible(s) {
		return false
	}
	ctx = services.WithItemIndex(services.WithStage(ctx, "synthesizing"), s.Index)
	logger := logging.WithContext(ctx, n.logger)

	ref, err := n.audioFor(ctx, s.SpeechText(), voiceID)
	if err != nil {
		logging.WarnWithContext(logger, "audio synthesis failed", "synthesis_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the TTS provider credentials and voice id"),
			logging.String(logging.FieldImpact, "suggestion returned without audio"),
		)
		s.Fail(creative.StageAudio, "synthesis failed: %v", err)
		return false
	}
	s.StageError = nil
	if s.AudioRef != ref {
		s.VideoRef = ""
	}
	s.AudioRef = ref
	logger.Debug("audio synthesized", logging.String("audio_ref", ref))
	return true
}

// SynthesizeAll fans out over every suggestion and returns how many now
// carry audio.
func (n *Synthesizer) SynthesizeAll(ctx context.Context, suggestions []creative.ScriptSuggestion, voiceID string) int {
	indices := make([]int, len(suggestions))
	for i := range suggestions {
		indices[i] = i
	}
	return n.SynthesizeSelected(ctx, suggestions, indices, voiceID)
}

// SynthesizeSelected synthesizes only the given positions. Out-of-range
// positions are ignored.
func (n *Synthesizer) SynthesizeSelected(ctx context.Context, suggestions []creative.ScriptSuggestion, indices []int, voiceID string) int {
	var (
		group errgroup.Group
		mu    sync.Mutex
		done  int
	)
	group.SetLimit(n.cfg.Concurrency)
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(suggestions) || seen[idx] {
			continue
		}
		seen[idx] = true
		group.Go(func() error {
			if n.Synthesize(ctx, &suggestions[idx], voiceID) {
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

func eligible(s *creative.ScriptSuggestion) bool {
	if s == nil || !s.HasContent() {
		return false
	}
	return s.StageError == nil || s.StageError.Stage != creative.StageScript
}

func (n *Synthesizer) audioFor(ctx context.Context, text, voiceID string) (string, error) {
	key := cacheKey(text, voiceID)
	if n.cfg.Cache {
		n.mu.Lock()
		ref, ok := n.cache[key]
		n.mu.Unlock()
		if ok {
			return ref, nil
		}
	}
	v, err, _ := n.flight.Do(key, func() (any, error) {
		ref, err := n.render(ctx, text, voiceID)
		if err != nil {
			return "", err
		}
		if n.cfg.Cache {
			n.mu.Lock()
			n.cache[key] = ref
			n.mu.Unlock()
		}
		return ref, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (n *Synthesizer) render(ctx context.Context, text, voiceID string) (string, error) {
	if err := os.MkdirAll(n.cfg.WorkDir, 0o755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	outPath := filepath.Join(n.cfg.WorkDir, "tts-"+uuid.NewString()+".mp3")
	callCtx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	if err := n.speaker.Synthesize(callCtx, text, voiceID, outPath); err != nil {
		_ = os.Remove(outPath)
		return "", services.Wrap(services.ErrSynthesisFailed, "synthesizing", "speak", "", err)
	}
	ref, err := n.store.Put(callCtx, outPath, artifacts.NewKey(artifacts.KindAudio, "mp3"), "audio/mpeg")
	if err != nil {
		_ = os.Remove(outPath)
		return "", services.Wrap(services.ErrSynthesisFailed, "synthesizing", "store", "", err)
	}
	return ref, nil
}

func cacheKey(text, voiceID string) string {
	sum := sha256.Sum256([]byte(voiceID + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
