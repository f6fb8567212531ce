package testsupport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FakeSpeaker writes the spoken text into the output file. Texts containing
// FailOn are rejected. When Gauge is set each call holds it for Delay.
type FakeSpeaker struct {
	FailOn string
	Gauge  *Gauge
	Delay  time.Duration

	mu    sync.Mutex
	texts []string
}

func (f *FakeSpeaker) Synthesize(_ context.Context, text, voiceID, outPath string) error {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	if f.Gauge != nil {
		f.Gauge.Hold(f.Delay)
	}
	if f.FailOn != "" && strings.Contains(text, f.FailOn) {
		return errors.New("fake speaker: refused " + f.FailOn)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte(voiceID+":"+text), 0o644)
}

// Texts returns every text passed to Synthesize.
func (f *FakeSpeaker) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// Calls returns the number of Synthesize calls.
func (f *FakeSpeaker) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}
