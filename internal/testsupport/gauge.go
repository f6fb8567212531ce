package testsupport

import (
	"sync/atomic"
	"time"
)

// Gauge tracks how many callers are inside a section at once and the highest
// count observed.
type Gauge struct {
	current atomic.Int32
	peak    atomic.Int32
}

// Hold marks one caller as in flight for d.
func (g *Gauge) Hold(d time.Duration) {
	n := g.current.Add(1)
	for {
		old := g.peak.Load()
		if n <= old || g.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(d)
	g.current.Add(-1)
}

// Peak returns the highest concurrent count seen.
func (g *Gauge) Peak() int {
	return int(g.peak.Load())
}
