package pipeline_test

import (
	"testing"

	"creativeflow/internal/pipeline"
)

func TestTerminalStates(t *testing.T) {
	for _, s := range []pipeline.State{pipeline.StateDone, pipeline.StateFailed} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []pipeline.State{pipeline.StateSourcing, pipeline.StateGenerating, pipeline.StateSynthesizing, pipeline.StateComposing, pipeline.StatePersisting} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
