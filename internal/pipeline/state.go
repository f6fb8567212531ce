package pipeline

// State is a step of a pipeline run.
type State string

const (
	StateSourcing     State = "sourcing"
	StateGenerating   State = "generating"
	StateSynthesizing State = "synthesizing"
	StateComposing    State = "composing"
	StatePersisting   State = "persisting"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
