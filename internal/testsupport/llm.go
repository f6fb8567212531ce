package testsupport

import (
	"context"
	"sync"
)

// CompleterCall records one prompt pair sent to a fake completer.
type CompleterCall struct {
	System string
	User   string
}

// FakeCompleter answers CompleteJSON with Respond and records every call.
type FakeCompleter struct {
	Respond func(ctx context.Context, system, user string) (string, error)

	mu    sync.Mutex
	calls []CompleterCall
}

func (f *FakeCompleter) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, CompleterCall{System: system, User: user})
	f.mu.Unlock()
	if f.Respond == nil {
		return `{"suggestions":[]}`, nil
	}
	return f.Respond(ctx, system, user)
}

// Calls returns a snapshot of recorded calls.
func (f *FakeCompleter) Calls() []CompleterCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CompleterCall(nil), f.calls...)
}
