package backend

import (
	"context"

	"github.com/atifafzal786/grepper/internal/engine"
	"github.com/atifafzal786/grepper/internal/types"
)

// Backend runs searches. The built in walker is always available;
// external implementations shell out to a faster tool when one is
// installed.
//
// External backends only report files that actually contain matches,
// while the built in walker also lists every candidate file. Callers
// that need the full candidate list should stick to the builtin.
type Backend interface {
	// Name identifies the backend in logs and the TUI status line.
	Name() string

	// Start validates cfg and launches the search. Configuration
	// problems surface here wrapped in engine.ErrConfiguration.
	Start(ctx context.Context, cfg engine.Config) (Handle, error)
}

// Handle is a running search: a result stream plus cancellation and
// completion. *engine.Search satisfies it.
type Handle interface {
	Results() <-chan types.Match
	Cancel()
	Wait() (engine.Stats, error)
}

// Builtin wraps the in process engine.
type Builtin struct{}

func (Builtin) Name() string { return "builtin" }

func (Builtin) Start(ctx context.Context, cfg engine.Config) (Handle, error) {
	return engine.Start(ctx, cfg)
}
