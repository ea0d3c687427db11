package core

import (
	"context"

	"github.com/atifafzal786/grepper/internal/engine"
	"github.com/atifafzal786/grepper/internal/filetypes"
	"github.com/atifafzal786/grepper/internal/types"
)

// Re-export selected internal types as a stable public API surface.
// These are type aliases so external consumers can depend on a stable path.
// We can replace these with decoupled structs later without breaking callers.
type Config = engine.Config
type Mode = engine.Mode
type Match = types.Match
type Kind = types.Kind
type Stats = engine.Stats
type Result = engine.Result

const (
	ModeText    = engine.ModeText
	ModeFiles   = engine.ModeFiles
	ModeFolders = engine.ModeFolders

	KindFile    = types.KindFile
	KindContent = types.KindContent
	KindFolder  = types.KindFolder
)

// Search is the stable entrypoint for other programs. It runs cfg to
// completion and returns the collected matches.
func Search(cfg Config) ([]Match, error) {
	res, err := engine.Scan(cfg)
	return res.Matches, err
}

// SearchWithStats is Search bounded by ctx, returning the matches
// together with the traversal stats.
func SearchWithStats(ctx context.Context, cfg Config) (Result, error) {
	return engine.ScanContext(ctx, cfg)
}

// TypeNames returns the list of built in file-type names.
// This is exposed for convenience to avoid importing internals directly.
func TypeNames() []string { return filetypes.Names() }
