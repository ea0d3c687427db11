package factory

import (
	"fmt"

	"github.com/atifafzal786/grepper/internal/backend"
	"github.com/atifafzal786/grepper/internal/backend/ripgrep"
	"github.com/atifafzal786/grepper/internal/engine"
)

// Backend choices accepted on the command line and in config files.
const (
	ChoiceAuto    = "auto"
	ChoiceBuiltin = "builtin"
	ChoiceRipgrep = "ripgrep"
)

// New selects a backend for the given search. "builtin" always works;
// "ripgrep" requires the rg binary and a search shape rg can express;
// "auto" prefers ripgrep when both conditions hold and quietly falls
// back to the builtin otherwise.
func New(cfg engine.Config, choice, rgPath string) (backend.Backend, error) {
	switch choice {
	case "", ChoiceBuiltin:
		return backend.Builtin{}, nil
	case ChoiceAuto:
		if !ripgrepSupports(cfg) {
			return backend.Builtin{}, nil
		}
		rg, err := ripgrep.New(rgPath)
		if err != nil {
			return backend.Builtin{}, nil
		}
		return rg, nil
	case ChoiceRipgrep:
		if !ripgrepSupports(cfg) {
			return nil, fmt.Errorf("the ripgrep backend cannot run this search (folders mode and content filtered name searches need the builtin backend)")
		}
		return ripgrep.New(rgPath)
	}
	return nil, fmt.Errorf("unknown backend %q (expected %s, %s or %s)", choice, ChoiceAuto, ChoiceBuiltin, ChoiceRipgrep)
}

// ripgrepSupports reports whether rg can express this search.
func ripgrepSupports(cfg engine.Config) bool {
	switch cfg.Mode {
	case engine.ModeFolders:
		return false
	case engine.ModeFiles:
		return cfg.Content == ""
	}
	return true
}
