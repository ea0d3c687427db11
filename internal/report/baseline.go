package report

import (
	"encoding/json"
	"os"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/atifafzal786/grepper/internal/types"
)

// Baseline records accepted matches so gate runs only fail on new ones.
// Items are keyed by a hash of path, kind and matched text; line numbers
// stay out of the key so unrelated edits do not invalidate entries.
type Baseline struct {
	Items map[string]bool `json:"items"`
}

func LoadBaseline(path string) (Baseline, error) {
	b := Baseline{Items: map[string]bool{}}
	f, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	_ = json.Unmarshal(f, &b)
	return b, nil
}

func SaveBaseline(path string, matches []types.Match) error {
	b := Baseline{Items: map[string]bool{}}
	for _, m := range matches {
		b.Items[key(m)] = true
	}
	buf, _ := json.MarshalIndent(b, "", "  ")
	return os.WriteFile(path, buf, 0644)
}

// FilterNewMatches drops matches already recorded in the baseline.
func FilterNewMatches(matches []types.Match, base Baseline) []types.Match {
	var out []types.Match
	for _, m := range matches {
		if !base.Items[key(m)] {
			out = append(out, m)
		}
	}
	return out
}

// ShouldFail reports whether a gate run fails: more new matches than the
// allowed budget.
func ShouldFail(matches []types.Match, allowed int) bool {
	return len(matches) > allowed
}

func key(m types.Match) string {
	return fastHash([]byte(m.Path + "|" + string(m.Kind) + "|" + m.Text))
}

func fastHash(b []byte) string {
	if len(b) == 0 {
		return "0000000000000000"
	}
	sum := xxhash.Sum64(b)
	var buf [16]byte
	const hex = "0123456789abcdef"
	for i := 15; i >= 0; i-- {
		buf[i] = hex[sum&0xF]
		sum >>= 4
	}
	return string(buf[:])
}
