package windowing

import (
	"unicode/utf8"

	"github.com/petasbytes/theraia/memory"
)

// TokenCounter estimates input-token cost for messages or groups.
type TokenCounter interface {
	CountMessage(m memory.Message) int
	CountGroup(g Group, all []memory.Message) int
}

// HeuristicCounter is the default deterministic estimator: rune count of the
// message text plus a fixed per-message overhead for the rendered label.
type HeuristicCounter struct{}

// Fixed per-message overhead; changing it requires updating the guard tests.
const messageOverhead = 4

func (HeuristicCounter) CountMessage(m memory.Message) int {
	return utf8.RuneCountInString(m.Text) + messageOverhead
}

func (h HeuristicCounter) CountGroup(g Group, all []memory.Message) int {
	total := 0
	for i := g.Start; i < g.End && i < len(all); i++ {
		total += h.CountMessage(all[i])
	}
	return total
}
