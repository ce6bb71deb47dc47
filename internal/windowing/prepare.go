package windowing

import (
	"github.com/petasbytes/theraia/internal/log"
	"github.com/petasbytes/theraia/memory"
)

// Stats summarizes one window preparation.
//
// Fields:
// - Total: estimated cost of the included groups.
// - Budget: the budget used.
// - IncludedGroups / SkippedGroups: partition of all groups.
// - OverBudgetNewest: the newest group alone exceeds Budget.
type Stats struct {
	Total            int
	Budget           int
	IncludedGroups   int
	SkippedGroups    int
	OverBudgetNewest bool
}

// PrepareSendWindow returns the longest suffix of msgs (oldest→newest) made of
// whole groups whose estimated cost fits budget.
//
// Rules:
// - Groups are added newest→oldest until the next one would not fit.
// - If the newest group alone exceeds budget, the window is empty and OverBudgetNewest is set.
// - A budget ≤ 0 yields an empty window (OverBudgetNewest set when msgs is non-empty).
func PrepareSendWindow(msgs []memory.Message, budget int, c TokenCounter) ([]memory.Message, Stats) {
	if len(msgs) == 0 {
		return nil, Stats{Budget: budget}
	}

	groups := GroupBlocks(msgs)
	stats := Stats{Budget: budget, SkippedGroups: len(groups)}
	if budget <= 0 {
		stats.OverBudgetNewest = true
		return nil, stats
	}

	start := len(msgs)
	for gi := len(groups) - 1; gi >= 0; gi-- {
		cost := c.CountGroup(groups[gi], msgs)
		if stats.Total+cost > budget {
			if stats.IncludedGroups == 0 {
				log.Debug().Int("budget", budget).Int("cost", cost).Msg("windowing: newest group over budget")
				stats.OverBudgetNewest = true
			}
			break
		}
		stats.Total += cost
		stats.IncludedGroups++
		stats.SkippedGroups--
		start = groups[gi].Start
	}

	if stats.IncludedGroups == 0 {
		return nil, stats
	}
	return msgs[start:], stats
}
