package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petasbytes/theraia/internal/flows"
	"github.com/petasbytes/theraia/internal/log"
	"github.com/petasbytes/theraia/internal/telemetry"
	"github.com/petasbytes/theraia/internal/windowing"
	"github.com/petasbytes/theraia/memory"
)

// DefaultHistoryBudget is the estimated token budget for history sent with a turn.
const DefaultHistoryBudget = 6000

// ErrNoToolCall is returned when the response carries no call to the forced tool.
var ErrNoToolCall = errors.New("runner: response has no tool call")

// userContent windows req.History to budget and renders it ahead of the prompt.
// A newest exchange that alone exceeds the budget drops the history instead of
// failing the turn.
func userContent(ctx context.Context, provider string, req flows.Request, budget int, counter windowing.TokenCounter) (context.Context, string) {
	turnID, ok := telemetry.TurnIDFromContext(ctx)
	if !ok {
		turnID = fmt.Sprintf("turn-%d", time.Now().UnixNano())
		ctx = telemetry.WithTurnID(ctx, turnID)
	}
	if len(req.History) == 0 {
		return ctx, req.Prompt
	}

	if counter == nil {
		counter = windowing.HeuristicCounter{}
	}
	window, stats := windowing.PrepareSendWindow(req.History, budget, counter)

	telemetry.EmitCtx(ctx, "window_prepared", map[string]any{
		"provider":           provider,
		"tool_name":          req.Tool.Name,
		"budget":             stats.Budget,
		"total_estimated":    stats.Total,
		"included_groups":    stats.IncludedGroups,
		"skipped_groups":     stats.SkippedGroups,
		"over_budget_newest": stats.OverBudgetNewest,
	})
	if stats.OverBudgetNewest {
		log.Warn().Int("budget", stats.Budget).Str("tool", req.Tool.Name).Msg("history window empty: newest exchange exceeds budget")
	}
	if len(window) == 0 {
		return ctx, req.Prompt
	}
	return ctx, renderHistory(window, req.UserLabel) + "\n\n" + req.Prompt
}

func renderHistory(msgs []memory.Message, userLabel string) string {
	t := &memory.Transcript{}
	t.Append(msgs...)
	var b strings.Builder
	b.WriteString("Conversation so far:\n---\n")
	b.WriteString(t.ChatLog(userLabel, "Therapist"))
	b.WriteString("\n---")
	return b.String()
}
