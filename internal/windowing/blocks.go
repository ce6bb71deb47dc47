package windowing

import (
	"github.com/petasbytes/theraia/internal/log"
	"github.com/petasbytes/theraia/memory"
)

// GroupKind denotes the atomic unit type when preparing a send window.
type GroupKind int

const (
	GroupSingleton GroupKind = iota
	GroupPair
)

// Group describes a contiguous span of messages [Start, End) in the original slice.
// Kind indicates whether it is a singleton or an exchange pair.
type Group struct {
	Kind  GroupKind
	Start int // inclusive index into msgs
	End   int // exclusive index into msgs
}

// GroupBlocks groups messages into atomic units so a window never separates a
// user message from the reply it received.
// Invariants:
// - A pair is exactly two adjacent messages: user then assistant.
// - Both messages of a pair carry non-blank text.
// - Anything else (the opening welcome, a trailing unanswered user message,
// consecutive same-role messages) is a singleton.
func GroupBlocks(msgs []memory.Message) []Group {
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		if isUser(msgs[i]) && i+1 < len(msgs) {
			next := msgs[i+1]
			if isAssistant(next) && !blank(msgs[i]) && !blank(next) {
				groups = append(groups, Group{Kind: GroupPair, Start: i, End: i + 2})
				i += 2
				continue
			}
			reason := "not_followed_by_assistant"
			if isAssistant(next) {
				reason = "blank_turn"
			}
			log.Debug().Str("reason", reason).Int("idx", i).Msg("windowing: exclude pair")
		}
		groups = append(groups, Group{Kind: GroupSingleton, Start: i, End: i + 1})
		i++
	}
	return groups
}

func isAssistant(m memory.Message) bool { return m.Role == memory.RoleAssistant }

func isUser(m memory.Message) bool { return m.Role == memory.RoleUser }

func blank(m memory.Message) bool {
	for _, r := range m.Text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
