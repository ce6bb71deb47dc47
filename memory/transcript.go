package memory

import (
	"errors"
	"strings"
)

// Roles used in a transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single text turn.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text,omitempty"`
}

var (
	// ErrPatchReverted is returned when a patch is reverted a second time.
	ErrPatchReverted = errors.New("memory: patch already reverted")
	// ErrPatchStale is returned when the transcript moved on after the patch was applied.
	ErrPatchStale = errors.New("memory: patch is not the newest change")
)

// Transcript is an append-only list of turns. It is not safe for concurrent
// use; callers serialize access.
type Transcript struct {
	msgs []Message
}

// Patch records one Append so it can be undone.
type Patch struct {
	at       int
	n        int
	reverted bool
}

// Len returns the number of messages.
func (t *Transcript) Len() int { return len(t.msgs) }

// Messages returns a copy of the turns, oldest first.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Last returns the newest message, if any.
func (t *Transcript) Last() (Message, bool) {
	if len(t.msgs) == 0 {
		return Message{}, false
	}
	return t.msgs[len(t.msgs)-1], true
}

// Append adds msgs and returns the patch that removes them again.
func (t *Transcript) Append(msgs ...Message) *Patch {
	p := &Patch{at: len(t.msgs), n: len(msgs)}
	t.msgs = append(t.msgs, msgs...)
	return p
}

// Revert undoes p. Only the newest un-reverted patch can be reverted, and only once.
func (t *Transcript) Revert(p *Patch) error {
	if p == nil {
		return nil
	}
	if p.reverted {
		return ErrPatchReverted
	}
	if p.at+p.n != len(t.msgs) {
		return ErrPatchStale
	}
	clear(t.msgs[p.at:])
	t.msgs = t.msgs[:p.at]
	p.reverted = true
	return nil
}

// ChatLog renders the transcript as "<label>: <text>" lines. Empty labels fall
// back to "User" and "Therapist".
func (t *Transcript) ChatLog(userLabel, assistantLabel string) string {
	if strings.TrimSpace(userLabel) == "" {
		userLabel = "User"
	}
	if strings.TrimSpace(assistantLabel) == "" {
		assistantLabel = "Therapist"
	}
	lines := make([]string, 0, len(t.msgs))
	for _, m := range t.msgs {
		label := assistantLabel
		if m.Role == RoleUser {
			label = userLabel
		}
		lines = append(lines, label+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}
