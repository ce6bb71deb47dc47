// Package metrics derives size features from text without retaining the text.
package metrics

import (
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/theraia/memory"
)

// Features holds basic local text features derived from an input string.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// Add returns the field-wise sum of f and o.
func (f Features) Add(o Features) Features {
	return Features{
		Bytes: f.Bytes + o.Bytes,
		Runes: f.Runes + o.Runes,
		Words: f.Words + o.Words,
		Lines: f.Lines + o.Lines,
	}
}

// CountFeatures computes byte, rune, word, and line counts for s.
// Words split on Unicode whitespace; lines are 0 for "" and otherwise 1 plus the number of '\n'.
func CountFeatures(s string) Features {
	f := Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
	}
	if s != "" {
		f.Lines = 1 + strings.Count(s, "\n")
	}
	return f
}

// Transcript aggregates features per role.
type Transcript struct {
	Messages  int
	User      Features
	Assistant Features
}

// CountTranscript sums CountFeatures over msgs by role. Messages with any
// other role are counted in Messages only.
func CountTranscript(msgs []memory.Message) Transcript {
	var t Transcript
	for _, m := range msgs {
		t.Messages++
		switch m.Role {
		case memory.RoleUser:
			t.User = t.User.Add(CountFeatures(m.Text))
		case memory.RoleAssistant:
			t.Assistant = t.Assistant.Add(CountFeatures(m.Text))
		}
	}
	return t
}
