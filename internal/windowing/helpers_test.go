package windowing_test

import (
	"github.com/petasbytes/theraia/internal/windowing"
	"github.com/petasbytes/theraia/memory"
)

func User(text string) memory.Message {
	return memory.Message{Role: memory.RoleUser, Text: text}
}

func Asst(text string) memory.Message {
	return memory.Message{Role: memory.RoleAssistant, Text: text}
}

// groupsEqual is a small utility used by grouping tests.
func groupsEqual(got, want []windowing.Group) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
