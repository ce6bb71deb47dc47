package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/petasbytes/theraia/internal/flows"
	"github.com/petasbytes/theraia/internal/obfuscate"
	"github.com/petasbytes/theraia/internal/session"
	"github.com/petasbytes/theraia/internal/summarizer"
	"github.com/petasbytes/theraia/tools"
)

// fakeCollaborator answers by contract name. A tool mapped to an error fails.
type fakeCollaborator struct {
	mu      sync.Mutex
	outputs map[string]string
	errs    map[string]error
	calls   map[string]int
	block   chan struct{}
}

func newFake() *fakeCollaborator {
	return &fakeCollaborator{
		outputs: map[string]string{
			tools.IntroductionTool:      `{"name":"Alex","introduction":"Stressed about work.","response":"Thanks for sharing, Alex. Where would you like to start?"}`,
			tools.TherapyReplyTool:      `{"response":"That sounds like a lot to carry."}`,
			tools.WelcomeBackTool:       `{"userName":"Alex","message":"Welcome back, Alex."}`,
			tools.ConcludingMessageTool: `{"message":"Thank you for today."}`,
			tools.SessionSummaryTool:    `{"summary":"Discussed work stress.","therapeuticNotes":"Follow up on sleep."}`,
		},
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func (f *fakeCollaborator) fail(tool string) {
	f.mu.Lock()
	f.errs[tool] = errors.New("upstream unavailable")
	f.mu.Unlock()
}

func (f *fakeCollaborator) count(tool string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[tool]
}

func (f *fakeCollaborator) Complete(ctx context.Context, req flows.Request) (json.RawMessage, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	name := req.Tool.Name
	f.calls[name]++
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	return json.RawMessage(f.outputs[name]), nil
}

func clock() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }

func newDeps(t *testing.T, c flows.Completer) session.Deps {
	t.Helper()
	fl := flows.New(c)
	return session.Deps{
		Flows:      fl,
		Summarizer: &summarizer.Summarizer{Flows: fl, Now: clock},
		Codec:      obfuscate.RotationCodec{},
	}
}
