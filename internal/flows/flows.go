// Package flows wraps the text-completion collaborator in the five typed calls
// a session needs. Every call forces one structured-output contract and treats
// transport errors, timeouts, malformed JSON and blank fields alike as a
// *CollaboratorFailure.
package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/petasbytes/theraia/internal/telemetry"
	"github.com/petasbytes/theraia/memory"
	"github.com/petasbytes/theraia/tools"
)

// Request is one collaborator call.
type Request struct {
	Tool      tools.ToolDefinition
	System    string
	Prompt    string
	History   []memory.Message // prior turns, oldest first; may be windowed by the completer
	UserLabel string           // label for user turns when History is rendered
}

// Completer performs a single request/response exchange and returns the raw
// JSON arguments of the forced tool call.
type Completer interface {
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (json.RawMessage, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	return f(ctx, req)
}

// CollaboratorFailure reports a failed, timed out, or unusable collaborator call.
type CollaboratorFailure struct {
	Flow   string
	Reason string
	Err    error
}

func (e *CollaboratorFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("collaborator %s: %s: %v", e.Flow, e.Reason, e.Err)
	}
	return fmt.Sprintf("collaborator %s: %s", e.Flow, e.Reason)
}

func (e *CollaboratorFailure) Unwrap() error { return e.Err }

// IsCollaboratorFailure reports whether err is or wraps a *CollaboratorFailure.
func IsCollaboratorFailure(err error) bool {
	var cf *CollaboratorFailure
	return errors.As(err, &cf)
}

// Flows issues the typed calls.
type Flows struct {
	completer Completer
	timeout   time.Duration
}

// Option configures Flows.
type Option func(*Flows)

// WithTimeout bounds every call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(f *Flows) { f.timeout = d }
}

func New(c Completer, opts ...Option) *Flows {
	f := &Flows{completer: c}
	for _, o := range opts {
		o(f)
	}
	return f
}

type validator interface {
	Validate() error
}

// call runs req and decodes the result into T. Flow names are used for
// telemetry and errors only; no prompt or reply text is emitted.
func call[T validator](ctx context.Context, f *Flows, flow string, req Request) (T, error) {
	var zero T
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	turnID, _ := telemetry.TurnIDFromContext(ctx)
	start := time.Now()
	emit := func(outSize int, errStr string) {
		fields := map[string]any{
			"turn_id":     turnID,
			"flow":        flow,
			"tool_name":   req.Tool.Name,
			"duration_ms": time.Since(start).Milliseconds(),
			"input_size":  len(req.System) + len(req.Prompt),
			"history":     len(req.History),
			"output_size": outSize,
			"error":       nil,
		}
		if errStr != "" {
			fields["error"] = errStr
		}
		telemetry.Emit("collaborator_call", fields)
	}

	raw, err := f.completer.Complete(ctx, req)
	if err != nil {
		reason := "request failed"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timed out"
		} else if errors.Is(err, context.Canceled) {
			reason = "canceled"
		}
		emit(0, reason)
		return zero, &CollaboratorFailure{Flow: flow, Reason: reason, Err: err}
	}
	if len(raw) == 0 {
		emit(0, "empty output")
		return zero, &CollaboratorFailure{Flow: flow, Reason: "empty output"}
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		emit(len(raw), "invalid output")
		return zero, &CollaboratorFailure{Flow: flow, Reason: "invalid output", Err: err}
	}
	if err := out.Validate(); err != nil {
		emit(len(raw), "incomplete output")
		return zero, &CollaboratorFailure{Flow: flow, Reason: "incomplete output", Err: err}
	}
	emit(len(raw), "")
	return out, nil
}

// Summarize produces the summary/notes pair for a finished session.
func (f *Flows) Summarize(ctx context.Context, chatLog string) (tools.SessionSummary, error) {
	return call[tools.SessionSummary](ctx, f, "summarize", Request{
		Tool:   tools.SessionSummaryDefinition,
		System: summarySystem,
		Prompt: fenced("Chat log", chatLog),
	})
}

// ReplyInput carries one chat turn. SessionRecord selects the returning-user
// contract; without it the first-session contract is used.
type ReplyInput struct {
	Message       string
	History       []memory.Message
	SessionRecord string
	UserName      string
}

// Reply answers the user's current message.
func (f *Flows) Reply(ctx context.Context, in ReplyInput) (tools.TherapyReply, error) {
	req := Request{
		Tool:      tools.TherapyReplyDefinition,
		History:   in.History,
		UserLabel: in.UserName,
		Prompt:    "User's current message: " + in.Message,
	}
	flow := "first_session_reply"
	if in.SessionRecord != "" {
		flow = "continued_reply"
		req.System = continuedSystem + "\n\n" + fenced("Notes from previous sessions", in.SessionRecord)
	} else {
		req.System = firstSessionSystem
	}
	return call[tools.TherapyReply](ctx, f, flow, req)
}

// ParseIntroduction extracts name and topic from a first-time user's opening message.
func (f *Flows) ParseIntroduction(ctx context.Context, message string) (tools.Introduction, error) {
	out, err := call[tools.Introduction](ctx, f, "parse_introduction", Request{
		Tool:   tools.IntroductionDefinition,
		System: introductionSystem,
		Prompt: fenced("User's introduction", message),
	})
	if err != nil {
		return out, err
	}
	out.Normalize()
	return out, nil
}

// WelcomeBack greets a returning user from their decoded record text.
func (f *Flows) WelcomeBack(ctx context.Context, sessionRecord string) (tools.WelcomeBack, error) {
	return call[tools.WelcomeBack](ctx, f, "welcome_back", Request{
		Tool:   tools.WelcomeBackDefinition,
		System: welcomeBackSystem,
		Prompt: fenced("Patient record", sessionRecord),
	})
}

// Conclude writes the closing message for a session.
func (f *Flows) Conclude(ctx context.Context, chatLog string) (tools.ConcludingMessage, error) {
	return call[tools.ConcludingMessage](ctx, f, "concluding_message", Request{
		Tool:   tools.ConcludingMessageDefinition,
		System: concludingSystem,
		Prompt: fenced("Chat log", chatLog),
	})
}
