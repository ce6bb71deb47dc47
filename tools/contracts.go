package tools

import (
	"fmt"
	"strings"
)

// Contract names.
const (
	SessionSummaryTool    = "record_session_summary"
	TherapyReplyTool      = "therapy_reply"
	IntroductionTool      = "parse_introduction"
	WelcomeBackTool       = "welcome_back"
	ConcludingMessageTool = "concluding_message"
)

// SessionSummary is the summary/notes pair for one session.
type SessionSummary struct {
	Summary          string `json:"summary" jsonschema_description:"A concise summary of the key topics discussed in the latest session."`
	TherapeuticNotes string `json:"therapeuticNotes" jsonschema_description:"Professional therapeutic notes: observations, mood, potential progress and areas to explore in future sessions."`
}

func (s SessionSummary) Validate() error {
	return requireFields(SessionSummaryTool, "summary", s.Summary, "therapeuticNotes", s.TherapeuticNotes)
}

// TherapyReply answers one user message.
type TherapyReply struct {
	Response string `json:"response" jsonschema_description:"The reply to the user's current message."`
	Summary  string `json:"summary,omitempty" jsonschema_description:"Optional one-line summary of the exchange so far."`
}

func (r TherapyReply) Validate() error {
	return requireFields(TherapyReplyTool, "response", r.Response)
}

// Introduction is extracted from a first-time user's opening message.
type Introduction struct {
	Name         string `json:"name" jsonschema_description:"The user's name. Use \"User\" when none is given."`
	Introduction string `json:"introduction" jsonschema_description:"A one-sentence summary of what the user wants to talk about."`
	Response     string `json:"response" jsonschema_description:"A brief, warm reply that acknowledges the introduction and invites the user to begin."`
}

// DefaultName is used when the user did not give a name.
const DefaultName = "User"

// Normalize fills the default name.
func (i *Introduction) Normalize() {
	i.Name = strings.TrimSpace(i.Name)
	if i.Name == "" {
		i.Name = DefaultName
	}
}

func (i Introduction) Validate() error {
	return requireFields(IntroductionTool, "introduction", i.Introduction, "response", i.Response)
}

// WelcomeBack greets a returning user.
type WelcomeBack struct {
	UserName string `json:"userName" jsonschema_description:"The user's name as found in the record's Patient Information section; empty if absent."`
	Message  string `json:"message" jsonschema_description:"A warm, personalized welcome-back message, optionally referencing the last session's topic."`
}

func (w WelcomeBack) Validate() error {
	return requireFields(WelcomeBackTool, "message", w.Message)
}

// ConcludingMessage closes a session.
type ConcludingMessage struct {
	Message string `json:"message" jsonschema_description:"A warm, encouraging closing message of two to four sentences."`
}

func (c ConcludingMessage) Validate() error {
	return requireFields(ConcludingMessageTool, "message", c.Message)
}

// requireFields takes name/value pairs and reports the first blank value.
func requireFields(tool string, kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if strings.TrimSpace(kv[i+1]) == "" {
			return fmt.Errorf("%s: empty %s", tool, kv[i])
		}
	}
	return nil
}

var (
	SessionSummaryDefinition = ToolDefinition{
		Name:        SessionSummaryTool,
		Description: "Record the summary and therapeutic notes for the session chat log.",
		InputSchema: GenerateSchema[SessionSummary](),
	}
	TherapyReplyDefinition = ToolDefinition{
		Name:        TherapyReplyTool,
		Description: "Send the therapist's reply to the user's current message.",
		InputSchema: GenerateSchema[TherapyReply](),
	}
	IntroductionDefinition = ToolDefinition{
		Name:        IntroductionTool,
		Description: "Record the details extracted from a new user's introduction and reply to them.",
		InputSchema: GenerateSchema[Introduction](),
	}
	WelcomeBackDefinition = ToolDefinition{
		Name:        WelcomeBackTool,
		Description: "Greet a returning user based on their session record.",
		InputSchema: GenerateSchema[WelcomeBack](),
	}
	ConcludingMessageDefinition = ToolDefinition{
		Name:        ConcludingMessageTool,
		Description: "Send the closing message for the session.",
		InputSchema: GenerateSchema[ConcludingMessage](),
	}
)
