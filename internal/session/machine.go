// Package session drives one guided conversation from the opening prompt to
// the downloadable record, and keeps many of them keyed by id.
package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petasbytes/theraia/internal/flows"
	"github.com/petasbytes/theraia/internal/log"
	"github.com/petasbytes/theraia/internal/obfuscate"
	"github.com/petasbytes/theraia/internal/record"
	"github.com/petasbytes/theraia/internal/summarizer"
	"github.com/petasbytes/theraia/internal/telemetry"
	"github.com/petasbytes/theraia/memory"
	"github.com/petasbytes/theraia/tools"
)

// WelcomePrompt opens a first session.
const WelcomePrompt = "Welcome to Theraia. I’m Sage, your personal AI therapist. You can talk to me about anything that’s on your mind, no pressure, just whatever feels right to share.\n\n" +
	"To begin, why don’t you tell me a little about yourself? Whatever you feel comfortable sharing is perfectly okay."

// FinalMessage closes a concluded session.
const FinalMessage = "Our session has now concluded. Your session record has been downloaded. Please keep it safe for our next session. Take care."

// MinConcludeTurns is the shortest transcript that can be concluded.
const MinConcludeTurns = 2

// Identity is who the user said they are.
type Identity struct {
	Name         string `json:"name"`
	Introduction string `json:"introduction"`
}

// Artifact is the record file handed back to the user.
type Artifact struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Conclusion is the result of a successful Conclude.
type Conclusion struct {
	Message  string
	Final    string
	Artifact Artifact
}

// Deps are the collaborators a Machine needs.
type Deps struct {
	Flows      *flows.Flows
	Summarizer *summarizer.Summarizer
	Codec      obfuscate.Codec
}

// State is a read-only copy of a session.
type State struct {
	ID          string           `json:"id"`
	Phase       Phase            `json:"phase"`
	Transcript  []memory.Message `json:"transcript"`
	Identity    *Identity        `json:"identity,omitempty"`
	PriorRecord *record.Record   `json:"-"`
	Artifact    *Artifact        `json:"-"`
	Busy        bool             `json:"busy"`
}

// Machine is one session. Operations are single-flight: a second call while
// one is running fails with ErrBusy instead of waiting.
type Machine struct {
	id   string
	deps Deps
	busy atomic.Bool
	now  func() time.Time

	mu          sync.RWMutex
	phase       Phase
	transcript  memory.Transcript
	priorRecord *record.Record
	priorText   string
	identity    *Identity
	artifact    *Artifact
	lastActive  time.Time
}

// NewMachine returns a session in PhaseNotStarted.
func NewMachine(id string, deps Deps) *Machine {
	return &Machine{id: id, deps: deps, now: time.Now, phase: PhaseNotStarted, lastActive: time.Now()}
}

// ID returns the session id.
func (m *Machine) ID() string { return m.id }

// Begin starts a first session and returns the welcome prompt.
func (m *Machine) Begin(ctx context.Context) (string, error) {
	ctx, done, err := m.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer done()

	if err := m.guard("begin", PhaseNotStarted); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.transcript.Append(memory.Message{Role: memory.RoleAssistant, Text: WelcomePrompt})
	m.mu.Unlock()
	m.setPhase(ctx, "begin", PhaseGatheringIntroduction)
	return WelcomePrompt, nil
}

// Upload resumes from an encoded record and returns the welcome-back greeting.
// Any failure leaves the session in PhaseNotStarted with no record state.
func (m *Machine) Upload(ctx context.Context, blob string) (string, error) {
	ctx, done, err := m.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer done()

	if err := m.guard("upload", PhaseNotStarted); err != nil {
		return "", err
	}
	m.setPhase(ctx, "upload", PhaseAwaitingUpload)

	greeting, err := m.loadRecord(ctx, blob)
	if err != nil {
		m.setPhase(ctx, "upload_failed", PhaseNotStarted)
		m.logger().Warn().Err(err).Msg("upload rejected")
		return "", err
	}
	m.setPhase(ctx, "upload", PhaseChatting)
	return greeting, nil
}

func (m *Machine) loadRecord(ctx context.Context, blob string) (string, error) {
	text, err := m.deps.Codec.Decode(strings.TrimSpace(blob))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", &obfuscate.DecodeError{Variant: m.deps.Codec.Name(), Reason: "record is empty"}
	}

	rec, perr := record.Parse(text)
	if perr != nil {
		m.logger().Info().Int("bytes", len(text)).Msg("unstructured record; keeping it as one legacy entry")
		rec = record.Recover(text)
	}

	wb, err := m.deps.Flows.WelcomeBack(ctx, text)
	if err != nil {
		return "", err
	}

	var id *Identity
	switch {
	case rec.Patient != nil && strings.TrimSpace(rec.Patient.Name) != "":
		id = &Identity{Name: rec.Patient.Name, Introduction: rec.Patient.InitialIntroduction}
	case strings.TrimSpace(wb.UserName) != "":
		id = &Identity{Name: strings.TrimSpace(wb.UserName)}
	}

	m.mu.Lock()
	m.priorRecord = rec
	m.priorText = text
	m.identity = id
	m.transcript.Append(memory.Message{Role: memory.RoleAssistant, Text: wb.Message})
	m.mu.Unlock()
	return wb.Message, nil
}

// Send handles one user message: the introduction while gathering it, a chat
// turn afterwards. On failure the user's message is removed again.
func (m *Machine) Send(ctx context.Context, text string) (string, error) {
	ctx, done, err := m.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer done()

	text = strings.TrimSpace(text)
	if err := m.guard("send", PhaseGatheringIntroduction, PhaseChatting); err != nil {
		return "", err
	}
	if text == "" {
		return "", &ValidationError{Op: "send", Phase: m.Phase(), Reason: "message is empty"}
	}
	ctx = telemetry.WithTurnID(ctx, newTurnID())
	telemetry.EmitLocalFeatures(ctx, text)

	m.mu.Lock()
	phase := m.phase
	history := m.transcript.Messages()
	patch := m.transcript.Append(memory.Message{Role: memory.RoleUser, Text: text})
	m.mu.Unlock()

	var reply string
	if phase == PhaseGatheringIntroduction {
		reply, err = m.introduce(ctx, text)
	} else {
		reply, err = m.chat(ctx, text, history)
	}
	if err != nil {
		m.rollback(patch)
		m.logger().Warn().Err(err).Str("phase", string(phase)).Msg("turn failed; message reverted")
		return "", err
	}
	if phase == PhaseGatheringIntroduction {
		m.setPhase(ctx, "introduce", PhaseChatting)
	}
	return reply, nil
}

func (m *Machine) introduce(ctx context.Context, text string) (string, error) {
	intro, err := m.deps.Flows.ParseIntroduction(ctx, text)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.identity = &Identity{Name: intro.Name, Introduction: intro.Introduction}
	m.transcript.Append(memory.Message{Role: memory.RoleAssistant, Text: intro.Response})
	m.mu.Unlock()
	return intro.Response, nil
}

func (m *Machine) chat(ctx context.Context, text string, history []memory.Message) (string, error) {
	m.mu.RLock()
	in := flows.ReplyInput{
		Message:       text,
		History:       history,
		SessionRecord: m.priorText,
		UserName:      m.knownName(),
	}
	m.mu.RUnlock()

	out, err := m.deps.Flows.Reply(ctx, in)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.transcript.Append(memory.Message{Role: memory.RoleAssistant, Text: out.Response})
	m.mu.Unlock()
	return out.Response, nil
}

// Conclude writes the closing message, summarizes the session and encodes
// the record. On failure the session returns to PhaseChatting with its
// transcript as it was before the call.
func (m *Machine) Conclude(ctx context.Context) (*Conclusion, error) {
	ctx, done, err := m.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	if err := m.guard("conclude", PhaseChatting); err != nil {
		return nil, err
	}
	if n := m.transcriptLen(); n < MinConcludeTurns {
		return nil, &ValidationError{
			Op:     "conclude",
			Phase:  PhaseChatting,
			Reason: fmt.Sprintf("at least %d messages are needed, have %d", MinConcludeTurns, n),
		}
	}
	m.setPhase(ctx, "conclude", PhaseConcluding)

	c, err := m.finish(ctx)
	if err != nil {
		m.setPhase(ctx, "conclude_failed", PhaseChatting)
		m.logger().Warn().Err(err).Msg("conclude failed; back to chatting")
		return nil, err
	}
	m.setPhase(ctx, "conclude", PhaseConcluded)
	return c, nil
}

func (m *Machine) finish(ctx context.Context) (*Conclusion, error) {
	m.mu.RLock()
	label := m.knownName()
	if label == "" {
		label = summarizer.UnknownPatientLabel
	}
	chatLog := m.transcript.ChatLog(label, summarizer.TherapistLabel)
	m.mu.RUnlock()

	closing, err := m.deps.Flows.Conclude(ctx, chatLog)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	patch := m.transcript.Append(memory.Message{Role: memory.RoleAssistant, Text: closing.Message})
	prior, patient := m.priorText, m.patientInfo()
	m.mu.Unlock()

	text, err := m.deps.Summarizer.Summarize(ctx, &m.transcript, prior, patient)
	if err != nil {
		m.rollback(patch)
		return nil, err
	}
	blob, err := m.deps.Codec.Encode(text)
	if err != nil {
		m.rollback(patch)
		return nil, fmt.Errorf("encode record: %w", err)
	}

	m.mu.Lock()
	art := Artifact{Filename: ArtifactFilename(m.knownName()), Content: blob}
	m.artifact = &art
	m.transcript.Append(memory.Message{Role: memory.RoleAssistant, Text: FinalMessage})
	msgs := m.transcript.Messages()
	m.mu.Unlock()

	telemetry.EmitTranscriptFeatures(ctx, msgs)
	return &Conclusion{Message: closing.Message, Final: FinalMessage, Artifact: art}, nil
}

// Snapshot returns a copy of the session state.
func (m *Machine) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := State{
		ID:          m.id,
		Phase:       m.phase,
		Transcript:  m.transcript.Messages(),
		PriorRecord: m.priorRecord,
		Busy:        m.busy.Load(),
	}
	if m.identity != nil {
		id := *m.identity
		s.Identity = &id
	}
	if m.artifact != nil {
		a := *m.artifact
		s.Artifact = &a
	}
	return s
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// Artifact returns the record file once the session has concluded.
func (m *Machine) Artifact() (Artifact, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.artifact == nil {
		return Artifact{}, false
	}
	return *m.artifact, true
}

// LastActive is the time the last operation finished.
func (m *Machine) LastActive() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastActive
}

// Busy reports whether an operation is in flight.
func (m *Machine) Busy() bool { return m.busy.Load() }

func (m *Machine) acquire(ctx context.Context) (context.Context, func(), error) {
	if !m.busy.CompareAndSwap(false, true) {
		return ctx, nil, ErrBusy
	}
	return telemetry.WithSessionID(ctx, m.id), func() {
		m.mu.Lock()
		m.lastActive = m.now()
		m.mu.Unlock()
		m.busy.Store(false)
	}, nil
}

func (m *Machine) guard(op string, allowed ...Phase) error {
	p := m.Phase()
	if p == PhaseConcluded {
		return ErrConcluded
	}
	for _, a := range allowed {
		if p == a {
			return nil
		}
	}
	return &ValidationError{Op: op, Phase: p, Reason: "not allowed in this phase"}
}

func (m *Machine) setPhase(ctx context.Context, op string, to Phase) {
	m.mu.Lock()
	from := m.phase
	if !CanTransition(from, to) {
		m.mu.Unlock()
		// Guards make this unreachable.
		m.logger().Error().Str("from", string(from)).Str("to", string(to)).Msg("invalid transition")
		return
	}
	m.phase = to
	n := m.transcript.Len()
	hasRecord := m.priorText != ""
	m.mu.Unlock()

	m.logger().Debug().Str("op", op).Str("from", string(from)).Str("to", string(to)).Msg("transition")
	telemetry.EmitCtx(ctx, "transition", map[string]any{
		"op":         op,
		"from":       string(from),
		"to":         string(to),
		"transcript": n,
		"has_record": hasRecord,
		"terminal":   IsTerminal(to),
	})
}

func (m *Machine) rollback(p *memory.Patch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.transcript.Revert(p); err != nil {
		m.logger().Error().Err(err).Msg("transcript rollback failed")
	}
}

func (m *Machine) transcriptLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transcript.Len()
}

// knownName is the user's name, or "" when it is unknown or the default
// placeholder. Callers hold mu.
func (m *Machine) knownName() string {
	if m.identity == nil {
		return ""
	}
	name := strings.TrimSpace(m.identity.Name)
	if name == tools.DefaultName {
		return ""
	}
	return name
}

// patientInfo converts identity for the record header. Callers hold mu.
func (m *Machine) patientInfo() *record.PatientInfo {
	if m.identity == nil {
		return nil
	}
	return &record.PatientInfo{Name: m.identity.Name, InitialIntroduction: m.identity.Introduction}
}

func (m *Machine) logger() *zerolog.Logger {
	l := log.WithSession(m.id)
	return &l
}

func newTurnID() string { return "turn-" + uuid.NewString() }

var slugRE = regexp.MustCompile(`[^a-z0-9]+`)

// ArtifactFilename derives the record file name from the user's name.
func ArtifactFilename(name string) string {
	slug := strings.Trim(slugRE.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "theraia_record.txt"
	}
	return "theraia_record_" + slug + ".txt"
}
