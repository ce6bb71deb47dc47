// Package summarizer turns a finished session into the next version of the
// user's record text.
package summarizer

import (
	"context"
	"strings"
	"time"

	"github.com/petasbytes/theraia/internal/flows"
	"github.com/petasbytes/theraia/internal/log"
	"github.com/petasbytes/theraia/internal/record"
	"github.com/petasbytes/theraia/memory"
	"github.com/petasbytes/theraia/tools"
)

// DateLayout is the ISO calendar date stamped on new entries.
const DateLayout = "2006-01-02"

// Labels used in the chat log sent for summarization.
const (
	UnknownPatientLabel = "Patient"
	TherapistLabel      = "Therapist"
)

// Summarizer calls the summary flow and folds the result into prior record text.
type Summarizer struct {
	Flows *flows.Flows
	// Now is the clock used for entry dates; nil means time.Now.
	Now func() time.Time
}

// New returns a Summarizer using the wall clock.
func New(f *flows.Flows) *Summarizer {
	return &Summarizer{Flows: f}
}

// Summarize returns the serialized record: a new entry for transcript first,
// followed by everything in priorText. Collaborator problems come back as
// *flows.CollaboratorFailure and no record text is produced.
func (s *Summarizer) Summarize(ctx context.Context, transcript *memory.Transcript, priorText string, identity *record.PatientInfo) (string, error) {
	label := UnknownPatientLabel
	if identity != nil && strings.TrimSpace(identity.Name) != "" {
		label = strings.TrimSpace(identity.Name)
	}
	notes, err := s.Flows.Summarize(ctx, transcript.ChatLog(label, TherapistLabel))
	if err != nil {
		return "", err
	}
	text := Merge(notes, priorText, identity, s.today())
	log.Debug().
		Int("turns", transcript.Len()).
		Int("prior_bytes", len(priorText)).
		Int("record_bytes", len(text)).
		Msg("session summarized")
	return text, nil
}

// Merge is the deterministic half of Summarize.
func Merge(notes tools.SessionSummary, priorText string, identity *record.PatientInfo, date string) string {
	e := record.Entry{
		Date:             date,
		Summary:          strings.TrimSpace(notes.Summary),
		TherapeuticNotes: strings.TrimSpace(notes.TherapeuticNotes),
	}
	return record.Prepend(e, priorText, identity)
}

func (s *Summarizer) today() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().Format(DateLayout)
}
