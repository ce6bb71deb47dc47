package session

import (
	"errors"
	"fmt"

	"github.com/petasbytes/theraia/internal/flows"
	"github.com/petasbytes/theraia/internal/obfuscate"
)

var (
	// ErrBusy is returned when another operation on the same session is in flight.
	ErrBusy = errors.New("session: another operation is in progress")
	// ErrNotFound is returned by Manager lookups for unknown or expired ids.
	ErrNotFound = errors.New("session: not found")
	// ErrConcluded is returned for every mutation after the session concluded.
	ErrConcluded = &ValidationError{Op: "any", Phase: PhaseConcluded, Reason: "the session has concluded"}
)

// ValidationError reports a guard violation. The session is unchanged.
type ValidationError struct {
	Op     string
	Phase  Phase
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("session: %s in phase %s: %s", e.Op, e.Phase, e.Reason)
}

// UserMessage turns an operation error into text fit to show the user.
func UserMessage(err error) string {
	var (
		ve *ValidationError
		de *obfuscate.DecodeError
		cf *flows.CollaboratorFailure
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConcluded):
		return "This session has already concluded. Start a new session to keep talking."
	case errors.Is(err, ErrBusy):
		return "Please wait for the current response before sending another request."
	case errors.Is(err, ErrNotFound):
		return "This session could not be found. It may have expired."
	case errors.As(err, &de):
		return "That file could not be read as a Theraia session record. Please check you selected the right file."
	case errors.As(err, &cf):
		if cf.Flow == "summarize" || cf.Flow == "concluding_message" {
			return "I couldn't wrap up the session just now. Please try concluding again."
		}
		return "I'm having trouble responding right now. Please try again in a moment."
	case errors.As(err, &ve):
		return "That isn't possible right now: " + ve.Reason + "."
	default:
		return "Something went wrong. Please try again."
	}
}
