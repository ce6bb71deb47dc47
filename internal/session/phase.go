package session

// Phase is the position of a session in its lifecycle.
type Phase string

// Session phases.
const (
	PhaseNotStarted            Phase = "not_started"
	PhaseAwaitingUpload        Phase = "awaiting_upload"
	PhaseGatheringIntroduction Phase = "gathering_introduction"
	PhaseChatting              Phase = "chatting"
	PhaseConcluding            Phase = "concluding"
	PhaseConcluded             Phase = "concluded"
)

// transitions lists every allowed move. Failure paths return to the phase the
// operation started from.
var transitions = map[Phase][]Phase{
	PhaseNotStarted:            {PhaseGatheringIntroduction, PhaseAwaitingUpload},
	PhaseAwaitingUpload:        {PhaseChatting, PhaseNotStarted},
	PhaseGatheringIntroduction: {PhaseChatting},
	PhaseChatting:              {PhaseConcluding},
	PhaseConcluding:            {PhaseConcluded, PhaseChatting},
	PhaseConcluded:             {},
}

// CanTransition reports whether from → to is allowed.
func CanTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves p.
func IsTerminal(p Phase) bool {
	next, ok := transitions[p]
	return ok && len(next) == 0
}
