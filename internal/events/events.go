// Package events defines the closed set of domain events the session can
// produce and the routing rule mapping each event to its audience. Keeping
// the routing here as a pure function keeps the socket layer free of
// business logic.
package events

type Kind string

const (
	PollStarted    Kind = "poll-started"
	ResultsUpdated Kind = "results-updated"
	PollEnded      Kind = "poll-ended"
	RosterChanged  Kind = "roster-changed"
	StudentJoined  Kind = "student-joined"
	StudentLeft    Kind = "student-left"
	HistoryUpdated Kind = "history-updated"
	ChatPosted     Kind = "chat-posted"
	Kicked         Kind = "kicked"
)

type Audience int

const (
	Everyone Audience = iota
	Teachers
	Target
)

// Audience returns who must receive an event of this kind. Poll lifecycle
// and chat go to everyone; roster and history changes are teacher-only;
// Kicked is delivered only to the kicked connection itself.
func (k Kind) Audience() Audience {
	switch k {
	case RosterChanged, StudentJoined, StudentLeft, HistoryUpdated:
		return Teachers
	case Kicked:
		return Target
	default:
		return Everyone
	}
}

// Event is a single domain event. Target is only set for Target-audience
// kinds and holds the recipient's connection id.
type Event struct {
	Kind    Kind
	Target  string
	Payload any
}

// Sink receives events in the exact order the session serialized the
// mutations that produced them.
type Sink interface {
	Publish(Event)
}
