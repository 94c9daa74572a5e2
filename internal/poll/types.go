package poll

import (
	"time"
)

// Participant is a connected student, keyed by socket connection id.
type Participant struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	HasAnswered bool      `json:"hasAnswered"`
	Answer      *string   `json:"answer"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Voter records who picked an option, captured at submission time so the
// record survives the participant leaving or being kicked.
type Voter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OptionTally aggregates votes for one option of the current poll.
type OptionTally struct {
	Option string  `json:"option"`
	Count  int     `json:"count"`
	Voters []Voter `json:"voters"`
}

// Poll is one question-and-options unit. Options are fixed at creation;
// Responses always holds exactly one tally per option, in option order.
type Poll struct {
	ID             string        `json:"id"`
	Question       string        `json:"question"`
	Options        []string      `json:"options"`
	CorrectIndexes []int         `json:"correctIndexes"`
	Duration       int           `json:"duration"` // seconds
	IsActive       bool          `json:"isActive"`
	Responses      []OptionTally `json:"responses"`
	CreatedAt      time.Time     `json:"createdAt"`
	EndedAt        *time.Time    `json:"endedAt,omitempty"`
}

// Results is the aggregated view pushed to clients on every tally change.
type Results struct {
	Responses  []OptionTally `json:"responses"`
	TotalVotes int           `json:"totalVotes"`
}

// ChatMessage is immutable once appended to the chat log.
type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	IsTeacher bool      `json:"isTeacher"`
	Timestamp time.Time `json:"timestamp"`
}

func clonePoll(p *Poll) *Poll {
	if p == nil {
		return nil
	}
	out := *p
	out.Options = append([]string(nil), p.Options...)
	out.CorrectIndexes = append([]int(nil), p.CorrectIndexes...)
	out.Responses = cloneTallies(p.Responses)
	if p.EndedAt != nil {
		t := *p.EndedAt
		out.EndedAt = &t
	}
	return &out
}

func cloneTallies(in []OptionTally) []OptionTally {
	out := make([]OptionTally, len(in))
	for i, t := range in {
		t.Voters = append([]Voter(nil), t.Voters...)
		out[i] = t
	}
	return out
}
