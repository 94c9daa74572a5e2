package poll

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classpoll/backend/internal/events"
)

var (
	ErrNoActivePoll       = errors.New("no active poll")
	ErrAlreadyAnswered    = errors.New("already answered")
	ErrUnknownOption      = errors.New("unknown option")
	ErrUnknownParticipant = errors.New("unknown participant")
)

// Session owns all shared state for one classroom: the current poll, the
// student roster, the poll history, and the chat log. Every mutating
// operation serializes on mu; events are published to the sink while the
// lock is held, so delivery order per recipient matches the order mutations
// were applied.
type Session struct {
	mu   sync.Mutex
	sink events.Sink

	teacherLabel    string
	defaultDuration int // seconds
	exportFile      string

	current *Poll
	timer   *time.Timer

	roster map[string]*Participant
	order  []string // roster insertion order, kept stable for the teacher UI

	history []Poll
	chat    []ChatMessage
}

func New(teacherLabel string, defaultDuration int) *Session {
	if teacherLabel == "" {
		teacherLabel = "Teacher"
	}
	if defaultDuration <= 0 {
		defaultDuration = 60
	}
	return &Session{
		teacherLabel:    teacherLabel,
		defaultDuration: defaultDuration,
		roster:          make(map[string]*Participant),
	}
}

// SetSink attaches the broadcast sink. Must be called before connections are
// accepted; a nil sink silently drops events (useful in tests).
func (s *Session) SetSink(sink events.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// SetExportFile enables appending a plain-text summary of every ended poll
// to the given file.
func (s *Session) SetExportFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exportFile = path
}

func (s *Session) publishLocked(kind events.Kind, payload any) {
	if s.sink != nil {
		s.sink.Publish(events.Event{Kind: kind, Payload: payload})
	}
}

func (s *Session) publishToLocked(kind events.Kind, target string, payload any) {
	if s.sink != nil {
		s.sink.Publish(events.Event{Kind: kind, Target: target, Payload: payload})
	}
}

// JoinStudent adds a participant under the given connection id. Joining
// twice on the same connection overwrites the previous entry but keeps its
// position in the roster order.
func (s *Session) JoinStudent(connID, name string) Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.roster[connID]; !exists {
		s.order = append(s.order, connID)
	}
	p := &Participant{ID: connID, Name: name, JoinedAt: time.Now().UTC()}
	s.roster[connID] = p
	s.publishLocked(events.StudentJoined, *p)
	s.publishLocked(events.RosterChanged, s.studentsLocked())
	return *p
}

// Leave removes the participant for a closed connection. No-op if the
// connection never joined as a student.
func (s *Session) Leave(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.roster[connID]
	if !ok {
		return
	}
	s.removeLocked(connID)
	s.publishLocked(events.StudentLeft, *p)
	s.publishLocked(events.RosterChanged, s.studentsLocked())
}

// Kick removes the participant and notifies the target connection so the
// socket layer can drop it. Votes already recorded are not retracted.
func (s *Session) Kick(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roster[connID]; !ok {
		return
	}
	s.removeLocked(connID)
	s.publishToLocked(events.Kicked, connID, nil)
	s.publishLocked(events.RosterChanged, s.studentsLocked())
}

func (s *Session) removeLocked(connID string) {
	delete(s.roster, connID)
	for i, id := range s.order {
		if id == connID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// CreatePoll starts a new poll, resetting every participant's answered
// state. A still-active previous poll is superseded: it never reaches
// history and its deadline timer becomes a no-op via the poll id guard.
func (s *Session) CreatePoll(question string, options []string, correctIndexes []int, durationSec int) Poll {
	s.mu.Lock()
	defer s.mu.Unlock()
	if durationSec <= 0 {
		durationSec = s.defaultDuration
	}
	for _, p := range s.roster {
		p.HasAnswered = false
		p.Answer = nil
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	responses := make([]OptionTally, len(options))
	for i, opt := range options {
		responses[i] = OptionTally{Option: opt, Voters: []Voter{}}
	}
	p := &Poll{
		ID:             newID(),
		Question:       question,
		Options:        append([]string(nil), options...),
		CorrectIndexes: append([]int(nil), correctIndexes...),
		Duration:       durationSec,
		IsActive:       true,
		Responses:      responses,
		CreatedAt:      time.Now().UTC(),
	}
	s.current = p
	s.publishLocked(events.PollStarted, *clonePoll(p))
	pollID := p.ID
	s.timer = time.AfterFunc(time.Duration(durationSec)*time.Second, func() {
		s.expire(pollID)
	})
	return *clonePoll(p)
}

// SubmitAnswer records a participant's answer for the current poll. The
// answered-once check, the tally increment, and the all-answered auto-close
// are atomic under the session lock.
func (s *Session) SubmitAnswer(connID, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || !s.current.IsActive {
		return ErrNoActivePoll
	}
	p, ok := s.roster[connID]
	if !ok {
		return ErrUnknownParticipant
	}
	if p.HasAnswered {
		return ErrAlreadyAnswered
	}
	idx := -1
	for i := range s.current.Responses {
		if s.current.Responses[i].Option == option {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownOption
	}
	p.HasAnswered = true
	answer := option
	p.Answer = &answer
	s.current.Responses[idx].Count++
	s.current.Responses[idx].Voters = append(s.current.Responses[idx].Voters, Voter{ID: p.ID, Name: p.Name})
	s.publishLocked(events.ResultsUpdated, s.resultsLocked())
	s.publishLocked(events.RosterChanged, s.studentsLocked())
	if s.allAnsweredLocked() {
		s.closeLocked(s.current.ID)
	}
	return nil
}

// Close ends the current poll ahead of its deadline. Idempotent: a no-op
// when no poll is active.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.closeLocked(s.current.ID)
	}
}

// expire is the deadline timer callback. The poll id was captured when the
// timer was armed, so a timer that outlived its poll cannot close a
// successor.
func (s *Session) expire(pollID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(pollID)
}

func (s *Session) closeLocked(pollID string) {
	if s.current == nil || s.current.ID != pollID || !s.current.IsActive {
		return
	}
	s.current.IsActive = false
	now := time.Now().UTC()
	s.current.EndedAt = &now
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.history = append(s.history, *clonePoll(s.current))
	s.publishLocked(events.PollEnded, s.resultsLocked())
	s.publishLocked(events.HistoryUpdated, s.historyLocked())
	if s.exportFile != "" {
		s.exportLocked(s.current)
	}
}

// PostMessage appends a chat message. Teacher messages carry the configured
// teacher label; student messages resolve the sender's current roster name,
// falling back to "Unknown" if the connection has no participant.
func (s *Session) PostMessage(connID, text string, isTeacher bool) ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	sender := s.teacherLabel
	if !isTeacher {
		if p, ok := s.roster[connID]; ok {
			sender = p.Name
		} else {
			sender = "Unknown"
		}
	}
	msg := ChatMessage{
		ID:        newID(),
		Text:      text,
		Sender:    sender,
		IsTeacher: isTeacher,
		Timestamp: time.Now().UTC(),
	}
	s.chat = append(s.chat, msg)
	s.publishLocked(events.ChatPosted, msg)
	return msg
}

// CurrentPoll returns a copy of the current poll, or nil if none was ever
// created. An ended poll is still returned until a new one supersedes it.
func (s *Session) CurrentPoll() *Poll {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePoll(s.current)
}

// Students returns the roster snapshot in join order.
func (s *Session) Students() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.studentsLocked()
}

// Results returns the current tally and total vote count.
func (s *Session) Results() Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultsLocked()
}

// History returns all ended polls, oldest first.
func (s *Session) History() []Poll {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLocked()
}

// ChatHistory returns all chat messages in append order.
func (s *Session) ChatHistory() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatMessage{}, s.chat...)
}

func (s *Session) studentsLocked() []Participant {
	out := make([]Participant, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.roster[id]; ok {
			out = append(out, *p)
		}
	}
	return out
}

func (s *Session) resultsLocked() Results {
	res := Results{Responses: []OptionTally{}}
	if s.current == nil {
		return res
	}
	res.Responses = cloneTallies(s.current.Responses)
	for _, t := range res.Responses {
		res.TotalVotes += t.Count
	}
	return res
}

func (s *Session) historyLocked() []Poll {
	out := make([]Poll, 0, len(s.history))
	for i := range s.history {
		out = append(out, *clonePoll(&s.history[i]))
	}
	return out
}

// allAnsweredLocked reports whether every connected student has answered.
// An empty roster is never "all answered"; a poll with nobody connected
// only closes on its deadline.
func (s *Session) allAnsweredLocked() bool {
	if len(s.roster) == 0 {
		return false
	}
	for _, p := range s.roster {
		if !p.HasAnswered {
			return false
		}
	}
	return true
}

// newID returns a time-ordered identifier so poll and chat ids stay
// monotonic even within the same millisecond.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
