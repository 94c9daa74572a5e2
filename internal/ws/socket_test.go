package ws

import (
	"testing"

	"github.com/classpoll/backend/internal/events"
	"github.com/classpoll/backend/internal/poll"
)

func TestWireNamesCoverAllKinds(t *testing.T) {
	kinds := []events.Kind{
		events.PollStarted,
		events.ResultsUpdated,
		events.PollEnded,
		events.RosterChanged,
		events.StudentJoined,
		events.StudentLeft,
		events.HistoryUpdated,
		events.ChatPosted,
		events.Kicked,
	}
	for _, k := range kinds {
		if wireNames[k] == "" {
			t.Fatalf("no wire name for event kind %s", k)
		}
	}
}

func TestAdviseReason(t *testing.T) {
	if got := adviseReason(poll.ErrNoActivePoll); got != "No active poll" {
		t.Fatalf("expected 'No active poll', got %q", got)
	}
	if got := adviseReason(poll.ErrAlreadyAnswered); got != "Already answered" {
		t.Fatalf("expected 'Already answered', got %q", got)
	}
	if got := adviseReason(poll.ErrUnknownOption); got != "Unknown option" {
		t.Fatalf("expected 'Unknown option', got %q", got)
	}
	// a submit racing a kick degrades to a silent no-op
	if got := adviseReason(poll.ErrUnknownParticipant); got != "" {
		t.Fatalf("unknown participant must not be advised, got %q", got)
	}
}

func TestValidateCreatePoll(t *testing.T) {
	if reason := validateCreatePoll("", []string{"A", "B"}); reason == "" {
		t.Fatal("empty question should be rejected")
	}
	if reason := validateCreatePoll("   ", []string{"A", "B"}); reason == "" {
		t.Fatal("blank question should be rejected")
	}
	if reason := validateCreatePoll("Q?", []string{"A"}); reason == "" {
		t.Fatal("single option should be rejected")
	}
	if reason := validateCreatePoll("Q?", []string{"A", "B"}); reason != "" {
		t.Fatalf("valid payload should pass, got %q", reason)
	}
}
