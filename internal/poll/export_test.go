package poll

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExportAppendsEndedPoll(t *testing.T) {
	file := filepath.Join(t.TempDir(), "results.txt")

	s := newTestSession()
	s.SetExportFile(file)
	s.JoinStudent("c1", "Alice")
	s.CreatePoll("Capital of France?", []string{"Paris", "Lyon"}, []int{0}, 60)
	if err := s.SubmitAnswer("c1", "Paris"); err != nil {
		t.Fatalf("submit should succeed: %v", err)
	}
	// Alice was the whole roster, so the poll is closed and exported

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("export file should exist: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "Capital of France?") {
		t.Fatalf("export should contain the question, got:\n%s", out)
	}
	if !strings.Contains(out, "Paris (correct): 1 vote(s) from Alice") {
		t.Fatalf("export should contain the tally, got:\n%s", out)
	}
	if !strings.Contains(out, "Total votes: 1") {
		t.Fatalf("export should contain the total, got:\n%s", out)
	}

	// a second ended poll appends rather than truncates
	s.CreatePoll("2+2?", []string{"3", "4"}, []int{1}, 60)
	s.Close()
	data, err = os.ReadFile(file)
	if err != nil {
		t.Fatalf("export file should still exist: %v", err)
	}
	if !strings.Contains(string(data), "Capital of France?") || !strings.Contains(string(data), "2+2?") {
		t.Fatalf("export should contain both polls, got:\n%s", data)
	}
}
