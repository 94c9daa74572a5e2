package poll

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// exportLocked appends a plain-text summary of an ended poll to the
// configured export file. Called with the session lock held, right after
// the poll moved into history. Export failures are logged and never affect
// the session.
func (s *Session) exportLocked(p *Poll) {
	if err := writeExport(s.exportFile, p); err != nil {
		log.Error().Err(err).Str("file", s.exportFile).Msg("failed to export poll results")
	}
}

func writeExport(filename string, p *Poll) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Poll: %q\n", p.Question))
	sb.WriteString(fmt.Sprintf("Started: %s\n", p.CreatedAt.Format("2006-01-02 15:04:05")))
	if p.EndedAt != nil {
		sb.WriteString(fmt.Sprintf("Ended:   %s\n", p.EndedAt.Format("2006-01-02 15:04:05")))
	}
	sb.WriteString(strings.Repeat("-", 40) + "\n")

	total := 0
	for _, t := range p.Responses {
		total += t.Count
	}
	correct := make(map[int]bool, len(p.CorrectIndexes))
	for _, i := range p.CorrectIndexes {
		correct[i] = true
	}
	for i, t := range p.Responses {
		marker := ""
		if correct[i] {
			marker = " (correct)"
		}
		sb.WriteString(fmt.Sprintf("- %s%s: %d vote(s)", t.Option, marker, t.Count))
		if len(t.Voters) > 0 {
			names := make([]string, 0, len(t.Voters))
			for _, v := range t.Voters {
				names = append(names, v.Name)
			}
			sb.WriteString(" from " + strings.Join(names, ", "))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Total votes: %d\n\n", total))

	if _, err := file.WriteString(sb.String()); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}
