package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// StreamingIndicator is the status line shown while a reply streams.
type StreamingIndicator struct {
	Spinner string
	Model   string
	Phase   string // "Connecting" or "Responding"
	Elapsed time.Duration
	// Words counts the reply text received so far. Zero hides it.
	Words      int
	ShowCancel bool
}

func (s StreamingIndicator) Render(styles *Styles) string {
	parts := make([]string, 0, 3)

	head := s.Phase + "..."
	if s.Model != "" {
		head = s.Model + " · " + head
	}
	if s.Spinner != "" {
		head = s.Spinner + " " + head
	}
	parts = append(parts, head)

	if s.Words > 0 {
		unit := "words"
		if s.Words == 1 {
			unit = "word"
		}
		parts = append(parts, fmt.Sprintf("%s %s", humanize.Comma(int64(s.Words)), unit))
	}
	parts = append(parts, fmt.Sprintf("%.1fs", s.Elapsed.Seconds()))

	line := strings.Join(parts, " · ")
	if s.ShowCancel {
		line += " " + styles.Muted.Render("(esc to cancel)")
	}
	return line
}
