package testutil

import (
	"strings"
	"testing"

	"github.com/elia-chat/elia/internal/ui"
)

// AssertContains fails the test if output does not contain expected.
func AssertContains(t *testing.T, output, expected string) {
	t.Helper()
	checkContains(t, output, expected, true, "")
}

// AssertContainsPlain is AssertContains on output with ANSI codes removed.
func AssertContainsPlain(t *testing.T, output, expected string) {
	t.Helper()
	checkContains(t, ui.StripANSI(output), expected, true, " (plain)")
}

// AssertNotContains fails the test if output contains unexpected.
func AssertNotContains(t *testing.T, output, unexpected string) {
	t.Helper()
	checkContains(t, output, unexpected, false, "")
}

// AssertNotContainsPlain is AssertNotContains on output with ANSI codes
// removed.
func AssertNotContainsPlain(t *testing.T, output, unexpected string) {
	t.Helper()
	checkContains(t, ui.StripANSI(output), unexpected, false, " (plain)")
}

func checkContains(t *testing.T, output, needle string, want bool, label string) {
	t.Helper()
	if strings.Contains(output, needle) == want {
		return
	}
	verb := "does not contain"
	if !want {
		verb = "unexpectedly contains"
	}
	t.Errorf("output %s %q\noutput%s:\n%s", verb, needle, label, clip(output))
}

// clip keeps failure messages readable when a whole screen is printed.
func clip(s string) string {
	const limit = 2000
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n... [truncated]"
}
