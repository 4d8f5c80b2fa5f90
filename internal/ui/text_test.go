package ui

import (
	"strings"
	"testing"
)

func TestParseBoolDefault(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		defaultValue bool
		want         bool
	}{
		{name: "true-1", raw: "1", defaultValue: false, want: true},
		{name: "true-word", raw: "true", defaultValue: false, want: true},
		{name: "true-on", raw: "on", defaultValue: false, want: true},
		{name: "false-0", raw: "0", defaultValue: true, want: false},
		{name: "false-no", raw: "no", defaultValue: true, want: false},
		{name: "empty-default-true", raw: "", defaultValue: true, want: true},
		{name: "unknown-default-false", raw: "maybe", defaultValue: false, want: false},
		{name: "trim-and-case", raw: "  TrUe ", defaultValue: false, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBoolDefault(tt.raw, tt.defaultValue)
			if got != tt.want {
				t.Fatalf("ParseBoolDefault(%q, %t) = %t, want %t", tt.raw, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("ELIA_TEST_FLAG", "yes")
	if !EnvBool("ELIA_TEST_FLAG", false) {
		t.Fatal("expected true from env")
	}
	t.Setenv("ELIA_TEST_FLAG", "")
	if EnvBool("ELIA_TEST_FLAG", false) {
		t.Fatal("expected default for empty env")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 6, "hello…"},
		{"日本語テキスト", 5, "日本…"},
		{"anything", 0, ""},
	}
	for _, tc := range tests {
		if got := Truncate(tc.in, tc.width); got != tc.want {
			t.Errorf("Truncate(%q, %d)=%q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}

func TestTruncateKeepsANSI(t *testing.T) {
	in := "\x1b[1mbold text here\x1b[0m"
	got := Truncate(in, 6)
	if StripANSI(got) != "bold …" {
		t.Fatalf("plain=%q", StripANSI(got))
	}
	if !strings.HasPrefix(got, "\x1b[1m") {
		t.Fatalf("lost escape sequence: %q", got)
	}
}

func TestWrapText(t *testing.T) {
	got := WrapText("the quick brown fox jumps", 10)
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 10 {
			t.Fatalf("line %q exceeds width", line)
		}
	}
	if strings.ReplaceAll(got, "\n", " ") != "the quick brown fox jumps" {
		t.Fatalf("words changed: %q", got)
	}
	if WrapText("unchanged", 0) != "unchanged" {
		t.Fatal("zero width should not wrap")
	}
}

func TestPadRight(t *testing.T) {
	if got := PadRight("ab", 4); got != "ab  " {
		t.Fatalf("PadRight=%q", got)
	}
	if got := PadRight("\x1b[1mab\x1b[0m", 3); StripANSI(got) != "ab " {
		t.Fatalf("PadRight with ANSI=%q", got)
	}
	if got := PadRight("abcdef", 3); got != "abcdef" {
		t.Fatalf("PadRight should not cut: %q", got)
	}
}

func TestANSILen(t *testing.T) {
	if got := ANSILen("\x1b[31mred\x1b[0m"); got != 3 {
		t.Fatalf("ANSILen=%d", got)
	}
	if got := ANSILen("a\tb"); got != 9 {
		t.Fatalf("tab width=%d, want 9", got)
	}
	if got := ANSILen("日本"); got != 4 {
		t.Fatalf("wide runes=%d", got)
	}
}
