package render

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"tab kept", "a\tb", "a\tb"},
		{"control removed", "a\x00b\x1bc", "abc"},
		{"c1 control removed", "a\u0085b", "ab"},
		{"nbsp replaced", "a\u00a0b", "a b"},
		{"unicode kept", "héllo 日本", "héllo 日本"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{"no truncation needed", "hello", 10, "hello"},
		{"exact fit", "hello", 5, "hello"},
		{"truncation with ellipsis", "hello world", 8, "hello w…"},
		{"wide characters", "日本語テキスト", 7, "日本語…"},
		{"zero width", "hello", 0, ""},
		{"empty string", "", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.maxWidth); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestPad(t *testing.T) {
	tests := []struct {
		input string
		width int
		want  string
	}{
		{"ab", 4, "ab  "},
		{"abcd", 4, "abcd"},
		{"abcdef", 4, "abcdef"},
		{"日本", 6, "日本  "},
	}
	for _, tt := range tests {
		if got := Pad(tt.input, tt.width); got != tt.want {
			t.Errorf("Pad(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
		}
		if got := PadPlain(tt.input, tt.width); got != tt.want {
			t.Errorf("PadPlain(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
		}
	}
}

func TestTruncateAndPad(t *testing.T) {
	for _, input := range []string{"", "hi", "hello world", "日本語テキスト"} {
		got := TruncateAndPad(input, 8)
		if w := lipgloss.Width(got); w != 8 {
			t.Errorf("TruncateAndPad(%q, 8) has width %d", input, w)
		}
	}
}

func TestRow(t *testing.T) {
	tests := []struct {
		name        string
		left, right string
		width       int
		want        string
	}{
		{"fits", "abc", "12", 8, "abc   12"},
		{"tight", "abc", "12", 6, "abc 12"},
		{"left truncated", "abcdef", "12", 6, "ab… 12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Row(tt.left, tt.right, tt.width); got != tt.want {
				t.Errorf("Row(%q, %q, %d) = %q, want %q", tt.left, tt.right, tt.width, got, tt.want)
			}
		})
	}
}

func TestTruncate_KeepsStyling(t *testing.T) {
	styled := "\x1b[1mhello world\x1b[0m"

	got := Truncate(styled, 8)

	if w := lipgloss.Width(got); w != 8 {
		t.Errorf("Truncate(styled, 8) has width %d", w)
	}
	if !strings.HasPrefix(got, "\x1b[1m") {
		t.Errorf("Truncate(styled, 8) = %q, lost the style", got)
	}
}
