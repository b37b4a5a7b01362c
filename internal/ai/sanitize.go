package ai

import (
	"strings"
	"unicode"
)

var bracketReplacer = strings.NewReplacer("[", "(", "]", ")")

// SanitizeLine collapses whitespace in user supplied text and rewrites square
// brackets so the text cannot pose as a prompt section marker.
func SanitizeLine(s string) string {
	s = bracketReplacer.Replace(s)
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// SanitizeBlock applies SanitizeLine to every line of s, drops blank lines and
// truncates the result to maxRunes runes (0 means no limit).
func SanitizeBlock(s string, maxRunes int) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")

	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = SanitizeLine(line); line != "" {
			kept = append(kept, line)
		}
	}

	out := strings.Join(kept, "\n")
	if maxRunes > 0 {
		if runes := []rune(out); len(runes) > maxRunes {
			out = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}

	return out
}
