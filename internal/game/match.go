// internal/game/match.go
//
// Guess evaluation and answer masking.
//
// Matching is deliberately permissive: a guess counts if, after trimming
// and case-folding, it equals the canonical answer exactly OR contains it
// as a substring. That accepts both the bare answer and the answer embedded
// in a full sentence ("it's a panda for sure").

package game

import "strings"

// maskGlyph replaces leaked answers in narrator text.
const maskGlyph = "███"

// Matches reports whether guess hits the canonical answer.
func Matches(guess, answer string) bool {
	g := strings.ToLower(strings.TrimSpace(guess))
	a := strings.ToLower(strings.TrimSpace(answer))
	if a == "" {
		return false
	}
	return g == a || strings.Contains(g, a)
}

// MaskAnswer blots out every occurrence of the canonical answer in text,
// case-insensitively, so a chatty oracle can never leak it verbatim.
func MaskAnswer(text, answer string) string {
	a := strings.TrimSpace(answer)
	if a == "" || text == "" {
		return text
	}
	lower := strings.ToLower(text)
	needle := strings.ToLower(a)
	var b strings.Builder
	for {
		i := strings.Index(lower, needle)
		if i < 0 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:i])
		b.WriteString(maskGlyph)
		text = text[i+len(needle):]
		lower = lower[i+len(needle):]
	}
}
