// AngelaMos | 2026
// subject.go

package question

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const subjectPunct = ".,():;!?"

var connectives = map[string]bool{
	"because":   true,
	"therefore": true,
	"however":   true,
	"although":  true,
}

func startsUpper(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(r)
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func truncateRunes(s string, n int) string {
	if runeLen(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// extractSubject picks the term a slot's question is about. Preference:
// the first pair of adjacent capitalised words, then the first capitalised
// word not yet used, then the first long non-connective word, then
// "topic N" where N is slot+1.
func extractSubject(fragment string, used map[string]bool, slot int) string {
	words := strings.Fields(fragment)

	for j := 0; j+1 < len(words); j++ {
		a, b := words[j], words[j+1]
		if runeLen(a) > 2 && startsUpper(a) && runeLen(b) > 2 && startsUpper(b) {
			return strings.Trim(a+" "+b, subjectPunct)
		}
	}

	for _, w := range words {
		s := strings.Trim(w, subjectPunct)
		if runeLen(w) > 3 && startsUpper(w) && !used[s] {
			return s
		}
	}

	for _, w := range words {
		s := strings.Trim(w, subjectPunct)
		if runeLen(w) > 5 && !connectives[strings.ToLower(s)] {
			return s
		}
	}

	return fmt.Sprintf("topic %d", slot+1)
}
