package source

import (
	"regexp"
	"strings"
)

// Abstract returns up to maxWords whitespace-separated words following the
// first case-insensitive occurrence of marker, joined by single spaces. ok is
// false when text does not contain marker.
func Abstract(text, marker string, maxWords int) (abstract string, ok bool) {
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(marker))
	loc := re.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	words := strings.Fields(text[loc[1]:])
	if maxWords > 0 && len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " "), true
}
