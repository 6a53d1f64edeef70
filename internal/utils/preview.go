package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Preview flattens s onto a single line and cuts it to at most limit runes.
// A cut preview ends with "..." and the length of the flattened text.
func Preview(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	s = strings.Join(strings.Fields(s), " ")
	total := utf8.RuneCountInString(s)
	if total <= limit {
		return s
	}

	runes := 0
	for i := range s {
		if runes == limit {
			return fmt.Sprintf("%s... (%d chars)", s[:i], total)
		}
		runes++
	}
	return s
}
