package filter

import "strings"

// Matches reports whether keyword is a case-insensitive substring of location.
// Nothing is trimmed or normalized beyond case folding.
func Matches(location, keyword string) bool {
	return strings.Contains(strings.ToLower(location), strings.ToLower(keyword))
}

// FirstMatch returns the first keyword that matches location.
func FirstMatch(location string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if Matches(location, kw) {
			return kw, true
		}
	}
	return "", false
}
