package common

import "strings"

// FirstNonEmpty returns the first value that is not blank after trimming.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Mask hides all but the last four characters of a secret, for display.
func Mask(secret string) string {
	const visible = 4
	runes := []rune(secret)
	if len(runes) <= visible {
		return strings.Repeat("•", len(runes))
	}
	return strings.Repeat("•", len(runes)-visible) + string(runes[len(runes)-visible:])
}
