package model

import (
	"strings"
	"unicode"
)

const maxSlugLen = 40

// Slugify converts a title into a lowercase hyphen slug for file and
// directory names: [a-z0-9-] only, whitespace and underscores become
// hyphens, everything else is dropped, repeats collapse, edges trim.
// An empty result becomes "untitled".
func Slugify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '_' || r == '-':
			b.WriteRune('-')
		}
	}

	result := strings.Trim(collapseHyphens(b.String()), "-")
	if len(result) > maxSlugLen {
		result = strings.Trim(collapseHyphens(result[:maxSlugLen]), "-")
	}
	if result == "" {
		return "untitled"
	}
	return result
}

func collapseHyphens(s string) string {
	var b strings.Builder
	prevHyphen := false
	for _, r := range s {
		if r == '-' {
			if !prevHyphen {
				b.WriteRune(r)
			}
			prevHyphen = true
			continue
		}
		b.WriteRune(r)
		prevHyphen = false
	}
	return b.String()
}
