package codec

import (
	"regexp"
	"strings"
)

// Cross-references are stored compact ("#001") and serialized expanded
// ("[#001](../.all/001.md)"), the same target convention card-link symlinks
// use. Both directions skip fenced code blocks; expand(contract(x)) and
// contract(expand(x)) are exact inverses for canonical input.

var (
	compactRef  = regexp.MustCompile(`(^|\s)#([0-9A-Za-z_-]+)`)
	expandedRef = regexp.MustCompile(`\[#([0-9A-Za-z_-]+)\]\(\.\./\.all/([0-9A-Za-z_-]+)\.md\)`)
)

func expandRefs(body string) string {
	return mapOutsideFences(body, func(line string) string {
		return compactRef.ReplaceAllString(line, `$1[#$2](../.all/$2.md)`)
	})
}

func contractRefs(body string) string {
	return mapOutsideFences(body, func(line string) string {
		return expandedRef.ReplaceAllStringFunc(line, func(match string) string {
			groups := expandedRef.FindStringSubmatch(match)
			if groups[1] != groups[2] {
				return match // link text and target disagree: not ours
			}
			return "#" + groups[1]
		})
	})
}

func mapOutsideFences(text string, fn func(string) string) string {
	lines := strings.Split(text, "\n")
	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if !inFence {
			lines[i] = fn(line)
		}
	}
	return strings.Join(lines, "\n")
}
