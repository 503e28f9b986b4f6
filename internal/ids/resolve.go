package ids

import (
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound indicates no identifier matched (exact or prefix).
type ErrNotFound struct {
	Input string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("no identifier matches %q", e.Input)
}

// ErrAmbiguous indicates a prefix matched multiple identifiers.
type ErrAmbiguous struct {
	Input      string
	Candidates []string // sorted ascending
}

func (e *ErrAmbiguous) Error() string {
	return fmt.Sprintf("ambiguous identifier %q matches: %s", e.Input, strings.Join(e.Candidates, ", "))
}

// Resolve maps user input to a single identifier from known.
//
// Resolution rules:
//  1. Exact match wins.
//  2. Unpadded numeric input matches its canonical padded form
//     ("1" resolves to "001").
//  3. Otherwise the input is a prefix: one match resolves, zero is
//     ErrNotFound, several is ErrAmbiguous with sorted candidates.
func (a Alphabet) Resolve(input string, known []string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", &ErrNotFound{Input: ""}
	}

	for _, id := range known {
		if id == input {
			return id, nil
		}
	}

	if v, ok := a.Parse(input); ok {
		for _, id := range known {
			if kv, kok := a.Parse(id); kok && kv == v {
				return id, nil
			}
		}
	}

	var matches []string
	for _, id := range known {
		if strings.HasPrefix(id, input) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", &ErrNotFound{Input: input}
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", &ErrAmbiguous{Input: input, Candidates: matches}
	}
}
