// Package ids provides ordered, zero-padded identifiers for cards, columns,
// and card-link positions. Identifiers compare lexicographically once padded
// to a common width, and that order always matches numeric order: alphabets
// whose digits are not strictly increasing in byte order are rejected.
package ids

import (
	"fmt"
	"sort"
	"strings"
)

// Alphabet is an ordered digit set. The zero value is unusable; construct
// with NewAlphabet or use one of the predefined alphabets.
type Alphabet struct {
	digits string
	index  map[byte]uint64
}

// Predefined alphabets. All satisfy the ordering invariant.
var (
	Decimal = mustAlphabet("0123456789")
	Hex     = mustAlphabet("0123456789abcdef")
	// Base64 is a 64-digit alphabet ordered by byte value, unlike standard
	// base64 encodings whose digit order is not lexicographic.
	Base64 = mustAlphabet("-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz")
)

// NewAlphabet builds an Alphabet from the given digit string. It returns an
// error if there are fewer than two digits, or if the digits are not strictly
// increasing in byte order (which would break lexicographic comparison).
func NewAlphabet(digits string) (Alphabet, error) {
	if len(digits) < 2 {
		return Alphabet{}, fmt.Errorf("alphabet needs at least two digits, got %d", len(digits))
	}
	index := make(map[byte]uint64, len(digits))
	for i := 0; i < len(digits); i++ {
		if i > 0 && digits[i] <= digits[i-1] {
			return Alphabet{}, fmt.Errorf("alphabet digits must be strictly increasing: %q <= %q", digits[i], digits[i-1])
		}
		index[digits[i]] = uint64(i)
	}
	return Alphabet{digits: digits, index: index}, nil
}

func mustAlphabet(digits string) Alphabet {
	a, err := NewAlphabet(digits)
	if err != nil {
		panic(err)
	}
	return a
}

// Base returns the number of digits in the alphabet.
func (a Alphabet) Base() int { return len(a.digits) }

// Zero returns the alphabet's zero digit, used for padding.
func (a Alphabet) Zero() byte { return a.digits[0] }

// Parse converts an identifier to its numeric value. ok is false if any
// character is outside the alphabet.
func (a Alphabet) Parse(id string) (value uint64, ok bool) {
	if id == "" {
		return 0, false
	}
	base := uint64(len(a.digits))
	for i := 0; i < len(id); i++ {
		d, found := a.index[id[i]]
		if !found {
			return 0, false
		}
		value = value*base + d
	}
	return value, true
}

// Format renders value at the given width, wider if the value requires it.
func (a Alphabet) Format(value uint64, width int) string {
	base := uint64(len(a.digits))
	var b []byte
	for {
		b = append([]byte{a.digits[value%base]}, b...)
		value /= base
		if value == 0 {
			break
		}
	}
	for len(b) < width {
		b = append([]byte{a.Zero()}, b...)
	}
	return string(b)
}

// Compare orders two identifiers: the shorter is left-padded with the zero
// digit, then the pair is compared bytewise. Returns -1, 0, or 1.
func (a Alphabet) Compare(left, right string) int {
	width := len(left)
	if len(right) > width {
		width = len(right)
	}
	return strings.Compare(a.Pad(left, width), a.Pad(right, width))
}

// Pad left-pads id with the zero digit up to width. Identifiers already at
// or beyond width are returned unchanged.
func (a Alphabet) Pad(id string, width int) string {
	if len(id) >= width {
		return id
	}
	return strings.Repeat(string(a.Zero()), width-len(id)) + id
}

// Max returns the highest identifier in ids, or "" if ids is empty.
func (a Alphabet) Max(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	highest := ids[0]
	for _, id := range ids[1:] {
		if a.Compare(id, highest) > 0 {
			highest = id
		}
	}
	return highest
}

// Next returns the smallest unused positive identifier, formatted at width.
// Existing identifiers that do not parse in the alphabet occupy no numeric
// value and are skipped.
func (a Alphabet) Next(existing []string, width int) string {
	used := make(map[uint64]bool, len(existing))
	for _, id := range existing {
		if v, ok := a.Parse(id); ok {
			used[v] = true
		}
	}
	var v uint64 = 1
	for used[v] {
		v++
	}
	return a.Format(v, width)
}

// Renumber reassigns contiguous identifiers 1..n at width, preserving
// relative order. The returned map holds only the identifiers that changed,
// keyed by old value.
func (a Alphabet) Renumber(ordered []string, width int) ([]string, map[string]string) {
	out := make([]string, len(ordered))
	renames := make(map[string]string)
	for i, old := range ordered {
		id := a.Format(uint64(i+1), width)
		out[i] = id
		if id != old {
			renames[old] = id
		}
	}
	return out, renames
}

// Sort orders ids in place by Compare.
func (a Alphabet) Sort(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		return a.Compare(ids[i], ids[j]) < 0
	})
}
