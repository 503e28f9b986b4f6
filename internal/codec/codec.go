// Package codec parses and serializes the ganban document format: optional
// YAML front-matter followed by a markdown body whose first top-level heading
// is the title and whose subsequent headings open sections.
//
// Parsing never fails. Malformed input degrades to a single unnamed section
// and the document is flagged NonCanonical so callers can surface it for
// manual repair.
package codec

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// Section is one heading-delimited region of a document body. Bodies are
// stored with cross-reference tokens in compact form ("#001").
type Section struct {
	Title string
	Body  string
}

// Document is a parsed ganban document.
type Document struct {
	Meta     *Meta
	Sections []Section
	// NonCanonical marks documents that did not parse cleanly: broken
	// front-matter or merge conflict markers. Serializing them is legal but
	// callers should offer them for manual repair first.
	NonCanonical bool
}

// Title returns the first section's title, or "" if the document is untitled.
func (d Document) Title() string {
	if len(d.Sections) == 0 {
		return ""
	}
	return d.Sections[0].Title
}

// Section returns the section with the given title. Match is exact and
// case-sensitive (the "Comments" and "Links" sentinels rely on this).
func (d Document) Section(title string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Title == title {
			return s, true
		}
	}
	return Section{}, false
}

// Parse decodes raw bytes into a Document. It never returns an error.
func Parse(raw []byte) Document {
	text := string(raw)

	var doc Document
	body, metaBlock, ok := splitFrontMatter(text)
	if ok {
		meta := NewMeta()
		if err := yaml.Unmarshal([]byte(metaBlock), meta); err != nil {
			// Keep the malformed block as document content rather than
			// dropping data.
			body = text
			doc.NonCanonical = true
		} else if meta.Len() > 0 {
			doc.Meta = meta
		}
	}

	if hasConflictMarkers(body) {
		doc.NonCanonical = true
	}

	doc.Sections = splitSections(contractRefs(body))
	return doc
}

// Serialize encodes a Document back to bytes. Output is deterministic:
// serializing an unmodified parsed document is byte-stable, and
// cross-reference tokens are re-emitted in canonical expanded form.
func Serialize(doc Document) []byte {
	var parts []string

	if doc.Meta.Len() > 0 {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc.Meta); err == nil {
			enc.Close()
			parts = append(parts, "---", strings.TrimRight(buf.String(), "\n"), "---", "")
		}
	}

	for i, s := range doc.Sections {
		if s.Title != "" {
			prefix := "## "
			if i == 0 {
				prefix = "# "
			}
			parts = append(parts, prefix+s.Title, "")
		}
		if s.Body != "" {
			parts = append(parts, demoteHeadings(expandRefs(s.Body)), "")
		}
	}

	out := strings.TrimRight(strings.Join(parts, "\n"), " \n")
	return []byte(out + "\n")
}

// splitFrontMatter returns (body, metaBlock, found). The document must start
// with "---\n"; the block runs to the next line that is exactly "---".
func splitFrontMatter(text string) (string, string, bool) {
	if !strings.HasPrefix(text, "---\n") {
		return text, "", false
	}
	rest := text[len("---\n"):]
	if idx := strings.Index(rest, "\n---\n"); idx >= 0 {
		return rest[idx+len("\n---\n"):], rest[:idx], true
	}
	if strings.HasSuffix(rest, "\n---") {
		return "", rest[:len(rest)-len("\n---")], true
	}
	return text, "", false
}

// splitSections breaks a body into heading-delimited sections. Headings
// inside fenced code blocks do not count. Preamble text before the first
// heading becomes an untitled leading section.
func splitSections(text string) []Section {
	lines := strings.Split(text, "\n")

	var sections []Section
	var currentTitle string
	var currentLines []string
	var preamble []string
	inHeading := false
	inFence := false

	flush := func() {
		sections = append(sections, Section{
			Title: currentTitle,
			Body:  strings.TrimSpace(strings.Join(currentLines, "\n")),
		})
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
		}
		if !inFence && (strings.HasPrefix(line, "# ") || strings.HasPrefix(line, "## ")) {
			if inHeading {
				flush()
			}
			if strings.HasPrefix(line, "# ") {
				currentTitle = strings.TrimSpace(line[2:])
			} else {
				currentTitle = strings.TrimSpace(line[3:])
			}
			currentLines = nil
			inHeading = true
			continue
		}
		if inHeading {
			currentLines = append(currentLines, line)
		} else {
			preamble = append(preamble, line)
		}
	}

	if inHeading {
		if lead := strings.TrimSpace(strings.Join(preamble, "\n")); lead != "" {
			sections = append([]Section{{Title: "", Body: lead}}, sections...)
		}
		flush()
	} else {
		sections = append(sections, Section{
			Title: "",
			Body:  strings.TrimSpace(strings.Join(preamble, "\n")),
		})
	}

	return sections
}

// demoteHeadings rewrites "# " and "## " at the start of body lines to
// "### " so bodies cannot forge document structure. Fenced code blocks are
// left alone.
func demoteHeadings(text string) string {
	lines := strings.Split(text, "\n")
	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
		}
		if inFence {
			continue
		}
		if strings.HasPrefix(line, "# ") {
			lines[i] = "### " + line[2:]
		} else if strings.HasPrefix(line, "## ") {
			lines[i] = "### " + line[3:]
		}
	}
	return strings.Join(lines, "\n")
}

// hasConflictMarkers reports whether text contains a merge conflict block.
func hasConflictMarkers(text string) bool {
	inFence := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
		}
		if !inFence && strings.HasPrefix(line, "<<<<<<< ") {
			return true
		}
	}
	return false
}
