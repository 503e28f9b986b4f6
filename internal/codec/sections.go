package codec

import (
	"regexp"
	"strings"
)

// Sentinel section names, matched exactly and case-sensitively.
const (
	SectionComments = "Comments"
	SectionLinks    = "Links"
)

// Comment is one entry in a card's "Comments" section. Entries are
// append-only: they are added at the end and never edited in place.
type Comment struct {
	Author string
	Email  string
	Date   string // YYYY-MM-DD
	Text   string
}

var commentRE = regexp.MustCompile(`(?s)^[-*+]\s+\[([^\]]*)\]\(mailto:([^)]+)\)\s*(?:(\d{4}-\d{2}-\d{2}):\s*)?(.*)$`)

// ParseComments reads the bullet entries of a Comments section body.
// Items without an author link are kept with only Text set.
func ParseComments(body string) []Comment {
	var comments []Comment
	for _, item := range bulletItems(body) {
		if groups := commentRE.FindStringSubmatch(item); groups != nil {
			comments = append(comments, Comment{
				Author: groups[1],
				Email:  groups[2],
				Date:   groups[3],
				Text:   strings.TrimSpace(groups[4]),
			})
			continue
		}
		comments = append(comments, Comment{Text: strings.TrimSpace(strings.TrimLeft(item, "-*+ "))})
	}
	return comments
}

// FormatComment renders a comment as a bullet entry.
func FormatComment(c Comment) string {
	var b strings.Builder
	b.WriteString("- ")
	if c.Email != "" {
		b.WriteString("[" + c.Author + "](mailto:" + c.Email + ") ")
	}
	if c.Date != "" {
		b.WriteString(c.Date + ": ")
	}
	b.WriteString(c.Text)
	return b.String()
}

// AppendComment appends a formatted entry to a Comments section body.
func AppendComment(body string, c Comment) string {
	entry := FormatComment(c)
	body = strings.TrimRight(body, "\n")
	if body == "" {
		return entry
	}
	return body + "\n" + entry
}

// Relation is one typed card-to-card relationship in a "Links" section,
// e.g. "- blocks #002" or "- see-also #005".
type Relation struct {
	Kind   string
	Target string // card identifier
}

var relationRE = regexp.MustCompile(`^[-*+]\s+([a-z][a-z0-9-]*)\s+#([0-9A-Za-z_-]+)\s*$`)

// ParseRelations reads the typed relations of a Links section body. Lines
// that do not match the relation shape are ignored.
func ParseRelations(body string) []Relation {
	var relations []Relation
	for _, line := range strings.Split(body, "\n") {
		if groups := relationRE.FindStringSubmatch(line); groups != nil {
			relations = append(relations, Relation{Kind: groups[1], Target: groups[2]})
		}
	}
	return relations
}

// FormatRelation renders a relation as a bullet entry.
func FormatRelation(r Relation) string {
	return "- " + r.Kind + " #" + r.Target
}

// AppendRelation appends a formatted relation to a Links section body.
func AppendRelation(body string, r Relation) string {
	entry := FormatRelation(r)
	body = strings.TrimRight(body, "\n")
	if body == "" {
		return entry
	}
	return body + "\n" + entry
}

// bulletItems splits a body into bullet list items, attaching continuation
// lines to the preceding item.
func bulletItems(body string) []string {
	var items []string
	var current []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		isBullet := strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || strings.HasPrefix(trimmed, "+ ")
		if isBullet && len(current) > 0 {
			items = append(items, strings.Join(current, "\n"))
			current = nil
		}
		if isBullet || len(current) > 0 {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		items = append(items, strings.Join(current, "\n"))
	}
	return items
}
