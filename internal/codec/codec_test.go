package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const canonicalCard = `---
assignee: jane
priority: 2
---

# Fix login bug

Broken on [#002](../.all/002.md).

## Comments

- [Jane](mailto:jane@x.com) 2026-08-30: looking into it

## Links

- blocks [#002](../.all/002.md)
`

func TestParseCanonicalCard(t *testing.T) {
	doc := Parse([]byte(canonicalCard))

	require.False(t, doc.NonCanonical)
	assert.Equal(t, "Fix login bug", doc.Title())

	require.Len(t, doc.Sections, 3)
	assert.Equal(t, "Broken on #002.", doc.Sections[0].Body)

	assignee, _ := doc.Meta.GetString("assignee")
	assert.Equal(t, "jane", assignee)
	priority, _ := doc.Meta.Get("priority")
	assert.Equal(t, 2, priority)

	comments, ok := doc.Section(SectionComments)
	require.True(t, ok)
	parsed := ParseComments(comments.Body)
	require.Len(t, parsed, 1)
	assert.Equal(t, Comment{Author: "Jane", Email: "jane@x.com", Date: "2026-08-30", Text: "looking into it"}, parsed[0])

	links, ok := doc.Section(SectionLinks)
	require.True(t, ok)
	assert.Equal(t, []Relation{{Kind: "blocks", Target: "002"}}, ParseRelations(links.Body))
}

func TestSerializeIsByteStable(t *testing.T) {
	doc := Parse([]byte(canonicalCard))
	assert.Equal(t, canonicalCard, string(Serialize(doc)))
}

func TestParseSerializeRoundTripIdempotent(t *testing.T) {
	inputs := []string{
		canonicalCard,
		"# Just a title\n",
		"no headings at all, only text\n",
		"preamble text\n\n# Title\n\nbody\n\n## Second\n\nmore\n",
		"---\ntags:\n  - a\n  - b\n---\n\nbody only\n",
		"# T\n\n```\n# not a heading\n## also not\n```\n\nafter fence\n",
		"",
	}
	for _, input := range inputs {
		first := Parse([]byte(input))
		second := Parse(Serialize(first))
		assert.Equal(t, first, second, "input %q", input)
	}
}

func TestParseNoTitle(t *testing.T) {
	doc := Parse([]byte("just some text\n"))
	assert.Equal(t, "", doc.Title())
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, "just some text", doc.Sections[0].Body)
}

func TestParsePreambleBeforeTitle(t *testing.T) {
	doc := Parse([]byte("stray intro\n\n# Title\n\nbody\n"))
	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "", doc.Sections[0].Title)
	assert.Equal(t, "stray intro", doc.Sections[0].Body)
	assert.Equal(t, "Title", doc.Sections[1].Title)
}

func TestParseHeadingsInsideFences(t *testing.T) {
	doc := Parse([]byte("# Title\n\n```\n## fenced heading\n```\n"))
	require.Len(t, doc.Sections, 1)
	assert.Contains(t, doc.Sections[0].Body, "## fenced heading")
}

func TestParseBrokenFrontMatterKeepsContent(t *testing.T) {
	raw := "---\n: not : valid : yaml [\n---\n\n# Title\n"
	doc := Parse([]byte(raw))
	assert.True(t, doc.NonCanonical)
	assert.Nil(t, doc.Meta)
	// The malformed block stays in the document instead of being dropped.
	joined := ""
	for _, s := range doc.Sections {
		joined += s.Body
	}
	assert.Contains(t, joined, "not : valid")
}

func TestParseConflictMarkers(t *testing.T) {
	raw := "# Title\n\n<<<<<<< HEAD\nours\n=======\ntheirs\n>>>>>>> other\n"
	doc := Parse([]byte(raw))
	assert.True(t, doc.NonCanonical)
}

func TestSerializeDemotesBodyHeadings(t *testing.T) {
	doc := Document{Sections: []Section{{Title: "Title", Body: "# forged\n## forged too"}}}
	out := string(Serialize(doc))
	assert.Contains(t, out, "### forged\n### forged too")
}

func TestRefExpansionAndContraction(t *testing.T) {
	body := "depends on #001 and #002"
	expanded := expandRefs(body)
	assert.Equal(t, "depends on [#001](../.all/001.md) and [#002](../.all/002.md)", expanded)
	assert.Equal(t, body, contractRefs(expanded))
}

func TestRefsSkipCodeFences(t *testing.T) {
	body := "```\nsee #001\n```"
	assert.Equal(t, body, expandRefs(body))
}

func TestContractLeavesForeignLinksAlone(t *testing.T) {
	body := "[#001](../.all/002.md)" // text and target disagree
	assert.Equal(t, body, contractRefs(body))
}

func TestMetaPreservesKeyOrder(t *testing.T) {
	raw := "---\nzebra: 1\nalpha: 2\nmiddle: 3\n---\n\nbody\n"
	doc := Parse([]byte(raw))
	require.NotNil(t, doc.Meta)
	assert.Equal(t, []string{"zebra", "alpha", "middle"}, doc.Meta.Keys())
	assert.Equal(t, raw, string(Serialize(doc)))
}

func TestMetaNestedAndLists(t *testing.T) {
	raw := "---\nwidths:\n  card: 4\ntags:\n  - urgent\n  - ui\n---\n\nbody\n"
	doc := Parse([]byte(raw))
	require.NotNil(t, doc.Meta)

	widths, ok := doc.Meta.Get("widths")
	require.True(t, ok)
	nested, ok := widths.(*Meta)
	require.True(t, ok)
	card, _ := nested.Get("card")
	assert.Equal(t, 4, card)

	tags, ok := doc.Meta.Get("tags")
	require.True(t, ok)
	assert.Equal(t, []any{"urgent", "ui"}, tags)
}

func TestAppendComment(t *testing.T) {
	body := AppendComment("", Comment{Author: "Jane", Email: "jane@x.com", Date: "2026-08-31", Text: "first"})
	body = AppendComment(body, Comment{Author: "Tom", Email: "tom@x.com", Date: "2026-08-31", Text: "second"})

	parsed := ParseComments(body)
	require.Len(t, parsed, 2)
	assert.Equal(t, "first", parsed[0].Text)
	assert.Equal(t, "Tom", parsed[1].Author)
}

func TestParseCommentsMultiline(t *testing.T) {
	body := "- [Jane](mailto:jane@x.com) 2026-08-31: first line\n  continued line"
	parsed := ParseComments(body)
	require.Len(t, parsed, 1)
	assert.Contains(t, parsed[0].Text, "continued line")
}

func TestRelations(t *testing.T) {
	body := AppendRelation("", Relation{Kind: "blocks", Target: "002"})
	body = AppendRelation(body, Relation{Kind: "see-also", Target: "010"})
	assert.Equal(t, "- blocks #002\n- see-also #010", body)
	assert.Equal(t, []Relation{{Kind: "blocks", Target: "002"}, {Kind: "see-also", Target: "010"}}, ParseRelations(body))
}
