package angelmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeadingWithEmphasis(t *testing.T) {
	doc, err := Parse([]byte("### *Hello* **world**"))
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 1)

	h, ok := doc.Blocks[0].(Heading)
	require.True(t, ok)
	assert.Equal(t, 3, h.Level)
	require.Len(t, h.Content, 3)

	italic, ok := h.Content[0].(Italic)
	require.True(t, ok)
	assert.Equal(t, RawText{Text: "Hello"}, italic.Content)

	raw, ok := h.Content[1].(RawText)
	require.True(t, ok)
	assert.Equal(t, " ", raw.Text)

	bold, ok := h.Content[2].(Bold)
	require.True(t, ok)
	assert.Equal(t, RawText{Text: "world"}, bold.Content)
}

func TestParseTableWithAlignment(t *testing.T) {
	src := "### *Hello* **world**\n| a | b |\n|---|--:|\n| 1 | 2 |\n"
	doc, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 2)

	table, ok := doc.Blocks[1].(Table)
	require.True(t, ok)
	require.Len(t, table.Header, 2)
	assert.Equal(t, []Align{AlignDefault, AlignRight}, table.Alignment)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, RawText{Text: "1"}, table.Rows[0][0].Content[0])
	assert.Equal(t, RawText{Text: "2"}, table.Rows[0][1].Content[0])
}

func TestParseMonospaceAndNesting(t *testing.T) {
	doc, err := Parse([]byte("Use `_code_` here"))
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 1)

	p, ok := doc.Blocks[0].(Paragraph)
	require.True(t, ok)
	require.Len(t, p.Content, 3)
	mono, ok := p.Content[1].(Monospace)
	require.True(t, ok)
	italic, ok := mono.Content.(Italic)
	require.True(t, ok)
	assert.Equal(t, RawText{Text: "code"}, italic.Content)
}

func TestParseEscapes(t *testing.T) {
	doc, err := Parse([]byte(`a \* b \| c`))
	require.NoError(t, err)
	p := doc.Blocks[0].(Paragraph)
	require.Len(t, p.Content, 1)
	assert.Equal(t, "a * b | c", p.Content[0].(RawText).Text)
}

func TestParseUnterminatedBoldIsError(t *testing.T) {
	_, err := Parse([]byte("**oops"))
	require.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	src := "### *Hello* **world**\n| a | b |\n|---|--:|\n| 1 | 2 |"
	doc, err := Parse([]byte(src))
	require.NoError(t, err)

	reparsed, err := Parse(doc.Render())
	require.NoError(t, err)
	assert.Equal(t, doc, reparsed)
}
