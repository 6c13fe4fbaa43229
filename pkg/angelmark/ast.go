// Package angelmark implements the restricted rich-text markup grammar used
// by RichText evidence (spec.md 4.4): headings, emphasis, monospace, and
// pipe-delimited tables with per-column alignment, parsed into a fixed AST
// an exporter can walk without needing to understand the source grammar.
package angelmark

// Align is a table column's alignment, as declared by its alignment row.
type Align int

const (
	AlignDefault Align = iota
	AlignLeft
	AlignRight
	AlignCenter
)

// Block is a top-level node of a Document: Heading, Paragraph, or Table.
type Block interface{ isBlock() }

// Inline is a span-level node within a Paragraph or table Cell.
type Inline interface{ isInline() }

// Document is the root of a parsed AngelMark source.
type Document struct {
	Blocks []Block
}

// Heading is a "#".."######" line; Level is the length of the leading run
// of "#" (1..6). A line starting with more than six "#" is not a heading.
type Heading struct {
	Level   int
	Content []Inline
}

// Paragraph is the inline spans of one source line; every non-blank line
// that is neither a heading nor part of a table is its own Paragraph.
type Paragraph struct {
	Content []Inline
}

// Cell is one table cell's inline content.
type Cell struct {
	Content []Inline
}

// Table is a header row, its alignment row, and zero or more data rows.
type Table struct {
	Header    []Cell
	Alignment []Align
	Rows      [][]Cell
}

// RawText is literal, unformatted text with escapes already resolved.
type RawText struct {
	Text string
}

// Bold is "**...**" content.
type Bold struct {
	Content Inline
}

// Italic is "_..._" or "*...*" content.
type Italic struct {
	Content Inline
}

// Monospace is "`...`" content.
type Monospace struct {
	Content Inline
}

func (Heading) isBlock()   {}
func (Paragraph) isBlock() {}
func (Table) isBlock()     {}

func (RawText) isInline()    {}
func (Bold) isInline()       {}
func (Italic) isInline()     {}
func (Monospace) isInline()  {}
