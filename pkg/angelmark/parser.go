package angelmark

import (
	"strings"

	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
)

// Parse reads src as AngelMark source and returns its Document, or a
// *evperrors.MarkupParseError describing the first malformed construct
// (spec.md 4.4). Parse never panics on malformed input.
func Parse(src []byte) (*Document, error) {
	normalized := strings.ReplaceAll(string(src), "\r\n", "\n")
	lines := strings.Split(normalized, "\n")

	doc := &Document{}
	for i := 0; i < len(lines); {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			i++

		case isHeadingLine(line):
			block, err := parseHeading(line, i+1)
			if err != nil {
				return nil, err
			}
			doc.Blocks = append(doc.Blocks, block)
			i++

		case looksLikeRow(trimmed) && i+1 < len(lines) && isAlignmentRow(lines[i+1]):
			block, consumed, err := parseTable(lines, i)
			if err != nil {
				return nil, err
			}
			doc.Blocks = append(doc.Blocks, block)
			i += consumed

		default:
			content, err := parseInlineSequence(line, i+1, false)
			if err != nil {
				return nil, err
			}
			doc.Blocks = append(doc.Blocks, Paragraph{Content: content})
			i++
		}
	}
	return doc, nil
}

func isHeadingLine(line string) bool {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 6 {
		return false
	}
	rest := line[n:]
	return rest == "" || rest[0] == ' '
}

func parseHeading(line string, lineNo int) (Heading, error) {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	rest := line[n:]
	rest = strings.TrimPrefix(rest, " ")
	content, err := parseInlineSequence(rest, lineNo, false)
	if err != nil {
		return Heading{}, err
	}
	return Heading{Level: n, Content: content}, nil
}

// looksLikeRow reports whether trimmed, with at most one leading and one
// trailing "|" stripped, splits into at least one cell on unescaped "|".
func looksLikeRow(trimmed string) bool {
	if !strings.Contains(trimmed, "|") {
		return false
	}
	cells := splitRow(trimmed)
	return len(cells) > 0
}

// splitRow splits line into cell substrings on unescaped "|", first
// stripping one optional leading and one optional trailing "|"
// (spec.md 4.4 Row := "|"? Cell ("|" Cell)+ "|"?).
func splitRow(line string) []string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "|")
	s = strings.TrimSuffix(s, "|")

	var cells []string
	var cur strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			cur.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			cur.WriteRune(r)
			escaped = true
			continue
		}
		if r == '|' {
			cells = append(cells, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(r)
	}
	cells = append(cells, cur.String())
	return cells
}

func isAlignmentRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.Contains(trimmed, "|") && !isAlignmentCell(trimmed) {
		return false
	}
	cells := splitRow(trimmed)
	if len(cells) == 0 {
		return false
	}
	for _, c := range cells {
		if !isAlignmentCell(strings.TrimSpace(c)) {
			return false
		}
	}
	return true
}

func isAlignmentCell(c string) bool {
	if c == "" {
		return false
	}
	left := strings.HasPrefix(c, ":")
	right := strings.HasSuffix(c, ":")
	core := c
	if left {
		core = core[1:]
	}
	if right && len(core) > 0 {
		core = core[:len(core)-1]
	}
	if core == "" {
		return false
	}
	for _, r := range core {
		if r != '-' {
			return false
		}
	}
	return true
}

func alignOf(c string) Align {
	c = strings.TrimSpace(c)
	left := strings.HasPrefix(c, ":")
	right := strings.HasSuffix(c, ":")
	switch {
	case left && right:
		return AlignCenter
	case left:
		return AlignLeft
	case right:
		return AlignRight
	default:
		return AlignDefault
	}
}

// parseTable consumes the header row, its alignment row, and every
// subsequent line that still looks like a row, returning the Table and the
// number of source lines consumed.
func parseTable(lines []string, start int) (Table, int, error) {
	headerCells := splitRow(lines[start])
	header := make([]Cell, len(headerCells))
	for i, c := range headerCells {
		content, err := parseInlineSequence(strings.TrimSpace(c), start+1, true)
		if err != nil {
			return Table{}, 0, err
		}
		header[i] = Cell{Content: content}
	}

	alignCells := splitRow(lines[start+1])
	alignment := make([]Align, len(alignCells))
	for i, c := range alignCells {
		alignment[i] = alignOf(c)
	}

	table := Table{Header: header, Alignment: alignment}

	i := start + 2
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || !looksLikeRow(trimmed) {
			break
		}
		rowCells := splitRow(lines[i])
		row := make([]Cell, len(rowCells))
		for j, c := range rowCells {
			content, err := parseInlineSequence(strings.TrimSpace(c), i+1, true)
			if err != nil {
				return Table{}, 0, err
			}
			row[j] = Cell{Content: content}
		}
		table.Rows = append(table.Rows, row)
		i++
	}
	return table, i - start, nil
}

// parseInlineSequence parses s as a sequence of TextContent nodes
// (spec.md 4.4 Paragraph := TextContent+). inCell additionally stops raw
// text at an unescaped "|", since a Cell's content never spans the
// delimiter that separates it from its neighbor.
func parseInlineSequence(s string, lineNo int, inCell bool) ([]Inline, error) {
	runes := []rune(s)
	var out []Inline
	pos := 0
	for pos < len(runes) {
		node, next, err := parseOneTextContent(runes, pos, lineNo, inCell)
		if err != nil {
			return nil, err
		}
		if next == pos {
			// Nothing was consumed (raw text stopped at once, e.g. on a
			// "|" inside a cell): emit that rune literally so the loop
			// always advances. An unmatched "*", "_" or "`" never gets
			// here; parseDelimited reports it as a MarkupParseError.
			out = append(out, RawText{Text: string(runes[pos])})
			pos++
			continue
		}
		out = append(out, node)
		pos = next
	}
	return out, nil
}

func parseOneTextContent(runes []rune, pos int, lineNo int, inCell bool) (Inline, int, error) {
	switch {
	case hasPrefixAt(runes, pos, "**"):
		return parseDelimited(runes, pos, "**", lineNo, inCell)
	case hasPrefixAt(runes, pos, "_"):
		return parseDelimited(runes, pos, "_", lineNo, inCell)
	case hasPrefixAt(runes, pos, "*"):
		return parseDelimited(runes, pos, "*", lineNo, inCell)
	case hasPrefixAt(runes, pos, "`"):
		return parseDelimited(runes, pos, "`", lineNo, inCell)
	default:
		return parseRawText(runes, pos, lineNo, inCell)
	}
}

func hasPrefixAt(runes []rune, pos int, prefix string) bool {
	pr := []rune(prefix)
	if pos+len(pr) > len(runes) {
		return false
	}
	for i, r := range pr {
		if runes[pos+i] != r {
			return false
		}
	}
	return true
}

func parseDelimited(runes []rune, pos int, delim string, lineNo int, inCell bool) (Inline, int, error) {
	dl := len([]rune(delim))
	inner, next, err := parseOneTextContent(runes, pos+dl, lineNo, inCell)
	if err != nil {
		return nil, 0, err
	}
	if !hasPrefixAt(runes, next, delim) {
		return nil, 0, &evperrors.MarkupParseError{
			Line:     lineNo,
			Column:   pos + 1,
			Expected: "closing " + delim,
		}
	}
	end := next + dl
	switch delim {
	case "**":
		return Bold{Content: inner}, end, nil
	case "_", "*":
		return Italic{Content: inner}, end, nil
	case "`":
		return Monospace{Content: inner}, end, nil
	default:
		return inner, end, nil
	}
}

func parseRawText(runes []rune, pos int, lineNo int, inCell bool) (Inline, int, error) {
	var b strings.Builder
	i := pos
	for i < len(runes) {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) && isEscapable(runes[i+1]) {
			b.WriteRune(runes[i+1])
			i += 2
			continue
		}
		if isFormattingRune(r) || (inCell && r == '|') {
			break
		}
		b.WriteRune(r)
		i++
	}
	if i == pos {
		// Nothing consumable as raw text at this position (we are sitting
		// on an unmatched formatting rune); let the caller decide.
		return RawText{Text: ""}, pos, nil
	}
	return RawText{Text: b.String()}, i, nil
}

func isFormattingRune(r rune) bool {
	switch r {
	case '*', '_', '`':
		return true
	default:
		return false
	}
}

func isEscapable(r rune) bool {
	switch r {
	case '\\', '_', '*', '`', '|':
		return true
	default:
		return false
	}
}
