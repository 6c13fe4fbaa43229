package angelmark

import "strings"

// Render serializes d back to AngelMark source. It is the inverse of
// Parse used by the round-trip property test (spec.md 8): re-parsing the
// result yields a Document structurally equal to d, though not necessarily
// byte-identical to whatever source originally produced d.
func (d *Document) Render() []byte {
	lines := make([]string, 0, len(d.Blocks))
	for _, b := range d.Blocks {
		switch blk := b.(type) {
		case Heading:
			lines = append(lines, strings.Repeat("#", blk.Level)+" "+renderInlines(blk.Content))
		case Paragraph:
			lines = append(lines, renderInlines(blk.Content))
		case Table:
			lines = append(lines, renderTable(blk)...)
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

func renderTable(t Table) []string {
	out := make([]string, 0, 2+len(t.Rows))
	out = append(out, renderRow(cellsOf(t.Header)))

	alignCells := make([]string, len(t.Alignment))
	for i, a := range t.Alignment {
		alignCells[i] = renderAlign(a)
	}
	out = append(out, "| "+strings.Join(alignCells, " | ")+" |")

	for _, row := range t.Rows {
		out = append(out, renderRow(cellsOf(row)))
	}
	return out
}

func cellsOf(cells []Cell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = renderInlines(c.Content)
	}
	return out
}

func renderRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

func renderAlign(a Align) string {
	switch a {
	case AlignLeft:
		return ":-"
	case AlignRight:
		return "-:"
	case AlignCenter:
		return ":-:"
	default:
		return "-"
	}
}

func renderInlines(nodes []Inline) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(renderInline(n))
	}
	return b.String()
}

func renderInline(n Inline) string {
	switch v := n.(type) {
	case RawText:
		return escapeRawText(v.Text)
	case Bold:
		return "**" + renderInline(v.Content) + "**"
	case Italic:
		return "_" + renderInline(v.Content) + "_"
	case Monospace:
		return "`" + renderInline(v.Content) + "`"
	default:
		return ""
	}
}

func escapeRawText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '_', '*', '`', '|':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
