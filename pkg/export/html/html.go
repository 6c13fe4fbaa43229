// Package html implements the single-file HTML export backend (spec.md
// 4.5): one self-contained document with a CSS :target tab widget, images
// and files inlined as base64 data: URIs, and rich text rendered from the
// AngelMark AST to semantic HTML. html/template (stdlib) is used rather
// than a pack templating library precisely because it auto-escapes
// user-controlled evidence text, which a third-party engine would not
// obviously buy us for free.
package html

import (
	"encoding/base64"
	stdhtml "html"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/evidenceangel/evidenceangel-go/pkg/angelmark"
	"github.com/evidenceangel/evidenceangel-go/pkg/evp"
	"github.com/evidenceangel/evidenceangel-go/pkg/evperrors"
	"github.com/evidenceangel/evidenceangel-go/pkg/export"
)

// Backend implements export.Backend by writing a single HTML document.
type Backend struct{}

type tab struct {
	Anchor string
	Label  string
	Body   template.HTML
}

type documentData struct {
	Title string
	Tabs  []tab
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
nav a { margin-right: 1em; }
.tab-content { display: none; border-top: 1px solid #ccc; padding-top: 1em; }
.tab-content:target { display: block; }
.tab-content:first-of-type:not(:target) ~ .tab-content:not(:target) { display: none; }
.tab-content:first-of-type { display: block; }
.evidence { margin-bottom: 1.5em; }
.http-pair { display: flex; gap: 1em; }
.http-pair pre { flex: 1; overflow: auto; background: #f6f6f6; padding: 0.5em; }
.parse-error { color: #a00; font-style: italic; }
table { border-collapse: collapse; }
table td, table th { border: 1px solid #999; padding: 0.25em 0.5em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<nav>
{{range .Tabs}}<a href="#{{.Anchor}}">{{.Label}}</a>
{{end}}
</nav>
{{range .Tabs}}<section class="tab-content" id="{{.Anchor}}">{{.Body}}</section>
{{end}}
</body>
</html>
`))

// Export writes pkg (or, under a TestCase scope, just that test case) to
// target as a single HTML document.
func (Backend) Export(pkg *evp.Package, target string, scope export.Scope, opts export.Options) error {
	pf, err := export.OpenTarget(target, opts)
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	var testCases []*evp.TestCase
	includeMetadataTab := false
	if id, ok := scope.TestCaseID(); ok {
		tc, found := pkg.TestCase(id)
		if !found {
			return &evperrors.ExportFailed{Backend: "html", Reason: "scope references an unknown test case"}
		}
		testCases = []*evp.TestCase{tc}
	} else {
		testCases = pkg.TestCases()
		includeMetadataTab = true
	}

	data := documentData{Title: pkg.Title()}
	if includeMetadataTab {
		data.Tabs = append(data.Tabs, tab{Anchor: "tab-metadata", Label: "Metadata", Body: renderMetadataTab(pkg)})
	}
	for i, tc := range testCases {
		body, err := renderTestCaseTab(pkg, tc)
		if err != nil {
			return err
		}
		data.Tabs = append(data.Tabs, tab{
			Anchor: "tab" + strconv.Itoa(i),
			Label:  tc.Metadata.Title,
			Body:   body,
		})
	}

	var buf strings.Builder
	if err := page.Execute(&buf, data); err != nil {
		return &evperrors.ExportFailed{Backend: "html", Reason: err.Error()}
	}
	if _, err := io.WriteString(pf, buf.String()); err != nil {
		return &evperrors.Io{Op: "html: write target", Err: err}
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return &evperrors.Io{Op: "html: commit export", Err: err}
	}
	return nil
}

func renderMetadataTab(pkg *evp.Package) template.HTML {
	var b strings.Builder
	b.WriteString("<h2>" + stdhtml.EscapeString(pkg.Title()) + "</h2>")
	if d := pkg.Description(); d != "" {
		b.WriteString("<p>" + stdhtml.EscapeString(d) + "</p>")
	}
	b.WriteString("<h3>Authors</h3><ul>")
	for _, a := range pkg.Authors() {
		b.WriteString("<li>" + stdhtml.EscapeString(a.Name))
		if a.Email != "" {
			b.WriteString(" &lt;" + stdhtml.EscapeString(a.Email) + "&gt;")
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	if fields := pkg.CustomFields(); len(fields) > 0 {
		b.WriteString("<h3>Custom Fields</h3><ul>")
		for _, f := range fields {
			b.WriteString("<li>" + stdhtml.EscapeString(f.Name) + "</li>")
		}
		b.WriteString("</ul>")
	}
	return template.HTML(b.String())
}

func renderTestCaseTab(pkg *evp.Package, tc *evp.TestCase) (template.HTML, error) {
	var b strings.Builder
	b.WriteString("<h2>" + stdhtml.EscapeString(tc.Metadata.Title) + "</h2>")
	b.WriteString("<p><strong>Executed:</strong> " + stdhtml.EscapeString(tc.Metadata.ExecutionDateTime.Format("2006-01-02T15:04:05Z07:00")))
	switch {
	case tc.Metadata.Passed == nil:
		b.WriteString(" &mdash; status unknown")
	case *tc.Metadata.Passed:
		b.WriteString(" &mdash; passed")
	default:
		b.WriteString(" &mdash; failed")
	}
	b.WriteString("</p>")

	for _, ev := range tc.Evidence {
		rendered, err := renderEvidence(pkg, ev)
		if err != nil {
			return "", err
		}
		b.WriteString(`<div class="evidence">`)
		if ev.Caption != "" {
			b.WriteString("<p><em>" + stdhtml.EscapeString(ev.Caption) + "</em></p>")
		}
		b.WriteString(string(rendered))
		b.WriteString("</div>")
	}
	return template.HTML(b.String()), nil
}

func renderEvidence(pkg *evp.Package, ev evp.Evidence) (template.HTML, error) {
	switch ev.Kind {
	case evp.EvidenceText:
		s, _ := ev.Value.Plain()
		return template.HTML("<pre>" + stdhtml.EscapeString(s) + "</pre>"), nil

	case evp.EvidenceRichText:
		s, _ := ev.Value.Plain()
		return renderRichText(s), nil

	case evp.EvidenceImage:
		hash, _ := ev.Value.Media()
		mt, r, err := pkg.Media().Get(hash)
		if err != nil {
			return "", err
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return "", &evperrors.Io{Op: "html: read media", Err: err}
		}
		uri := "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
		return template.HTML(`<img src="` + uri + `" alt="">`), nil

	case evp.EvidenceFile:
		hash, _ := ev.Value.Media()
		mt, r, err := pkg.Media().Get(hash)
		if err != nil {
			return "", err
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return "", &evperrors.Io{Op: "html: read media", Err: err}
		}
		uri := "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
		return template.HTML(`<a download="` + stdhtml.EscapeString(ev.OriginalFilename) + `" href="` + uri + `">` +
			stdhtml.EscapeString(ev.OriginalFilename) + "</a>"), nil

	case evp.EvidenceHTTP:
		req, resp, ok := evp.SplitHTTP(ev.Value)
		if !ok {
			return "", &evperrors.ExportFailed{Backend: "html", Reason: "malformed http evidence value"}
		}
		return template.HTML(`<div class="http-pair"><pre>` + stdhtml.EscapeString(string(req)) +
			`</pre><pre>` + stdhtml.EscapeString(string(resp)) + `</pre></div>`), nil

	default:
		return "", &evperrors.ExportFailed{Backend: "html", Reason: "unknown evidence kind"}
	}
}

// renderRichText parses s as AngelMark and walks the AST to semantic HTML,
// falling back to the escaped literal source with a visible indicator when
// the parser rejects it (spec.md 4.4: "Exporters fall back to rendering
// the literal source when the parser rejects it").
func renderRichText(s string) template.HTML {
	doc, err := angelmark.Parse([]byte(s))
	if err != nil {
		return template.HTML(`<p class="parse-error">could not parse rich text</p><pre>` +
			stdhtml.EscapeString(s) + "</pre>")
	}
	var b strings.Builder
	for _, block := range doc.Blocks {
		renderBlock(&b, block)
	}
	return template.HTML(b.String())
}

func renderBlock(b *strings.Builder, block angelmark.Block) {
	switch v := block.(type) {
	case angelmark.Heading:
		level := v.Level
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		tag := "h" + strconv.Itoa(level)
		b.WriteString("<" + tag + ">")
		renderInlines(b, v.Content)
		b.WriteString("</" + tag + ">")

	case angelmark.Paragraph:
		b.WriteString("<p>")
		renderInlines(b, v.Content)
		b.WriteString("</p>")

	case angelmark.Table:
		b.WriteString("<table><thead><tr>")
		for i, c := range v.Header {
			b.WriteString(`<th style="` + alignStyle(alignAt(v.Alignment, i)) + `">`)
			renderInlines(b, c.Content)
			b.WriteString("</th>")
		}
		b.WriteString("</tr></thead><tbody>")
		for _, row := range v.Rows {
			b.WriteString("<tr>")
			for i, c := range row {
				b.WriteString(`<td style="` + alignStyle(alignAt(v.Alignment, i)) + `">`)
				renderInlines(b, c.Content)
				b.WriteString("</td>")
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table>")
	}
}

func alignAt(aligns []angelmark.Align, i int) angelmark.Align {
	if i < 0 || i >= len(aligns) {
		return angelmark.AlignDefault
	}
	return aligns[i]
}

func alignStyle(a angelmark.Align) string {
	switch a {
	case angelmark.AlignLeft:
		return "text-align:left"
	case angelmark.AlignRight:
		return "text-align:right"
	case angelmark.AlignCenter:
		return "text-align:center"
	default:
		return ""
	}
}

func renderInlines(b *strings.Builder, nodes []angelmark.Inline) {
	for _, n := range nodes {
		renderInline(b, n)
	}
}

func renderInline(b *strings.Builder, n angelmark.Inline) {
	switch v := n.(type) {
	case angelmark.RawText:
		b.WriteString(stdhtml.EscapeString(v.Text))
	case angelmark.Bold:
		b.WriteString("<strong>")
		renderInline(b, v.Content)
		b.WriteString("</strong>")
	case angelmark.Italic:
		b.WriteString("<em>")
		renderInline(b, v.Content)
		b.WriteString("</em>")
	case angelmark.Monospace:
		b.WriteString("<code>")
		renderInline(b, v.Content)
		b.WriteString("</code>")
	}
}
