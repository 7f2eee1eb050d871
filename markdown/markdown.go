// Package markdown exports documents as Markdown, for the command line and
// for plain-text feeds.
package markdown

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/eringen/pubdraft/document"
)

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"~", `\~`,
	"=", `\=`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
)

// Export renders doc as Markdown. Bold, italic and strikethrough use
// Markdown syntax, highlight uses ==mark==, underline uses <u>; color and
// size have no Markdown form and are dropped.
func Export(doc *document.Document) string {
	var buf bytes.Buffer
	RenderDocument(&buf, doc)
	return buf.String()
}

// RenderDocument writes the Markdown form of doc to buf.
func RenderDocument(buf *bytes.Buffer, doc *document.Document) {
	blocks := doc.Blocks()
	ordinal := 0
	for i, b := range blocks {
		if b.Type != document.OrderedList {
			ordinal = 0
		}
		if i > 0 {
			prev := blocks[i-1].Type
			if !(b.Type.IsList() && prev == b.Type) {
				buf.WriteString("\n")
			}
		}
		indent := strings.Repeat("  ", b.Depth)
		switch b.Type {
		case document.Atomic:
			e, ok := doc.Entity(b.Entity)
			if ok && e.Type == document.EntityImage {
				buf.WriteString("![](" + linkDestination(e.Src()) + ")\n")
			}
		case document.UnorderedList:
			buf.WriteString(indent + "- " + FormatRuns(b.Runs) + "\n")
		case document.OrderedList:
			ordinal++
			buf.WriteString(indent + strconv.Itoa(ordinal) + ". " + FormatRuns(b.Runs) + "\n")
		default:
			buf.WriteString(FormatRuns(b.Runs) + "\n")
		}
	}
}

// FormatRuns renders styled runs as inline Markdown.
func FormatRuns(runs []document.Run) string {
	var sb strings.Builder
	for _, r := range runs {
		text := escaper.Replace(r.Text)
		lead, body, trail := splitSpace(text)
		if body == "" {
			sb.WriteString(text)
			continue
		}
		open, close := markers(r.Styles)
		sb.WriteString(lead + open + body + close + trail)
	}
	return sb.String()
}

// markers returns opening and closing delimiters for ss, nested so that
// they close in reverse order.
func markers(ss document.StyleSet) (string, string) {
	var open, close []string
	add := func(o, c string) {
		open = append(open, o)
		close = append([]string{c}, close...)
	}
	if ss.Has(document.Bold) {
		add("**", "**")
	}
	if ss.Has(document.Italic) {
		add("*", "*")
	}
	if ss.Has(document.Strikethrough) {
		add("~~", "~~")
	}
	if ss.Has(document.Highlight) {
		add("==", "==")
	}
	if ss.Has(document.Underline) {
		add("<u>", "</u>")
	}
	return strings.Join(open, ""), strings.Join(close, "")
}

// splitSpace separates leading and trailing whitespace, which Markdown
// emphasis cannot wrap.
func splitSpace(s string) (lead, body, trail string) {
	body = strings.TrimLeft(s, " \t")
	lead = s[:len(s)-len(body)]
	trimmed := strings.TrimRight(body, " \t")
	trail = body[len(trimmed):]
	return lead, trimmed, trail
}

// Summary returns up to n runes of the document's plain text on one line,
// with an ellipsis when cut.
func Summary(doc *document.Document, n int) string {
	text := strings.Join(strings.Fields(doc.PlainText()), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return strings.TrimSpace(string([]rune(text)[:n])) + "…"
}

var destinationEscaper = strings.NewReplacer(
	" ", "%20",
	"\t", "%09",
	"\n", "%0A",
	"(", "%28",
	")", "%29",
	"<", "%3C",
	">", "%3E",
)

// linkDestination percent-encodes the characters that would end or break
// an inline link destination.
func linkDestination(url string) string {
	return destinationEscaper.Replace(url)
}
