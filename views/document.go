package views

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/pubdraft/document"
)

// StyleCSS maps inline styles to the CSS they render with.
var StyleCSS = map[document.Style]string{
	document.Bold:      "font-weight:bold",
	document.Italic:    "font-style:italic",
	document.Highlight: "background-color:#ffff007f",
	document.Red:       "color:red",
	document.Blue:      "color:royalblue",
	document.Size1x5:   "font-size:1.5em",
	document.Size2x:    "font-size:2em",
	document.Size3x:    "font-size:3em",
	document.Size4x:    "font-size:4em",
}

// Document returns a templ.Component that renders doc as HTML. Image
// blocks render as read-only images.
func Document(doc *document.Document) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderDocument(&buf, doc)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// RenderDocument writes the HTML form of doc to buf.
func RenderDocument(buf *bytes.Buffer, doc *document.Document) {
	buf.WriteString(`<div class="article-body" style="white-space:pre-wrap">`)
	var openList string
	closeList := func() {
		if openList != "" {
			buf.WriteString("</" + openList + ">")
			openList = ""
		}
	}
	for _, b := range doc.Blocks() {
		tag := ""
		switch b.Type {
		case document.UnorderedList:
			tag = "ul"
		case document.OrderedList:
			tag = "ol"
		}
		if tag != openList {
			closeList()
			if tag != "" {
				buf.WriteString("<" + tag + ">")
				openList = tag
			}
		}
		switch b.Type {
		case document.Atomic:
			renderAtomic(buf, doc, b)
		case document.UnorderedList, document.OrderedList:
			buf.WriteString("<li>")
			renderRuns(buf, b.Runs)
			buf.WriteString("</li>")
		default:
			buf.WriteString("<p>")
			if len(b.Runs) == 0 {
				buf.WriteString("<br>")
			}
			renderRuns(buf, b.Runs)
			buf.WriteString("</p>")
		}
	}
	closeList()
	buf.WriteString("</div>")
}

func renderAtomic(buf *bytes.Buffer, doc *document.Document, b document.Block) {
	e, ok := doc.Entity(b.Entity)
	if !ok || e.Type != document.EntityImage {
		return
	}
	src := safeSrc(e.Src())
	if src == "" {
		return
	}
	buf.WriteString(`<figure><img src="` + html.EscapeString(src) + `" alt="" loading="lazy" style="max-height:20em"></figure>`)
}

func renderRuns(buf *bytes.Buffer, runs []document.Run) {
	for _, r := range runs {
		text := html.EscapeString(r.Text)
		css := RunCSS(r.Styles)
		if css == "" {
			buf.WriteString(text)
			continue
		}
		buf.WriteString(`<span style="` + css + `">` + text + `</span>`)
	}
}

// RunCSS returns the inline CSS for a style set.
func RunCSS(ss document.StyleSet) string {
	var decls, decorations []string
	for _, s := range ss.Styles() {
		if css, ok := StyleCSS[s]; ok {
			decls = append(decls, css)
		}
	}
	if ss.Has(document.Underline) {
		decorations = append(decorations, "underline")
	}
	if ss.Has(document.Strikethrough) {
		decorations = append(decorations, "line-through")
	}
	if len(decorations) > 0 {
		decls = append(decls, "text-decoration:"+strings.Join(decorations, " "))
	}
	return strings.Join(decls, ";")
}

// safeSrc allows http(s) URLs and same-origin paths.
func safeSrc(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
		return u.String()
	case u.Scheme == "" && u.Host == "" && strings.HasPrefix(u.Path, "/"):
		return u.String()
	}
	return ""
}
