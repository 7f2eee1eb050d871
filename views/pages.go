package views

import (
	"bytes"
	"context"
	"html"
	"io"

	"github.com/a-h/templ"

	"github.com/eringen/pubdraft/document"
)

func page(site SiteConfig, meta PageMeta, head string, body func(*bytes.Buffer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		title := site.Name
		if meta.Title != "" {
			title = meta.Title + " | " + site.Name
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}
		buf.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		buf.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		buf.WriteString(`<title>` + html.EscapeString(title) + `</title>`)
		if meta.Description != "" {
			buf.WriteString(`<meta name="description" content="` + html.EscapeString(meta.Description) + `">`)
			buf.WriteString(`<meta property="og:description" content="` + html.EscapeString(meta.Description) + `">`)
		}
		buf.WriteString(`<meta property="og:title" content="` + html.EscapeString(title) + `">`)
		buf.WriteString(`<meta property="og:type" content="` + html.EscapeString(ogType) + `">`)
		if meta.URL != "" {
			buf.WriteString(`<link rel="canonical" href="` + html.EscapeString(meta.URL) + `">`)
			buf.WriteString(`<meta property="og:url" content="` + html.EscapeString(meta.URL) + `">`)
		}
		buf.WriteString(`<link rel="alternate" type="application/rss+xml" title="` + html.EscapeString(site.Name) + `" href="/feed.xml">`)
		buf.WriteString(head)
		buf.WriteString(`</head><body><main>`)
		if err := body(&buf); err != nil {
			return err
		}
		buf.WriteString(`</main></body></html>`)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// ArticlePage renders a submitted article.
func ArticlePage(site SiteConfig, a Article, doc *document.Document) templ.Component {
	meta := PageMeta{
		Title:       a.Title,
		Description: a.Summary,
		URL:         ArticleURL(site, a.ID),
		OGType:      "article",
	}
	head := `<script type="application/ld+json">` + ArticleJSONLD(site, a) + `</script>`
	return page(site, meta, head, func(buf *bytes.Buffer) error {
		buf.WriteString(`<article><h1>` + html.EscapeString(a.Title) + `</h1>`)
		buf.WriteString(`<p class="article-meta"><time datetime="` + html.EscapeString(a.SubmittedAt) + `">` +
			html.EscapeString(a.SubmittedAt) + `</time>`)
		if a.Status != "" {
			buf.WriteString(` <span class="article-status">` + html.EscapeString(a.Status) + `</span>`)
		}
		buf.WriteString(`</p>`)
		RenderDocument(buf, doc)
		buf.WriteString(`</article>`)
		return nil
	})
}

// Preview renders the current draft the way its article page will look,
// without the page shell.
func Preview(title string, doc *document.Document) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		buf.WriteString(`<article class="preview"><h1>` + html.EscapeString(title) + `</h1>`)
		RenderDocument(&buf, doc)
		buf.WriteString(`</article>`)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// NotFound is the 404 page.
func NotFound(site SiteConfig) templ.Component {
	return errorPage(site, "Not found", "The page you are looking for does not exist.")
}

// ServerError is the 500 page.
func ServerError(site SiteConfig) templ.Component {
	return errorPage(site, "Something went wrong", "Please try again later.")
}

func errorPage(site SiteConfig, heading, text string) templ.Component {
	return page(site, PageMeta{Title: heading}, "", func(buf *bytes.Buffer) error {
		buf.WriteString(`<h1>` + html.EscapeString(heading) + `</h1><p>` + html.EscapeString(text) + `</p>`)
		buf.WriteString(`<p><a href="/">` + html.EscapeString(site.Name) + `</a></p>`)
		return nil
	})
}
