package pubdraft

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubdraft/views"
)

const (
	atomNS    = "http://www.w3.org/2005/Atom"
	sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"
)

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	AtomNS  string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Self          atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type rssGUID struct {
	Value     string `xml:",chardata"`
	PermaLink bool   `xml:"isPermaLink,attr"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	Category    string  `xml:"category,omitempty"`
	PubDate     string  `xml:"pubDate"`
	GUID        rssGUID `xml:"guid"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
}

// writeXML encodes v as an XML document with the given content type.
func writeXML(c echo.Context, contentType string, v any) error {
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	enc := xml.NewEncoder(c.Response())
	enc.Indent("", "  ")
	return enc.Encode(v)
}

// feedURL is the absolute URL of the RSS feed.
func feedURL(site views.SiteConfig) string {
	return views.SiteURL(site, "feed.xml")
}

// buildFeed turns recent articles into an RSS 2.0 channel, newest first.
func buildFeed(site views.SiteConfig, articles []Article) rssFeed {
	ch := rssChannel{
		Title:       site.Name,
		Link:        views.SiteURL(site),
		Description: site.Description,
		Self:        atomLink{Href: feedURL(site), Rel: "self", Type: "application/rss+xml"},
		Items:       make([]rssItem, 0, len(articles)),
	}
	if len(articles) > 0 {
		ch.LastBuildDate = articles[0].SubmittedAt.Format(time.RFC1123Z)
	}
	for _, art := range articles {
		ch.Items = append(ch.Items, rssItem{
			Title:       art.Title,
			Link:        views.ArticleURL(site, art.ID),
			Description: art.Summary,
			Category:    art.Status,
			PubDate:     art.SubmittedAt.Format(time.RFC1123Z),
			GUID:        rssGUID{Value: art.ID},
		})
	}
	return rssFeed{Version: "2.0", AtomNS: atomNS, Channel: ch}
}

func (a *App) handleFeed(c echo.Context) error {
	articles, err := a.Cache.Recent(c.Request().Context())
	if err != nil {
		return err
	}
	return writeXML(c, "application/rss+xml; charset=utf-8", buildFeed(a.site(), articles))
}

func (a *App) handleSitemap(c echo.Context) error {
	articles, err := a.Cache.Recent(c.Request().Context())
	if err != nil {
		return err
	}
	site := a.site()
	set := urlSet{XMLNS: sitemapNS, URLs: make([]sitemapURL, 0, len(articles)+1)}
	set.URLs = append(set.URLs, sitemapURL{Loc: feedURL(site), ChangeFreq: "hourly"})
	for _, art := range articles {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        views.ArticleURL(site, art.ID),
			LastMod:    art.SubmittedAt.Format(time.DateOnly),
			ChangeFreq: "never",
		})
	}
	return writeXML(c, "application/xml; charset=utf-8", set)
}
