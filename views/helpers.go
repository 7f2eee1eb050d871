package views

import (
	"encoding/json"
	"net/url"
	"strings"
)

// SiteURL returns the absolute URL of a page on the site. Pages end in a
// slash; files such as "feed.xml" do not.
func SiteURL(site SiteConfig, segments ...string) string {
	u := strings.TrimRight(site.URL, "/") + "/"
	if len(segments) == 0 {
		return u
	}
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u += strings.Join(escaped, "/")
	if !strings.Contains(escaped[len(escaped)-1], ".") {
		u += "/"
	}
	return u
}

// ArticleURL returns the canonical URL of an article.
func ArticleURL(site SiteConfig, id string) string {
	return SiteURL(site, "article", id)
}

type jsonLDRef struct {
	Type string `json:"@type"`
	ID   string `json:"@id,omitempty"`
	Name string `json:"name,omitempty"`
}

type articleJSONLD struct {
	Context          string    `json:"@context"`
	Type             string    `json:"@type"`
	Headline         string    `json:"headline"`
	Description      string    `json:"description,omitempty"`
	DateCreated      string    `json:"dateCreated,omitempty"`
	Status           string    `json:"creativeWorkStatus,omitempty"`
	URL              string    `json:"url"`
	Publisher        jsonLDRef `json:"publisher"`
	MainEntityOfPage jsonLDRef `json:"mainEntityOfPage"`
}

// ArticleJSONLD returns the Schema.org Article description of a, safe to
// embed in a script element.
func ArticleJSONLD(site SiteConfig, a Article) string {
	u := ArticleURL(site, a.ID)
	b, err := json.Marshal(articleJSONLD{
		Context:          "https://schema.org",
		Type:             "Article",
		Headline:         a.Title,
		Description:      a.Summary,
		DateCreated:      a.SubmittedAt,
		Status:           a.Status,
		URL:              u,
		Publisher:        jsonLDRef{Type: "Organization", Name: site.Name},
		MainEntityOfPage: jsonLDRef{Type: "WebPage", ID: u},
	})
	if err != nil {
		return "{}"
	}
	return string(b)
}
