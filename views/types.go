package views

// SiteConfig holds site-wide settings passed to every page.
type SiteConfig struct {
	Name        string // Site name (default "pubdraft")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for the feed and meta tags
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}

// Article is what the article page needs.
type Article struct {
	ID          string
	Title       string
	Summary     string
	Status      string
	SubmittedAt string
}
