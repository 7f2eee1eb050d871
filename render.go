package pubdraft

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/pubdraft/document"
	"github.com/eringen/pubdraft/views"
)

// ViewFuncs holds the templ components the server renders pages with.
// DefaultViews provides the built-in ones; any field may be replaced.
type ViewFuncs struct {
	Article     func(site views.SiteConfig, a views.Article, doc *document.Document) templ.Component
	Preview     func(title string, doc *document.Document) templ.Component
	NotFound    func(site views.SiteConfig) templ.Component
	ServerError func(site views.SiteConfig) templ.Component
}

// DefaultViews returns the built-in page components.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Article:     views.ArticlePage,
		Preview:     views.Preview,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

// WithViews replaces the page components.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}

func (a *App) site() views.SiteConfig {
	return views.SiteConfig{Name: a.Config.Name, URL: a.Config.URL, Description: a.Config.Description}
}

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}
