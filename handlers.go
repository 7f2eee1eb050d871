package pubdraft

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubdraft/document"
	"github.com/eringen/pubdraft/views"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

func (a *App) handleArticle(c echo.Context) error {
	art, err := a.Cache.GetArticle(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site()))
		}
		return err
	}
	doc, err := document.Unmarshal([]byte(art.Content))
	if err != nil {
		return err
	}
	return Render(c, a.Views.Article(a.site(), views.Article{
		ID:          art.ID,
		Title:       art.Title,
		Summary:     art.Summary,
		Status:      art.Status,
		SubmittedAt: art.SubmittedAt.Format(time.DateOnly),
	}, doc))
}

type articleList struct {
	Items    []Article `json:"items"`
	Total    int       `json:"total"`
	PageNum  int       `json:"pageNum"`
	PageSize int       `json:"pageSize"`
}

func (a *App) handleArticleList(c echo.Context) error {
	limit, offset, page := pageParams(c.QueryParam("pageNum"), c.QueryParam("pageSize"), defaultPageSize, maxPageSize)
	articles, total, err := a.Store.ListArticles(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}
	if articles == nil {
		articles = []Article{}
	}
	return respond(c, articleList{Items: articles, Total: total, PageNum: page, PageSize: limit})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}
	api := strings.HasPrefix(c.Request().URL.Path, "/api/")
	if code >= 500 {
		a.log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("server error")
	}
	switch {
	case api && code == http.StatusNotFound:
		_ = fail(c, code, CodeNotFound)
	case api && code == http.StatusRequestEntityTooLarge:
		_ = fail(c, code, CodeFileTooLarge)
	case api && code >= 500:
		_ = fail(c, code, CodeServerError)
	case api:
		_ = fail(c, code, CodeBadRequest)
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, a.Views.NotFound(a.site()))
	case code >= 500:
		_ = RenderStatus(c, code, a.Views.ServerError(a.site()))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
