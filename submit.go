package pubdraft

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eringen/pubdraft/client"
	"github.com/eringen/pubdraft/document"
	"github.com/eringen/pubdraft/editor"
	"github.com/eringen/pubdraft/markdown"
	"github.com/eringen/pubdraft/session"
)

const summaryLen = 160

// articleService validates and stores submitted articles. It is the
// submission collaborator of every editor session.
type articleService struct {
	store *Store
	cache *ArticleCache
	now   func() time.Time
}

func invalid(code string) error {
	return &client.APIError{Status: http.StatusBadRequest, Code: code}
}

// Submit re-validates a draft and stores it for review.
func (s *articleService) Submit(ctx context.Context, owner, title, content string) (client.Submission, error) {
	switch n := utf8.RuneCountInString(title); {
	case strings.TrimSpace(title) == "":
		return client.Submission{}, invalid(CodeEmptyTitle)
	case n > editor.MaxTitleLen:
		return client.Submission{}, invalid(CodeTitleTooLong)
	}
	doc, err := document.Unmarshal([]byte(content))
	if err != nil {
		return client.Submission{}, invalid(CodeInvalidContent)
	}
	switch n := doc.CharCount(); {
	case n == 0:
		return client.Submission{}, invalid(CodeEmptyContent)
	case n > editor.MaxChars:
		return client.Submission{}, invalid(CodeContentTooLong)
	}

	a := Article{
		ID:          uuid.NewString(),
		Owner:       owner,
		Title:       title,
		Content:     content,
		Summary:     markdown.Summary(doc, summaryLen),
		CharCount:   doc.CharCount(),
		Status:      StatusToBeReviewed,
		SubmittedAt: s.now(),
	}
	if err := s.store.SaveArticle(ctx, a); err != nil {
		return client.Submission{}, err
	}
	s.cache.Invalidate()
	return client.Submission{ID: a.ID, Status: a.Status}, nil
}

// submitterFor binds the service to one owner.
func (s *articleService) submitterFor(owner string) session.Submitter {
	return session.SubmitterFunc(func(ctx context.Context, title, content string) (client.Submission, error) {
		return s.Submit(ctx, owner, title, content)
	})
}

type submitRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (a *App) handleArticleSubmit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, CodeBadRequest)
	}
	sub, err := a.articles.Submit(c.Request().Context(), ownerID(c), req.Title, req.Content)
	if err != nil {
		return a.submitError(c, err)
	}
	return respond(c, sub)
}

func (a *App) submitError(c echo.Context, err error) error {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		return fail(c, apiErr.Status, apiErr.Code)
	case errors.Is(err, session.ErrNotReady):
		return fail(c, http.StatusBadRequest, CodeNotReady)
	}
	a.log.Error().Err(err).Str("owner", ownerID(c)).Msg("submit article")
	return fail(c, http.StatusInternalServerError, CodeSubmitFailed)
}
