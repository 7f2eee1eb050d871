package pubdraft

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pubdraft/document"
	"github.com/eringen/pubdraft/editor"
	"github.com/eringen/pubdraft/session"
	"github.com/eringen/pubdraft/settings"
	"github.com/eringen/pubdraft/status"
	"github.com/eringen/pubdraft/upload"
)

// editorResponse is what every editor endpoint returns.
type editorResponse struct {
	State  editor.State   `json:"state"`
	Status status.Message `json:"status"`
}

// environment reads what the client reports about itself from request
// headers.
func environment(c echo.Context) settings.Environment {
	h := c.Request().Header
	return settings.Environment{
		AcceptLanguage: h.Get("Accept-Language"),
		PrefersDark:    h.Get("Sec-CH-Prefers-Color-Scheme") == "dark",
	}
}

func (a *App) editorSession(c echo.Context) (*session.Session, error) {
	return a.Sessions.Get(c.Request().Context(), ownerID(c), environment(c))
}

// withSession runs fn on the caller's session and answers with the
// resulting editor state.
func (a *App) withSession(c echo.Context, fn func(*session.Session) error) error {
	s, err := a.editorSession(c)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return editError(c, err)
	}
	return respond(c, editorResponse{State: s.Editor.Snapshot(), Status: s.Board.Current()})
}

var errBadRequest = errors.New("bad request")

func editError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, document.ErrInvalidSelection),
		errors.Is(err, document.ErrInvalidBlockType):
		return fail(c, http.StatusBadRequest, CodeBadRequest)
	case errors.Is(err, upload.ErrNotImage), errors.Is(err, upload.ErrTooLarge):
		return uploadError(c, err)
	case errors.Is(err, upload.ErrClosed):
		return fail(c, http.StatusServiceUnavailable, CodeServerError)
	}
	return err
}

func (a *App) handleEditorState(c echo.Context) error {
	return a.withSession(c, func(*session.Session) error { return nil })
}

func (a *App) handleEditorPreview(c echo.Context) error {
	s, err := a.editorSession(c)
	if err != nil {
		return err
	}
	title, doc := s.Editor.Draft()
	return Render(c, a.Views.Preview(title, doc))
}

func (a *App) handleEditorTitle(c echo.Context) error {
	var req struct {
		Title string `json:"title"`
	}
	return a.withSession(c, func(s *session.Session) error {
		if err := c.Bind(&req); err != nil {
			return errBadRequest
		}
		s.Editor.SetTitle(req.Title)
		return nil
	})
}

func (a *App) handleEditorSelection(c echo.Context) error {
	var sel document.Selection
	return a.withSession(c, func(s *session.Session) error {
		if err := c.Bind(&sel); err != nil {
			return errBadRequest
		}
		return s.Editor.SetSelection(sel)
	})
}

func (a *App) handleEditorText(c echo.Context) error {
	var req struct {
		Text string `json:"text"`
	}
	return a.withSession(c, func(s *session.Session) error {
		if err := c.Bind(&req); err != nil {
			return errBadRequest
		}
		return s.Editor.InsertText(req.Text)
	})
}

func (a *App) handleEditorKey(c echo.Context) error {
	var k editor.KeyEvent
	return a.withSession(c, func(s *session.Session) error {
		if err := c.Bind(&k); err != nil {
			return errBadRequest
		}
		_, _, err := s.HandleKey(c.Request().Context(), k)
		return err
	})
}

func (a *App) handleEditorCommand(c echo.Context) error {
	var req struct {
		Command string `json:"command"`
	}
	return a.withSession(c, func(s *session.Session) error {
		if err := c.Bind(&req); err != nil {
			return errBadRequest
		}
		known, err := s.Editor.HandleKeyCommand(req.Command)
		if err != nil {
			return err
		}
		if !known {
			return errBadRequest
		}
		return nil
	})
}

func (a *App) handleEditorStyle(c echo.Context) error {
	var req struct {
		Style string `json:"style"`
	}
	return a.withSession(c, func(s *session.Session) error {
		if err := c.Bind(&req); err != nil {
			return errBadRequest
		}
		style, ok := document.ParseStyle(req.Style)
		if !ok {
			return errBadRequest
		}
		_, err := s.Editor.ToggleInlineStyle(style)
		return err
	})
}

func (a *App) handleEditorBlock(c echo.Context) error {
	var req struct {
		Type string `json:"type"`
	}
	return a.withSession(c, func(s *session.Session) error {
		if err := c.Bind(&req); err != nil {
			return errBadRequest
		}
		_, err := s.Editor.ToggleBlockType(document.BlockType(req.Type))
		return err
	})
}

func (a *App) handleEditorSave(c echo.Context) error {
	return a.withSession(c, func(s *session.Session) error {
		s.Save(c.Request().Context())
		return nil
	})
}

func (a *App) handleEditorImage(c echo.Context) error {
	if !a.limiter.Allow(c.RealIP()) {
		return a.rateLimited(c)
	}
	return a.withSession(c, func(s *session.Session) error {
		form, err := c.MultipartForm()
		if err != nil || len(form.File["file"]) == 0 {
			return errBadRequest
		}
		files := form.File["file"]
		if c.FormValue("origin") == string(upload.Paste) {
			return acceptPaste(c.Request().Context(), s, files)
		}

		file := files[0]
		cand := candidate(file, upload.FileSelection)
		if err := s.Uploads.Validate(cand); err != nil {
			// Accept reports the rejection on the status board.
			return s.Uploads.Accept(c.Request().Context(), cand)
		}
		if cand.Data, err = readFormFile(file); err != nil {
			return err
		}
		return s.Uploads.Accept(c.Request().Context(), cand)
	})
}

func candidate(fh *multipart.FileHeader, origin upload.Origin) upload.Candidate {
	return upload.Candidate{
		Name:   fh.Filename,
		Type:   fh.Header.Get(echo.HeaderContentType),
		Size:   fh.Size,
		Origin: origin,
	}
}

// acceptPaste embeds the first image among the pasted clipboard items.
// Without one, the first item is offered so the rejection is reported.
func acceptPaste(ctx context.Context, s *session.Session, files []*multipart.FileHeader) error {
	items := make([]upload.Candidate, 0, len(files))
	for _, fh := range files {
		cand := candidate(fh, upload.Paste)
		if strings.HasPrefix(cand.Type, "image/") {
			data, err := readFormFile(fh)
			if err != nil {
				return err
			}
			cand.Data = data
		}
		items = append(items, cand)
	}
	if img, ok := upload.FirstImage(items); ok {
		return s.Uploads.Accept(ctx, img)
	}
	return s.Uploads.Accept(ctx, items[0])
}

func (a *App) handleEditorSubmit(c echo.Context) error {
	s, err := a.editorSession(c)
	if err != nil {
		return err
	}
	sub, err := s.Submit(c.Request().Context())
	if err != nil {
		return a.submitError(c, err)
	}
	return respond(c, sub)
}

type settingsResponse struct {
	Preferences settings.Preferences      `json:"preferences"`
	Effective   settings.Effective        `json:"effective"`
	ThemeColors []string                  `json:"themeColors"`
	Languages   []settings.LanguageOption `json:"languages"`
}

func (a *App) handleGetSettings(c echo.Context) error {
	s, err := a.editorSession(c)
	if err != nil {
		return err
	}
	s.Settings.SetEnvironment(environment(c))
	return respond(c, settingsResponse{
		Preferences: s.Settings.Preferences(),
		Effective:   s.Settings.Effective(),
		ThemeColors: settings.ThemeColors,
		Languages:   settings.Languages,
	})
}

func (a *App) handlePutSettings(c echo.Context) error {
	s, err := a.editorSession(c)
	if err != nil {
		return err
	}
	var p settings.Preferences
	if err := c.Bind(&p); err != nil {
		return fail(c, http.StatusBadRequest, CodeBadRequest)
	}
	if err := s.Settings.Apply(c.Request().Context(), p); err != nil {
		if errors.Is(err, settings.ErrInvalid) {
			return fail(c, http.StatusBadRequest, CodeBadRequest)
		}
		return err
	}
	return respond(c, settingsResponse{
		Preferences: s.Settings.Preferences(),
		Effective:   s.Settings.Effective(),
		ThemeColors: settings.ThemeColors,
		Languages:   settings.Languages,
	})
}
