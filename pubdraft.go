// Package pubdraft is the HTTP service around the article draft editor. It
// hosts one editing session per client, exposes the editor as a JSON API
// with a websocket event stream, and plays the file storage and article
// submission collaborators. Submitted articles are rendered as pages and
// listed in an RSS feed.
package pubdraft

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/eringen/pubdraft/session"
	"github.com/eringen/pubdraft/settings"
)

// App is the central pubdraft application. It wires together the store,
// cache, editor sessions, handlers and middleware.
type App struct {
	Config   Config
	Echo     *echo.Echo
	Store    *Store
	Cache    *ArticleCache
	Sessions *Registry
	Views    ViewFuncs

	log          zerolog.Logger
	limiter      *RateLimiter
	images       *imageService
	articles     *articleService
	upgrader     websocket.Upgrader
	customRoutes []func(*App)
	staticDir    string
	stopSweeper  context.CancelFunc
}

// New creates a new pubdraft App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config:    cfg,
		Echo:      e,
		Views:     DefaultViews(),
		log:       zerolog.Nop(),
		staticDir: "public",
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store and registers middleware and routes without
// listening. Start calls it; tests call it directly.
func (a *App) Init() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("pubdraft: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("pubdraft: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewArticleCache(store, a.Config.ArticleCacheTTL)
	a.limiter = NewRateLimiter(a.Config.UploadsPerMinute, time.Minute)
	a.images = &imageService{dir: a.Config.UploadDir, store: store}
	a.articles = &articleService{store: store, cache: a.Cache, now: time.Now}
	a.Sessions = NewRegistry(a.newSession, a.Config.IdleTimeout, a.log)

	ctx, cancel := context.WithCancel(context.Background())
	a.stopSweeper = cancel
	go a.Sessions.Run(ctx)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	a.log.Info().Str("addr", a.Config.Addr).Str("url", a.Config.URL).Msg("pubdraft listening")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then closes sessions and the store.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	return errors.Join(err, a.close(ctx))
}

// Close saves and closes every editor session and releases resources.
// Call this when the app is shutting down.
func (a *App) Close() error {
	return a.close(context.Background())
}

func (a *App) close(ctx context.Context) error {
	if a.stopSweeper != nil {
		a.stopSweeper()
	}
	if a.Sessions != nil {
		a.Sessions.Close(ctx)
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

func (a *App) newSession(owner string, env settings.Environment) *session.Session {
	opts := append(a.Config.sessionOptions(), session.WithLogger(a.log), session.WithEnvironment(env))
	return session.New(owner, a.Store.Namespace(owner), a.images, a.articles.submitterFor(owner), opts...)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	e.Static(uploadsURL, a.Config.UploadDir)

	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/article/:id/", a.handleArticle)

	api := e.Group("/api", ownerMiddleware, middleware.BodyLimit("32M"))
	api.POST("/uploadFile", a.handleUploadFile)
	api.POST("/article/submit", a.handleArticleSubmit)
	api.GET("/article/list", a.handleArticleList)
	api.GET("/settings", a.handleGetSettings)
	api.PUT("/settings", a.handlePutSettings)
	api.GET("/events", a.handleEvents)

	ed := api.Group("/editor")
	ed.GET("/state", a.handleEditorState)
	ed.GET("/preview", a.handleEditorPreview)
	ed.POST("/title", a.handleEditorTitle)
	ed.POST("/selection", a.handleEditorSelection)
	ed.POST("/text", a.handleEditorText)
	ed.POST("/key", a.handleEditorKey)
	ed.POST("/command", a.handleEditorCommand)
	ed.POST("/style", a.handleEditorStyle)
	ed.POST("/block", a.handleEditorBlock)
	ed.POST("/save", a.handleEditorSave)
	ed.POST("/image", a.handleEditorImage)
	ed.POST("/submit", a.handleEditorSubmit)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
