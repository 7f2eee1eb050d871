package pubdraft

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	sessionName = "pubdraft_session"
	ownerKey    = "owner"
)

// pathKind sorts request paths into the groups the middleware chain
// treats differently.
type pathKind int

const (
	pagePath pathKind = iota
	assetPath
	feedPath
	apiPath
	streamPath
)

func classifyPath(path string) pathKind {
	switch {
	case path == "/api/events":
		return streamPath
	case strings.HasPrefix(path, "/api/"):
		return apiPath
	case strings.HasPrefix(path, "/public/"), strings.HasPrefix(path, uploadsURL+"/"):
		return assetPath
	case path == "/feed.xml", path == "/sitemap.xml":
		return feedPath
	}
	return pagePath
}

var cacheControl = map[pathKind]string{
	pagePath:   "public, max-age=3600",
	assetPath:  "public, max-age=31536000, immutable",
	feedPath:   "public, max-age=600",
	apiPath:    "no-store",
	streamPath: "no-store",
}

const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; " +
	"img-src 'self' https: data:; connect-src 'self' ws: wss:"

func (a *App) setupMiddleware() {
	e := a.Echo
	e.HTTPErrorHandler = a.httpErrorHandler
	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustPrivateNet(true),
		echo.TrustLinkLocal(false),
	)

	e.Use(
		a.requestLogger(),
		middleware.Recover(),
		middleware.GzipWithConfig(middleware.GzipConfig{
			Level: 5,
			Skipper: func(c echo.Context) bool {
				k := classifyPath(c.Request().URL.Path)
				return k == assetPath || k == streamPath
			},
		}),
		middleware.SecureWithConfig(middleware.SecureConfig{
			ContentTypeNosniff:    "nosniff",
			XFrameOptions:         "DENY",
			XSSProtection:         "1; mode=block",
			ReferrerPolicy:        "strict-origin-when-cross-origin",
			ContentSecurityPolicy: contentSecurityPolicy,
			HSTSMaxAge:            365 * 24 * 60 * 60,
		}),
		session.Middleware(a.newSessionStore()),
		a.csrf(),
		middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
			RedirectCode: http.StatusMovedPermanently,
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return path == "/" || classifyPath(path) != pagePath
			},
		}),
		setCacheControl,
	)
}

func (a *App) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := a.log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = a.log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

// csrf guards form posts on HTML routes. The JSON API relies on the
// SameSite=Lax session cookie instead.
func (a *App) csrf() echo.MiddlewareFunc {
	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:X-CSRF-Token,form:_csrf",
		ContextKey:     middleware.DefaultCSRFConfig.ContextKey,
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieSecure:   a.Config.CookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
		Skipper: func(c echo.Context) bool {
			k := classifyPath(c.Request().URL.Path)
			return k == apiPath || k == streamPath
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return echo.NewHTTPError(http.StatusForbidden, "invalid csrf token")
		},
	})
}

func setCacheControl(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", cacheControl[classifyPath(c.Request().URL.Path)])
		return next(c)
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	cs := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		Secure:   a.Config.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return cs
}

// ownerMiddleware gives every API client a stable owner id kept in the
// session cookie. Drafts and preferences are stored under that id.
func ownerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := session.Get(sessionName, c)
		if err != nil {
			// An undecodable cookie still yields a fresh session.
			if sess == nil {
				return err
			}
		}
		owner, ok := sess.Values[ownerKey].(string)
		if !ok || owner == "" {
			owner = uuid.NewString()
			sess.Values[ownerKey] = owner
			if err := sess.Save(c.Request(), c.Response()); err != nil {
				return err
			}
		}
		c.Set(ownerKey, owner)
		return next(c)
	}
}

// ownerID returns the owner id set by ownerMiddleware.
func ownerID(c echo.Context) string {
	owner, _ := c.Get(ownerKey).(string)
	return owner
}
