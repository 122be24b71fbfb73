package frontend

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// requireSession redirects anonymous visitors to the login page
func (service *FrontendService) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !service.loadSession(ctx) {
			return ctx.Redirect(http.StatusFound, "/")
		}
		return next(ctx)
	}
}

// optionalSession exposes the username to public pages without enforcing a login
func (service *FrontendService) optionalSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		service.loadSession(ctx)
		return next(ctx)
	}
}

func (service *FrontendService) loadSession(ctx echo.Context) bool {
	id := service.sessionID(ctx)
	if id == "" {
		return false
	}
	s, err := service.coreService.Session(ctx.Request().Context(), id)
	if err != nil {
		slog.Error("loadSession: failed to read session", "error", err)
		return false
	}
	if s == nil {
		return false
	}
	ctx.Set(usernameKey, s.Username)
	return true
}

func (service *FrontendService) sessionID(ctx echo.Context) string {
	cookie, err := ctx.Cookie(service.config.Session.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (service *FrontendService) username(ctx echo.Context) string {
	username, _ := ctx.Get(usernameKey).(string)
	return username
}

func (service *FrontendService) newCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     service.config.Session.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   service.config.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
