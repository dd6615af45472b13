package middleware

// Helpers for handler tests. They attach state to the request context the
// same way LoadSession does, so handlers under test see a normal pipeline.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/yelp-camp/internal/repository"
	"github.com/iliyamo/yelp-camp/internal/session"
)

// SetSessionForTest attaches s as the request's session.
func SetSessionForTest(c echo.Context, s *session.Session) {
	c.Set(ctxSession, s)
}

// SetUserForTest attaches u as the request's authenticated user.
func SetUserForTest(c echo.Context, u repository.User) {
	c.Set(ctxUser, u)
}
