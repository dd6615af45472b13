package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireLogin redirects anonymous requests to the login page, remembering
// the path they wanted so a successful login can return them there.
func RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s := SessionFrom(c)
			if s == nil || s.UserID() == 0 {
				if s != nil {
					s.SetReturnTo(c.Request().RequestURI)
					s.AddFlash("error", "You must be logged in to do that.")
				}
				return c.Redirect(http.StatusSeeOther, "/login")
			}
			return next(c)
		}
	}
}
