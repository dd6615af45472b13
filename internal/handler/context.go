// Package handler contains the HTTP handlers for the listings, reviews
// and auth flows. Handlers accept narrow store interfaces so tests can
// substitute fakes for the MySQL repositories.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/yelp-camp/internal/middleware"
	"github.com/iliyamo/yelp-camp/internal/repository"
)

const dbTimeout = 5 * time.Second

// reqCtx bounds database work so a stalled connection cannot pin the
// request forever.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// viewData assembles the fields every template expects: the current user
// and the drained flash queues, merged with page-specific entries.
func viewData(c echo.Context, extra map[string]any) map[string]any {
	data := make(map[string]any, len(extra)+3)
	if u, ok := middleware.CurrentUser(c); ok {
		data["CurrentUser"] = &u
	}
	var success, errs []string
	if s := middleware.SessionFrom(c); s != nil {
		for _, f := range s.PopFlashes() {
			if f.Kind == "success" {
				success = append(success, f.Text)
			} else {
				errs = append(errs, f.Text)
			}
		}
	}
	data["Success"] = success
	data["Error"] = errs
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// flashRedirect queues a one-time notice and redirects. This is the
// recovery path for every foreseeable user error.
func flashRedirect(c echo.Context, kind, text, target string) error {
	if s := middleware.SessionFrom(c); s != nil {
		s.AddFlash(kind, text)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// currentUser returns the authenticated user. Routes calling this are
// behind RequireLogin, so absence means the pipeline is miswired.
func currentUser(c echo.Context) (repository.User, error) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return repository.User{}, echo.NewHTTPError(http.StatusUnauthorized, "You must be logged in to do that.")
	}
	return u, nil
}

func parseID(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}
