package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/yelp-camp/internal/repository"
	"github.com/iliyamo/yelp-camp/internal/session"
	"github.com/iliyamo/yelp-camp/internal/utils"
)

const (
	sessionCookie = "session"

	// Context keys set by LoadSession.
	ctxSession = "sess"
	ctxUser    = "currentUser"
)

// UserLookup resolves the session's user id to a full record once per
// request.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (repository.User, error)
}

// LoadSession restores the server-side session named by the signed cookie,
// creating a fresh one when the cookie is absent, tampered with or
// expired. The session and the resolved current user are exposed on the
// request context; a session mutated by the handler is persisted after it
// returns.
func LoadSession(store *session.Store, secret string, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			var s *session.Session
			if ck, err := c.Cookie(sessionCookie); err == nil {
				if sid, terr := utils.ParseSessionToken(secret, ck.Value); terr == nil {
					if got, gerr := store.Get(ctx, sid); gerr == nil {
						s = got
					}
				}
			}
			if s == nil {
				created, err := issueSession(c, store, secret)
				if err != nil {
					return err
				}
				s = created
			}
			c.Set(ctxSession, s)

			if uid := s.UserID(); uid != 0 {
				u, err := users.GetByID(ctx, uid)
				switch {
				case err == nil:
					c.Set(ctxUser, u)
				case err == repository.ErrNotFound:
					// The account vanished; treat the session as anonymous.
					s.ClearUser()
				}
			}

			err := next(c)

			// Re-read from the context: the handler may have rotated the
			// session, and the replacement is the one to persist.
			if cur := SessionFrom(c); cur != nil && cur.Dirty() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if serr := store.Save(sctx, cur); serr != nil {
					c.Logger().Errorf("session save failed: %v", serr)
				}
			}
			return err
		}
	}
}

// RotateSession discards the request's current session and replaces it
// with a fresh id, issuing a new cookie. Called on privilege changes
// (login, registration) so a session id fixed before authentication never
// becomes an authenticated one.
func RotateSession(c echo.Context, store *session.Store, secret string) (*session.Session, error) {
	old := SessionFrom(c)
	fresh, err := issueSession(c, store, secret)
	if err != nil {
		return nil, err
	}
	if old != nil && old.ID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if derr := store.Delete(ctx, old.ID); derr != nil {
			c.Logger().Errorf("session rotate: delete old failed: %v", derr)
		}
	}
	return fresh, nil
}

// issueSession creates a session, signs its id into the cookie and places
// it on the request context.
func issueSession(c echo.Context, store *session.Store, secret string) (*session.Session, error) {
	s, err := store.New()
	if err != nil {
		return nil, err
	}
	tok, err := utils.NewSessionToken(secret, s.ID, store.TTL())
	if err != nil {
		return nil, err
	}
	c.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    tok,
		Path:     "/",
		Expires:  time.Now().Add(store.TTL()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.Set(ctxSession, s)
	return s, nil
}

// SessionFrom returns the request's session, or nil outside LoadSession.
func SessionFrom(c echo.Context) *session.Session {
	s, _ := c.Get(ctxSession).(*session.Session)
	return s
}

// CurrentUser returns the authenticated user for this request, if any.
func CurrentUser(c echo.Context) (repository.User, bool) {
	u, ok := c.Get(ctxUser).(repository.User)
	return u, ok
}
