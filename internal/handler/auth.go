package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/yelp-camp/internal/middleware"
	"github.com/iliyamo/yelp-camp/internal/repository"
	"github.com/iliyamo/yelp-camp/internal/session"
	"github.com/iliyamo/yelp-camp/internal/validate"
)

// UserStore is the slice of the user repository the auth flows need.
type UserStore interface {
	Create(ctx context.Context, email, username, password string, cost int) (uint64, error)
	GetByUsername(ctx context.Context, username string) (repository.User, error)
}

// AuthHandler serves registration, login and logout. It holds the session
// store and cookie secret so it can rotate the session id whenever a
// request gains a user.
type AuthHandler struct {
	Users      UserStore
	Sessions   *session.Store
	Secret     string
	BcryptCost int
}

func NewAuthHandler(users UserStore, sessions *session.Store, secret string, bcryptCost int) *AuthHandler {
	return &AuthHandler{Users: users, Sessions: sessions, Secret: secret, BcryptCost: bcryptCost}
}

// RegisterForm renders the signup page.
func (h *AuthHandler) RegisterForm(c echo.Context) error {
	return c.Render(http.StatusOK, "register.html", viewData(c, nil))
}

// Register creates the account and logs the new user straight in.
func (h *AuthHandler) Register(c echo.Context) error {
	form := validate.RegisterForm{
		Email:    c.FormValue("email"),
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
	}
	if violations := form.Validate(); len(violations) > 0 {
		return flashRedirect(c, "error", strings.Join(violations, ", "), "/register")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Users.Create(ctx, form.Email, form.Username, form.Password, h.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return flashRedirect(c, "error", "A user with that email already exists.", "/register")
	case errors.Is(err, repository.ErrUsernameExists):
		return flashRedirect(c, "error", "A user with that username already exists.", "/register")
	case err != nil:
		return err
	}

	s, err := middleware.RotateSession(c, h.Sessions, h.Secret)
	if err != nil {
		return err
	}
	s.SetUserID(id)
	s.AddFlash("success", "Welcome to Yelp Camp!")
	return c.Redirect(http.StatusSeeOther, "/campgrounds")
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", viewData(c, nil))
}

// Login checks the credentials and restores any interrupted destination.
// Unknown usernames and wrong passwords get the same notice.
func (h *AuthHandler) Login(c echo.Context) error {
	username := strings.TrimSpace(c.FormValue("username"))
	password := c.FormValue("password")

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) || !u.CheckPassword(password) {
		return flashRedirect(c, "error", "Invalid username or password.", "/login")
	}

	// The saved destination lives in the pre-login session; read it out
	// before rotation discards that session.
	target := "/campgrounds"
	if old := middleware.SessionFrom(c); old != nil {
		if ret := old.PopReturnTo(); ret != "" {
			target = ret
		}
	}

	s, err := middleware.RotateSession(c, h.Sessions, h.Secret)
	if err != nil {
		return err
	}
	s.SetUserID(u.ID)
	s.AddFlash("success", "Welcome back!")
	return c.Redirect(http.StatusSeeOther, target)
}

// Logout forgets the user but keeps the session alive for the flash.
func (h *AuthHandler) Logout(c echo.Context) error {
	if s := middleware.SessionFrom(c); s != nil {
		s.ClearUser()
		s.AddFlash("success", "Goodbye!")
	}
	return c.Redirect(http.StatusSeeOther, "/campgrounds")
}
