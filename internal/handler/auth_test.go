package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/yelp-camp/internal/middleware"
	"github.com/iliyamo/yelp-camp/internal/repository"
	"github.com/iliyamo/yelp-camp/internal/session"
	"github.com/iliyamo/yelp-camp/internal/utils"
)

func newAuthHandler(users UserStore) *AuthHandler {
	return NewAuthHandler(users, session.NewMemoryStore(time.Hour), "test-secret", 4)
}

func TestRegister(t *testing.T) {
	e := newTestEcho(t)
	users := &fakeUserStore{createID: 7}
	h := newAuthHandler(users)

	c, rec, _ := newFormContext(t, e, "/register", url.Values{
		"email":    {"camper@example.com"},
		"username": {"camper"},
		"password": {"hunter2"},
	})
	if err := h.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	assertRedirect(t, rec, "/campgrounds")

	cur := middleware.SessionFrom(c)
	if cur == nil || cur.UserID() != 7 {
		t.Fatalf("session user = %v, want auto-login as 7", cur)
	}
	assertFlash(t, cur, "success", "Welcome to Yelp Camp!")
	if users.gotCost != 4 {
		t.Errorf("bcrypt cost = %d, want 4", users.gotCost)
	}
	if ck := rec.Header().Get("Set-Cookie"); !strings.Contains(ck, "session=") {
		t.Errorf("no session cookie issued: %q", ck)
	}
}

func TestRegisterValidationFailure(t *testing.T) {
	e := newTestEcho(t)
	h := newAuthHandler(&fakeUserStore{})

	c, rec, s := newFormContext(t, e, "/register", url.Values{
		"email": {"camper@example.com"},
	})
	if err := h.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	assertRedirect(t, rec, "/register")
	if s.UserID() != 0 {
		t.Error("invalid registration logged a user in")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	tests := []struct {
		name      string
		createErr error
		wantFlash string
	}{
		{"email taken", repository.ErrEmailExists, "A user with that email already exists."},
		{"username taken", repository.ErrUsernameExists, "A user with that username already exists."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho(t)
			h := newAuthHandler(&fakeUserStore{createErr: tt.createErr})

			c, rec, s := newFormContext(t, e, "/register", url.Values{
				"email":    {"camper@example.com"},
				"username": {"camper"},
				"password": {"hunter2"},
			})
			if err := h.Register(c); err != nil {
				t.Fatalf("Register: %v", err)
			}
			assertRedirect(t, rec, "/register")
			assertFlash(t, s, "error", tt.wantFlash)
		})
	}
}

func testUser(t *testing.T, id uint64, username, password string) repository.User {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return repository.User{ID: id, Username: username, Email: username + "@example.com", PasswordHash: hash}
}

func TestLogin(t *testing.T) {
	e := newTestEcho(t)
	u := testUser(t, 7, "camper", "hunter2")
	h := newAuthHandler(&fakeUserStore{byName: map[string]repository.User{"camper": u}})

	c, rec, _ := newFormContext(t, e, "/login", url.Values{
		"username": {"camper"},
		"password": {"hunter2"},
	})
	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	assertRedirect(t, rec, "/campgrounds")

	cur := middleware.SessionFrom(c)
	if cur == nil || cur.UserID() != 7 {
		t.Fatalf("session user = %v, want 7", cur)
	}
	assertFlash(t, cur, "success", "Welcome back!")
}

func TestLoginRotatesSessionID(t *testing.T) {
	e := newTestEcho(t)
	u := testUser(t, 7, "camper", "hunter2")
	store := session.NewMemoryStore(time.Hour)
	h := NewAuthHandler(&fakeUserStore{byName: map[string]repository.User{"camper": u}}, store, "test-secret", 4)

	// A session id handed out before authentication must not survive it.
	old, err := store.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := store.Save(context.Background(), old); err != nil {
		t.Fatalf("Save: %v", err)
	}

	c, rec, _ := newFormContext(t, e, "/login", url.Values{
		"username": {"camper"},
		"password": {"hunter2"},
	})
	middleware.SetSessionForTest(c, old)
	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	assertRedirect(t, rec, "/campgrounds")

	cur := middleware.SessionFrom(c)
	if cur == nil || cur.ID == old.ID {
		t.Fatal("login kept the pre-auth session id")
	}
	if cur.UserID() != 7 {
		t.Errorf("rotated session user = %d, want 7", cur.UserID())
	}
	if _, err := store.Get(context.Background(), old.ID); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("old session still stored: %v", err)
	}
	if ck := rec.Header().Get("Set-Cookie"); !strings.Contains(ck, "session=") {
		t.Errorf("no replacement cookie issued: %q", ck)
	}
}

func TestLoginReturnsToInterruptedPath(t *testing.T) {
	e := newTestEcho(t)
	u := testUser(t, 7, "camper", "hunter2")
	h := newAuthHandler(&fakeUserStore{byName: map[string]repository.User{"camper": u}})

	c, rec, s := newFormContext(t, e, "/login", url.Values{
		"username": {"camper"},
		"password": {"hunter2"},
	})
	s.SetReturnTo("/campgrounds/3/edit")
	if err := h.Login(c); err != nil {
		t.Fatalf("Login: %v", err)
	}
	assertRedirect(t, rec, "/campgrounds/3/edit")
}

func TestLoginBadCredentials(t *testing.T) {
	e := newTestEcho(t)
	u := testUser(t, 7, "camper", "hunter2")
	users := &fakeUserStore{byName: map[string]repository.User{"camper": u}}
	h := newAuthHandler(users)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"unknown user", "stranger", "hunter2"},
		{"wrong password", "camper", "hunter3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec, s := newFormContext(t, e, "/login", url.Values{
				"username": {tt.username},
				"password": {tt.password},
			})
			if err := h.Login(c); err != nil {
				t.Fatalf("Login: %v", err)
			}
			assertRedirect(t, rec, "/login")
			if s.UserID() != 0 {
				t.Error("bad credentials logged a user in")
			}
			assertFlash(t, s, "error", "Invalid username or password.")
		})
	}
}

func TestLogout(t *testing.T) {
	e := newTestEcho(t)
	h := newAuthHandler(&fakeUserStore{})

	c, rec, s := newGetContext(t, e, "/logout")
	s.SetUserID(7)
	if err := h.Logout(c); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	assertRedirect(t, rec, "/campgrounds")
	if s.UserID() != 0 {
		t.Error("logout kept the user logged in")
	}
	assertFlash(t, s, "success", "Goodbye!")
}

func TestLoginFormRenders(t *testing.T) {
	e := newTestEcho(t)
	h := newAuthHandler(&fakeUserStore{})

	c, rec, _ := newGetContext(t, e, "/login")
	if err := h.LoginForm(c); err != nil {
		t.Fatalf("LoginForm: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
