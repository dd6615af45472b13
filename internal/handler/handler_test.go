package handler

// Shared fixtures for the handler tests: an Echo instance with the real
// renderer, an in-memory session attached the way the session middleware
// would, and hand-written fakes for the stores and external services.

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/yelp-camp/internal/geocode"
	"github.com/iliyamo/yelp-camp/internal/imagehost"
	"github.com/iliyamo/yelp-camp/internal/middleware"
	"github.com/iliyamo/yelp-camp/internal/queue"
	"github.com/iliyamo/yelp-camp/internal/repository"
	"github.com/iliyamo/yelp-camp/internal/session"
	"github.com/iliyamo/yelp-camp/internal/view"
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	r, err := view.New()
	if err != nil {
		t.Fatalf("view.New: %v", err)
	}
	e := echo.New()
	e.Renderer = r
	return e
}

// newFormContext builds a context for a urlencoded form POST with a fresh
// session attached. The session is returned for flash assertions.
func newFormContext(t *testing.T, e *echo.Echo, target string, form url.Values) (echo.Context, *httptest.ResponseRecorder, *session.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	s := &session.Session{}
	middleware.SetSessionForTest(c, s)
	return c, rec, s
}

func newGetContext(t *testing.T, e *echo.Echo, target string) (echo.Context, *httptest.ResponseRecorder, *session.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	s := &session.Session{}
	middleware.SetSessionForTest(c, s)
	return c, rec, s
}

func loginAs(c echo.Context, s *session.Session, u repository.User) {
	s.SetUserID(u.ID)
	middleware.SetUserForTest(c, u)
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, target string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303 (body: %s)", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != target {
		t.Errorf("Location = %q, want %q", loc, target)
	}
}

func assertFlash(t *testing.T, s *session.Session, kind, text string) {
	t.Helper()
	for _, f := range s.PopFlashes() {
		if f.Kind == kind && f.Text == text {
			return
		}
	}
	t.Errorf("flash %q/%q not found", kind, text)
}

// fakeUserStore backs the auth handler tests.
type fakeUserStore struct {
	createID  uint64
	createErr error
	byName    map[string]repository.User

	gotEmail    string
	gotUsername string
	gotPassword string
	gotCost     int
}

func (f *fakeUserStore) Create(_ context.Context, email, username, password string, cost int) (uint64, error) {
	f.gotEmail, f.gotUsername, f.gotPassword, f.gotCost = email, username, password, cost
	if f.createErr != nil {
		return 0, f.createErr
	}
	return f.createID, nil
}

func (f *fakeUserStore) GetByUsername(_ context.Context, username string) (repository.User, error) {
	u, ok := f.byName[username]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

// fakeCampgroundStore backs the campground handler tests.
type fakeCampgroundStore struct {
	byID      map[uint64]repository.Campground
	listErr   error
	createErr error
	updateErr error
	deleteErr error

	created       *repository.Campground
	updatedID     uint64
	updated       *repository.Campground
	newImages     []repository.Image
	removeNames   []string
	updateRemoved []string
	deletedID     uint64
	deleteNames   []string
}

func (f *fakeCampgroundStore) Create(_ context.Context, cg *repository.Campground) error {
	if f.createErr != nil {
		return f.createErr
	}
	cg.ID = 1
	f.created = cg
	return nil
}

func (f *fakeCampgroundStore) ListAll(_ context.Context) ([]repository.Campground, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]repository.Campground, 0, len(f.byID))
	for _, cg := range f.byID {
		out = append(out, cg)
	}
	return out, nil
}

func (f *fakeCampgroundStore) GetByID(_ context.Context, id uint64) (repository.Campground, error) {
	cg, ok := f.byID[id]
	if !ok {
		return repository.Campground{}, repository.ErrNotFound
	}
	return cg, nil
}

func (f *fakeCampgroundStore) GetDetail(ctx context.Context, id uint64) (repository.Campground, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeCampgroundStore) Update(_ context.Context, id uint64, cg *repository.Campground, newImages []repository.Image, removeFilenames []string) ([]string, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if _, ok := f.byID[id]; !ok {
		return nil, repository.ErrNotFound
	}
	f.updatedID, f.updated = id, cg
	f.newImages, f.removeNames = newImages, removeFilenames
	return f.updateRemoved, nil
}

func (f *fakeCampgroundStore) Delete(_ context.Context, id uint64) ([]string, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	if _, ok := f.byID[id]; !ok {
		return nil, repository.ErrNotFound
	}
	f.deletedID = id
	delete(f.byID, id)
	return f.deleteNames, nil
}

// fakeGeocoder returns a fixed point or error.
type fakeGeocoder struct {
	pt  geocode.Point
	err error

	gotQuery string
}

func (f *fakeGeocoder) Forward(_ context.Context, query string) (geocode.Point, error) {
	f.gotQuery = query
	if f.err != nil {
		return geocode.Point{}, f.err
	}
	return f.pt, nil
}

// fakeImageHost records uploads and destroys.
type fakeImageHost struct {
	uploadErr  error
	destroyErr error

	uploaded  []string
	destroyed []string
}

func (f *fakeImageHost) Upload(_ context.Context, r io.Reader, filename string) (imagehost.Image, error) {
	if f.uploadErr != nil {
		return imagehost.Image{}, f.uploadErr
	}
	io.Copy(io.Discard, r)
	f.uploaded = append(f.uploaded, filename)
	return imagehost.Image{URL: "https://img.example/" + filename, Filename: "YelpCamp/" + filename}, nil
}

func (f *fakeImageHost) Destroy(_ context.Context, publicID string) error {
	if f.destroyErr != nil {
		return f.destroyErr
	}
	f.destroyed = append(f.destroyed, publicID)
	return nil
}

// fakeCleanup records published events.
type fakeCleanup struct {
	err    error
	events []queue.ImageCleanupEvent
}

func (f *fakeCleanup) PublishImageCleanup(_ context.Context, ev queue.ImageCleanupEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

// fakeReviewStore backs the review handler tests.
type fakeReviewStore struct {
	createErr error
	byID      map[uint64]repository.Review

	created *repository.Review
	deleted []uint64
}

func (f *fakeReviewStore) Create(_ context.Context, rv *repository.Review) error {
	if f.createErr != nil {
		return f.createErr
	}
	rv.ID = 1
	f.created = rv
	return nil
}

func (f *fakeReviewStore) GetByID(_ context.Context, campgroundID, reviewID uint64) (repository.Review, error) {
	rv, ok := f.byID[reviewID]
	if !ok || rv.CampgroundID != campgroundID {
		return repository.Review{}, repository.ErrNotFound
	}
	return rv, nil
}

func (f *fakeReviewStore) Delete(_ context.Context, campgroundID, reviewID uint64) error {
	rv, ok := f.byID[reviewID]
	if !ok || rv.CampgroundID != campgroundID {
		return repository.ErrNotFound
	}
	delete(f.byID, reviewID)
	f.deleted = append(f.deleted, reviewID)
	return nil
}
