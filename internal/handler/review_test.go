package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/yelp-camp/internal/repository"
)

func TestReviewCreate(t *testing.T) {
	e := newTestEcho(t)
	reviews := &fakeReviewStore{}
	h := NewReviewHandler(reviews)

	c, rec, s := newFormContext(t, e, "/campgrounds/3/reviews", url.Values{
		"body":   {"  Loved the views  "},
		"rating": {"5"},
	})
	c.SetParamNames("id")
	c.SetParamValues("3")
	loginAs(c, s, repository.User{ID: 7, Username: "camper"})

	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	assertRedirect(t, rec, "/campgrounds/3")
	assertFlash(t, s, "success", "Created new review!")

	if reviews.created == nil {
		t.Fatal("nothing created")
	}
	if reviews.created.CampgroundID != 3 || reviews.created.AuthorID != 7 {
		t.Errorf("created = %+v", reviews.created)
	}
	if reviews.created.Body != "Loved the views" {
		t.Errorf("Body = %q, want trimmed text", reviews.created.Body)
	}
	if reviews.created.Rating != 5 {
		t.Errorf("Rating = %d", reviews.created.Rating)
	}
}

func TestReviewCreateValidationFailure(t *testing.T) {
	e := newTestEcho(t)
	reviews := &fakeReviewStore{}
	h := NewReviewHandler(reviews)

	c, _, s := newFormContext(t, e, "/campgrounds/3/reviews", url.Values{
		"body":   {""},
		"rating": {"9"},
	})
	c.SetParamNames("id")
	c.SetParamValues("3")
	loginAs(c, s, repository.User{ID: 7})

	err := h.Create(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("Create = %v, want 400", err)
	}
	msg, _ := he.Message.(string)
	if !strings.Contains(msg, "review body is required") || !strings.Contains(msg, "rating must be between 1 and 5") {
		t.Errorf("message = %q", msg)
	}
	if reviews.created != nil {
		t.Error("invalid review reached the store")
	}
}

func TestReviewCreateCampgroundGone(t *testing.T) {
	e := newTestEcho(t)
	h := NewReviewHandler(&fakeReviewStore{createErr: repository.ErrNotFound})

	c, rec, s := newFormContext(t, e, "/campgrounds/99/reviews", url.Values{
		"body":   {"nice"},
		"rating": {"4"},
	})
	c.SetParamNames("id")
	c.SetParamValues("99")
	loginAs(c, s, repository.User{ID: 7})

	if err := h.Create(c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	assertRedirect(t, rec, "/campgrounds")
	assertFlash(t, s, "error", "Cannot find that campground!")
}

func TestReviewDelete(t *testing.T) {
	e := newTestEcho(t)
	reviews := &fakeReviewStore{byID: map[uint64]repository.Review{
		5: {ID: 5, CampgroundID: 3, AuthorID: 7, Body: "ok", Rating: 3},
	}}
	h := NewReviewHandler(reviews)

	c, rec, s := newFormContext(t, e, "/campgrounds/3/reviews/5", url.Values{})
	c.SetParamNames("id", "reviewId")
	c.SetParamValues("3", "5")
	loginAs(c, s, repository.User{ID: 7})

	if err := h.Delete(c); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	assertRedirect(t, rec, "/campgrounds/3")
	assertFlash(t, s, "success", "Successfully deleted review!")
	if len(reviews.deleted) != 1 || reviews.deleted[0] != 5 {
		t.Errorf("deleted = %v", reviews.deleted)
	}
}

func TestReviewDeleteNotAuthor(t *testing.T) {
	e := newTestEcho(t)
	reviews := &fakeReviewStore{byID: map[uint64]repository.Review{
		5: {ID: 5, CampgroundID: 3, AuthorID: 7},
	}}
	h := NewReviewHandler(reviews)

	c, rec, s := newFormContext(t, e, "/campgrounds/3/reviews/5", url.Values{})
	c.SetParamNames("id", "reviewId")
	c.SetParamValues("3", "5")
	loginAs(c, s, repository.User{ID: 9})

	if err := h.Delete(c); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	assertRedirect(t, rec, "/campgrounds/3")
	assertFlash(t, s, "error", "You do not have permission to do that!")
	if len(reviews.deleted) != 0 {
		t.Error("non-author delete reached the store")
	}
}

func TestReviewDeleteWrongCampground(t *testing.T) {
	e := newTestEcho(t)
	reviews := &fakeReviewStore{byID: map[uint64]repository.Review{
		5: {ID: 5, CampgroundID: 3, AuthorID: 7},
	}}
	h := NewReviewHandler(reviews)

	// Same review id, but addressed through a different listing.
	c, rec, s := newFormContext(t, e, "/campgrounds/4/reviews/5", url.Values{})
	c.SetParamNames("id", "reviewId")
	c.SetParamValues("4", "5")
	loginAs(c, s, repository.User{ID: 7})

	if err := h.Delete(c); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	assertRedirect(t, rec, "/campgrounds/4")
	assertFlash(t, s, "error", "Cannot find that review!")
	if len(reviews.deleted) != 0 {
		t.Error("cross-listing delete reached the store")
	}
}
