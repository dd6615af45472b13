package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/yelp-camp/internal/repository"
	"github.com/iliyamo/yelp-camp/internal/validate"
)

// ReviewStore is the repository surface the review handlers use. Lookups
// and deletes are scoped to a campground so a review cannot be touched
// through another listing's URL.
type ReviewStore interface {
	Create(ctx context.Context, rv *repository.Review) error
	GetByID(ctx context.Context, campgroundID, reviewID uint64) (repository.Review, error)
	Delete(ctx context.Context, campgroundID, reviewID uint64) error
}

// ReviewHandler serves review creation and deletion.
type ReviewHandler struct {
	Reviews ReviewStore
}

func NewReviewHandler(reviews ReviewStore) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews}
}

// Create attaches a review to the campground from the URL, authored by
// the session user.
func (h *ReviewHandler) Create(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		return flashRedirect(c, "error", "Cannot find that campground!", "/campgrounds")
	}

	form := validate.ReviewForm{
		Body:   c.FormValue("body"),
		Rating: c.FormValue("rating"),
	}
	if violations := form.Validate(); len(violations) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, strings.Join(violations, ", "))
	}

	rv := &repository.Review{
		CampgroundID: id,
		AuthorID:     u.ID,
		Body:         strings.TrimSpace(form.Body),
		Rating:       form.RatingValue(),
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Reviews.Create(ctx, rv); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return flashRedirect(c, "error", "Cannot find that campground!", "/campgrounds")
		}
		return err
	}
	return flashRedirect(c, "success", "Created new review!", detailPath(id))
}

// Delete removes a review, review authors only.
func (h *ReviewHandler) Delete(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		return flashRedirect(c, "error", "Cannot find that campground!", "/campgrounds")
	}
	reviewID, err := parseID(c.Param("reviewId"))
	if err != nil {
		return flashRedirect(c, "error", "Cannot find that review!", detailPath(id))
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rv, err := h.Reviews.GetByID(ctx, id, reviewID)
	if errors.Is(err, repository.ErrNotFound) {
		return flashRedirect(c, "error", "Cannot find that review!", detailPath(id))
	}
	if err != nil {
		return err
	}
	if rv.AuthorID != u.ID {
		return flashRedirect(c, "error", "You do not have permission to do that!", detailPath(id))
	}

	if err := h.Reviews.Delete(ctx, id, reviewID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return flashRedirect(c, "error", "Cannot find that review!", detailPath(id))
		}
		return err
	}
	return flashRedirect(c, "success", "Successfully deleted review!", detailPath(id))
}
