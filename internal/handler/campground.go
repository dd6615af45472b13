package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/yelp-camp/internal/geocode"
	"github.com/iliyamo/yelp-camp/internal/imagehost"
	"github.com/iliyamo/yelp-camp/internal/queue"
	"github.com/iliyamo/yelp-camp/internal/repository"
	"github.com/iliyamo/yelp-camp/internal/validate"
)

// CampgroundStore is the repository surface the campground handlers use.
type CampgroundStore interface {
	Create(ctx context.Context, cg *repository.Campground) error
	ListAll(ctx context.Context) ([]repository.Campground, error)
	GetByID(ctx context.Context, id uint64) (repository.Campground, error)
	GetDetail(ctx context.Context, id uint64) (repository.Campground, error)
	Update(ctx context.Context, id uint64, cg *repository.Campground, newImages []repository.Image, removeFilenames []string) ([]string, error)
	Delete(ctx context.Context, id uint64) ([]string, error)
}

// Geocoder resolves a free-form location into coordinates.
type Geocoder interface {
	Forward(ctx context.Context, query string) (geocode.Point, error)
}

// ImageHost uploads files to the image CDN and removes them again.
type ImageHost interface {
	Upload(ctx context.Context, r io.Reader, filename string) (imagehost.Image, error)
	Destroy(ctx context.Context, publicID string) error
}

// CleanupPublisher hands off hosted-image deletions to the async queue.
type CleanupPublisher interface {
	PublishImageCleanup(ctx context.Context, ev queue.ImageCleanupEvent) error
}

// CampgroundHandler serves the listing CRUD pages. MapboxToken is handed
// to the map scripts on the index and detail pages.
type CampgroundHandler struct {
	Campgrounds CampgroundStore
	Geocoder    Geocoder
	Images      ImageHost
	Cleanup     CleanupPublisher
	MapboxToken string
}

func NewCampgroundHandler(store CampgroundStore, geo Geocoder, images ImageHost, cleanup CleanupPublisher, mapboxToken string) *CampgroundHandler {
	return &CampgroundHandler{Campgrounds: store, Geocoder: geo, Images: images, Cleanup: cleanup, MapboxToken: mapboxToken}
}

// Index lists every campground, newest first, with a cluster map over all
// of them.
func (h *CampgroundHandler) Index(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Campgrounds.ListAll(ctx)
	if err != nil {
		return err
	}
	geo, err := featureCollectionJSON(list)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "index.html", viewData(c, map[string]any{
		"Campgrounds":     list,
		"MapboxToken":     h.MapboxToken,
		"CampgroundsJSON": geo,
	}))
}

// NewForm renders the creation form.
func (h *CampgroundHandler) NewForm(c echo.Context) error {
	return c.Render(http.StatusOK, "new.html", viewData(c, nil))
}

// Create geocodes the location, uploads the attached images and inserts
// the campground with the session user as author.
func (h *CampgroundHandler) Create(c echo.Context) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	form := campgroundForm(c)
	if violations := form.Validate(); len(violations) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, strings.Join(violations, ", "))
	}

	pt, err := h.Geocoder.Forward(c.Request().Context(), form.Location)
	if errors.Is(err, geocode.ErrNoResults) {
		return flashRedirect(c, "error", "Could not find that location. Try a more specific search.", "/campgrounds/new")
	}
	if err != nil {
		return err
	}

	images, err := h.uploadImages(c)
	if err != nil {
		return err
	}

	cg := &repository.Campground{
		Title:        form.Title,
		Description:  form.Description,
		Price:        form.PriceValue(),
		Location:     form.Location,
		GeometryType: pt.Type,
		Longitude:    pt.Longitude,
		Latitude:     pt.Latitude,
		AuthorID:     u.ID,
		Images:       images,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Campgrounds.Create(ctx, cg); err != nil {
		return err
	}
	return flashRedirect(c, "success", "Successfully made a new campground!", detailPath(cg.ID))
}

// Show renders the detail page with images, author and reviews.
func (h *CampgroundHandler) Show(c echo.Context) error {
	id, err := parseID(c.Param("id"))
	if err != nil {
		return flashRedirect(c, "error", "Cannot find that campground!", "/campgrounds")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cg, err := h.Campgrounds.GetDetail(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return flashRedirect(c, "error", "Cannot find that campground!", "/campgrounds")
	}
	if err != nil {
		return err
	}
	geo, err := featureJSON(cg)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "show.html", viewData(c, map[string]any{
		"Campground":     cg,
		"MapboxToken":    h.MapboxToken,
		"CampgroundJSON": geo,
	}))
}

// EditForm renders the edit page, owners only.
func (h *CampgroundHandler) EditForm(c echo.Context) error {
	cg, err := h.loadOwned(c)
	if err != nil || cg == nil {
		return err
	}
	return c.Render(http.StatusOK, "edit.html", viewData(c, map[string]any{"Campground": *cg}))
}

// Update applies the form, re-geocoding the location, appending uploads
// and detaching any images the owner ticked for removal. Detached files
// are wiped from the CDN via the cleanup queue.
func (h *CampgroundHandler) Update(c echo.Context) error {
	cg, err := h.loadOwned(c)
	if err != nil || cg == nil {
		return err
	}
	form := campgroundForm(c)
	if violations := form.Validate(); len(violations) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, strings.Join(violations, ", "))
	}

	pt, err := h.Geocoder.Forward(c.Request().Context(), form.Location)
	if errors.Is(err, geocode.ErrNoResults) {
		return flashRedirect(c, "error", "Could not find that location. Try a more specific search.", detailPath(cg.ID)+"/edit")
	}
	if err != nil {
		return err
	}

	newImages, err := h.uploadImages(c)
	if err != nil {
		return err
	}
	var removeFilenames []string
	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		removeFilenames = mf.Value["deleteImages"]
	}

	updated := &repository.Campground{
		Title:        form.Title,
		Description:  form.Description,
		Price:        form.PriceValue(),
		Location:     form.Location,
		GeometryType: pt.Type,
		Longitude:    pt.Longitude,
		Latitude:     pt.Latitude,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	removed, err := h.Campgrounds.Update(ctx, cg.ID, updated, newImages, removeFilenames)
	if errors.Is(err, repository.ErrNotFound) {
		return flashRedirect(c, "error", "Cannot find that campground!", "/campgrounds")
	}
	if err != nil {
		return err
	}
	h.cleanupImages(c, cg.ID, removed)
	return flashRedirect(c, "success", "Successfully updated campground!", detailPath(cg.ID))
}

// Delete removes the campground with its reviews and image rows, then
// queues the hosted files for deletion.
func (h *CampgroundHandler) Delete(c echo.Context) error {
	cg, err := h.loadOwned(c)
	if err != nil || cg == nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	filenames, err := h.Campgrounds.Delete(ctx, cg.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return flashRedirect(c, "error", "Cannot find that campground!", "/campgrounds")
	}
	if err != nil {
		return err
	}
	h.cleanupImages(c, cg.ID, filenames)
	return flashRedirect(c, "success", "Successfully deleted campground!", "/campgrounds")
}

// loadOwned fetches the campground from the :id param and enforces
// ownership. A nil campground with a nil error means the response was
// already written (redirect with flash).
func (h *CampgroundHandler) loadOwned(c echo.Context) (*repository.Campground, error) {
	u, err := currentUser(c)
	if err != nil {
		return nil, err
	}
	id, err := parseID(c.Param("id"))
	if err != nil {
		return nil, flashRedirect(c, "error", "Cannot find that campground!", "/campgrounds")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cg, err := h.Campgrounds.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, flashRedirect(c, "error", "Cannot find that campground!", "/campgrounds")
	}
	if err != nil {
		return nil, err
	}
	if cg.AuthorID != u.ID {
		return nil, flashRedirect(c, "error", "You do not have permission to do that!", detailPath(id))
	}
	return &cg, nil
}

// uploadImages pushes every file in the 'image' field to the image host.
func (h *CampgroundHandler) uploadImages(c echo.Context) ([]repository.Image, error) {
	mf, err := c.MultipartForm()
	if err != nil || mf == nil {
		return nil, nil
	}
	var images []repository.Image
	for _, fh := range mf.File["image"] {
		src, err := fh.Open()
		if err != nil {
			return nil, err
		}
		img, err := h.Images.Upload(c.Request().Context(), src, fh.Filename)
		src.Close()
		if err != nil {
			return nil, err
		}
		images = append(images, repository.Image{URL: img.URL, Filename: img.Filename})
	}
	return images, nil
}

// cleanupImages publishes the detached filenames to the queue. If the
// broker is unreachable the files are destroyed inline, best effort, so
// a flaky broker cannot strand CDN assets behind a committed delete.
func (h *CampgroundHandler) cleanupImages(c echo.Context, campgroundID uint64, filenames []string) {
	if len(filenames) == 0 {
		return
	}
	ev := queue.ImageCleanupEvent{
		CampgroundID: campgroundID,
		Filenames:    filenames,
		RequestedAt:  time.Now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Cleanup.PublishImageCleanup(ctx, ev); err == nil {
		return
	}
	for _, fn := range filenames {
		if err := h.Images.Destroy(ctx, fn); err != nil {
			c.Logger().Errorf("destroy image %s: %v", fn, err)
		}
	}
}

func campgroundForm(c echo.Context) validate.CampgroundForm {
	return validate.CampgroundForm{
		Title:       c.FormValue("title"),
		Location:    c.FormValue("location"),
		Description: c.FormValue("description"),
		Price:       c.FormValue("price"),
	}
}

func detailPath(id uint64) string {
	return fmt.Sprintf("/campgrounds/%d", id)
}

// mapFeature is the GeoJSON shape the map scripts consume: geometry for
// placement, properties for the popup and its detail-page link.
type mapFeature struct {
	Type     string `json:"type"`
	Geometry struct {
		Type        string     `json:"type"`
		Coordinates [2]float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		ID       uint64 `json:"id"`
		Title    string `json:"title"`
		Location string `json:"location"`
	} `json:"properties"`
}

func toMapFeature(cg repository.Campground) mapFeature {
	var f mapFeature
	f.Type = "Feature"
	f.Geometry.Type = cg.GeometryType
	if f.Geometry.Type == "" {
		f.Geometry.Type = "Point"
	}
	f.Geometry.Coordinates = [2]float64{cg.Longitude, cg.Latitude}
	f.Properties.ID = cg.ID
	f.Properties.Title = cg.Title
	f.Properties.Location = cg.Location
	return f
}

// featureJSON renders one campground as a GeoJSON feature for the detail
// page map. template.JS keeps the contextual escaper from mangling it;
// encoding/json already escapes angle brackets.
func featureJSON(cg repository.Campground) (template.JS, error) {
	raw, err := json.Marshal(toMapFeature(cg))
	if err != nil {
		return "", err
	}
	return template.JS(raw), nil
}

// featureCollectionJSON renders every campground as a GeoJSON feature
// collection for the index cluster map.
func featureCollectionJSON(list []repository.Campground) (template.JS, error) {
	features := make([]mapFeature, 0, len(list))
	for _, cg := range list {
		features = append(features, toMapFeature(cg))
	}
	raw, err := json.Marshal(map[string]any{
		"type":     "FeatureCollection",
		"features": features,
	})
	if err != nil {
		return "", err
	}
	return template.JS(raw), nil
}
