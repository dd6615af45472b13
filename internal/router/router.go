// Package router defines how the web routes are registered.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/yelp-camp/internal/handler"
	"github.com/iliyamo/yelp-camp/internal/middleware"
)

// RegisterRoutes registers the landing page and the health check. The
// health endpoint can be used by load balancers or monitoring systems to
// verify that the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Home)
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers registration, login and logout. The limiter
// throttles the credential-accepting POSTs per client IP; pass a no-op
// limiter when Redis is unavailable.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	e.GET("/register", a.RegisterForm)
	e.POST("/register", a.Register, limiter)
	e.GET("/login", a.LoginForm)
	e.POST("/login", a.Login, limiter)
	e.GET("/logout", a.Logout, middleware.RequireLogin())
}

// RegisterCampgrounds registers the listing CRUD pages. Browsing is open
// to guests; everything that writes sits behind the login gate, and the
// handlers enforce ownership on top of that.
func RegisterCampgrounds(e *echo.Echo, h *handler.CampgroundHandler) {
	login := middleware.RequireLogin()

	g := e.Group("/campgrounds")
	g.GET("", h.Index)
	g.GET("/new", h.NewForm, login)
	g.POST("", h.Create, login)
	g.GET("/:id", h.Show)
	g.GET("/:id/edit", h.EditForm, login)
	g.PUT("/:id", h.Update, login)
	g.DELETE("/:id", h.Delete, login)
}

// RegisterReviews registers review creation and deletion, nested under
// the campground they belong to.
func RegisterReviews(e *echo.Echo, h *handler.ReviewHandler) {
	login := middleware.RequireLogin()

	g := e.Group("/campgrounds/:id/reviews")
	g.POST("", h.Create, login)
	g.DELETE("/:reviewId", h.Delete, login)
}
