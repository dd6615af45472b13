package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/yelp-camp/internal/config"
	"github.com/iliyamo/yelp-camp/internal/database"
	"github.com/iliyamo/yelp-camp/internal/geocode"
	"github.com/iliyamo/yelp-camp/internal/handler"
	"github.com/iliyamo/yelp-camp/internal/imagehost"
	"github.com/iliyamo/yelp-camp/internal/middleware"
	"github.com/iliyamo/yelp-camp/internal/queue"
	"github.com/iliyamo/yelp-camp/internal/repository"
	"github.com/iliyamo/yelp-camp/internal/router"
	"github.com/iliyamo/yelp-camp/internal/session"
	"github.com/iliyamo/yelp-camp/internal/view"
)

func main() {
	// .env is a development convenience; production sets real env vars.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(migrateCtx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis is optional: sessions fall back to in-process storage, the
	// rate limiter and the geocode cache turn off.
	rdb := config.NewRedisClient()
	store := session.NewStore(rdb, time.Duration(cfg.SessionTTLHours)*time.Hour)

	geocoder, err := geocode.NewClient(cfg.MapboxToken, rdb)
	if err != nil {
		log.Fatalf("geocode: %v", err)
	}
	images, err := imagehost.NewClient(cfg.CloudinaryCloudName, cfg.CloudinaryKey, cfg.CloudinarySecret)
	if err != nil {
		log.Fatalf("imagehost: %v", err)
	}

	publisher := queue.NewPublisher()
	go func() {
		if err := queue.StartImageCleanupConsumer(images); err != nil {
			log.Printf("image cleanup consumer stopped: %v", err)
		}
	}()

	users := repository.NewUserRepo(db)
	campgrounds := repository.NewCampgroundRepo(db)
	reviews := repository.NewReviewRepo(db)

	renderer, err := view.New()
	if err != nil {
		log.Fatalf("templates: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler()

	// Browsers only submit GET/POST forms; _method upgrades them. Must be
	// a pre-routing middleware: the rewritten method has to be in place
	// before the router matches, or the tunneled PUT/DELETE routes 405.
	e.Pre(echomw.MethodOverrideWithConfig(echomw.MethodOverrideConfig{
		Getter: echomw.MethodFromForm("_method"),
	}))
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.StaticFS("/static", view.StaticFS())
	e.Use(middleware.LoadSession(store, cfg.SessionSecret, users))

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(users, store, cfg.SessionSecret, cfg.BcryptCost), limiter)
	router.RegisterCampgrounds(e, handler.NewCampgroundHandler(campgrounds, geocoder, images, publisher, cfg.MapboxToken))
	router.RegisterReviews(e, handler.NewReviewHandler(reviews))

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
