package main

import (
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/movietix/cinema-booking-api/internal/config"
	"github.com/movietix/cinema-booking-api/internal/database"
	"github.com/movietix/cinema-booking-api/internal/handler"
	"github.com/movietix/cinema-booking-api/internal/logger"
	"github.com/movietix/cinema-booking-api/internal/queue"
	"github.com/movietix/cinema-booking-api/internal/repository"
	"github.com/movietix/cinema-booking-api/internal/router"
	"github.com/movietix/cinema-booking-api/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Env)

	db, err := database.Open(cfg)
	if err != nil {
		log.WithError(err).Fatal("database connect failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	halls := repository.NewHallRepo(db)
	seats := repository.NewSeatRepo(db)
	movies := repository.NewMovieRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	bookings := repository.NewBookingRepo(db)

	publisher := service.NewEventPublisher(cfg.AMQPURL, cfg.BookingQueue, log)
	if publisher == nil {
		log.Warn("AMQP_URL not set, booking events disabled")
	} else {
		go queue.StartBookingConsumer(cfg.AMQPURL, cfg.BookingQueue, log)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.Register(e, router.Deps{
		Cfg:       cfg,
		Redis:     rdb,
		Auth:      handler.NewAuthHandler(cfg, users, tokens),
		Browse:    handler.NewBrowseHandler(showtimes, movies, halls, seats, bookings),
		Bookings:  handler.NewBookingHandler(bookings, showtimes, seats, halls, movies, publisher, log),
		Halls:     handler.NewHallHandler(halls, seats),
		Showtimes: handler.NewShowtimeHandler(showtimes, halls, movies),
	})

	addr := ":" + cfg.Port
	log.Infof("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
