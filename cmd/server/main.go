package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-slot-reservation/internal/config"
	"github.com/iliyamo/parking-slot-reservation/internal/database"
	"github.com/iliyamo/parking-slot-reservation/internal/handler"
	"github.com/iliyamo/parking-slot-reservation/internal/lifecycle"
	"github.com/iliyamo/parking-slot-reservation/internal/lock"
	"github.com/iliyamo/parking-slot-reservation/internal/middleware"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
	"github.com/iliyamo/parking-slot-reservation/internal/router"
	"github.com/iliyamo/parking-slot-reservation/internal/sweeper"
	"github.com/iliyamo/parking-slot-reservation/internal/validation"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()
	log := newLogger(cfg)

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("migration failed")
		}
	}
	enums, err := database.LoadEnumTable(ctx, db, validation.SlotStatus, validation.SlotType, validation.BookingStatus)
	if err != nil {
		log.WithError(err).Fatal("load enum values failed")
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig(), log)
	if rdb != nil {
		defer rdb.Close()
	}

	events, err := queue.NewPublisher(cfg.Events, log)
	if err != nil {
		log.WithError(err).Fatal("event publisher setup failed")
	}
	defer events.Close()

	bookings := repository.NewBookingRepo(db)
	slots := repository.NewSlotRepo(db)
	engine := lifecycle.NewEngine(db, bookings, slots,
		lifecycle.WithBookingTTL(cfg.Sweep.BookingTTL),
		lifecycle.WithPublisher(events),
		lifecycle.WithLogger(log.WithField("component", "lifecycle")),
	)

	var sweepLock sweeper.Locker
	if cfg.Sweep.LockEnabled && rdb != nil {
		sweepLock = lock.NewRedisLock(rdb, cfg.Sweep.LockKey, cfg.Sweep.LockTTL)
	}
	sw := sweeper.New(engine, sweepLock, cfg.Sweep.Interval, cfg.Sweep.Timeout, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sw.Start(ctx)
	}()
	if cfg.Events.ConsumerEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := queue.StartConsumer(ctx, cfg.Events, log); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("audit consumer stopped")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(log))
	var limiter echo.MiddlewareFunc
	if rdb != nil {
		limiter = middleware.RateLimit(config.LoadRateLimitConfig(), rdb, log)
	} else {
		limiter = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	router.RegisterRoutes(e, router.Handlers{
		Health:   handler.Health(db),
		Bookings: handler.NewBookingHandler(engine, bookings),
		Slots:    handler.NewSlotHandler(slots, enums),
		Admin:    handler.NewAdminHandler(sw),
	}, cfg.JWTSecret, limiter)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown failed")
	}
	wg.Wait()
}

// newLogger writes text logs in dev and JSON elsewhere at LOG_LEVEL.
func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.Env == "dev" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
