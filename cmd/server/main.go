package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/cinema-seats/reservation-engine/internal/analytics"
	"github.com/cinema-seats/reservation-engine/internal/catalog"
	"github.com/cinema-seats/reservation-engine/internal/config"
	"github.com/cinema-seats/reservation-engine/internal/database"
	"github.com/cinema-seats/reservation-engine/internal/engine"
	"github.com/cinema-seats/reservation-engine/internal/eventbus"
	"github.com/cinema-seats/reservation-engine/internal/handler"
	"github.com/cinema-seats/reservation-engine/internal/idempotency"
	"github.com/cinema-seats/reservation-engine/internal/lockstore"
	"github.com/cinema-seats/reservation-engine/internal/reaper"
	"github.com/cinema-seats/reservation-engine/internal/repository"
	"github.com/cinema-seats/reservation-engine/internal/router"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("info: .env not found; using defaults/env")
	}

	cfg := config.Load()
	resCfg := config.LoadReservationConfig()
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database open: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis connection required for lock/idempotency stores")
	}

	pub, err := eventbus.Dial(cfg.RabbitMQURI)
	if err != nil {
		log.Fatalf("rabbitmq dial: %v", err)
	}
	defer pub.Close()

	locks := lockstore.New(rdb)
	idem := idempotency.New(rdb)
	reservationRepo := repository.NewReservationRepo(db)
	seatRepo := repository.NewSeatRepo(db)
	sessionRepo := repository.NewSessionRepo(db)

	bootstrap := catalog.New(sessionRepo, seatRepo)
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_, err = bootstrap.EnsureDemoSession(seedCtx, "demo-session", "demo-movie", "Room 1",
		decimal.NewFromFloat(25.00), time.Now().Add(24*time.Hour), []string{"A", "B"}, 8)
	seedCancel()
	if err != nil {
		log.Printf("catalog bootstrap: %v", err)
	}

	eng := engine.New(locks, idem, pub, reservationRepo, seatRepo, resCfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rp := reaper.New(locks, reservationRepo, pub, resCfg)
	go rp.Run(ctx)

	go func() {
		retryCfg := eventbus.RetryConfig{
			BaseDelay:  resCfg.RetryBaseDelay,
			MaxDelay:   resCfg.RetryMaxDelay,
			MaxRetries: resCfg.RetryMaxAttempts,
		}
		if err := analytics.Start(ctx, cfg.RabbitMQURI, retryCfg); err != nil && ctx.Err() == nil {
			log.Printf("analytics consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	h := handler.NewReservationHandler(eng)
	router.RegisterRoutes(e, h, rdb, rlCfg, cacheCfg)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
