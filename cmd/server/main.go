package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/auth"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/config"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/database"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/handler"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/middleware"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/queue"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/repository"
	"github.com/Bernyabreu42/backend-marketplace-sub001/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when unreachable; limiter degrades
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)

	codec := auth.NewCodec(cfg.AccessSecret, cfg.RefreshSecret, cfg.ResetSecret,
		cfg.AccessTTLMin, cfg.RefreshTTLDays)
	manager := auth.NewManager(codec, sessions, users)
	cookies := middleware.CookiePolicy{Prod: cfg.IsProd()}
	gate := middleware.NewAuth(codec, manager, users, cookies)

	authHandler := handler.NewAuthHandler(cfg, users, manager, cookies)

	e := echo.New()
	router.Register(e, authHandler, gate, config.LoadRateLimitConfig(), rdb)

	// Loyalty worker runs for the life of the process and reconnects on
	// broker failures; it never takes the server down.
	go func() {
		if err := queue.StartLoyaltyConsumer(); err != nil {
			log.Printf("loyalty consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
