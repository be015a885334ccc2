package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/vitalstack/auth-service/internal/config"
	"github.com/vitalstack/auth-service/internal/database"
	"github.com/vitalstack/auth-service/internal/handler"
	"github.com/vitalstack/auth-service/internal/queue"
	"github.com/vitalstack/auth-service/internal/repository"
	"github.com/vitalstack/auth-service/internal/router"
	queue_publisher "github.com/vitalstack/auth-service/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load() // fatal here if a signing secret is missing

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	rdb := config.NewRedisClient() // nil disables rate limiting
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting disabled")
	}

	authH := handler.NewAuthHandler(cfg, users, tokens, queue_publisher.Publisher{})
	metricsH := handler.NewMetricsHandler(users)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, cfg, authH, metricsH, rdb)

	// Audit trail consumer and the expired-token purge run for the life of
	// the process.
	go queue.StartAuditConsumer()
	go purgeExpiredTokens(tokens)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// purgeExpiredTokens stands in for a TTL index: expired refresh rows are
// already rejected on lookup, this just keeps the table from growing.
func purgeExpiredTokens(tokens *repository.TokenRepo) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		n, err := tokens.DeleteExpired(ctx)
		cancel()
		if err != nil {
			log.Printf("token purge: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("token purge: removed %d expired tokens", n)
		}
	}
}
