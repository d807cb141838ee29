package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/warungtech/stockhold/internal/auth"
	"github.com/warungtech/stockhold/internal/config"
	"github.com/warungtech/stockhold/internal/credit"
	"github.com/warungtech/stockhold/internal/httpx"
	kafkax "github.com/warungtech/stockhold/internal/kafka"
	"github.com/warungtech/stockhold/internal/postgres"
	"github.com/warungtech/stockhold/internal/redisx"
	"github.com/warungtech/stockhold/internal/stock"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := config.GetLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer (audit/notification sink, fire-and-forget)
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)

	authorizer := auth.RoleAuthorizer{}
	validate := validator.New()

	ledger := &stock.Ledger{
		Store:      &stock.PGStore{DB: db},
		Auth:       authorizer,
		DefaultTTL: cfg.DefaultHoldTTL,
	}
	credits := &credit.Service{
		Store: &credit.PGStore{DB: db},
		Auth:  authorizer,
	}

	router := httpx.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret))
		(&httpx.ReservationsHandler{
			Ledger:   ledger,
			Redis:    rdb,
			Producer: prod,
			Validate: validate,
			Service:  cfg.ServiceName,
			Log:      log,
		}).Register(r)
		(&httpx.CreditsHandler{
			Service:  credits,
			Producer: prod,
			Validate: validate,
			Name:     cfg.ServiceName,
			Log:      log,
		}).Register(r)
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Infof("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // close inbox -> flush & close writer
	cancel()
	prod.WaitClosed() // drain
}
