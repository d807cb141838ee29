package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/warungtech/stockhold/internal/audit"
	"github.com/warungtech/stockhold/internal/config"
	"github.com/warungtech/stockhold/internal/events"
	kafkax "github.com/warungtech/stockhold/internal/kafka"
	"github.com/warungtech/stockhold/internal/postgres"
	"github.com/warungtech/stockhold/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := config.GetLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &audit.Service{
		Store:       &audit.PGStore{DB: db},
		Redis:       rdb,
		ServiceName: cfg.ServiceName + "-auditor",
		Log:         log,
	}

	group := getenv("AUDIT_GROUP", "audit-svc")
	workers := mustAtoi(os.Getenv("AUDIT_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, events.AllTopics, workers, log)

	go func() {
		log.Infof("audit consumer started: group=%s workers=%d", group, workers)
		if err := cons.Start(ctx, svc.HandleEvent); err != nil {
			log.Errorf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down auditor...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
