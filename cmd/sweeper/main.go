package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/warungtech/stockhold/internal/auth"
	"github.com/warungtech/stockhold/internal/config"
	"github.com/warungtech/stockhold/internal/events"
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

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PGMaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	locker := redislock.New(rdb)

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start(ctx)

	ledger := &stock.Ledger{
		Store:      &stock.PGStore{DB: db},
		Auth:       auth.RoleAuthorizer{},
		DefaultTTL: cfg.DefaultHoldTTL,
	}
	name := cfg.ServiceName + "-sweeper"

	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			sweepOnce(ctx, locker, ledger, prod, name, log)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down sweeper...")
	cancel()
	prod.Close()
	prod.WaitClosed()
}

// sweepBatch bounds one purge so a large backlog cannot hold the row locks
// for a whole table scan; the remainder is picked up on the next tick.
const sweepBatch = 500

// sweepOnce runs one purge under a distributed lock. The sweep itself is
// idempotent, the lock just keeps replicas from duplicating work and
// duplicate expiry events.
func sweepOnce(ctx context.Context, locker *redislock.Client, ledger *stock.Ledger, prod *kafkax.Producer, name string, log *logrus.Logger) {
	lock, err := locker.Obtain(ctx, redisx.KeySweepLock, 30*time.Second, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return // another replica is sweeping
	}
	if err != nil {
		log.Errorf("sweep lock: %v", err)
		return
	}
	defer lock.Release(context.Background())

	deleted, err := ledger.SweepExpired(ctx, sweepBatch)
	if err != nil {
		log.Errorf("sweep: %v", err)
		return
	}
	if len(deleted) == 0 {
		return
	}
	log.Infof("sweep: purged %d expired reservations", len(deleted))

	for _, r := range deleted {
		ev := events.Envelope{
			EventID:       uuid.NewString(),
			EventType:     events.EventReservationExpired,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      name,
			CorrelationID: r.ID,
			Payload: kafkax.MustMarshal(events.ReservationExpiredPayload{
				ReservationID: r.ID,
				ItemID:        r.ItemID,
				LocationType:  string(r.LocationType),
				LocationID:    r.LocationID,
				Quantity:      r.Quantity.String(),
			}),
		}
		prod.Publish(events.TopicReservationExpired, events.PartitionKey(r.ID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(events.EventReservationExpired)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}
}
