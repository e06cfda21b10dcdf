// Command peoplecountfeeder runs the People-Count feeder worker: one tick
// per Δt generates a PeopleCount observation for every stop in the
// configured route catalog.
package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shiva/transit-simulator/config"
	"github.com/shiva/transit-simulator/internal/catalog"
	"github.com/shiva/transit-simulator/internal/eventbus"
	"github.com/shiva/transit-simulator/internal/feeder"
	"github.com/shiva/transit-simulator/internal/healthserver"
	"github.com/shiva/transit-simulator/internal/store"
	"github.com/shiva/transit-simulator/pkg/cache"
	"github.com/shiva/transit-simulator/pkg/db"
)

func main() {
	_ = godotenv.Load()
	_ = godotenv.Overload(".env.local")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	pgPool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer pgPool.Close()
	log.Println("[people-count] postgres connected")

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("[people-count] redis connected")

	cat, err := catalog.Load(cfg.Feeder.RoutesFile)
	if err != nil {
		log.Fatalf("failed to load route catalog: %v", err)
	}
	log.Printf("[people-count] catalog loaded: %d routes, %d buses", len(cat.Routes), len(cat.Buses))

	x1 := store.New(pgPool, cfg.Feeder.StoreMaxRetries, cfg.Feeder.CallTimeout)
	x2 := eventbus.New(redisClient, cfg.Feeder.EventMaxRetries, cfg.Feeder.CallTimeout)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	intervalMinutes := cfg.Feeder.TickInterval.Minutes()
	f := feeder.NewPeopleCountFeeder(cat, x1, x2, rng, intervalMinutes, cfg.Feeder.SyntheticDrainFrac)

	subCtx, cancelSub := context.WithCancel(context.Background())
	defer cancelSub()
	go f.ListenArrivals(subCtx)

	healthSrv := healthserver.New(cfg.Health.Addr(), pgPool, redisClient, cfg.Health.ReadTimeout, cfg.Health.WriteTimeout, cfg.Health.IdleTimeout)
	go func() {
		log.Printf("[people-count] /healthz listening on %s", cfg.Health.Addr())
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("healthz server error: %v", err)
		}
	}()

	shutdown := make(chan struct{})
	loopDone := make(chan struct{})
	go func() {
		feeder.RunLoop(shutdown, cfg.Feeder.TickInterval, f.Tick)
		close(loopDone)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[people-count] shutting down, draining current tick...")
	close(shutdown)
	<-loopDone
	cancelSub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	log.Println("[people-count] stopped")
}
