// Package healthserver exposes the single per-process /healthz endpoint
// each feeder binary listens on — ambient liveness only, not the
// out-of-scope query gateway described in spec.md §6. Grounded on the
// teacher's cmd/server/main.go healthHandler, re-laid over gorilla/mux so
// RequestLogger/Recoverer apply uniformly.
package healthserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shiva/transit-simulator/internal/middleware"
	"github.com/shiva/transit-simulator/pkg/cache"
	"github.com/shiva/transit-simulator/pkg/db"
)

// Response is the /healthz JSON body.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// New builds the /healthz HTTP server for a feeder process.
func New(addr string, pgPool *pgxpool.Pool, redisClient *redis.Client, readTimeout, writeTimeout, idleTimeout time.Duration) *http.Server {
	router := mux.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestLogger)
	router.HandleFunc("/healthz", handler(pgPool, redisClient)).Methods(http.MethodGet)

	return &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

func handler(pgPool *pgxpool.Pool, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := Response{Status: "ok", Services: make(map[string]string)}

		if err := db.HealthCheck(r.Context(), pgPool); err != nil {
			resp.Status = "degraded"
			resp.Services["postgres"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["postgres"] = "healthy"
		}

		if err := cache.HealthCheck(r.Context(), redisClient); err != nil {
			resp.Status = "degraded"
			resp.Services["redis"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["redis"] = "healthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
