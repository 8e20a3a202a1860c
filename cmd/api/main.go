package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"greencircuit/internal/api"
	"greencircuit/internal/metrics"
)

func main() {
	metrics.RegisterDefault()

	srvDeps, err := api.NewServer()
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	mux := http.NewServeMux()

	// Datasets
	mux.HandleFunc("/v1/datasets", srvDeps.WithRateLimit(srvDeps.DatasetsHandler))
	mux.HandleFunc("/v1/datasets/", srvDeps.DatasetByIDHandler) // includes /events/stream

	// Circuits
	mux.HandleFunc("/v1/circuits", srvDeps.WithRateLimit(srvDeps.CircuitsHandler))
	mux.HandleFunc("/v1/circuits/ws", srvDeps.CircuitWSHandler)
	mux.HandleFunc("/v1/circuits/", srvDeps.CircuitByIDHandler)

	// Subscriptions
	mux.HandleFunc("/v1/subscriptions", srvDeps.WithRateLimit(srvDeps.SubscriptionsHandler))
	mux.HandleFunc("/v1/subscriptions/", srvDeps.WithRateLimit(srvDeps.SubscriptionByIDHandler))

	// Health
	mux.HandleFunc("/healthz", srvDeps.HealthHandler)
	mux.HandleFunc("/readyz", srvDeps.ReadyHandler)

	// Observability and docs
	mux.Handle("/metrics", api.MetricsHandler())
	mux.HandleFunc("/debugz", srvDeps.DebugJSON)
	mux.HandleFunc("/openapi.yaml", srvDeps.OpenAPIHandler)
	mux.HandleFunc("/docs", srvDeps.DocsHandler)

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           logMiddleware(api.WithMetrics(mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("API listening on %s", addr)
	// Start webhook worker
	if srvDeps.Pub != nil {
		worker := srvDeps.NewWebhookWorker()
		worker.Start()
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		dur := time.Since(start)
		log.Printf("%s %s %s %v", r.RemoteAddr, r.Method, r.URL.Path, dur)
	})
}
