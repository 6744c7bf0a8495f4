// Command stepflowd is a thin HTTP adapter binary wiring a
// stepflow.Worker + stepflow.Mount to net/http: a POST whose body is an
// envelope is handed to Mount.Process, and success is a 2xx. It is
// deliberately minimal (no CLI framework, no flags; the listen address
// comes from STEPFLOWD_ADDR and defaults to ":8080"): a runnable home for
// the dispatch.Handler adapter on a plain http.ServeMux.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corewire/stepflow"
	"github.com/corewire/stepflow/dispatch"
	"github.com/corewire/stepflow/emit"
	"github.com/corewire/stepflow/metrics"
	"github.com/corewire/stepflow/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	addr := os.Getenv("STEPFLOWD_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	memStore := store.NewMemoryStore()
	inproc := dispatch.NewInProcessDispatcher()
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	worker := stepflow.NewWorker(
		stepflow.WithStore(memStore),
		stepflow.WithDispatcher(inproc),
		stepflow.WithEmitter(emit.NewNullEmitter()),
		stepflow.WithMetrics(collector),
		stepflow.WithExecutionMode(stepflow.Isolated),
	)

	// Example functions are registered by the embedding application;
	// stepflowd itself ships with none. Replace this with the functions
	// your deployment needs before building.
	mount, err := worker.Mount(nil)
	if err != nil {
		log.Fatalf("stepflowd: failed to build mount: %v", err)
	}
	inproc.Bind(mount.Process)

	mux := http.NewServeMux()
	mux.Handle("/events", dispatch.Handler(mount.Process))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("stepflowd: listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("stepflowd: serve: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("stepflowd: shutdown error: %v", err)
	}
}
