// Command slidegend runs the HTTP admission server and the job worker in
// a single process: C2 provisioning, C4 queue, C5 worker, and the C6
// pipeline orchestrator behind the C3 job store.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohammad-safakhou/slidegen/config"
	"github.com/mohammad-safakhou/slidegen/internal/agentclient"
	"github.com/mohammad-safakhou/slidegen/internal/httpapi"
	"github.com/mohammad-safakhou/slidegen/internal/job"
	"github.com/mohammad-safakhou/slidegen/internal/pipeline"
	"github.com/mohammad-safakhou/slidegen/internal/provision"
	"github.com/mohammad-safakhou/slidegen/internal/queue"
	"github.com/mohammad-safakhou/slidegen/internal/render"
	"github.com/mohammad-safakhou/slidegen/internal/statestore"
	"github.com/mohammad-safakhou/slidegen/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := log.New(os.Stdout, "[SLIDEGEND] ", log.LstdFlags)

	store, err := job.New(cfg.JobDataDir)
	if err != nil {
		log.Fatalf("job store: %v", err)
	}

	state, err := newStateStore(cfg)
	if err != nil {
		log.Fatalf("state store: %v", err)
	}

	client := agentclient.New(agentclient.Config{
		ProjectEndpoint:     cfg.FoundryProjectEndpoint,
		APIVersion:          cfg.FoundryAPIVersion,
		ModelDeploymentName: cfg.ModelDeploymentName,
		Timeout:             time.Duration(cfg.FoundryHTTPTimeoutSecs) * time.Second,
	})

	provCtx := provision.NewContext()
	supervisor := provision.New(client, state, cfg.SeedDataDir, cfg.ModelDeploymentName, log.New(logger.Writer(), "[PROVISION] ", logger.Flags()))
	go supervisor.Run(ctx, provCtx)

	renderer := render.NewChromeRenderer()
	defer renderer.Close()

	orchestrator := pipeline.New(store, client, provCtx, renderer, provCtx.Readiness, cfg.ModelDeploymentName, log.New(logger.Writer(), "[PIPELINE] ", logger.Flags()))

	q := queue.New()
	w := worker.New(q, orchestrator, store, log.New(logger.Writer(), "[WORKER] ", logger.Flags()))

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := w.Run(ctx); err != nil {
			logger.Printf("worker exited: %v", err)
		}
	}()

	srv := httpapi.NewServer(store, q, httpapi.Config{
		AllowHTMLDownload:  cfg.AllowHTMLDownload,
		HTMLDownloadAPIKey: cfg.HTMLDownloadAPIKey,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv}
	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Printf("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("http shutdown: %v", err)
	}
	<-workerDone
	q.Close()
}

func newStateStore(cfg *config.Config) (statestore.Store, error) {
	if cfg.StateStore == "redis" {
		return statestore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	}
	return statestore.NewLocalStore(cfg.StateLocalPath), nil
}
