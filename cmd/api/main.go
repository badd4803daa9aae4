package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/intelliject/intelliject/internal/adapters/http"
	"github.com/intelliject/intelliject/internal/bootstrap"
	"github.com/intelliject/intelliject/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "api")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	app.WarmIndexes(ctx)

	// Rebuild a subject's index whenever the loader replaces its corpus.
	go func() {
		err := app.Events.SubscribeCorpusUpdated(ctx, func(ctx context.Context, subject string) error {
			_, err := app.Indexer.Rebuild(ctx, subject)
			return err
		})
		if err != nil && ctx.Err() == nil {
			app.Logger.Error("corpus_subscription_failed", "error", err)
		}
	}()

	router := httpadapter.NewRouter(
		app.Pipeline,
		app.Indexer,
		app.Extractor,
		app.History,
		app.Registry,
		app.Metrics,
		app.Logger,
	).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		app.Logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("api_shutdown_error", "error", err)
	}
}
