// Command loader bulk-ingests a subject's PYQ corpus from a JSON or XLSX
// file, replacing the subject's previous rows, and notifies running api
// processes to rebuild that subject's index.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/intelliject/intelliject/internal/config"
	"github.com/intelliject/intelliject/internal/infrastructure/corpusfile"
	natsqueue "github.com/intelliject/intelliject/internal/infrastructure/queue/nats"
	"github.com/intelliject/intelliject/internal/infrastructure/repository/postgres"
	"github.com/intelliject/intelliject/internal/observability/logging"
)

func main() {
	var (
		subject = flag.String("subject", "", "subject the corpus file belongs to")
		path    = flag.String("file", "", "corpus file (.json or .xlsx)")
	)
	flag.Parse()

	if *subject == "" || *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("loader", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	file, err := os.Open(*path)
	if err != nil {
		log.Fatalf("open corpus file: %v", err)
	}
	defer file.Close()

	records, err := corpusfile.Load(file, filepath.Base(*path), *subject)
	if err != nil {
		log.Fatalf("parse corpus file: %v", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	defer db.Close()

	repo := postgres.NewPYQRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}

	inserted, err := repo.ReplaceSubject(ctx, *subject, records)
	if err != nil {
		log.Fatalf("replace corpus: %v", err)
	}
	logger.Info("corpus_replaced", "subject", *subject, "records", inserted, "file", *path)

	events, err := natsqueue.New(cfg.NATSURL, cfg.NATSTopic)
	if err != nil {
		logger.Warn("nats_unavailable_skipping_notify", "error", err)
		return
	}
	defer events.Close()

	if err := events.PublishCorpusUpdated(ctx, *subject); err != nil {
		logger.Warn("corpus_update_notify_failed", "subject", *subject, "error", err)
		return
	}
	logger.Info("corpus_update_published", "subject", *subject)
}
