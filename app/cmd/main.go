package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"docchunker/app/agent"
	"docchunker/app/server"
	"docchunker/config"
	"docchunker/model"
	"docchunker/service"
	"docchunker/store"
)

const tokenizerModel = "gpt-3.5-turbo"

func main() {
	if err := config.LoadEnvFile(); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	files := store.NewFileStore(cfg.UploadDir)
	if err := files.Init(); err != nil {
		log.Fatal(err)
	}

	budget := agent.Budget{Max: cfg.MaxPromptTokens}
	if cfg.MaxPromptTokens > 0 {
		count, err := agent.NewTokenCounter(tokenizerModel)
		if err != nil {
			logger.Warn("prompt budget disabled", "error", err)
		} else {
			budget.Count = count
		}
	}

	if cfg.Extraction.Endpoint == "" {
		logger.Warn("extraction endpoint is not configured, uploads will fail")
	}
	if cfg.Completion.Endpoint == "" || cfg.Completion.Deployment == "" {
		logger.Warn("completion endpoint is not configured, chat will fail")
	}

	svc := service.New(service.Deps{
		Logger:          logger,
		Docs:            store.NewMemoryStore(store.WithReleaser(files), store.WithLogger(logger)),
		Files:           files,
		Sessions:        store.NewSessionStore(),
		Extractor:       model.NewDocumentIntelligence(cfg.Extraction, cfg.Retry, logger),
		Inspector:       model.NewPDFInspector(),
		Completer:       agent.NewAzureOpenAI(cfg.Completion, cfg.Retry, logger),
		Budget:          budget,
		ExtractTimeout:  cfg.Retry.TotalTimeout,
		CompleteTimeout: cfg.Retry.TotalTimeout,
	})

	s := server.NewServer(cfg, svc, files, logger)

	errch := make(chan error, 1)
	go func() {
		errch <- s.Run()
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigch:
		logger.Info("received shutdown signal, shutting down server", "signal", sig.String())
	case err := <-errch:
		logger.Error("error to start server", "error", err)
		os.Exit(1)
	}

	if err := s.Stop(context.Background()); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}
