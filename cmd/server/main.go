package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/huugi-star/potenote-scanner-sub000/internal/api"
	"github.com/huugi-star/potenote-scanner-sub000/internal/config"
	"github.com/huugi-star/potenote-scanner-sub000/internal/history"
	"github.com/huugi-star/potenote-scanner-sub000/internal/llm"
	"github.com/huugi-star/potenote-scanner-sub000/internal/ocr"
	"github.com/huugi-star/potenote-scanner-sub000/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients. Recognition and history are optional services.
	analyzer := llm.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, llm.WithPrompt(cfg.AnalysisPrompt))
	stats := llm.NewCallStats(time.Hour)

	var recognizer pipeline.Recognizer
	var ocrClient *ocr.Client
	if cfg.OCRURL != "" {
		ocrClient = ocr.NewClient(cfg.OCRURL, cfg.OCRAPIKey)
		recognizer = ocrClient
	}

	var store *history.Client
	if cfg.HistoryURL != "" {
		store = history.NewClient(cfg.HistoryURL, cfg.HistoryAPIKey)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, analyzer, recognizer, store, stats, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Stop accepting requests before the scan queue closes.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		analyzer.Close()
		ocrClient.Close()
		store.Close()
	}()

	log.Info("starting potenote-scanner", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
