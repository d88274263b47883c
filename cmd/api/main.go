package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ancrage/internal/config"
	"ancrage/internal/server"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	var ai server.AIClient
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		log.Printf("OPENAI_API_KEY empty, using mock AI client")
		ai = server.MockAIClient{}
	} else {
		ai = server.NewOpenAIChatClient(cfg)
	}

	classifier := server.NewClassifier(
		ai,
		cfg.ClassifierModel,
		cfg.ClassifierMaxTokens,
		time.Duration(cfg.ClassifierTimeoutSeconds)*time.Second,
	)
	pipeline := server.NewPipeline(
		ai,
		classifier,
		cfg.ChatModel,
		cfg.ChatMaxTokens,
		time.Duration(cfg.ChatTimeoutSeconds)*time.Second,
	)

	var analytics server.AnalyticsEmitter = server.NoopAnalyticsEmitter{}
	if strings.TrimSpace(cfg.AnalyticsBaseURL) != "" {
		analytics = server.NewHTTPAnalyticsEmitter(cfg.AnalyticsBaseURL)
	}

	app := server.New(cfg, pipeline, analytics)
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("ancrage api listening on http://localhost:%s", cfg.AppPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
