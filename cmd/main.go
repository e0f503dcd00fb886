/*
Package main is the entry point for the Dietitian API server.

It is responsible for loading configuration, initializing the global logging
system, opening the user record store and the food knowledge base, connecting
the Gemini and Speech-to-Text services, and gracefully handling operating
system interrupt signals (SIGINT, SIGTERM) to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dietitian/internal/app/coach"
	"dietitian/internal/app/food"
	"dietitian/internal/app/llm"
	"dietitian/internal/app/nutrition"
	"dietitian/internal/app/record"
	"dietitian/internal/app/speech"
	"dietitian/internal/configs"
	"dietitian/internal/handler"
	"dietitian/internal/pkg/logx"
)

func main() {
	// Load .env if present; deployments set the process environment directly.
	_ = godotenv.Load()

	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.Environment == "development")
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("data_dir", cfg.DataDir).
		Str("gemini_model", cfg.GeminiModel).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// User record store
	store := record.NewStore(cfg.DataDir)
	if err := store.EnsureReady(); err != nil {
		logx.Fatal(err, "Failed to prepare the record store")
	}

	// Food knowledge base, refreshed from the CSV on every start. A missing
	// CSV is not fatal: retrieval keeps serving previously imported rows.
	foodStore, err := food.Open(cfg.FoodDBPath)
	if err != nil {
		logx.Fatal(err, "Failed to open the food knowledge base")
	}

	if imported, err := foodStore.ImportCSV(cfg.FoodDataCSV); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logx.Warn("Food data CSV not found, serving previously imported rows", "path", cfg.FoodDataCSV)
		} else {
			logx.Fatal(err, "Failed to import food data")
		}
	} else if imported > 0 {
		logx.Info("Imported food data", "rows", imported, "path", cfg.FoodDataCSV)
	}

	// Gemini LLM service
	llmService, err := llm.NewService(llm.Config{
		APIKey:     cfg.GeminiAPIKey,
		Model:      cfg.GeminiModel,
		EmbedModel: cfg.GeminiEmbedModel,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize the Gemini service")
	}

	// Speech-to-Text is optional: without Google credentials the chat
	// endpoint still serves text and image turns.
	var speechService speech.Service
	speechService, err = speech.NewGoogleService(ctx, speech.Config{
		LanguageCode:    cfg.SpeechLanguage,
		SampleRateHertz: cfg.SpeechSampleRate,
	})
	if err != nil {
		logx.Warn("Speech-to-Text unavailable, voice notes will be rejected", "error", err)
		speechService = speech.Disabled{}
	}

	retriever := food.NewRetriever(foodStore, llmService)

	deps := &handler.AppDeps{
		Config: cfg,
		Store:  store,
		Calc:   nutrition.NewCalculator(store),
		Coach:  coach.New(store, retriever, llmService, speechService),
	}

	// Setup HTTP server and routes
	router := handler.Router(deps)

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
		// Chat turns can spend minutes inside recognizer and model calls, so
		// the write timeout sits far above the usual few seconds.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("Dietitian API starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shutdown")
	}

	if err := speechService.Close(); err != nil {
		logx.Warn("Failed to close the speech client", "error", err)
	}
	if err := foodStore.Close(); err != nil {
		logx.Warn("Failed to close the food knowledge base", "error", err)
	}

	logx.Info("Server gracefully stopped.")
}
