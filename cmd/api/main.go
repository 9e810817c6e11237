package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"easysql-backend/cmd"
	backend "easysql-backend/internal/api"
	"easysql-backend/internal/config"
	"easysql-backend/internal/core"
	"easysql-backend/internal/database"
	"easysql-backend/internal/datasource"
	"easysql-backend/internal/llm"
	"easysql-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.New(cfg.HistoryURL())
	if err != nil {
		log.Fatalf("Failed to connect to history database: %v", err)
	}

	targetURL, err := cfg.TargetURL()
	if err != nil {
		log.Fatalf("Invalid datasource configuration: %v", err)
	}

	source, err := datasource.Open(targetURL, cfg.QueryRowLimit, cfg.QueryTimeout)
	if err != nil {
		log.Fatalf("Failed to connect to datasource: %v", err)
	}
	defer source.Close()

	translator, err := llm.New(context.Background(), llm.Options{
		Provider:     cfg.LLMProvider,
		Model:        cfg.LLMModel,
		MaxRetries:   cfg.LLMMaxRetries,
		OpenAIKey:    cfg.OpenAIAPIKey,
		AnthropicKey: cfg.AnthropicAPIKey,
		GeminiKey:    cfg.GeminiAPIKey,
		OllamaHost:   cfg.OllamaHost,
		BaseURL:      cfg.LLMBaseURL,
		APIKey:       cfg.LLMAPIKey,
	})
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	exports, exportBucket, err := createExportStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create export store: %v", err)
	}

	if exportBucket != "" {
		if err := exports.CreateBucket(context.Background(), exportBucket); err != nil {
			log.Fatalf("Failed to prepare export bucket: %v", err)
		}
	}

	engine := core.NewEngine(db, source, translator, cfg.LLMHistoryLimit)

	// --- Chi Router Setup ---
	r := chi.NewRouter()

	// Middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300, // Cache preflight response for 5 minutes
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)                    // Log requests
	r.Use(middleware.Recoverer)                 // Recover from panics
	r.Use(middleware.Timeout(90 * time.Second)) // Covers LLM latency plus query time

	// API Handlers (dependency injection)
	apiHandler := backend.NewQueryService(db, source, engine, exports, exportBucket)

	apiHandler.AddRoutes(r)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: r,
	}

	// Goroutine for graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %d", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v\n", cfg.Port, err)
	}

	log.Println("Server stopped.")
}

func createExportStore(cfg config.Config) (storage.ObjectStore, string, error) {
	if cfg.ExportBucket != "" {
		store, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
			Endpoint:        cfg.S3EndpointURL,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, "", err
		}
		return store, cfg.ExportBucket, nil
	}

	// No bucket configured, exports land under the data directory.
	store, err := storage.NewLocalObjectStore(cfg.DataDir)
	if err != nil {
		return nil, "", err
	}
	return store, "", nil
}
