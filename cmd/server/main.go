package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/easyrag/easyrag/internal/adapter/ai"
	"github.com/easyrag/easyrag/internal/adapter/index"
	"github.com/easyrag/easyrag/internal/chunker"
	"github.com/easyrag/easyrag/internal/domain"
	"github.com/easyrag/easyrag/internal/handler"
	"github.com/easyrag/easyrag/internal/loader"
	"github.com/easyrag/easyrag/internal/port"
	"github.com/easyrag/easyrag/internal/service"
	"github.com/easyrag/easyrag/pkg/config"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting EasyRAG",
		"port", cfg.Port,
		"backend", cfg.VectorBackend,
		"collection", cfg.CollectionName,
		"embed_model", cfg.OllamaEmbedModel,
	)

	metric, err := domain.ParseDistance(cfg.DistanceMetric)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// ── Vector index backend ─────────────────────────────────────────────
	var vectorIndex port.VectorIndex
	switch cfg.VectorBackend {
	case "qdrant":
		vectorIndex, err = index.NewQdrantIndex(cfg.QdrantAddr)
	case "pgvector":
		vectorIndex, err = index.NewPgVectorIndex(cfg.DatabaseURL, metric)
	default:
		slog.Error("unknown vector backend", "backend", cfg.VectorBackend)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("failed to connect to vector index", "backend", cfg.VectorBackend, "error", err)
		os.Exit(1)
	}
	defer vectorIndex.Close()

	// ── Adapters ─────────────────────────────────────────────────────────
	embedder := ai.NewOllamaEmbedder(ai.OllamaConfig{
		BaseURL: cfg.OllamaEmbedURL,
		Model:   cfg.OllamaEmbedModel,
		Token:   cfg.OllamaEmbedToken,
	})

	if err := loader.CheckAvailable(); err != nil {
		slog.Warn("PDF support disabled", "error", err)
	}

	textChunker, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		slog.Error("invalid chunking configuration",
			"chunk_size", cfg.ChunkSize,
			"chunk_overlap", cfg.ChunkOverlap,
			"error", err)
		os.Exit(1)
	}

	// ── Services ─────────────────────────────────────────────────────────
	vectorStore := service.NewVectorStoreService(embedder, vectorIndex, cfg.CollectionName, metric)
	ingestService := service.NewIngestService(loader.New(cfg.BatchSize, nil), textChunker, vectorStore)
	queryService := service.NewQueryService(vectorStore, cfg.DefaultK, cfg.MaxK)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	// ── Routes ───────────────────────────────────────────────────────────
	app.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"app":     cfg.AppName,
			"message": "upload documents to /api/v1/upload, query them at /api/v1/ask",
		})
	})

	healthHandler := handler.NewHealthHandler(vectorStore)
	healthHandler.Register(app)

	api := app.Group("/api/v1")
	documentHandler := handler.NewDocumentHandler(ingestService, queryService)
	documentHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		slog.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("🌐 Fiber listening", "host", cfg.Host, "port", cfg.Port)
	if err := app.Listen(cfg.Host + ":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
