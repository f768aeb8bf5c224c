// Command indexer bulk-loads a directory of documents into the vector
// index without going through the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/easyrag/easyrag/internal/adapter/ai"
	"github.com/easyrag/easyrag/internal/adapter/index"
	"github.com/easyrag/easyrag/internal/chunker"
	"github.com/easyrag/easyrag/internal/domain"
	"github.com/easyrag/easyrag/internal/loader"
	"github.com/easyrag/easyrag/internal/port"
	"github.com/easyrag/easyrag/internal/service"
	"github.com/easyrag/easyrag/pkg/config"
)

var indexableExts = map[string]bool{
	".txt": true,
	".md":  true,
	".pdf": true,
}

func main() {
	dir := flag.String("dir", ".", "Directory containing documents to index")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if err := run(context.Background(), cfg, *dir, green, cyan); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, dir string, green, cyan func(...interface{}) string) error {
	metric, err := domain.ParseDistance(cfg.DistanceMetric)
	if err != nil {
		return err
	}

	var vectorIndex port.VectorIndex
	switch cfg.VectorBackend {
	case "qdrant":
		vectorIndex, err = index.NewQdrantIndex(cfg.QdrantAddr)
	case "pgvector":
		vectorIndex, err = index.NewPgVectorIndex(cfg.DatabaseURL, metric)
	default:
		return fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
	if err != nil {
		return err
	}
	defer vectorIndex.Close()

	textChunker, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return err
	}

	embedder := ai.NewOllamaEmbedder(ai.OllamaConfig{
		BaseURL: cfg.OllamaEmbedURL,
		Model:   cfg.OllamaEmbedModel,
		Token:   cfg.OllamaEmbedToken,
	})
	store := service.NewVectorStoreService(embedder, vectorIndex, cfg.CollectionName, metric)
	ingest := service.NewIngestService(loader.New(cfg.BatchSize, nil), textChunker, store)

	files, err := collectFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no indexable documents under %s", dir)
	}

	fmt.Printf("%s %d documents into collection %s\n", cyan("indexing"), len(files), cfg.CollectionName)

	total := 0
	for i, path := range files {
		name := filepath.Base(path)
		chunks, err := ingest.Ingest(ctx, path, name)
		if err != nil {
			return fmt.Errorf("index %s: %w", name, err)
		}
		total += chunks
		fmt.Printf("  [%d/%d] %s %s (%d chunks)\n", i+1, len(files), green("✔"), name, chunks)
	}

	fmt.Printf("%s %d chunks indexed\n", green("done:"), total)
	return nil
}

// collectFiles walks dir and returns the documents with a supported
// extension.
func collectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if indexableExts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
