// Package handler exposes the HTTP surface over Fiber.
package handler

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v3"

	"github.com/easyrag/easyrag/internal/service"
)

// DocumentHandler handles document upload and query endpoints.
type DocumentHandler struct {
	ingest *service.IngestService
	query  *service.QueryService
}

// NewDocumentHandler creates a new document handler.
func NewDocumentHandler(ingest *service.IngestService, query *service.QueryService) *DocumentHandler {
	return &DocumentHandler{ingest: ingest, query: query}
}

// Register sets up document routes.
func (h *DocumentHandler) Register(router fiber.Router) {
	router.Post("/upload", h.Upload)
	router.Post("/ask", h.Ask)
}

// Upload accepts a multipart file, indexes it and reports the number of
// chunks written. The upload is staged in a temp file that is removed on
// every path; the chunks keep the client's filename as their source.
func (h *DocumentHandler) Upload(c fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing file field"})
	}

	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(file.Filename))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fmt.Sprintf("stage upload: %v", err)})
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := c.SaveFile(file, tmpPath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fmt.Sprintf("stage upload: %v", err)})
	}

	chunks, err := h.ingest.Ingest(c.Context(), tmpPath, file.Filename)
	if err != nil {
		slog.Error("ingest failed", "source", file.Filename, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"status":         "ok",
		"chunks_indexed": chunks,
	})
}

// Ask answers a semantic query over the indexed documents.
func (h *DocumentHandler) Ask(c fiber.Ctx) error {
	var body struct {
		Query string `json:"query"`
		K     int    `json:"k"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query is required"})
	}

	answer, err := h.query.Answer(c.Context(), body.Query, body.K)
	if err != nil {
		slog.Error("query failed", "query", body.Query, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(answer)
}
