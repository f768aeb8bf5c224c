// Package loader reads uploaded documents into batches of records with
// provenance metadata, page by page for PDFs.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/easyrag/easyrag/internal/domain"
	"github.com/easyrag/easyrag/internal/port"
)

// Loader decides the extraction strategy by file extension: PDFs are
// extracted page-structured and batched lazily; everything else is read
// as a single whole-file text record.
type Loader struct {
	batchSize int
	pdf       *PDFExtractor
}

// New returns a Loader yielding batches of at most batchSize records.
// A nil runner means the real poppler tools are used for PDFs.
func New(batchSize int, runner port.CommandRunner) *Loader {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Loader{
		batchSize: batchSize,
		pdf:       NewPDFExtractor(runner),
	}
}

// Load opens the document at path and returns a single-pass iterator
// over record batches. declaredName is the filename the uploader
// declared; it becomes the source metadata of every record regardless of
// where the file sits on disk.
func (l *Loader) Load(ctx context.Context, path, declaredName string) (*BatchIterator, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		pageCount, err := l.pdf.PageCount(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("load document %s: %w", path, err)
		}
		return &BatchIterator{
			batchSize: l.batchSize,
			source:    declaredName,
			path:      path,
			pdf:       l.pdf,
			pageCount: pageCount,
			nextPage:  1,
			done:      pageCount == 0,
		}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", path, err)
	}
	rec := domain.Record{
		Content:  string(data),
		Metadata: domain.Metadata{Source: declaredName},
	}
	return &BatchIterator{pending: [][]domain.Record{{rec}}}, nil
}

// BatchIterator yields record batches one at a time so a large document
// is never held in memory whole. It is single-pass and non-restartable:
// once exhausted, Next keeps returning io.EOF.
type BatchIterator struct {
	batchSize int
	source    string
	path      string

	// PDF mode: pages are extracted on demand, one batch per call.
	pdf       *PDFExtractor
	pageCount int
	nextPage  int

	// Text mode: pre-built batches.
	pending [][]domain.Record

	done bool
}

// Next returns the next batch, or io.EOF when the sequence is exhausted.
// An extraction failure ends the sequence.
func (it *BatchIterator) Next(ctx context.Context) ([]domain.Record, error) {
	if it.done {
		return nil, io.EOF
	}

	if it.pdf == nil {
		batch := it.pending[0]
		it.pending = it.pending[1:]
		if len(it.pending) == 0 {
			it.done = true
		}
		return batch, nil
	}

	first := it.nextPage
	last := first + it.batchSize - 1
	if last > it.pageCount {
		last = it.pageCount
	}

	texts, err := it.pdf.ExtractPages(ctx, it.path, first, last)
	if err != nil {
		it.done = true
		return nil, fmt.Errorf("load document %s: %w", it.path, err)
	}

	batch := make([]domain.Record, 0, len(texts))
	for i, text := range texts {
		page := first + i
		batch = append(batch, domain.Record{
			Content:  text,
			Metadata: domain.Metadata{Source: it.source, Page: &page},
		})
	}

	it.nextPage = last + 1
	if it.nextPage > it.pageCount {
		it.done = true
	}
	return batch, nil
}
