package loader

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/easyrag/easyrag/internal/port"
)

// ErrPDFToolNotFound indicates poppler-utils is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH (install poppler-utils: brew install poppler / apt install poppler-utils)")

// execRunner runs commands through os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFExtractor extracts page text from PDF files by shelling out to
// poppler's pdfinfo and pdftotext. The command runner is injectable so
// tests don't need poppler installed.
type PDFExtractor struct {
	runner port.CommandRunner
}

// NewPDFExtractor returns an extractor using the given runner, or the
// real exec-backed runner when nil.
func NewPDFExtractor(runner port.CommandRunner) *PDFExtractor {
	if runner == nil {
		runner = execRunner{}
	}
	return &PDFExtractor{runner: runner}
}

// CheckAvailable reports whether the poppler tools are installed.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	if _, err := exec.LookPath("pdfinfo"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// PageCount returns the number of pages reported by pdfinfo.
func (e *PDFExtractor) PageCount(ctx context.Context, path string) (int, error) {
	out, err := e.runner.Run(ctx, "pdfinfo", path)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo %s: %w", path, err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err != nil {
			return 0, fmt.Errorf("pdfinfo %s: bad page count: %w", path, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo %s: page count not reported", path)
}

// ExtractPages returns the text of pages first..last (1-indexed,
// inclusive), one string per page in positional order. pdftotext emits a
// form feed after every page; a count mismatch is reconciled
// positionally rather than failing the batch.
func (e *PDFExtractor) ExtractPages(ctx context.Context, path string, first, last int) ([]string, error) {
	out, err := e.runner.Run(ctx, "pdftotext",
		"-f", strconv.Itoa(first),
		"-l", strconv.Itoa(last),
		"-enc", "UTF-8",
		path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext %s pages %d-%d: %w", path, first, last, err)
	}

	pages := strings.Split(strings.TrimSuffix(string(out), "\f"), "\f")
	want := last - first + 1
	if len(pages) > want {
		pages = pages[:want]
	}
	for len(pages) < want {
		pages = append(pages, "")
	}
	return pages, nil
}
