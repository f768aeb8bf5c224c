// Package chunker splits loaded records into overlapping, bounded-length
// text chunks using a prioritized separator cascade.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/easyrag/easyrag/internal/domain"
)

// ErrOverlapTooLarge is returned by New when chunk_overlap >= chunk_size.
var ErrOverlapTooLarge = errors.New("chunk overlap must be smaller than chunk size")

// defaultSeparators orders split points from coarsest to finest:
// paragraph breaks, line breaks, sentence ends, words, characters.
var defaultSeparators = []string{"\n\n\n", "\n\n", "\n", ". ", " ", ""}

// Chunker is a pure, deterministic recursive-cascade text splitter.
// Lengths are measured in characters (runes).
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// New validates the configuration and returns a Chunker.
func New(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk size %d, overlap %d: %w", chunkSize, chunkOverlap, ErrOverlapTooLarge)
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}, nil
}

// Chunk splits every record's content into chunks of at most chunkSize
// characters, adjacent chunks overlapping by approximately chunkOverlap
// characters along separator boundaries. Each chunk carries its record's
// metadata unchanged. Empty records yield no chunks.
func (c *Chunker) Chunk(records []domain.Record) []domain.Chunk {
	var chunks []domain.Chunk
	for _, rec := range records {
		if strings.TrimSpace(rec.Content) == "" {
			continue
		}
		pieces := c.split(rec.Content, c.separators)
		for _, content := range c.merge(pieces) {
			chunks = append(chunks, domain.Chunk{
				Content:  content,
				Metadata: rec.Metadata.Clone(),
			})
		}
	}
	return chunks
}

// split recursively breaks text into pieces no longer than chunkSize.
// Separators stay attached to the end of the piece they terminate, so
// concatenating the pieces reproduces the input exactly.
func (c *Chunker) split(text string, separators []string) []string {
	if utf8.RuneCountInString(text) <= c.chunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return splitEvery(text, c.chunkSize)
	}

	sep := separators[0]
	rest := separators[1:]
	if sep == "" {
		return splitEvery(text, c.chunkSize)
	}

	parts := splitAfter(text, sep)
	if len(parts) == 1 {
		// Separator absent, fall through to the next finer one.
		return c.split(text, rest)
	}

	var pieces []string
	for _, part := range parts {
		if utf8.RuneCountInString(part) <= c.chunkSize {
			pieces = append(pieces, part)
		} else {
			pieces = append(pieces, c.split(part, rest)...)
		}
	}
	return pieces
}

// merge slides a window over size-bounded pieces, emitting chunks that
// target chunkSize. When a chunk is emitted, the tail pieces totalling at
// most chunkOverlap characters are retained to seed the next chunk. The
// overlap is approximate: a piece longer than the overlap budget is never
// split just to hit it.
func (c *Chunker) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	for _, piece := range pieces {
		length := utf8.RuneCountInString(piece)
		if total > 0 && total+length > c.chunkSize {
			chunks = append(chunks, strings.Join(window, ""))
			for len(window) > 0 && (total > c.chunkOverlap || total+length > c.chunkSize) {
				total -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += length
	}
	if total > 0 {
		chunks = append(chunks, strings.Join(window, ""))
	}
	return chunks
}

// splitAfter splits on sep keeping the separator at the end of each part,
// dropping the empty trailing part produced when text ends with sep.
func splitAfter(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitEvery is the character-level base case: fixed runs of n runes.
func splitEvery(text string, n int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += n {
		end := start + n
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}
