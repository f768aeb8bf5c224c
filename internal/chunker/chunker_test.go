package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easyrag/easyrag/internal/domain"
)

func record(content string) domain.Record {
	return domain.Record{Content: content, Metadata: domain.Metadata{Source: "test.txt"}}
}

// overlapLen returns the length of the longest prefix of next that is a
// suffix of prev.
func overlapLen(prev, next string) int {
	max := len(prev)
	if len(next) < max {
		max = len(next)
	}
	for o := max; o > 0; o-- {
		if strings.HasSuffix(prev, next[:o]) {
			return o
		}
	}
	return 0
}

// reconstruct concatenates chunks deduplicating each overlapping region.
func reconstruct(chunks []domain.Chunk) string {
	var sb strings.Builder
	for i, c := range chunks {
		if i == 0 {
			sb.WriteString(c.Content)
			continue
		}
		o := overlapLen(chunks[i-1].Content, c.Content)
		sb.WriteString(c.Content[o:])
	}
	return sb.String()
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{name: "overlap equals size", size: 100, overlap: 100},
		{name: "overlap exceeds size", size: 100, overlap: 150},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.size, tc.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrOverlapTooLarge)
		})
	}

	_, err := New(0, 0)
	assert.Error(t, err)

	_, err = New(100, -1)
	assert.Error(t, err)
}

func TestChunk_ShortRecordYieldsIdentity(t *testing.T) {
	c, err := New(200, 20)
	require.NoError(t, err)

	content := "A short paragraph.\n\nWith a second one that still fits."
	chunks := c.Chunk([]domain.Record{record(content)})

	require.Len(t, chunks, 1)
	assert.Equal(t, content, chunks[0].Content)
	assert.Equal(t, "test.txt", chunks[0].Metadata.Source)
}

func TestChunk_EmptyRecordYieldsNothing(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)

	chunks := c.Chunk([]domain.Record{record(""), record("   \n\n  ")})
	assert.Empty(t, chunks)
}

func TestChunk_BoundAndReconstruction(t *testing.T) {
	c, err := New(100, 20)
	require.NoError(t, err)

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "Line %02d holds some distinct filler text.\n", i)
	}
	content := sb.String()

	chunks := c.Chunk([]domain.Record{record(content)})
	require.Greater(t, len(chunks), 1)

	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), 100)
	}
	assert.Equal(t, content, reconstruct(chunks))
}

func TestChunk_ProseScenario(t *testing.T) {
	// 1500 characters of prose in two paragraphs, chunk_size=600,
	// chunk_overlap=80: three chunks, each bounded, each overlapping
	// its predecessor.
	c, err := New(600, 80)
	require.NoError(t, err)

	sentence := func(i int) string {
		s := fmt.Sprintf("Sentence %02d keeps the narrative moving toward its patient conclusion", i)
		return s + ". "
	}
	var para1, para2 strings.Builder
	for i := 1; i <= 10; i++ {
		para1.WriteString(sentence(i))
	}
	for i := 11; i <= 20; i++ {
		para2.WriteString(sentence(i))
	}
	content := strings.TrimSpace(para1.String()) + "\n\n" + strings.TrimSpace(para2.String())
	require.InDelta(t, 1500, len(content), 110)

	chunks := c.Chunk([]domain.Record{record(content)})
	require.Len(t, chunks, 3)

	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), 600)
	}
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, overlapLen(chunks[i-1].Content, chunks[i].Content), 0,
			"chunk %d should share a prefix with the tail of chunk %d", i, i-1)
	}
	assert.Equal(t, content, reconstruct(chunks))
}

func TestChunk_IndivisibleWordFallsBackToCharacters(t *testing.T) {
	c, err := New(50, 5)
	require.NoError(t, err)

	content := strings.Repeat("x", 173)
	chunks := c.Chunk([]domain.Record{record(content)})

	require.NotEmpty(t, chunks)
	var joined strings.Builder
	for _, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), 50)
		joined.WriteString(ch.Content)
	}
	// Character-level fallback emits disjoint runs.
	assert.Equal(t, content, joined.String())
}

func TestChunk_MetadataPreserved(t *testing.T) {
	c, err := New(80, 10)
	require.NoError(t, err)

	page := 4
	rec := domain.Record{
		Content:  strings.Repeat("Some words repeated over and over again here. ", 10),
		Metadata: domain.Metadata{Source: "manual.pdf", Page: &page},
	}

	chunks := c.Chunk([]domain.Record{rec})
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.Equal(t, "manual.pdf", ch.Metadata.Source)
		require.NotNil(t, ch.Metadata.Page)
		assert.Equal(t, 4, *ch.Metadata.Page)
	}

	// Metadata is copied, not shared.
	*chunks[0].Metadata.Page = 99
	assert.Equal(t, 4, *chunks[1].Metadata.Page)
	assert.Equal(t, 4, page)
}

func TestChunk_MultipleRecordsKeepTheirOwnMetadata(t *testing.T) {
	c, err := New(500, 50)
	require.NoError(t, err)

	p1, p2 := 1, 2
	recs := []domain.Record{
		{Content: "First page text.", Metadata: domain.Metadata{Source: "doc.pdf", Page: &p1}},
		{Content: "Second page text.", Metadata: domain.Metadata{Source: "doc.pdf", Page: &p2}},
	}

	chunks := c.Chunk(recs)
	require.Len(t, chunks, 2)
	assert.Equal(t, 1, *chunks[0].Metadata.Page)
	assert.Equal(t, 2, *chunks[1].Metadata.Page)
}
