package domain

// Metadata carries the provenance of a piece of extracted text.
// Source is the filename the caller declared at upload time, never a
// temporary on-disk path. Page is the 1-indexed page number for paged
// formats and nil for whole-file text.
type Metadata struct {
	Source string `json:"source"`
	Page   *int   `json:"page,omitempty"`
}

// Clone returns a copy that shares no pointers with the original.
func (m Metadata) Clone() Metadata {
	if m.Page != nil {
		p := *m.Page
		m.Page = &p
	}
	return m
}

// Record is one logical unit of loaded document text before chunking:
// a whole file, or a single page of a paged format.
type Record struct {
	Content  string
	Metadata Metadata
}

// Chunk is a bounded-length fragment of a Record. Chunks inherit their
// Record's metadata verbatim and are the unit stored in the vector index.
type Chunk struct {
	Content  string
	Metadata Metadata
}

// Point is a vectorized chunk ready for upsert into the index engine.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a search match returned by the index engine, in the
// engine's native best-first order.
type ScoredPoint struct {
	Score   float32
	Payload map[string]any
}

// CollectionStats holds read-only collection counters.
type CollectionStats struct {
	PointCount uint64
}
