package domain

// DocumentResult is a single ranked retrieval hit with provenance.
type DocumentResult struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float32 `json:"score"`
	Page   *int    `json:"page"`
}

// QueryAnswer is the full response for a semantic query. Message is set
// (and Results empty) when the collection holds no points; that is a
// documented empty state, not a failure.
type QueryAnswer struct {
	Query   string           `json:"query"`
	Results []DocumentResult `json:"results"`
	Message string           `json:"message,omitempty"`
}
