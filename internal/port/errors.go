package port

import "errors"

// Sentinel errors used across ports.
var (
	// ErrCollectionExists is returned by CreateCollection when another
	// writer created the collection first. Callers racing on lazy
	// creation treat it as success.
	ErrCollectionExists = errors.New("collection already exists")
)
