// ABOUTME: Error taxonomy shared by the chunker, embedder, vector index, and ingestion pipeline
// ABOUTME: Callers classify failures with errors.As against these concrete types
package models

import "fmt"

// ConfigurationError reports an invalid setting detected before any work starts
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// EmbeddingServiceError reports a failed embedding call or a vector of the wrong size
type EmbeddingServiceError struct {
	Op  string
	Err error
}

func (e *EmbeddingServiceError) Error() string {
	return fmt.Sprintf("embedding service %s: %v", e.Op, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// DimensionMismatchError is raised locally before a vector reaches the index backend
type DimensionMismatchError struct {
	ID       string
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("vector dimension mismatch (expected %d, got %d)", e.Expected, e.Got)
	}
	return fmt.Sprintf("vector %s dimension mismatch (expected %d, got %d)", e.ID, e.Expected, e.Got)
}

// IndexBackendError wraps a failed upsert, query, or clear against the vector backend
type IndexBackendError struct {
	Op      string
	Backend string
	Err     error
}

func (e *IndexBackendError) Error() string {
	return fmt.Sprintf("%s index %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *IndexBackendError) Unwrap() error { return e.Err }

// SourceFetchError reports a page that could not be loaded or rendered
type SourceFetchError struct {
	Locator string
	Err     error
}

func (e *SourceFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
}

func (e *SourceFetchError) Unwrap() error { return e.Err }
