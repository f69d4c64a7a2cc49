// ABOUTME: Vector models for the similarity index and retrieval results
// ABOUTME: Defines IndexedVector, VectorMetadata, Match, and RetrievalResult
package models

import "fmt"

// DefaultEmbeddingDimension matches the 768-dimensional site embedding model
const DefaultEmbeddingDimension = 768

// DefaultMetadataTextLimit bounds the excerpt stored alongside each vector
const DefaultMetadataTextLimit = 500

// VectorMetadata is stored next to each vector in the index
type VectorMetadata struct {
	URL        string `json:"url"`
	Text       string `json:"text"`
	ChunkIndex int    `json:"chunk_index"`
}

// IndexedVector is an (id, vector, metadata) triple
type IndexedVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata VectorMetadata `json:"metadata"`
}

// ValidateDimension checks the vector length against the index dimension
func (v IndexedVector) ValidateDimension(expected int) error {
	if len(v.Values) != expected {
		return &DimensionMismatchError{ID: v.ID, Expected: expected, Got: len(v.Values)}
	}
	return nil
}

// Match is one nearest-neighbour hit with its stored metadata
type Match struct {
	ID         string  `json:"id"`
	URL        string  `json:"url"`
	Text       string  `json:"text"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// RetrievalResult is ordered by descending Score
type RetrievalResult []Match

// Texts returns the non-empty chunk texts in rank order
func (r RetrievalResult) Texts() []string {
	texts := make([]string, 0, len(r))
	for _, m := range r {
		if m.Text == "" {
			continue
		}
		texts = append(texts, m.Text)
	}
	return texts
}

// String renders a match for logs and CLI output
func (m Match) String() string {
	return fmt.Sprintf("%.3f %s#%d", m.Score, m.URL, m.ChunkIndex)
}
