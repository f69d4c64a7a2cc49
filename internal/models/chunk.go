// ABOUTME: Chunk represents a bounded span of page text prepared for embedding
// ABOUTME: ChunkConfig carries the size, overlap, and separator hierarchy used to produce chunks
package models

import "fmt"

// Default chunking parameters
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50

	// DefaultMinContentLength is the shortest cleaned page worth indexing
	DefaultMinContentLength = 100
)

// DefaultSeparators are tried coarsest first: paragraph, line, word, character
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunk is one segment of a source page
type Chunk struct {
	SourceURL string `json:"source_url"`
	Index     int    `json:"index"`
	Text      string `json:"text"`
	Length    int    `json:"length"`
}

// ChunkConfig controls how page text is split
type ChunkConfig struct {
	ChunkSize  int      `json:"chunk_size"`
	Overlap    int      `json:"overlap"`
	Separators []string `json:"separators"`
}

// DefaultChunkConfig returns the chunking parameters used when nothing is configured
func DefaultChunkConfig() ChunkConfig {
	seps := make([]string, len(DefaultSeparators))
	copy(seps, DefaultSeparators)
	return ChunkConfig{
		ChunkSize:  DefaultChunkSize,
		Overlap:    DefaultChunkOverlap,
		Separators: seps,
	}
}

// Validate rejects parameters that cannot produce bounded, overlapping chunks
func (c ChunkConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return &ConfigurationError{Field: "chunk_size", Reason: fmt.Sprintf("must be positive, got %d", c.ChunkSize)}
	}
	if c.Overlap < 0 {
		return &ConfigurationError{Field: "chunk_overlap", Reason: fmt.Sprintf("must not be negative, got %d", c.Overlap)}
	}
	if c.Overlap >= c.ChunkSize {
		return &ConfigurationError{
			Field:  "chunk_overlap",
			Reason: fmt.Sprintf("must be smaller than chunk_size (%d >= %d)", c.Overlap, c.ChunkSize),
		}
	}
	return nil
}
