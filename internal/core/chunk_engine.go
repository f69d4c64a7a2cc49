// ABOUTME: ChunkEngine splits page text into overlapping chunks for embedding
// ABOUTME: Recursively tries coarse separators first, falling back to raw character cuts
package core

import (
	"strings"
	"unicode/utf8"

	"github.com/harper/sitechat/internal/models"
)

// ChunkEngine handles recursive, overlap-aware text chunking
type ChunkEngine struct {
	size       int
	overlap    int
	separators []string
}

// NewChunkEngine creates a ChunkEngine, rejecting configurations where overlap >= size
func NewChunkEngine(cfg models.ChunkConfig) (*ChunkEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seps := make([]string, 0, len(cfg.Separators)+1)
	seps = append(seps, cfg.Separators...)
	if len(seps) == 0 || seps[len(seps)-1] != "" {
		// Character-level fallback so oversized segments are always cut.
		seps = append(seps, "")
	}

	return &ChunkEngine{
		size:       cfg.ChunkSize,
		overlap:    cfg.Overlap,
		separators: seps,
	}, nil
}

// ChunkPage splits text and tags each chunk with its source URL and sequence index
func (ce *ChunkEngine) ChunkPage(sourceURL, text string) []models.Chunk {
	parts := ce.Split(text)
	chunks := make([]models.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, models.Chunk{
			SourceURL: sourceURL,
			Index:     i,
			Text:      part,
			Length:    utf8.RuneCountInString(part),
		})
	}
	return chunks
}

// Split returns the ordered chunk texts for the given input
func (ce *ChunkEngine) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return ce.splitRecursive(text, ce.separators)
}

func (ce *ChunkEngine) splitRecursive(text string, separators []string) []string {
	// Pick the coarsest separator present in this text
	separator := separators[len(separators)-1]
	var finer []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			finer = separators[i+1:]
			break
		}
	}

	var chunks []string
	var pending []string
	for _, piece := range splitOn(text, separator) {
		if runeLen(piece) <= ce.size {
			pending = append(pending, piece)
			continue
		}

		if len(pending) > 0 {
			chunks = append(chunks, ce.merge(pending, separator)...)
			pending = nil
		}

		if len(finer) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, ce.splitRecursive(piece, finer)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, ce.merge(pending, separator)...)
	}

	return chunks
}

// merge greedily packs pieces into chunks of at most ce.size runes, carrying
// up to ce.overlap runes of trailing pieces into the next chunk
func (ce *ChunkEngine) merge(pieces []string, separator string) []string {
	sepLen := runeLen(separator)

	var docs []string
	var current []string
	total := 0

	joinedLen := func(next int) int {
		if len(current) > 0 {
			return total + next + sepLen
		}
		return total + next
	}

	for _, piece := range pieces {
		n := runeLen(piece)
		if joinedLen(n) > ce.size && len(current) > 0 {
			if doc := joinDoc(current, separator); doc != "" {
				docs = append(docs, doc)
			}
			for total > ce.overlap || (joinedLen(n) > ce.size && total > 0) {
				drop := runeLen(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}

		current = append(current, piece)
		if len(current) > 1 {
			total += n + sepLen
		} else {
			total += n
		}
	}

	if doc := joinDoc(current, separator); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitOn splits on a literal separator (or into runes for the empty separator) and drops empty pieces
func splitOn(text, separator string) []string {
	var raw []string
	if separator == "" {
		raw = make([]string, 0, len(text))
		for _, r := range text {
			raw = append(raw, string(r))
		}
	} else {
		raw = strings.Split(text, separator)
	}

	pieces := raw[:0]
	for _, p := range raw {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

func joinDoc(parts []string, separator string) string {
	return strings.TrimSpace(strings.Join(parts, separator))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
