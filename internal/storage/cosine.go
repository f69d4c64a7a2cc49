// ABOUTME: Brute-force cosine similarity ranking shared by the KV-style backends
// ABOUTME: Used where the store has no native nearest-neighbour query
package storage

import (
	"math"
	"sort"

	"github.com/harper/sitechat/internal/models"
)

// cosineSimilarity calculates cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankVectors scores every candidate against query and keeps the best topK
func rankVectors(query []float32, candidates []models.IndexedVector, topK int) models.RetrievalResult {
	result := make(models.RetrievalResult, 0, len(candidates))
	for _, v := range candidates {
		result = append(result, models.Match{
			ID:         v.ID,
			URL:        v.Metadata.URL,
			Text:       v.Metadata.Text,
			ChunkIndex: v.Metadata.ChunkIndex,
			Score:      cosineSimilarity(query, v.Values),
		})
	}

	// Sort by similarity score (descending), ID breaks ties
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score == result[j].Score {
			return result[i].ID < result[j].ID
		}
		return result[i].Score > result[j].Score
	})

	if topK > 0 && len(result) > topK {
		result = result[:topK]
	}
	return result
}
