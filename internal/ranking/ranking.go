// Package ranking orders items by cosine similarity of their embeddings to a candidate vector.
package ranking

import (
	"fmt"
	"math"
	"sort"

	"github.com/spigell/smartintern/internal/errs"
)

// Match is one ranked item with its similarity to the candidate.
type Match[T any] struct {
	Item  T
	Score float64
	// Index is the position of Item in the input slice.
	Index int
}

// Cosine returns the cosine similarity of a and b in [-1, 1].
// A zero-norm vector yields 0. Vectors must have equal, finite components.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: vector dimensions differ: %d vs %d", errs.ErrInput, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		if !finite(x) || !finite(y) {
			return 0, fmt.Errorf("%w: vector component %d is not finite", errs.ErrInput, i)
		}
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim)), nil
}

// Rank scores every vector against candidate and returns the topK best matches,
// highest score first. Equal scores keep input order. topK larger than the
// number of items returns all of them; topK == 0 returns none.
func Rank[T any](candidate []float32, vectors [][]float32, items []T, topK int) ([]Match[T], error) {
	if topK < 0 {
		return nil, fmt.Errorf("%w: top_k must not be negative, got %d", errs.ErrInput, topK)
	}
	if len(vectors) != len(items) {
		return nil, fmt.Errorf("%w: %d vectors for %d items", errs.ErrInput, len(vectors), len(items))
	}

	matches := make([]Match[T], 0, len(items))
	for i, vec := range vectors {
		score, err := Cosine(candidate, vec)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		matches = append(matches, Match[T]{Item: items[i], Score: score, Index: i})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK < len(matches) {
		matches = matches[:topK]
	}

	return matches, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
