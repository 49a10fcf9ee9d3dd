package similarity

import (
	"errors"
	"math"
	"sort"
)

// ErrDimensionMismatch is returned when vectors have different lengths
var ErrDimensionMismatch = errors.New("vectors must have same dimension")

// SimilarityCalculator defines the interface for similarity calculations
type SimilarityCalculator interface {
	Calculate(a, b []float32) (float32, error)
}

// CosineSimilarityCalculator implements cosine similarity calculation
type CosineSimilarityCalculator struct{}

// NewCosineSimilarityCalculator creates a new cosine similarity calculator
func NewCosineSimilarityCalculator() *CosineSimilarityCalculator {
	return &CosineSimilarityCalculator{}
}

// Calculate computes cosine similarity between two vectors. Accumulation is
// done in float64; zero or empty vectors have similarity 0.
func (c *CosineSimilarityCalculator) Calculate(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	if len(a) == 0 {
		return 0, nil
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	// Handle zero vectors
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return float32(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}

// CosineDistance is 1 - cosine similarity
func (c *CosineSimilarityCalculator) CosineDistance(a, b []float32) (float32, error) {
	s, err := c.Calculate(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - s, nil
}

// Normalize returns v scaled to unit L2 norm. A zero vector is returned as is.
func Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	norm = math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Average returns the element-wise mean of vectors
func Average(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, errors.New("no vectors to average")
	}
	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, ErrDimensionMismatch
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	out := make([]float32, dim)
	for i := range sum {
		out[i] = float32(sum[i] / float64(len(vectors)))
	}
	return out, nil
}

// Match is the closest enrolled speaker for a vector
type Match struct {
	Label string
	Score float32
}

// BestMatch scores v against every reference and returns the highest
// scoring label. Ties resolve to the lexicographically smallest label.
func (c *CosineSimilarityCalculator) BestMatch(v []float32, references map[string][]float32) (Match, error) {
	labels := make([]string, 0, len(references))
	for label := range references {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	best := Match{Score: float32(math.Inf(-1))}
	for _, label := range labels {
		score, err := c.Calculate(v, references[label])
		if err != nil {
			return Match{}, err
		}
		if score > best.Score {
			best = Match{Label: label, Score: score}
		}
	}
	if best.Label == "" {
		return Match{}, errors.New("no references to match against")
	}
	return best, nil
}
