package inference

import (
	"context"

	"github.com/jo-hoe/leafdoctor/internal/backend/preprocessing"
)

// StaticClassifier returns a fixed score vector for every input. It stands in
// for a model artifact in tests and local development.
type StaticClassifier struct {
	Scores []float32
	Err    error
	Calls  int
}

func (s *StaticClassifier) Classify(ctx context.Context, input *preprocessing.Tensor) ([]float32, error) {
	s.Calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]float32, len(s.Scores))
	copy(out, s.Scores)
	return out, nil
}

func (s *StaticClassifier) Close() error {
	return nil
}

// OneHot builds a score vector of length n with the maximum at index
func OneHot(n, index int) []float32 {
	scores := make([]float32, n)
	for i := range scores {
		scores[i] = 0.01
	}
	if index >= 0 && index < n {
		scores[index] = 0.9
	}
	return scores
}
