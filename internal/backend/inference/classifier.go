package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jo-hoe/leafdoctor/internal/backend/preprocessing"
	"github.com/jo-hoe/leafdoctor/internal/catalog"
)

// Classifier runs a single forward pass and returns one score per class
type Classifier interface {
	Classify(ctx context.Context, input *preprocessing.Tensor) ([]float32, error)
	Close() error
}

// ArgMax returns the index of the largest score. Ties resolve to the first
// index and a NaN counts as the maximum, so the first NaN wins.
func ArgMax(scores []float32) (int, error) {
	if len(scores) == 0 {
		return 0, errors.New("empty score vector")
	}
	best := 0
	for i, score := range scores {
		if math.IsNaN(float64(score)) {
			return i, nil
		}
		if score > scores[best] {
			best = i
		}
	}
	return best, nil
}

// Prediction is the outcome of classifying one image
type Prediction struct {
	Label    catalog.Label
	Score    float32
	Duration time.Duration
}

// Predictor maps classifier output onto the disease catalog
type Predictor struct {
	classifier Classifier
}

func NewPredictor(classifier Classifier) *Predictor {
	return &Predictor{classifier: classifier}
}

// Predict forces every input into one of the catalog classes
func (p *Predictor) Predict(ctx context.Context, input *preprocessing.Tensor) (*Prediction, error) {
	start := time.Now()
	scores, err := p.classifier.Classify(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	if len(scores) != catalog.Count() {
		return nil, fmt.Errorf("classifier returned %d scores, catalog has %d classes", len(scores), catalog.Count())
	}

	index, err := ArgMax(scores)
	if err != nil {
		return nil, err
	}
	label, err := catalog.LabelAt(index)
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)
	slog.Debug("Predictor: classified image",
		"label", label.String(),
		"score", scores[index],
		"duration_ms", duration.Milliseconds())

	return &Prediction{
		Label:    label,
		Score:    scores[index],
		Duration: duration,
	}, nil
}

// Close releases the underlying classifier
func (p *Predictor) Close() error {
	return p.classifier.Close()
}
