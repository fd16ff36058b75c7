package classifier

import (
	"context"
	"image"
)

// Static always reports the same prediction. It stands in for a model when
// none is configured.
type Static struct {
	Label      string
	Confidence float64
}

// NewStatic returns a Static classifier reporting label with full confidence.
func NewStatic(label string) *Static {
	return &Static{Label: label, Confidence: 1}
}

// Classify returns the configured prediction.
func (s *Static) Classify(ctx context.Context, _ image.Image) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	return Prediction{Label: s.Label, Confidence: s.Confidence}, nil
}
