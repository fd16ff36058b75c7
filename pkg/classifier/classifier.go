package classifier

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrUndecodable is returned when a frame payload is not a decodable image.
	ErrUndecodable = errors.New("undecodable frame")

	// ErrUnknownLabel is returned when a classifier emits a label outside the
	// vocabulary.
	ErrUnknownLabel = errors.New("label not in vocabulary")
)

// Prediction is a single classifier output.
type Prediction struct {
	Label      string
	Confidence float64

	// Fallback is set when the prediction was substituted by Guard.
	Fallback bool
}

// Classifier maps an image to a label and a confidence in [0, 1].
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (Prediction, error)
}

// Func adapts a function to the Classifier interface.
type Func func(ctx context.Context, img image.Image) (Prediction, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, img image.Image) (Prediction, error) {
	return f(ctx, img)
}
