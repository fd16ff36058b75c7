package classifier

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/bft-labs/signtype/pkg/log"
	"github.com/bft-labs/signtype/pkg/vocab"
)

// Guard wraps a Classifier and enforces the output contract: the label is in
// the vocabulary and the confidence is in [0, 1]. Guard.Classify never returns
// an error.
type Guard struct {
	inner  Classifier
	vocab  *vocab.Vocabulary
	idle   string
	logger log.Logger
}

// NewGuard creates a guard around inner. A nil vocabulary accepts any label.
func NewGuard(inner Classifier, v *vocab.Vocabulary, idle string, logger log.Logger) *Guard {
	return &Guard{
		inner:  inner,
		vocab:  v,
		idle:   idle,
		logger: log.With(logger, log.String("component", "classifier")),
	}
}

// Classify runs the wrapped classifier. Failures yield the idle label with
// zero confidence.
func (g *Guard) Classify(ctx context.Context, img image.Image) (pred Prediction, _ error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("classifier panicked", log.String("panic", fmt.Sprint(r)))
			pred = g.fallback()
		}
	}()

	p, err := g.inner.Classify(ctx, img)
	if err != nil {
		g.logger.Warn("classification failed", log.Err(err))
		return g.fallback(), nil
	}
	if g.vocab != nil && !g.vocab.Contains(p.Label) {
		g.logger.Warn("classification failed",
			log.Err(fmt.Errorf("%w: %q", ErrUnknownLabel, p.Label)))
		return g.fallback(), nil
	}
	p.Confidence = clampConfidence(p.Confidence)
	p.Fallback = false
	return p, nil
}

func (g *Guard) fallback() Prediction {
	return Prediction{Label: g.idle, Confidence: 0, Fallback: true}
}

func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
