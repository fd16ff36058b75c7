package classifier

import (
	"context"
	"crypto/sha256"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Result is the outcome of running one frame through a Pipeline.
type Result struct {
	Prediction Prediction

	// Cached is set when the prediction came from the result cache.
	Cached bool

	// Duration is the time spent in the classifier. It is zero for cache hits.
	Duration time.Duration
}

// Pipeline decodes raw frames, consults the result cache and runs the guarded
// classifier. It is safe for concurrent use.
type Pipeline struct {
	guard *Guard
	cache *lru.Cache[[sha256.Size]byte, Prediction]
	now   func() time.Time
}

// NewPipeline creates a pipeline over guard. cacheSize <= 0 disables the
// result cache.
func NewPipeline(guard *Guard, cacheSize int) (*Pipeline, error) {
	p := &Pipeline{guard: guard, now: time.Now}
	if cacheSize > 0 {
		c, err := lru.New[[sha256.Size]byte, Prediction](cacheSize)
		if err != nil {
			return nil, err
		}
		p.cache = c
	}
	return p, nil
}

// ProcessPayload decodes a base64 or data URL payload and classifies it.
// The only error returned wraps ErrUndecodable.
func (p *Pipeline) ProcessPayload(ctx context.Context, payload string) (Result, error) {
	raw, err := DecodeBase64(payload)
	if err != nil {
		return Result{}, err
	}
	return p.Process(ctx, raw)
}

// Process classifies raw image bytes. The only error returned wraps
// ErrUndecodable.
func (p *Pipeline) Process(ctx context.Context, raw []byte) (Result, error) {
	var key [sha256.Size]byte
	if p.cache != nil {
		key = sha256.Sum256(raw)
		if pred, ok := p.cache.Get(key); ok {
			return Result{Prediction: pred, Cached: true}, nil
		}
	}

	img, err := DecodeImage(raw)
	if err != nil {
		return Result{}, err
	}

	start := p.now()
	pred, _ := p.guard.Classify(ctx, img)
	res := Result{Prediction: pred, Duration: p.now().Sub(start)}

	// Fallbacks are transient and never cached.
	if p.cache != nil && !pred.Fallback {
		p.cache.Add(key, pred)
	}
	return res, nil
}

// CacheLen returns the number of cached predictions.
func (p *Pipeline) CacheLen() int {
	if p.cache == nil {
		return 0
	}
	return p.cache.Len()
}
