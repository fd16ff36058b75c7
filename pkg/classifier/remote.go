package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"

	"golang.org/x/image/draw"
)

// DefaultInputSize is the square edge, in pixels, frames are resized to.
const DefaultInputSize = 224

// Remote classifies frames by posting them to an HTTP inference endpoint.
//
// The request body is the frame resized to InputSize x InputSize and encoded
// as PNG. The endpoint answers with {"label": string, "confidence": number}.
type Remote struct {
	url       string
	client    *http.Client
	inputSize int
}

// RemoteOption configures a Remote classifier.
type RemoteOption func(*Remote)

// WithHTTPClient sets the HTTP client used for inference calls.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) {
		r.client = c
	}
}

// WithInputSize sets the edge length frames are resized to. Zero disables
// resizing.
func WithInputSize(n int) RemoteOption {
	return func(r *Remote) {
		r.inputSize = n
	}
}

// NewRemote creates a remote classifier for url with the given request timeout.
func NewRemote(url string, timeout time.Duration, opts ...RemoteOption) *Remote {
	r := &Remote{
		url:       url,
		client:    &http.Client{Timeout: timeout},
		inputSize: DefaultInputSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type remoteResponse struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
}

// Classify posts img to the endpoint.
func (r *Remote) Classify(ctx context.Context, img image.Image) (Prediction, error) {
	var body bytes.Buffer
	if err := png.Encode(&body, Resize(img, r.inputSize)); err != nil {
		return Prediction{}, fmt.Errorf("failed to encode frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, &body)
	if err != nil {
		return Prediction{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Prediction{}, fmt.Errorf("inference endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return Prediction{}, fmt.Errorf("failed to decode inference response: %w", err)
	}
	if out.Label == "" || out.Confidence == nil {
		return Prediction{}, fmt.Errorf("inference response missing label or confidence")
	}
	return Prediction{Label: out.Label, Confidence: *out.Confidence}, nil
}

// Resize scales img to a size x size RGBA image. Images already at that size,
// and a non-positive size, are returned unchanged.
func Resize(img image.Image, size int) image.Image {
	b := img.Bounds()
	if size <= 0 || (b.Dx() == size && b.Dy() == size) {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
