package classifier

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxDimension bounds the width and height of a decoded frame.
const MaxDimension = 4096

// StripDataURL removes a "data:<mime>;base64," prefix if present.
func StripDataURL(payload string) string {
	if !strings.HasPrefix(payload, "data:") {
		return payload
	}
	if i := strings.IndexByte(payload, ','); i >= 0 {
		return payload[i+1:]
	}
	return payload
}

// DecodeBase64 decodes a base64 frame payload, optionally wrapped in a data
// URL, into raw image bytes.
func DecodeBase64(payload string) ([]byte, error) {
	s := strings.TrimSpace(StripDataURL(payload))
	if s == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrUndecodable)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
		}
	}
	return raw, nil
}

// DecodeImage decodes raw image bytes. JPEG, PNG, GIF, BMP and WebP are
// supported.
func DecodeImage(raw []byte) (image.Image, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUndecodable)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, fmt.Errorf("%w: dimensions %dx%d out of range", ErrUndecodable, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return img, nil
}

// DecodePayload is DecodeBase64 followed by DecodeImage.
func DecodePayload(payload string) (image.Image, error) {
	raw, err := DecodeBase64(payload)
	if err != nil {
		return nil, err
	}
	return DecodeImage(raw)
}
