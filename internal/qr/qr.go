// Package qr renders link payloads as scannable images.
package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const pngSize = 256

// Renderer produces QR codes as PNG data URLs, ready to drop into an <img>
// tag. Rendering is pure: same payload, same image.
type Renderer struct{}

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// DataURL encodes payload into a QR PNG and returns it as a data URL.
func (r *Renderer) DataURL(payload []byte) (string, error) {
	png, err := qrcode.Encode(string(payload), qrcode.Medium, pngSize)
	if err != nil {
		return "", fmt.Errorf("failed to render qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
