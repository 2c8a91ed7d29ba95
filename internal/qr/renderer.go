package qr

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	barcodeqr "github.com/boombuler/barcode/qr"
)

// PNGRenderer encodes payloads as QR code PNG images.
type PNGRenderer struct {
	// PixelsPerModule is the edge length of one QR module in the output image.
	PixelsPerModule int
}

// NewPNGRenderer returns a renderer drawing 20px modules
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{PixelsPerModule: 20}
}

// RenderBase64 renders payload with error correction level Q and returns the PNG as standard base64.
func (r *PNGRenderer) RenderBase64(payload string) (string, error) {
	code, err := barcodeqr.Encode(payload, barcodeqr.Q, barcodeqr.Auto)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}

	size := code.Bounds().Dx() * r.PixelsPerModule
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return "", fmt.Errorf("scale qr: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
