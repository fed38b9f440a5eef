package qrcode

import (
	"encoding/base64"
	"fmt"

	qr "github.com/skip2/go-qrcode"

	"eventticketing/internal/domain"
)

// DefaultSize is the rendered image width and height in pixels.
const DefaultSize = 250

type generator struct {
	size  int
	level qr.RecoveryLevel
}

// NewGenerator returns a QRCodeGenerator producing base64 PNGs of the given size.
func NewGenerator(size int) domain.QRCodeGenerator {
	if size <= 0 {
		size = DefaultSize
	}
	return &generator{size: size, level: qr.Medium}
}

func (g *generator) Generate(content string) (string, error) {
	if content == "" {
		return "", fmt.Errorf("qr content is empty")
	}
	png, err := qr.Encode(content, g.level, g.size)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
