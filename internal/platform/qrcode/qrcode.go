package qrcode

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const (
	DefaultSize = 200
	MinSize     = 64
	MaxSize     = 2048
	// MarginModules is the quiet zone drawn around the code, in modules.
	MarginModules = 2
)

var (
	ErrEmptyContent = errors.New("qr content is empty")
	ErrInvalidSize  = errors.New("qr size out of range")
)

// PNG renders content as a size x size PNG with a white quiet zone.
func PNG(content string, size int) ([]byte, error) {
	img, err := Image(content, size)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Image(content string, size int) (image.Image, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if size == 0 {
		size = DefaultSize
	}
	if size < MinSize || size > MaxSize {
		return nil, ErrInvalidSize
	}

	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	modules := code.Bounds().Dx()
	scale := size / (modules + 2*MarginModules)
	if scale < 1 {
		return nil, ErrInvalidSize
	}
	scaled, err := barcode.Scale(code, modules*scale, modules*scale)
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	offset := (size - modules*scale) / 2
	target := image.Rect(offset, offset, offset+modules*scale, offset+modules*scale)
	draw.Draw(canvas, target, scaled, scaled.Bounds().Min, draw.Src)
	return canvas, nil
}
