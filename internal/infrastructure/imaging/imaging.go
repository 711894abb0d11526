// Package imaging hashes and resizes news pictures. The perceptual hash
// feeds the image identity; the renditions feed public object storage.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	"newsindex/internal/domain"
	"newsindex/internal/ports"
)

// minImageBytes rejects icons and tracking pixels before decoding.
const minImageBytes = 5000

// rendition describes one output size. A zero width means the source is
// passed through when it is not wider than the target.
type rendition struct {
	name    string
	width   int
	square  int
	quality int
}

var renditions = []rendition{
	{name: "master", width: 1024, quality: 90},
	{name: "large", width: 480, quality: 80},
	{name: "medium", width: 240, quality: 80},
	{name: "square", square: 90, quality: 80},
}

// Processor implements ports.ImageProcessor on the pure-Go image stack.
type Processor struct{}

var _ ports.ImageProcessor = (*Processor)(nil)

// NewProcessor constructs a processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// DHash computes the 64-bit difference hash of the image as 16 lowercase hex
// characters. Payloads below the minimum size fail with ErrTooSmallImage.
func (p *Processor) DHash(data []byte) (string, error) {
	if len(data) < minImageBytes {
		return "", fmt.Errorf("%w: %d bytes", domain.ErrTooSmallImage, len(data))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	// 9x8 grayscale thumbnail: one bit per horizontal neighbor pair.
	thumb := image.NewGray(image.Rect(0, 0, 9, 8))
	draw.ApproxBiLinear.Scale(thumb, thumb.Bounds(), img, img.Bounds(), draw.Src, nil)

	var bits uint64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			bits <<= 1
			if thumb.GrayAt(x, y).Y < thumb.GrayAt(x+1, y).Y {
				bits |= 1
			}
		}
	}
	return fmt.Sprintf("%016x", bits), nil
}

// Renditions produces every output size of the source image. Width is the
// identified source width; a source narrower than a target is passed through
// unresized.
func (p *Processor) Renditions(data []byte, width int) ([]ports.Rendition, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if width <= 0 {
		width = img.Bounds().Dx()
	}

	out := make([]ports.Rendition, 0, len(renditions))
	for _, r := range renditions {
		var body []byte
		var err error
		switch {
		case r.square > 0:
			body, err = encodeJPEG(squareCrop(img, r.square), r.quality)
		case width > r.width:
			body, err = encodeJPEG(resizeToWidth(img, r.width), r.quality)
		default:
			body = data
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", r.name, err)
		}
		out = append(out, ports.Rendition{Name: r.name, Body: body})
	}
	return out, nil
}

func resizeToWidth(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}

// squareCrop scales the image to cover the square and center-crops it.
func squareCrop(img image.Image, size int) image.Image {
	bounds := img.Bounds()
	scaledW, scaledH := size, size
	if bounds.Dx() > bounds.Dy() {
		scaledW = bounds.Dx() * size / bounds.Dy()
	} else {
		scaledH = bounds.Dy() * size / bounds.Dx()
	}

	scaled := image.NewRGBA(image.Rect(0, 0, scaledW, scaledH))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Src, nil)

	offsetX := (scaledW - size) / 2
	offsetY := (scaledH - size) / 2
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(dst, dst.Bounds(), scaled, image.Pt(offsetX, offsetY), draw.Src)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
