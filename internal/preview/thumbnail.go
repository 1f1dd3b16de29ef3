package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/charmbracelet/lipgloss"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultThumbnailWidth is the thumbnail width in terminal cells
	DefaultThumbnailWidth = 24

	// DefaultThumbnailHeight is the thumbnail height in pixels, two per terminal row
	DefaultThumbnailHeight = 24

	// MaxImagePixels caps the decoded size of a selected image
	MaxImagePixels = 40_000_000
)

// ErrImageTooLarge is returned for images whose pixel count exceeds MaxImagePixels
var ErrImageTooLarge = errors.New("image dimensions too large")

// Thumbnail decodes an image and returns a PNG downscaled to fit a
// width x height pixel box, plus the source dimensions.
func Thumbnail(data []byte, width, height int) ([]byte, image.Point, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("failed to decode image header: %w", err)
	}
	size := image.Pt(cfg.Width, cfg.Height)
	if size.X <= 0 || size.Y <= 0 {
		return nil, size, fmt.Errorf("image has no pixels")
	}
	if int64(size.X)*int64(size.Y) > MaxImagePixels {
		return nil, size, fmt.Errorf("%dx%d: %w", size.X, size.Y, ErrImageTooLarge)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, size, fmt.Errorf("failed to decode image: %w", err)
	}

	w, h := fitBox(size, width, height)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, size, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), size, nil
}

// fitBox scales size into a width x height box keeping the aspect ratio.
// Neither side grows past the source, and the height stays even since each
// cell renders two vertical pixels.
func fitBox(size image.Point, width, height int) (int, int) {
	if width <= 0 {
		width = DefaultThumbnailWidth
	}
	if height <= 0 {
		height = DefaultThumbnailHeight
	}
	width = min(width, size.X)
	height = max(2, min(height, size.Y)&^1)

	w, h := width, size.Y*width/size.X
	if h > height {
		w, h = max(1, size.X*height/size.Y), height
	}
	return w, max(2, (h+1)&^1)
}

// RenderHalfBlocks draws a thumbnail PNG with upper-half-block cells:
// foreground is the top pixel, background the bottom one.
func RenderHalfBlocks(thumb []byte) (string, error) {
	img, err := png.Decode(bytes.NewReader(thumb))
	if err != nil {
		return "", fmt.Errorf("failed to decode thumbnail: %w", err)
	}

	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top := hexColor(img.At(x, y))
			bottom := top
			if y+1 < b.Max.Y {
				bottom = hexColor(img.At(x, y+1))
			}
			sb.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom)).
				Render("▀"))
		}
	}
	return sb.String(), nil
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
