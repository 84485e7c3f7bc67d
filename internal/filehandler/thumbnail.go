package filehandler

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultThumbnailSize is the longest edge, in pixels, of generated thumbnails.
const DefaultThumbnailSize = 512

// ThumbnailFormat is the format tag of every generated thumbnail.
const ThumbnailFormat = "png"

// ThumbnailDimensions scales width and height so the longest edge equals
// target, preserving aspect ratio: ratio = max(w, h) / target.
func ThumbnailDimensions(width, height, target int) (int, int) {
	ratio := float64(max(width, height)) / float64(target)
	w := int(math.Round(float64(width) / ratio))
	h := int(math.Round(float64(height) / ratio))
	return max(w, 1), max(h, 1)
}

// Resize decodes a photo, applies its EXIF orientation and scales it so the
// longest edge is target pixels, returning PNG bytes.
//
// width and height are the logical dimensions reported by the metadata
// extractor. Unknown or zero dimensions, vector images and undecodable
// bytes all yield ErrNoImageData.
func Resize(data []byte, width, height, target int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: unknown dimensions %dx%d", ErrNoImageData, width, height)
	}
	if target <= 0 {
		target = DefaultThumbnailSize
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoImageData, err)
	}

	newWidth, newHeight := ThumbnailDimensions(width, height, target)

	resized := image.NewNRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	log.Debug().
		Int("orig_width", width).
		Int("orig_height", height).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_size", buf.Len()).
		Msg("Thumbnail generated")

	return buf.Bytes(), nil
}

// DecodeDimensions reads the pixel dimensions from an image header without
// decoding the full image.
func DecodeDimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrNoImageData, err)
	}
	return cfg.Width, cfg.Height, nil
}
