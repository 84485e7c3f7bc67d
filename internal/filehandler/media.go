// Package filehandler provides photo file handling for the seeding pipeline:
// the extension allow-list, the normalized metadata record, local EXIF
// extraction and the thumbnail transcoder.
//
// Metadata extraction uses two pure Go providers:
//   - rwcarlsen/goexif for JPEG and TIFF containers (primary)
//   - evanoberholster/imagemeta for containers goexif rejects (fallback)
package filehandler

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
)

// SupportedImageExtensions is the allow-list of photo extensions the
// pipeline accepts. Anything else is skipped as a wrong extension.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
}

var (
	// ErrNoMetadata is returned when a file carries no usable metadata.
	ErrNoMetadata = errors.New("no usable metadata")

	// ErrNoImageData is returned when a thumbnail cannot be produced
	// (unknown dimensions, undecodable bytes, vector formats).
	ErrNoImageData = errors.New("no image data")
)

// Metadata is the normalized geotemporal record for one photo, whichever
// source it came from.
//
// Width and Height are logical dimensions: when the EXIF orientation is a
// quarter turn the sensor dimensions have already been swapped.
type Metadata struct {
	CapturedAt *time.Time
	Latitude   *float64
	Longitude  *float64

	Width       int
	Height      int
	Orientation int
}

// HasCoordinates reports whether both latitude and longitude are known.
func (m *Metadata) HasCoordinates() bool {
	return m != nil && m.Latitude != nil && m.Longitude != nil
}

// HasDimensions reports whether both pixel dimensions are known.
func (m *Metadata) HasDimensions() bool {
	return m != nil && m.Width > 0 && m.Height > 0
}

// IsImage returns true if the extension is on the allow-list.
// The extension may be given with or without its leading dot.
func IsImage(ext string) bool {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	_, ok := SupportedImageExtensions[ext]
	return ok
}

// IsImagePath returns true if the file name carries an allowed extension.
func IsImagePath(name string) bool {
	return IsImage(filepath.Ext(name))
}

// GetMIMEType returns the MIME type for an allowed extension.
func GetMIMEType(ext string) (string, error) {
	ext = strings.ToLower(ext)
	if mime, ok := SupportedImageExtensions[ext]; ok {
		return mime, nil
	}
	return "", fmt.Errorf("unsupported file extension: %s", ext)
}

// DMSToDecimal converts a degrees/minutes/seconds triplet to decimal degrees.
func DMSToDecimal(degrees, minutes, seconds float64) float64 {
	return degrees + minutes/60 + seconds/3600
}

// CoordinatesToDMS converts decimal degrees to a degrees/minutes/seconds
// string for log output, e.g. 35.103 -> 35°6'10.80"N.
func CoordinatesToDMS(decimal float64, isLatitude bool) string {
	var direction string
	if isLatitude {
		direction = "N"
		if decimal < 0 {
			direction = "S"
		}
	} else {
		direction = "E"
		if decimal < 0 {
			direction = "W"
		}
	}

	decimal = math.Abs(decimal)
	degrees := int(decimal)
	minutesFloat := (decimal - float64(degrees)) * 60
	minutes := int(minutesFloat)
	seconds := (minutesFloat - float64(minutes)) * 60

	return fmt.Sprintf("%d°%d'%.2f\"%s", degrees, minutes, seconds, direction)
}

// swapsAxes reports whether an EXIF orientation value is a quarter turn,
// meaning the logical width is the sensor height.
func swapsAxes(orientation int) bool {
	switch orientation {
	case 5, 6, 7, 8:
		return true
	}
	return false
}

// LogicalDimensions returns the width and height as displayed after the
// EXIF orientation has been applied.
func LogicalDimensions(width, height, orientation int) (int, int) {
	if swapsAxes(orientation) {
		return height, width
	}
	return width, height
}
