package filehandler

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// exifTimeLayout is the EXIF 2.3 date/time layout ("YYYY:MM:DD HH:MM:SS").
const exifTimeLayout = "2006:01:02 15:04:05"

// ExtractLocalMetadata reads a photo from disk and extracts its metadata.
// See ExtractMetadata for the resolution rules.
func ExtractLocalMetadata(filePath string, now time.Time) (*Metadata, error) {
	log.Debug().Str("path", filePath).Msg("Extracting local EXIF metadata")

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	meta, err := ExtractMetadata(data, now)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("path", filePath).
		Bool("has_gps", meta.HasCoordinates()).
		Int("width", meta.Width).
		Int("height", meta.Height).
		Int("orientation", meta.Orientation).
		Msg("Local metadata extraction complete")

	return meta, nil
}

// ExtractMetadata extracts capture time, GPS coordinates, orientation and
// logical pixel dimensions from raw photo bytes.
//
// goexif is tried first; when it cannot parse the container imagemeta is
// used instead. If neither yields EXIF, ErrNoMetadata is returned.
//
// Capture time preference: DateTimeOriginal, then CreateDate
// (DateTimeDigitized), then now. The fallback to now exists only for local
// files; the remote provider's capture time is left nil when absent.
//
// When EXIF carries no pixel dimensions they are read from the image
// header. Decoder panics on malformed files are recovered and reported as
// ErrNoMetadata.
func ExtractMetadata(data []byte, now time.Time) (meta *Metadata, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			meta = nil
			err = fmt.Errorf("%w: panic while decoding: %v", ErrNoMetadata, rec)
		}
	}()

	meta, exifErr := decodeGoexif(bytes.NewReader(data))
	if exifErr != nil {
		var metaErr error
		meta, metaErr = decodeImagemeta(bytes.NewReader(data))
		if metaErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoMetadata, errors.Join(exifErr, metaErr))
		}
	}

	if meta.CapturedAt == nil {
		t := now
		meta.CapturedAt = &t
	}

	if !meta.HasDimensions() {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err == nil {
			meta.Width, meta.Height = LogicalDimensions(cfg.Width, cfg.Height, meta.Orientation)
		} else {
			log.Debug().Err(err).Msg("Could not read image header for dimensions")
		}
	}

	return meta, nil
}

// decodeGoexif reads EXIF with rwcarlsen/goexif (JPEG APP1 and TIFF).
func decodeGoexif(r io.Reader) (*Metadata, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("goexif: %w", err)
	}

	meta := &Metadata{
		Orientation: tagToInt(x, exif.Orientation),
	}

	meta.Latitude = readCoordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef, "S")
	meta.Longitude = readCoordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef, "W")

	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized} {
		if t, ok := readTime(x, field); ok {
			meta.CapturedAt = &t
			break
		}
	}

	w := tagToInt(x, exif.PixelXDimension)
	h := tagToInt(x, exif.PixelYDimension)
	if w == 0 || h == 0 {
		w = tagToInt(x, exif.ImageWidth)
		h = tagToInt(x, exif.ImageLength)
	}
	if w > 0 && h > 0 {
		meta.Width, meta.Height = LogicalDimensions(w, h, meta.Orientation)
	}

	return meta, nil
}

// decodeImagemeta reads EXIF with evanoberholster/imagemeta, which also
// understands HEIC/BMFF and WebP containers.
func decodeImagemeta(r io.ReadSeeker) (*Metadata, error) {
	exifData, err := imagemeta.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("imagemeta: %w", err)
	}

	meta := &Metadata{Orientation: int(exifData.Orientation)}
	if exifData.ImageWidth > 0 && exifData.ImageHeight > 0 {
		meta.Width, meta.Height = LogicalDimensions(int(exifData.ImageWidth), int(exifData.ImageHeight), meta.Orientation)
	}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		lat, long := gps.Latitude(), gps.Longitude()
		meta.Latitude = &lat
		meta.Longitude = &long
	}

	if t := exifData.DateTimeOriginal(); !t.IsZero() {
		meta.CapturedAt = &t
	} else if t := exifData.CreateDate(); !t.IsZero() {
		meta.CapturedAt = &t
	}

	log.Debug().
		Str("make", strings.TrimSpace(exifData.Make)).
		Str("model", strings.TrimSpace(exifData.Model)).
		Msg("Decoded metadata with imagemeta fallback")

	return meta, nil
}

// readCoordinate converts a GPS degrees/minutes/seconds tag to signed
// decimal degrees. negRef is the hemisphere reference that flips the sign.
func readCoordinate(x *exif.Exif, field, refField exif.FieldName, negRef string) *float64 {
	tag, err := x.Get(field)
	if err != nil {
		return nil
	}

	dms, err := rationalTriplet(tag)
	if err != nil {
		log.Debug().Err(err).Str("field", string(field)).Msg("Malformed GPS tag")
		return nil
	}

	v := DMSToDecimal(dms[0], dms[1], dms[2])
	if ref, err := x.Get(refField); err == nil {
		if s, err := ref.StringVal(); err == nil && strings.EqualFold(strings.TrimSpace(s), negRef) {
			v = -v
		}
	}
	return &v
}

// rationalTriplet reads up to three rational values from a tag. Missing
// trailing values (minutes, seconds) are treated as zero.
func rationalTriplet(tag *tiff.Tag) ([3]float64, error) {
	var v [3]float64
	if tag.Format() != tiff.RatVal {
		return v, fmt.Errorf("unexpected tag format %v", tag.Format())
	}
	for i := 0; i < len(v) && i < int(tag.Count); i++ {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return v, err
		}
		if den == 0 {
			continue
		}
		v[i] = float64(num) / float64(den)
	}
	return v, nil
}

// tagToInt returns the first integer value of a tag, or 0 when absent.
func tagToInt(x *exif.Exif, field exif.FieldName) int {
	tag, err := x.Get(field)
	if err != nil {
		return 0
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return v
}

func readTime(x *exif.Exif, field exif.FieldName) (time.Time, bool) {
	tag, err := x.Get(field)
	if err != nil {
		return time.Time{}, false
	}
	s, err := tag.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	s = strings.TrimRight(strings.TrimSpace(s), "\x00")
	t, err := time.ParseInLocation(exifTimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
