package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/media-map/internal/sink"
	"github.com/fpang/media-map/internal/store"
)

// RemoveStore is the part of the record store targeted removal uses.
type RemoveStore interface {
	FindMedia(ctx context.Context, filter store.MediaFilter) ([]store.Media, error)
	DeleteMedia(ctx context.Context, ids []uint) (int64, error)
}

// RemoveOptions selects what Remove deletes.
type RemoveOptions struct {
	Store RemoveStore
	// Sink, when it implements sink.Remover, also loses the thumbnails.
	Sink sink.Sink

	Year  string
	Event string
}

// RemoveReport summarizes a removal.
type RemoveReport struct {
	Matched           int
	Deleted           int64
	ThumbnailsRemoved int
	ThumbnailsFailed  int
}

// Remove deletes the geotagged media of one year and/or event, together
// with their images and stored thumbnails. At least one of Year and Event
// is required. A thumbnail that cannot be removed is logged and counted;
// its records are deleted anyway.
func Remove(ctx context.Context, opts RemoveOptions) (*RemoveReport, error) {
	if opts.Store == nil {
		return nil, errors.New("seed: store is required")
	}
	filter := store.MediaFilter{
		Year:  strings.TrimSpace(opts.Year),
		Event: strings.TrimSpace(opts.Event),
	}
	if filter.Year == "" && filter.Event == "" {
		return nil, errors.New("seed: a year or an event is required")
	}

	media, err := opts.Store.FindMedia(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find media: %w", err)
	}

	report := &RemoveReport{Matched: len(media)}
	remover, _ := opts.Sink.(sink.Remover)

	ids := make([]uint, 0, len(media))
	for _, m := range media {
		ids = append(ids, m.ID)
		if remover == nil {
			continue
		}
		if len(m.Images) == 0 {
			log.Warn().Str("path", m.Path).Msg("No image found for media")
			continue
		}
		for _, img := range m.Images {
			if err := remover.Remove(ctx, img.PublicID); err != nil {
				report.ThumbnailsFailed++
				log.Warn().Err(err).Str("public_id", img.PublicID).Msg("Thumbnail was not removed")
				continue
			}
			report.ThumbnailsRemoved++
			log.Debug().Str("public_id", img.PublicID).Msg("Thumbnail removed")
		}
	}

	report.Deleted, err = opts.Store.DeleteMedia(ctx, ids)
	if err != nil {
		return report, fmt.Errorf("failed to delete media: %w", err)
	}

	log.Info().
		Str("year", filter.Year).
		Str("event", filter.Event).
		Int("matched", report.Matched).
		Int64("deleted", report.Deleted).
		Int("thumbnails_removed", report.ThumbnailsRemoved).
		Int("thumbnails_failed", report.ThumbnailsFailed).
		Msg("Media removed")
	return report, nil
}
