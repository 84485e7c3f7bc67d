// Package seed drives a seeding run: it walks a source's year -> event ->
// file hierarchy, filters and transcodes each photo, stores the thumbnail
// and persists the media record, counting every skip by reason.
package seed

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fpang/media-map/internal/filehandler"
	"github.com/fpang/media-map/internal/metrics"
	"github.com/fpang/media-map/internal/sink"
	"github.com/fpang/media-map/internal/source"
	"github.com/fpang/media-map/internal/store"
)

// AllYears selects every year partition of the source.
const AllYears = "all"

// Store is the part of the record store a seeding run writes to.
type Store interface {
	PersistMedia(ctx context.Context, m *store.Media, img *store.Image) error
	DeleteAllImages(ctx context.Context) (int64, error)
	DeleteAllMedia(ctx context.Context) (int64, error)
}

// Options configures a run.
type Options struct {
	Source source.Source
	Sink   sink.Sink
	Store  Store

	// Years lists the partitions to process, in order. Empty or "all"
	// processes every partition the source lists.
	Years []string

	// Reset empties the record store (and a purgeable sink) first.
	Reset bool

	// ThumbnailSize is the longest thumbnail edge; 0 means 512.
	ThumbnailSize int

	// Workers bounds how many files of one event are processed at once.
	// 0 or 1 processes files sequentially in listing order.
	Workers int

	// Metrics, when set, receives the final counters as one EMF line.
	Metrics *metrics.Recorder

	Now func() time.Time
}

func (o *Options) validate() error {
	switch {
	case o.Source == nil:
		return errors.New("seed: source is required")
	case o.Sink == nil:
		return errors.New("seed: sink is required")
	case o.Store == nil:
		return errors.New("seed: store is required")
	}
	if o.ThumbnailSize <= 0 {
		o.ThumbnailSize = filehandler.DefaultThumbnailSize
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return nil
}

type pipeline struct {
	opts     Options
	counters *RunCounters
}

// Run executes one seeding run. Per-file failures never abort the run:
// they are counted and logged. Reset failures are fatal. When ctx is
// cancelled the run stops before the next file and the partial report is
// returned together with ctx.Err().
func Run(ctx context.Context, opts Options) (*RunReport, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	p := &pipeline{opts: opts, counters: &RunCounters{}}
	started := opts.Now()

	log.Info().
		Str("source", opts.Source.Kind()).
		Str("storage", opts.Sink.Kind()).
		Strs("years", opts.Years).
		Bool("reset", opts.Reset).
		Int("workers", opts.Workers).
		Msg("Seeding run started")

	if opts.Reset {
		if err := p.reset(ctx); err != nil {
			return nil, err
		}
	}

	years := p.years(ctx)
	runErr := p.walk(ctx, years)

	report := &RunReport{
		Counters: p.counters.Snapshot(),
		Started:  started,
		Finished: opts.Now(),
		Source:   opts.Source.Kind(),
		Storage:  opts.Sink.Kind(),
		Years:    years,
	}
	report.Duration = report.Finished.Sub(report.Started)
	report.Log()

	if opts.Metrics != nil {
		report.Record(opts.Metrics)
		if err := opts.Metrics.Flush(); err != nil {
			log.Warn().Err(err).Msg("Failed to emit run metrics")
		}
	}

	return report, runErr
}

func (p *pipeline) reset(ctx context.Context) error {
	images, err := p.opts.Store.DeleteAllImages(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset images: %w", err)
	}
	media, err := p.opts.Store.DeleteAllMedia(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset media: %w", err)
	}
	if purger, ok := p.opts.Sink.(sink.Purger); ok {
		if err := purger.Purge(ctx); err != nil {
			return fmt.Errorf("failed to purge thumbnails: %w", err)
		}
	}
	log.Info().Int64("images", images).Int64("media", media).Msg("Record store reset")
	return nil
}

func (p *pipeline) years(ctx context.Context) []string {
	if len(p.opts.Years) > 0 && !(len(p.opts.Years) == 1 && strings.EqualFold(p.opts.Years[0], AllYears)) {
		return p.opts.Years
	}
	years, err := p.opts.Source.ListPartitions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list year partitions")
		return nil
	}
	return years
}

func (p *pipeline) walk(ctx context.Context, years []string) error {
	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return err
		}

		events, err := p.opts.Source.ListEvents(ctx, year)
		if err != nil {
			log.Error().Err(err).Str("year", year).Msg("Failed to list events, treating as empty")
			events = nil
		}
		p.counters.foundEvents(len(events))
		log.Info().Str("year", year).Int("events", len(events)).Msg("Year partition found")

		for _, ev := range events {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.processEvent(ctx, ev)
		}
	}
	return ctx.Err()
}

func (p *pipeline) processEvent(ctx context.Context, ev source.Event) {
	files, err := p.opts.Source.ListFiles(ctx, ev)
	if err != nil {
		log.Error().Err(err).Str("event", ev.Path).Msg("Failed to list files, treating as empty")
		files = nil
	}
	p.counters.foundMedia(len(files))
	log.Info().
		Str("year", ev.Year).
		Str("event", ev.Name).
		Int("files", len(files)).
		Msg("Event found")

	if p.opts.Workers <= 1 {
		for _, f := range files {
			if ctx.Err() != nil {
				return
			}
			p.processFile(ctx, f)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(p.opts.Workers)
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() == nil {
				p.processFile(ctx, f)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// processFile runs the per-file step and records its outcome.
func (p *pipeline) processFile(ctx context.Context, f source.File) Outcome {
	out := p.step(ctx, f)

	if out.OK() {
		p.counters.created()
		log.Info().
			Str("path", f.Path).
			Str("stage", out.Stage.String()).
			Str("event", out.Media.Event).
			Str("latitude", filehandler.CoordinatesToDMS(*out.Media.Latitude, true)).
			Str("longitude", filehandler.CoordinatesToDMS(*out.Media.Longitude, false)).
			Msg("File processed")
		return out
	}

	p.counters.skip(out.Reason)
	e := log.Info()
	switch out.Reason {
	case ReasonNoImageData, ReasonUploadFailed:
		e = log.Warn()
	case ReasonPersistFailed:
		e = log.Error()
	}
	e.Err(out.Err).
		Str("path", f.Path).
		Str("stage", out.Stage.String()).
		Str("reason", string(out.Reason)).
		Msg("File skipped")
	return out
}

func (p *pipeline) step(ctx context.Context, f source.File) Outcome {
	name := f.Name
	if name == "" {
		name = path.Base(f.Path)
	}
	if !filehandler.IsImagePath(name) {
		return Outcome{Stage: StageFetched, Reason: ReasonWrongExtension}
	}

	meta, err := p.opts.Source.Metadata(ctx, f)
	if err != nil || meta == nil {
		return Outcome{Stage: StageFetched, Reason: ReasonNoMetatag, Err: err}
	}

	if strings.TrimSpace(f.Event.Name) == "" {
		return Outcome{Stage: StageMetadataResolved, Reason: ReasonEventMissing}
	}
	if !meta.HasCoordinates() {
		return Outcome{Stage: StageMetadataResolved, Reason: ReasonCoordsMissing}
	}

	data, err := p.opts.Source.ReadBytes(ctx, f)
	if err != nil {
		return Outcome{Stage: StageFiltered, Reason: ReasonNoImageData, Err: err}
	}
	width, height := meta.Width, meta.Height
	if !meta.HasDimensions() {
		width, height, err = filehandler.DecodeDimensions(data)
		if err != nil {
			return Outcome{Stage: StageFiltered, Reason: ReasonNoImageData, Err: err}
		}
	}
	thumb, err := filehandler.Resize(data, width, height, p.opts.ThumbnailSize)
	if err != nil {
		return Outcome{Stage: StageFiltered, Reason: ReasonNoImageData, Err: err}
	}

	handle, err := p.opts.Sink.Store(ctx, thumb)
	if err != nil {
		return Outcome{Stage: StageTranscoded, Reason: ReasonUploadFailed, Err: err}
	}

	m := &store.Media{
		SourceID:   f.ID,
		Path:       f.Path,
		CapturedAt: meta.CapturedAt,
		Latitude:   meta.Latitude,
		Longitude:  meta.Longitude,
		Event:      NormalizeEvent(f.Event.Name),
	}
	img := &store.Image{
		PublicID: handle.PublicID,
		Format:   handle.Format,
		Version:  handle.Version,
	}
	if err := p.opts.Store.PersistMedia(ctx, m, img); err != nil {
		// The thumbnail is already stored; it stays orphaned until the
		// next reset run.
		return Outcome{Stage: StageStored, Reason: ReasonPersistFailed, Err: err}
	}

	return Outcome{Stage: StagePersisted, Media: m}
}
